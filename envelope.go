// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package onisave

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"io"

	"go.uber.org/zap"
)

// saveMagic is the four-byte marker separating the header-describing
// portion of the body from the entity data.
const saveMagic = "KSAV"

// defaultMajorVersion and defaultMinorVersion are the save format versions
// this codec targets (spec §6 default target versions).
const (
	defaultMajorVersion int32 = 7
	defaultMinorVersion int32 = 35
)

// GameInfo is the JSON-encoded header payload: colony identity and save
// provenance. Field names mirror the .NET SaveGame+GameInfo class and must
// not be renamed — they're the wire format.
type GameInfo struct {
	NumberOfCycles     int32  `json:"numberOfCycles"`
	NumberOfDuplicants int32  `json:"numberOfDuplicants"`
	BaseName           string `json:"baseName"`
	IsAutoSave         bool   `json:"isAutoSave"`
	OriginalSaveName   string `json:"originalSaveName"`
	SaveMajorVersion   int32  `json:"saveMajorVersion"`
	SaveMinorVersion   int32  `json:"saveMinorVersion"`
	ClusterID          string `json:"clusterId"`
	SandboxEnabled     bool   `json:"sandboxEnabled"`
	ColonyGUID         string `json:"colonyGuid"`
	DlcID              string `json:"dlcId"`
}

// SaveHeader is the save file's uncompressed preamble.
type SaveHeader struct {
	BuildVersion  uint32
	HeaderVersion uint32
	Compressed    bool
	GameInfo      GameInfo
}

// ReadSaveHeader parses build_version, header_size, header_version, the
// optional compressed flag (header_version >= 1), then the JSON game info
// payload.
func ReadSaveHeader(r *Reader) (SaveHeader, error) {
	buildVersion, err := r.U32()
	if err != nil {
		return SaveHeader{}, err
	}
	headerSize, err := r.U32()
	if err != nil {
		return SaveHeader{}, err
	}
	headerVersion, err := r.U32()
	if err != nil {
		return SaveHeader{}, err
	}

	var compressed bool
	if headerVersion >= 1 {
		flag, err := r.U32()
		if err != nil {
			return SaveHeader{}, err
		}
		compressed = flag != 0
	}

	jsonBytes, err := r.Exact(int(headerSize))
	if err != nil {
		return SaveHeader{}, err
	}

	var info GameInfo
	if err := json.Unmarshal(jsonBytes, &info); err != nil {
		return SaveHeader{}, corrupt(r.Offset(), "failed to parse game info json: %v", err)
	}

	return SaveHeader{
		BuildVersion:  buildVersion,
		HeaderVersion: headerVersion,
		Compressed:    compressed,
		GameInfo:      info,
	}, nil
}

// WriteSaveHeader is the inverse of ReadSaveHeader.
func WriteSaveHeader(w *Writer, h SaveHeader) error {
	jsonBytes, err := json.Marshal(h.GameInfo)
	if err != nil {
		return corruptNoOffset("failed to encode game info json: %v", err)
	}

	w.U32(h.BuildVersion)
	w.U32(uint32(len(jsonBytes)))
	w.U32(h.HeaderVersion)
	if h.HeaderVersion >= 1 {
		if h.Compressed {
			w.U32(1)
		} else {
			w.U32(0)
		}
	}
	w.WriteRaw(jsonBytes)
	return nil
}

// LoadOptions configures Load/OpenFile.
type LoadOptions struct {
	// Verify enables the version gate; defaults to true when Options is nil.
	Verify bool
	// AllowMinorMismatch, when Verify is set, skips the minor-version check.
	AllowMinorMismatch bool
	Logger             *zap.SugaredLogger
}

// SaveOptions configures Bytes/Save.
type SaveOptions struct {
	Logger *zap.SugaredLogger
}

func (o *LoadOptions) logger() *zap.SugaredLogger {
	if o == nil || o.Logger == nil {
		return defaultLogger()
	}
	return o.Logger
}

func (o *SaveOptions) logger() *zap.SugaredLogger {
	if o == nil || o.Logger == nil {
		return defaultLogger()
	}
	return o.Logger
}

// SaveGame is the root value: everything needed to reproduce a save file
// byte-for-byte (given equal compression settings).
type SaveGame struct {
	Header        SaveHeader
	Templates     *TemplateTable
	World         map[string]any
	Settings      map[string]any
	SimData       []byte
	VersionMajor  int32
	VersionMinor  int32
	Groups        []EntityGroup
	Tail          []byte

	log    *zap.SugaredLogger
	closer func() error
}

func verifyVersion(info GameInfo, opts *LoadOptions) error {
	if opts != nil && !opts.Verify {
		return nil
	}
	allowMinor := opts == nil || opts.AllowMinorMismatch
	if info.SaveMajorVersion != defaultMajorVersion {
		return &VersionMismatchError{
			ExpectedMajor: defaultMajorVersion, ExpectedMinor: defaultMinorVersion,
			ActualMajor: info.SaveMajorVersion, ActualMinor: info.SaveMinorVersion,
		}
	}
	if !allowMinor && info.SaveMinorVersion != defaultMinorVersion {
		return &VersionMismatchError{
			ExpectedMajor: defaultMajorVersion, ExpectedMinor: defaultMinorVersion,
			ActualMajor: info.SaveMajorVersion, ActualMinor: info.SaveMinorVersion,
		}
	}
	return nil
}

// Load parses a complete save file from an in-memory byte slice.
func Load(data []byte, opts *LoadOptions) (*SaveGame, error) {
	log := opts.logger()
	r := NewReader(data)

	header, err := ReadSaveHeader(r)
	if err != nil {
		return nil, err
	}
	if err := verifyVersion(header.GameInfo, opts); err != nil {
		return nil, err
	}

	templates, err := ReadTemplateTable(r)
	if err != nil {
		return nil, err
	}

	var body *Reader
	if header.Compressed {
		decompressed, err := inflate(r.Remaining())
		if err != nil {
			return nil, corrupt(r.Offset(), "failed to decompress save body: %v", err)
		}
		body = NewReader(decompressed)
	} else {
		body = r
	}

	sg, err := parseBody(body, templates, log)
	if err != nil {
		return nil, err
	}
	sg.Header = header
	sg.Templates = templates
	sg.log = log
	return sg, nil
}

func parseBody(r *Reader, templates *TemplateTable, log *zap.SugaredLogger) (*SaveGame, error) {
	marker, isNull, err := r.KleiString()
	if err != nil {
		return nil, err
	}
	if isNull || marker != "world" {
		return nil, corrupt(r.Offset(), "expected %q marker, got %q", "world", marker)
	}

	worldName, isNull, err := r.KleiString()
	if err != nil {
		return nil, err
	}
	if isNull {
		return nil, corrupt(r.Offset(), "expected world type name, got null")
	}
	if worldName != "Klei.SaveFileRoot" {
		return nil, corrupt(r.Offset(), "expected world type %q, got %q", "Klei.SaveFileRoot", worldName)
	}
	world, err := parseByTemplate(r, templates, worldName)
	if err != nil {
		return nil, err
	}

	settingsName, isNull, err := r.KleiString()
	if err != nil {
		return nil, err
	}
	if isNull {
		return nil, corrupt(r.Offset(), "expected settings type name, got null")
	}
	if settingsName != "Game+Settings" {
		return nil, corrupt(r.Offset(), "expected settings type %q, got %q", "Game+Settings", settingsName)
	}
	settings, err := parseByTemplate(r, templates, settingsName)
	if err != nil {
		return nil, err
	}

	simLengthOffset := r.Offset()
	simLength, err := r.I32()
	if err != nil {
		return nil, err
	}
	if simLength < 0 {
		return nil, corrupt(simLengthOffset, "negative sim_data_length %d", simLength)
	}
	simData, err := r.Exact(int(simLength))
	if err != nil {
		return nil, err
	}

	magic, err := r.AsciiFixed(len(saveMagic))
	if err != nil {
		return nil, err
	}
	if magic != saveMagic {
		return nil, corrupt(r.Offset(), "expected %q marker, got %q", saveMagic, magic)
	}

	versionMajor, err := r.I32()
	if err != nil {
		return nil, err
	}
	versionMinor, err := r.I32()
	if err != nil {
		return nil, err
	}

	groups, err := ReadEntityGroups(r, templates, log)
	if err != nil {
		return nil, err
	}

	tail := append([]byte(nil), r.Remaining()...)

	return &SaveGame{
		World:        world,
		Settings:     settings,
		SimData:      append([]byte(nil), simData...),
		VersionMajor: versionMajor,
		VersionMinor: versionMinor,
		Groups:       groups,
		Tail:         tail,
	}, nil
}

// Bytes serializes the save game back to its on-disk form.
func (sg *SaveGame) Bytes(opts *SaveOptions) ([]byte, error) {
	log := opts.logger()
	w := NewWriter()
	if err := WriteSaveHeader(w, sg.Header); err != nil {
		return nil, err
	}
	if err := WriteTemplateTable(w, sg.Templates); err != nil {
		return nil, err
	}

	body, err := measure(func(bw *Writer) error {
		return writeBody(bw, sg.Templates, sg)
	})
	if err != nil {
		return nil, err
	}

	if sg.Header.Compressed {
		compressed, err := deflate(body)
		if err != nil {
			return nil, corruptNoOffset("failed to compress save body: %v", err)
		}
		log.Debugw("compressed save body", "raw_size", len(body), "compressed_size", len(compressed))
		w.WriteRaw(compressed)
	} else {
		w.WriteRaw(body)
	}
	return w.Bytes(), nil
}

func writeBody(w *Writer, templates *TemplateTable, sg *SaveGame) error {
	w.KleiString("world", false)

	w.KleiString("Klei.SaveFileRoot", false)
	if err := writeByTemplate(w, templates, "Klei.SaveFileRoot", sg.World); err != nil {
		return err
	}

	w.KleiString("Game+Settings", false)
	if err := writeByTemplate(w, templates, "Game+Settings", sg.Settings); err != nil {
		return err
	}

	w.I32(int32(len(sg.SimData)))
	w.WriteRaw(sg.SimData)

	w.AsciiFixed(saveMagic)
	w.I32(sg.VersionMajor)
	w.I32(sg.VersionMinor)

	if err := WriteEntityGroups(w, templates, sg.Groups); err != nil {
		return err
	}

	w.WriteRaw(sg.Tail)
	return nil
}

// Save writes the save game to path.
func (sg *SaveGame) Save(path string, opts *SaveOptions) error {
	data, err := sg.Bytes(opts)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// Close releases any resources backing the save game (the mmap, if
// OpenFile was used to load it). It is a no-op for in-memory saves.
func (sg *SaveGame) Close() error {
	if sg.closer == nil {
		return nil
	}
	return sg.closer()
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
