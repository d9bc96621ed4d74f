// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package onisave

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// OpenFile memory-maps a save file from disk and parses it, mirroring the
// teacher's mmap-backed File.New constructor. The returned SaveGame must be
// Close()d to release the mapping.
func OpenFile(path string, opts *LoadOptions) (*SaveGame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	sg, err := Load(data, opts)
	if err != nil {
		_ = data.Unmap()
		f.Close()
		return nil, err
	}
	sg.closer = func() error {
		unmapErr := data.Unmap()
		closeErr := f.Close()
		if unmapErr != nil {
			return unmapErr
		}
		return closeErr
	}
	return sg, nil
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

// ListGroups returns the prefab names present in the save, in file order.
func (sg *SaveGame) ListGroups() []string {
	names := make([]string, len(sg.Groups))
	for i, g := range sg.Groups {
		names[i] = g.Prefab
	}
	return names
}

// GetGroup returns the entities for one prefab name, or nil if absent.
func (sg *SaveGame) GetGroup(prefab string) []Entity {
	for _, g := range sg.Groups {
		if g.Prefab == prefab {
			return g.Entities
		}
	}
	return nil
}

// PrefabCounts maps each prefab name to its instance count. Supplements the
// original Python reference's get_prefab_counts.
func (sg *SaveGame) PrefabCounts() map[string]int {
	counts := make(map[string]int, len(sg.Groups))
	for _, g := range sg.Groups {
		counts[g.Prefab] = len(g.Entities)
	}
	return counts
}

// ColonyInfo summarizes the save header's game info alongside
// envelope-level facts (build version, compression), mirroring the
// original reference's get_colony_info.
type ColonyInfo struct {
	ColonyName      string
	Cycle           int32
	DuplicantCount  int32
	ClusterID       string
	DlcID           string
	IsAutoSave      bool
	SandboxEnabled  bool
	SaveVersionMajor int32
	SaveVersionMinor int32
	BuildVersion    uint32
	Compressed      bool
}

// ColonyInfo extracts the colony summary from the save header.
func (sg *SaveGame) ColonyInfo() ColonyInfo {
	info := sg.Header.GameInfo
	return ColonyInfo{
		ColonyName:       info.BaseName,
		Cycle:            info.NumberOfCycles,
		DuplicantCount:   info.NumberOfDuplicants,
		ClusterID:        info.ClusterID,
		DlcID:            info.DlcID,
		IsAutoSave:       info.IsAutoSave,
		SandboxEnabled:   info.SandboxEnabled,
		SaveVersionMajor: info.SaveMajorVersion,
		SaveVersionMinor: info.SaveMinorVersion,
		BuildVersion:     sg.Header.BuildVersion,
		Compressed:       sg.Header.Compressed,
	}
}
