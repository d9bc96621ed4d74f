// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package onisave

import (
	"reflect"
	"testing"
)

func testGameInfo() GameInfo {
	return GameInfo{
		NumberOfCycles:     12,
		NumberOfDuplicants: 3,
		BaseName:           "Testville",
		IsAutoSave:         false,
		OriginalSaveName:   "Testville",
		SaveMajorVersion:   defaultMajorVersion,
		SaveMinorVersion:   defaultMinorVersion,
		ClusterID:          "cluster-1",
		SandboxEnabled:     false,
		ColonyGUID:         "11111111-2222-3333-4444-555555555555",
		DlcID:              "",
	}
}

func TestSaveHeaderRoundTrip(t *testing.T) {
	h := SaveHeader{
		BuildVersion:  123456,
		HeaderVersion: 1,
		Compressed:    true,
		GameInfo:      testGameInfo(),
	}

	w := NewWriter()
	if err := WriteSaveHeader(w, h); err != nil {
		t.Fatalf("WriteSaveHeader() error = %v", err)
	}
	r := NewReader(w.Bytes())
	got, err := ReadSaveHeader(r)
	if err != nil {
		t.Fatalf("ReadSaveHeader() error = %v", err)
	}
	if !reflect.DeepEqual(got, h) {
		t.Errorf("round trip = %+v, want %+v", got, h)
	}
}

func TestVerifyVersionGate(t *testing.T) {
	tests := []struct {
		name    string
		info    GameInfo
		opts    *LoadOptions
		wantErr bool
	}{
		{"matches default", GameInfo{SaveMajorVersion: 7, SaveMinorVersion: 35}, nil, false},
		{"major mismatch", GameInfo{SaveMajorVersion: 6, SaveMinorVersion: 35}, nil, true},
		{"minor mismatch strict", GameInfo{SaveMajorVersion: 7, SaveMinorVersion: 1}, &LoadOptions{Verify: true, AllowMinorMismatch: false}, true},
		{"minor mismatch allowed", GameInfo{SaveMajorVersion: 7, SaveMinorVersion: 1}, &LoadOptions{Verify: true, AllowMinorMismatch: true}, false},
		{"verify disabled", GameInfo{SaveMajorVersion: 1, SaveMinorVersion: 1}, &LoadOptions{Verify: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifyVersion(tt.info, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("verifyVersion() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if _, ok := err.(*VersionMismatchError); !ok {
					t.Errorf("error type = %T, want *VersionMismatchError", err)
				}
			}
		})
	}
}

func buildMinimalSave(compressed bool) *SaveGame {
	worldTemplate := &Template{
		Name:   "Klei.SaveFileRoot",
		Fields: []TemplateMember{{Name: "buildVersion", Type: &TypeDescriptor{Code: TypeInt32}}},
	}
	settingsTemplate := &Template{
		Name:   "Game+Settings",
		Fields: []TemplateMember{{Name: "difficulty", Type: &TypeDescriptor{Code: TypeInt32}}},
	}
	return &SaveGame{
		Header: SaveHeader{
			BuildVersion:  123456,
			HeaderVersion: 1,
			Compressed:    compressed,
			GameInfo:      testGameInfo(),
		},
		Templates:    &TemplateTable{Templates: []*Template{worldTemplate, settingsTemplate}},
		World:        map[string]any{"buildVersion": int32(123456)},
		Settings:     map[string]any{"difficulty": int32(2)},
		SimData:      []byte{},
		VersionMajor: 7,
		VersionMinor: 35,
		Groups:       nil,
		Tail:         []byte{},
	}
}

func TestEmptyUncompressedSaveRoundTrip(t *testing.T) {
	sg := buildMinimalSave(false)

	data, err := sg.Bytes(nil)
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	got, err := Load(data, &LoadOptions{Verify: true, AllowMinorMismatch: false})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got.World, sg.World) {
		t.Errorf("World = %v, want %v", got.World, sg.World)
	}
	if !reflect.DeepEqual(got.Settings, sg.Settings) {
		t.Errorf("Settings = %v, want %v", got.Settings, sg.Settings)
	}
	if got.ColonyInfo().Compressed {
		t.Error("ColonyInfo().Compressed = true, want false")
	}

	data2, err := got.Bytes(nil)
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	if !reflect.DeepEqual(data, data2) {
		t.Error("re-write did not reproduce original bytes")
	}
}

func TestCompressedSaveWithThreeGroups(t *testing.T) {
	sg := buildMinimalSave(true)

	minionEntities := make([]Entity, 5)
	for i := range minionEntities {
		minionEntities[i] = Entity{Components: []Component{}}
	}
	tileEntities := make([]Entity, 1000)
	for i := range tileEntities {
		tileEntities[i] = Entity{Components: []Component{}}
	}
	doorEntities := make([]Entity, 10)
	for i := range doorEntities {
		doorEntities[i] = Entity{Components: []Component{}}
	}
	sg.Groups = []EntityGroup{
		{Prefab: "Minion", Entities: minionEntities},
		{Prefab: "Tile", Entities: tileEntities},
		{Prefab: "Door", Entities: doorEntities},
	}

	data, err := sg.Bytes(nil)
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	got, err := Load(data, &LoadOptions{Verify: true, AllowMinorMismatch: false})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.GetGroup("Minion")) != 5 {
		t.Errorf("GetGroup(Minion) length = %d, want 5", len(got.GetGroup("Minion")))
	}
	if len(got.GetGroup("Tile")) != 1000 {
		t.Errorf("GetGroup(Tile) length = %d, want 1000", len(got.GetGroup("Tile")))
	}
	if len(got.GetGroup("Door")) != 10 {
		t.Errorf("GetGroup(Door) length = %d, want 10", len(got.GetGroup("Door")))
	}

	data2, err := got.Bytes(nil)
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	if !reflect.DeepEqual(data, data2) {
		t.Error("re-write did not reproduce original bytes")
	}
}

func TestListGroupsAndPrefabCounts(t *testing.T) {
	sg := buildMinimalSave(false)
	sg.Groups = []EntityGroup{
		{Prefab: "Minion", Entities: make([]Entity, 2)},
		{Prefab: "Door", Entities: make([]Entity, 1)},
	}

	if got := sg.ListGroups(); !reflect.DeepEqual(got, []string{"Minion", "Door"}) {
		t.Errorf("ListGroups() = %v", got)
	}
	counts := sg.PrefabCounts()
	if counts["Minion"] != 2 || counts["Door"] != 1 {
		t.Errorf("PrefabCounts() = %v", counts)
	}
}
