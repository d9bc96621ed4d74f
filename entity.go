// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package onisave

import "go.uber.org/zap"

// Entity is one object in a save: a transform, a folder index, and an
// ordered list of components. Components are never reordered — file order
// is preserved on both read and write.
type Entity struct {
	Position   Vector3
	Rotation   Quaternion
	Scale      Vector3
	Folder     uint8
	Components []Component
}

// EntityGroup is a prefab's instance list: all entities sharing one prefab
// name, framed by their own data_length. Reading fails with a corruption
// error when the entities do not consume exactly that many bytes.
type EntityGroup struct {
	Prefab   string
	Entities []Entity
}

// ReadEntity reads one entity: position, rotation, scale, folder, then its
// component list in file order.
func ReadEntity(r *Reader, templates *TemplateTable, log *zap.SugaredLogger) (Entity, error) {
	pos, err := readVector3(r)
	if err != nil {
		return Entity{}, err
	}
	rot, err := readQuaternion(r)
	if err != nil {
		return Entity{}, err
	}
	scale, err := readVector3(r)
	if err != nil {
		return Entity{}, err
	}
	folder, err := r.U8()
	if err != nil {
		return Entity{}, err
	}

	countOffset := r.Offset()
	count, err := r.I32()
	if err != nil {
		return Entity{}, err
	}
	if count < 0 {
		return Entity{}, corrupt(countOffset, "entity has negative component count %d", count)
	}

	ent := Entity{Position: pos, Rotation: rot, Scale: scale, Folder: folder}
	ent.Components = make([]Component, count)
	for i := range ent.Components {
		c, err := ReadComponent(r, templates, log)
		if err != nil {
			return Entity{}, err
		}
		ent.Components[i] = c
	}
	return ent, nil
}

// WriteEntity is the inverse of ReadEntity.
func WriteEntity(w *Writer, templates *TemplateTable, ent Entity) error {
	writeVector3(w, ent.Position)
	writeQuaternion(w, ent.Rotation)
	writeVector3(w, ent.Scale)
	w.U8(ent.Folder)
	w.I32(int32(len(ent.Components)))
	for _, c := range ent.Components {
		if err := WriteComponent(w, templates, c); err != nil {
			return err
		}
	}
	return nil
}

// ReadEntityGroup reads a prefab's instance list: name, instance_count,
// data_length, then that many entities. The entity block's consumed bytes
// must equal data_length exactly.
func ReadEntityGroup(r *Reader, templates *TemplateTable, log *zap.SugaredLogger) (EntityGroup, error) {
	rawName, isNull, err := r.KleiString()
	if err != nil {
		return EntityGroup{}, err
	}
	prefab, err := ValidateIdentifier(rawName, isNull)
	if err != nil {
		return EntityGroup{}, err
	}

	countOffset := r.Offset()
	count, err := r.I32()
	if err != nil {
		return EntityGroup{}, err
	}
	if count < 0 {
		return EntityGroup{}, corrupt(countOffset, "entity group %q has negative instance count %d", prefab, count)
	}

	lengthOffset := r.Offset()
	dataLength, err := r.I32()
	if err != nil {
		return EntityGroup{}, err
	}
	if dataLength < 0 {
		return EntityGroup{}, corrupt(lengthOffset, "entity group %q has negative data_length %d", prefab, dataLength)
	}

	snapshot := r.Offset()
	entities := make([]Entity, count)
	for i := range entities {
		ent, err := ReadEntity(r, templates, log)
		if err != nil {
			return EntityGroup{}, err
		}
		entities[i] = ent
	}
	consumed := r.Offset() - snapshot
	if consumed != int64(dataLength) {
		return EntityGroup{}, corrupt(snapshot, "entity group %q consumed %d bytes, declared data_length was %d", prefab, consumed, dataLength)
	}

	return EntityGroup{Prefab: prefab, Entities: entities}, nil
}

// WriteEntityGroup is the inverse of ReadEntityGroup.
func WriteEntityGroup(w *Writer, templates *TemplateTable, g EntityGroup) error {
	w.KleiString(g.Prefab, false)
	w.I32(int32(len(g.Entities)))

	body, err := measure(func(scratch *Writer) error {
		for _, ent := range g.Entities {
			if err := WriteEntity(scratch, templates, ent); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	w.I32(int32(len(body)))
	w.WriteRaw(body)
	return nil
}

// ReadEntityGroups reads the entities-collection: an i32 group_count
// followed by that many groups.
func ReadEntityGroups(r *Reader, templates *TemplateTable, log *zap.SugaredLogger) ([]EntityGroup, error) {
	countOffset := r.Offset()
	count, err := r.I32()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, corrupt(countOffset, "negative entity group count %d", count)
	}
	groups := make([]EntityGroup, count)
	for i := range groups {
		g, err := ReadEntityGroup(r, templates, log)
		if err != nil {
			return nil, err
		}
		groups[i] = g
	}
	return groups, nil
}

// WriteEntityGroups is the inverse of ReadEntityGroups.
func WriteEntityGroups(w *Writer, templates *TemplateTable, groups []EntityGroup) error {
	w.I32(int32(len(groups)))
	for _, g := range groups {
		if err := WriteEntityGroup(w, templates, g); err != nil {
			return err
		}
	}
	return nil
}

func readVector3(r *Reader) (Vector3, error) {
	x, err := r.F32()
	if err != nil {
		return Vector3{}, err
	}
	y, err := r.F32()
	if err != nil {
		return Vector3{}, err
	}
	z, err := r.F32()
	if err != nil {
		return Vector3{}, err
	}
	return Vector3{X: x, Y: y, Z: z}, nil
}

func writeVector3(w *Writer, v Vector3) {
	w.F32(v.X)
	w.F32(v.Y)
	w.F32(v.Z)
}

func readQuaternion(r *Reader) (Quaternion, error) {
	x, err := r.F32()
	if err != nil {
		return Quaternion{}, err
	}
	y, err := r.F32()
	if err != nil {
		return Quaternion{}, err
	}
	z, err := r.F32()
	if err != nil {
		return Quaternion{}, err
	}
	w2, err := r.F32()
	if err != nil {
		return Quaternion{}, err
	}
	return Quaternion{X: x, Y: y, Z: z, W: w2}, nil
}

func writeQuaternion(w *Writer, q Quaternion) {
	w.F32(q.X)
	w.F32(q.Y)
	w.F32(q.Z)
	w.F32(q.W)
}
