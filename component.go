// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package onisave

import "go.uber.org/zap"

// storageTemplateName is the one component class given structured handling
// beyond its own template: it carries a list of nested entities (stored
// items) appended after its normal field+property block.
const storageTemplateName = "Storage"

// StoredEntity is one item held by a Storage component: a prefab name and
// the full nested entity record.
type StoredEntity struct {
	PrefabName string
	Entity     Entity
}

// Component is one named value attached to an entity. Value holds the
// parsed field+property map when the component's template was found in the
// table, or nil when it wasn't (TemplateMissing is then true). ExtraRaw
// preserves whatever trailing bytes were not consumed by structured
// parsing, so a round trip never silently drops data.
type Component struct {
	Name            string
	TemplateMissing bool
	Value           map[string]any
	StoredEntities  []StoredEntity
	ExtraRaw        []byte
}

// ReadComponent reads one component per the name, data_length, body framing.
// When the named template is absent, the whole data_length span is
// captured as ExtraRaw rather than attempting to interpret it.
func ReadComponent(r *Reader, templates *TemplateTable, log *zap.SugaredLogger) (Component, error) {
	rawName, isNull, err := r.KleiString()
	if err != nil {
		return Component{}, err
	}
	name, err := ValidateIdentifier(rawName, isNull)
	if err != nil {
		return Component{}, err
	}

	lengthOffset := r.Offset()
	dataLength, err := r.I32()
	if err != nil {
		return Component{}, err
	}
	if dataLength < 0 {
		return Component{}, corrupt(lengthOffset, "component %q has negative data_length %d", name, dataLength)
	}

	snapshot := r.Offset()

	if _, ok := templates.Lookup(name); !ok {
		log.Warnw("component template missing, preserving raw bytes", "component", name, "length", dataLength)
		raw, err := r.Exact(int(dataLength))
		if err != nil {
			return Component{}, err
		}
		return Component{Name: name, TemplateMissing: true, ExtraRaw: raw}, nil
	}

	value, err := parseByTemplate(r, templates, name)
	if err != nil {
		return Component{}, err
	}

	comp := Component{Name: name, Value: value}

	if name == storageTemplateName {
		countOffset := r.Offset()
		count, err := r.I32()
		if err != nil {
			return Component{}, err
		}
		if count < 0 {
			return Component{}, corrupt(countOffset, "component %q has negative stored item count %d", name, count)
		}
		comp.StoredEntities = make([]StoredEntity, count)
		for i := range comp.StoredEntities {
			prefabRaw, isNull, err := r.KleiString()
			if err != nil {
				return Component{}, err
			}
			prefab, err := ValidateIdentifier(prefabRaw, isNull)
			if err != nil {
				return Component{}, err
			}
			ent, err := ReadEntity(r, templates, log)
			if err != nil {
				return Component{}, err
			}
			comp.StoredEntities[i] = StoredEntity{PrefabName: prefab, Entity: ent}
		}
	}

	consumed := r.Offset() - snapshot
	remaining := int64(dataLength) - consumed
	if remaining < 0 {
		return Component{}, corrupt(snapshot, "component %q consumed %d bytes, declared data_length was %d", name, consumed, dataLength)
	}
	extra, err := r.Exact(int(remaining))
	if err != nil {
		return Component{}, err
	}
	comp.ExtraRaw = append([]byte(nil), extra...)
	return comp, nil
}

// WriteComponent is the inverse of ReadComponent.
func WriteComponent(w *Writer, templates *TemplateTable, comp Component) error {
	w.KleiString(comp.Name, false)

	body, err := measure(func(scratch *Writer) error {
		if comp.TemplateMissing {
			scratch.WriteRaw(comp.ExtraRaw)
			return nil
		}
		if err := writeByTemplate(scratch, templates, comp.Name, comp.Value); err != nil {
			return err
		}
		if comp.Name == storageTemplateName {
			scratch.I32(int32(len(comp.StoredEntities)))
			for _, se := range comp.StoredEntities {
				scratch.KleiString(se.PrefabName, false)
				if err := WriteEntity(scratch, templates, se.Entity); err != nil {
					return err
				}
			}
		}
		scratch.WriteRaw(comp.ExtraRaw)
		return nil
	})
	if err != nil {
		return err
	}

	w.I32(int32(len(body)))
	w.WriteRaw(body)
	return nil
}
