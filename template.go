// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package onisave

// TemplateMember is one named, typed slot of a template: either a field or
// a property. Both use the same shape; which list a member belongs to
// decides nothing beyond serialization order.
type TemplateMember struct {
	Name string
	Type *TypeDescriptor
}

// Template describes how a UserDefined value of one class is laid out:
// an ordered fields list, then an ordered properties list. Order is
// load-bearing — it dictates the byte order during (de)serialization.
type Template struct {
	Name       string
	Fields     []TemplateMember
	Properties []TemplateMember
}

// TemplateTable is the save-scoped, ordered collection of templates.
// Lookup is by class name; names are assumed unique within the table.
type TemplateTable struct {
	Templates []*Template
}

// Lookup returns the template for a class name, or (nil, false) if no
// template by that name exists in the table.
func (t *TemplateTable) Lookup(name string) (*Template, bool) {
	for _, tmpl := range t.Templates {
		if tmpl.Name == name {
			return tmpl, true
		}
	}
	return nil, false
}

func readTemplateMember(r *Reader) (TemplateMember, error) {
	name, isNull, err := r.KleiString()
	if err != nil {
		return TemplateMember{}, err
	}
	name, err = ValidateIdentifier(name, isNull)
	if err != nil {
		return TemplateMember{}, err
	}
	typ, err := DecodeTypeDescriptor(r)
	if err != nil {
		return TemplateMember{}, err
	}
	return TemplateMember{Name: name, Type: typ}, nil
}

func writeTemplateMember(w *Writer, m TemplateMember) error {
	w.KleiString(m.Name, false)
	return EncodeTypeDescriptor(w, m.Type)
}

func readTemplate(r *Reader) (*Template, error) {
	name, isNull, err := r.KleiString()
	if err != nil {
		return nil, err
	}
	name, err = ValidateIdentifier(name, isNull)
	if err != nil {
		return nil, err
	}

	fieldCount, err := r.I32()
	if err != nil {
		return nil, err
	}
	if fieldCount < 0 {
		return nil, corrupt(r.Offset(), "template %q has negative field count %d", name, fieldCount)
	}
	propCount, err := r.I32()
	if err != nil {
		return nil, err
	}
	if propCount < 0 {
		return nil, corrupt(r.Offset(), "template %q has negative property count %d", name, propCount)
	}

	tmpl := &Template{Name: name}
	if fieldCount > 0 {
		tmpl.Fields = make([]TemplateMember, fieldCount)
	}
	if propCount > 0 {
		tmpl.Properties = make([]TemplateMember, propCount)
	}
	for i := range tmpl.Fields {
		m, err := readTemplateMember(r)
		if err != nil {
			return nil, err
		}
		tmpl.Fields[i] = m
	}
	for i := range tmpl.Properties {
		m, err := readTemplateMember(r)
		if err != nil {
			return nil, err
		}
		tmpl.Properties[i] = m
	}
	return tmpl, nil
}

func writeTemplate(w *Writer, tmpl *Template) error {
	w.KleiString(tmpl.Name, false)
	w.I32(int32(len(tmpl.Fields)))
	w.I32(int32(len(tmpl.Properties)))
	for _, f := range tmpl.Fields {
		if err := writeTemplateMember(w, f); err != nil {
			return err
		}
	}
	for _, p := range tmpl.Properties {
		if err := writeTemplateMember(w, p); err != nil {
			return err
		}
	}
	return nil
}

// ReadTemplateTable parses the template table: an i32 count followed by
// that many templates, in the order they appear on the wire. The ordinal
// position is not semantically meaningful, but both reading and writing
// walk the table in this same order.
func ReadTemplateTable(r *Reader) (*TemplateTable, error) {
	count, err := r.I32()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, corrupt(r.Offset(), "negative template count %d", count)
	}
	tbl := &TemplateTable{Templates: make([]*Template, count)}
	for i := range tbl.Templates {
		tmpl, err := readTemplate(r)
		if err != nil {
			return nil, err
		}
		tbl.Templates[i] = tmpl
	}
	return tbl, nil
}

// WriteTemplateTable writes the template table, in table order.
func WriteTemplateTable(w *Writer, tbl *TemplateTable) error {
	w.I32(int32(len(tbl.Templates)))
	for _, tmpl := range tbl.Templates {
		if err := writeTemplate(w, tmpl); err != nil {
			return err
		}
	}
	return nil
}
