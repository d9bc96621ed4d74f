// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package onisave

import "math"

// Vector2 is a two-component float vector.
type Vector2 struct {
	X, Y float32
}

// Vector2I is a two-component int32 vector.
type Vector2I struct {
	X, Y int32
}

// Vector3 is a three-component float vector.
type Vector3 struct {
	X, Y, Z float32
}

// Quaternion is a four-component float rotation.
type Quaternion struct {
	X, Y, Z, W float32
}

// Colour is an RGBA colour with each channel normalized to 0..1.
type Colour struct {
	R, G, B, A float32
}

// DictEntry is one (key, value) pair of a Dictionary value, kept in
// serialization order. Dictionary ordering is load-bearing: values are
// written back-to-back first, then keys, but DictEntry always pairs them
// positionally for the caller.
type DictEntry struct {
	Key   any
	Value any
}

// Pair is a (key, value) record. A nil *Pair represents the null sentinel.
type Pair struct {
	Key   any
	Value any
}

func colourByteToFrac(b byte) float32 {
	return float32(b) / 255.0
}

func colourFracToByte(f float32) uint8 {
	v := math.Round(float64(f) * 255)
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

// parseByTemplate reads one UserDefined object body: the named template's
// field list in declared order, then its property list in declared order.
// It does NOT read any length prefix — callers handle whatever framing
// surrounds the block: the Component codec and the UserDefined case of
// ReadValue read a data_length first, while the envelope pipeline's world
// and settings objects and value-type array elements have none.
func parseByTemplate(r *Reader, templates *TemplateTable, name string) (map[string]any, error) {
	tmpl, ok := templates.Lookup(name)
	if !ok {
		return nil, corrupt(r.Offset(), "template %q not found", name)
	}

	result := make(map[string]any, len(tmpl.Fields)+len(tmpl.Properties))
	for _, f := range tmpl.Fields {
		v, err := ReadValue(r, templates, f.Type)
		if err != nil {
			return nil, err
		}
		result[f.Name] = v
	}
	for _, p := range tmpl.Properties {
		v, err := ReadValue(r, templates, p.Type)
		if err != nil {
			return nil, err
		}
		result[p.Name] = v
	}
	return result, nil
}

// writeByTemplate is the inverse of parseByTemplate.
func writeByTemplate(w *Writer, templates *TemplateTable, name string, obj map[string]any) error {
	tmpl, ok := templates.Lookup(name)
	if !ok {
		return corruptNoOffset("template %q not found", name)
	}
	for _, f := range tmpl.Fields {
		if err := WriteValue(w, templates, f.Type, obj[f.Name]); err != nil {
			return err
		}
	}
	for _, p := range tmpl.Properties {
		if err := WriteValue(w, templates, p.Type, obj[p.Name]); err != nil {
			return err
		}
	}
	return nil
}

// ReadValue reads one value of the shape described by d, recursing through
// templates for nested UserDefined values. See spec §4.4 for the exact
// framing of every composite case.
func ReadValue(r *Reader, templates *TemplateTable, d *TypeDescriptor) (any, error) {
	switch d.Code {
	case TypeBoolean:
		return r.Bool()
	case TypeByte:
		return r.U8()
	case TypeSByte:
		return r.I8()
	case TypeInt16:
		return r.I16()
	case TypeUInt16:
		return r.U16()
	case TypeInt32:
		return r.I32()
	case TypeUInt32:
		return r.U32()
	case TypeInt64:
		return r.I64()
	case TypeUInt64:
		return r.U64()
	case TypeSingle:
		return r.F32()
	case TypeDouble:
		return r.F64()
	case TypeString:
		s, isNull, err := r.KleiString()
		if err != nil {
			return nil, err
		}
		if isNull {
			return nil, nil
		}
		return s, nil
	case TypeEnumeration:
		return r.I32()

	case TypeVector2:
		x, err := r.F32()
		if err != nil {
			return nil, err
		}
		y, err := r.F32()
		if err != nil {
			return nil, err
		}
		return Vector2{X: x, Y: y}, nil

	case TypeVector2I:
		x, err := r.I32()
		if err != nil {
			return nil, err
		}
		y, err := r.I32()
		if err != nil {
			return nil, err
		}
		return Vector2I{X: x, Y: y}, nil

	case TypeVector3:
		x, err := r.F32()
		if err != nil {
			return nil, err
		}
		y, err := r.F32()
		if err != nil {
			return nil, err
		}
		z, err := r.F32()
		if err != nil {
			return nil, err
		}
		return Vector3{X: x, Y: y, Z: z}, nil

	case TypeColour:
		rb, err := r.U8()
		if err != nil {
			return nil, err
		}
		gb, err := r.U8()
		if err != nil {
			return nil, err
		}
		bb, err := r.U8()
		if err != nil {
			return nil, err
		}
		ab, err := r.U8()
		if err != nil {
			return nil, err
		}
		return Colour{
			R: colourByteToFrac(rb),
			G: colourByteToFrac(gb),
			B: colourByteToFrac(bb),
			A: colourByteToFrac(ab),
		}, nil

	case TypeArray, TypeList, TypeHashSet, TypeQueue:
		return readArrayLike(r, templates, d)

	case TypeDictionary:
		return readDictionary(r, templates, d)

	case TypePair:
		return readPair(r, templates, d)

	case TypeUserDefined:
		return readUserDefined(r, templates, d)

	default:
		return nil, corrupt(r.Offset(), "unknown type code %d", d.Code)
	}
}

// WriteValue is the inverse of ReadValue.
func WriteValue(w *Writer, templates *TemplateTable, d *TypeDescriptor, value any) error {
	switch d.Code {
	case TypeBoolean:
		w.Bool(value.(bool))
	case TypeByte:
		w.U8(value.(uint8))
	case TypeSByte:
		w.I8(value.(int8))
	case TypeInt16:
		w.I16(value.(int16))
	case TypeUInt16:
		w.U16(value.(uint16))
	case TypeInt32:
		w.I32(value.(int32))
	case TypeUInt32:
		w.U32(value.(uint32))
	case TypeInt64:
		w.I64(value.(int64))
	case TypeUInt64:
		w.U64(value.(uint64))
	case TypeSingle:
		w.F32(value.(float32))
	case TypeDouble:
		w.F64(value.(float64))
	case TypeString:
		if value == nil {
			w.KleiString("", true)
		} else {
			w.KleiString(value.(string), false)
		}
	case TypeEnumeration:
		w.I32(value.(int32))

	case TypeVector2:
		v := value.(Vector2)
		w.F32(v.X)
		w.F32(v.Y)

	case TypeVector2I:
		v := value.(Vector2I)
		w.I32(v.X)
		w.I32(v.Y)

	case TypeVector3:
		v := value.(Vector3)
		w.F32(v.X)
		w.F32(v.Y)
		w.F32(v.Z)

	case TypeColour:
		v := value.(Colour)
		w.U8(colourFracToByte(v.R))
		w.U8(colourFracToByte(v.G))
		w.U8(colourFracToByte(v.B))
		w.U8(colourFracToByte(v.A))

	case TypeArray, TypeList, TypeHashSet, TypeQueue:
		return writeArrayLike(w, templates, d, value)

	case TypeDictionary:
		return writeDictionary(w, templates, d, value)

	case TypePair:
		return writePair(w, templates, d, value)

	case TypeUserDefined:
		return writeUserDefined(w, templates, d, value)

	default:
		return corruptNoOffset("unknown type code %d", d.Code)
	}
	return nil
}

// readArrayLike reads Array/List/HashSet/Queue: a data_length prefix (the
// byte size of the element region, excluding the count), an element count
// (-1 for null), then the element region.
func readArrayLike(r *Reader, templates *TemplateTable, d *TypeDescriptor) (any, error) {
	elem := d.Children[0]

	if _, err := r.I32(); err != nil { // data_length, not needed to navigate a forward read
		return nil, err
	}
	countOffset := r.Offset()
	count, err := r.I32()
	if err != nil {
		return nil, err
	}
	if count == -1 {
		return nil, nil
	}
	if count < 0 {
		return nil, corrupt(countOffset, "invalid array element count %d", count)
	}

	if elem.Code == TypeByte {
		return r.Exact(int(count))
	}

	if elem.IsValueType {
		if elem.Code != TypeUserDefined {
			return nil, corrupt(countOffset, "value type %d cannot appear inside a value-type array", elem.Code)
		}
		elements := make([]any, count)
		for i := range elements {
			v, err := parseByTemplate(r, templates, elem.ClassName)
			if err != nil {
				return nil, err
			}
			elements[i] = v
		}
		return elements, nil
	}

	elements := make([]any, count)
	for i := range elements {
		v, err := ReadValue(r, templates, elem)
		if err != nil {
			return nil, err
		}
		elements[i] = v
	}
	return elements, nil
}

func writeArrayLike(w *Writer, templates *TemplateTable, d *TypeDescriptor, value any) error {
	elem := d.Children[0]

	if value == nil {
		w.I32(4)
		w.I32(-1)
		return nil
	}

	if elem.Code == TypeByte {
		b, ok := value.([]byte)
		if !ok {
			return corruptNoOffset("expected []byte for byte array, got %T", value)
		}
		body, err := measure(func(w *Writer) error {
			w.WriteRaw(b)
			return nil
		})
		if err != nil {
			return err
		}
		w.I32(int32(len(body)))
		w.I32(int32(len(b)))
		w.WriteRaw(body)
		return nil
	}

	elements, ok := value.([]any)
	if !ok {
		return corruptNoOffset("expected []any for array-like value, got %T", value)
	}

	body, err := measure(func(scratch *Writer) error {
		if elem.IsValueType {
			if elem.Code != TypeUserDefined {
				return corruptNoOffset("value type %d cannot appear inside a value-type array", elem.Code)
			}
			for _, v := range elements {
				obj, ok := v.(map[string]any)
				if !ok {
					return corruptNoOffset("expected map[string]any element, got %T", v)
				}
				if err := writeByTemplate(scratch, templates, elem.ClassName, obj); err != nil {
					return err
				}
			}
			return nil
		}
		for _, v := range elements {
			if err := WriteValue(scratch, templates, elem, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.I32(int32(len(body)))
	w.I32(int32(len(elements)))
	w.WriteRaw(body)
	return nil
}

// readDictionary reads a Dictionary: data_length + element_count framing,
// then all values back-to-back, then all keys back-to-back. Ordering is
// load-bearing and must never be changed on write.
func readDictionary(r *Reader, templates *TemplateTable, d *TypeDescriptor) (any, error) {
	keyType, valueType := d.Children[0], d.Children[1]

	if _, err := r.I32(); err != nil {
		return nil, err
	}
	countOffset := r.Offset()
	count, err := r.I32()
	if err != nil {
		return nil, err
	}
	if count == -1 {
		return nil, nil
	}
	if count < 0 {
		return nil, corrupt(countOffset, "invalid dictionary count %d", count)
	}

	values := make([]any, count)
	for i := range values {
		v, err := ReadValue(r, templates, valueType)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	entries := make([]DictEntry, count)
	for i := range entries {
		k, err := ReadValue(r, templates, keyType)
		if err != nil {
			return nil, err
		}
		entries[i] = DictEntry{Key: k, Value: values[i]}
	}
	return entries, nil
}

func writeDictionary(w *Writer, templates *TemplateTable, d *TypeDescriptor, value any) error {
	keyType, valueType := d.Children[0], d.Children[1]

	if value == nil {
		w.I32(4)
		w.I32(-1)
		return nil
	}
	entries, ok := value.([]DictEntry)
	if !ok {
		return corruptNoOffset("expected []DictEntry for dictionary value, got %T", value)
	}

	body, err := measure(func(scratch *Writer) error {
		for _, e := range entries {
			if err := WriteValue(scratch, templates, valueType, e.Value); err != nil {
				return err
			}
		}
		for _, e := range entries {
			if err := WriteValue(scratch, templates, keyType, e.Key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.I32(int32(len(body)))
	w.I32(int32(len(entries)))
	w.WriteRaw(body)
	return nil
}

// readPair reads a Pair: an i32 data_length (-1 means null), then key then
// value per the two child descriptors.
func readPair(r *Reader, templates *TemplateTable, d *TypeDescriptor) (any, error) {
	keyType, valueType := d.Children[0], d.Children[1]

	dataLength, err := r.I32()
	if err != nil {
		return nil, err
	}
	if dataLength < 0 {
		return nil, nil
	}

	k, err := ReadValue(r, templates, keyType)
	if err != nil {
		return nil, err
	}
	v, err := ReadValue(r, templates, valueType)
	if err != nil {
		return nil, err
	}
	return &Pair{Key: k, Value: v}, nil
}

func writePair(w *Writer, templates *TemplateTable, d *TypeDescriptor, value any) error {
	keyType, valueType := d.Children[0], d.Children[1]

	if value == nil {
		w.I32(-1)
		return nil
	}
	p, ok := value.(*Pair)
	if !ok {
		return corruptNoOffset("expected *Pair for pair value, got %T", value)
	}

	body, err := measure(func(scratch *Writer) error {
		if err := WriteValue(scratch, templates, keyType, p.Key); err != nil {
			return err
		}
		return WriteValue(scratch, templates, valueType, p.Value)
	})
	if err != nil {
		return err
	}
	w.I32(int32(len(body)))
	w.WriteRaw(body)
	return nil
}

// readUserDefined reads a UserDefined value: an i32 data_length (-1 means
// null), then the field+property block, with the cursor required to have
// advanced exactly data_length bytes afterward.
func readUserDefined(r *Reader, templates *TemplateTable, d *TypeDescriptor) (any, error) {
	dataLength, err := r.I32()
	if err != nil {
		return nil, err
	}
	if dataLength < 0 {
		return nil, nil
	}

	start := r.Offset()
	obj, err := parseByTemplate(r, templates, d.ClassName)
	if err != nil {
		return nil, err
	}
	consumed := r.Offset() - start
	if consumed != int64(dataLength) {
		delta := consumed - int64(dataLength)
		more := "more"
		if delta < 0 {
			more = "less"
			delta = -delta
		}
		return nil, corrupt(start, "template %q parsed %d bytes %s than expected", d.ClassName, delta, more)
	}
	return obj, nil
}

func writeUserDefined(w *Writer, templates *TemplateTable, d *TypeDescriptor, value any) error {
	if value == nil {
		w.I32(-1)
		return nil
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return corruptNoOffset("expected map[string]any for user-defined value, got %T", value)
	}
	body, err := measure(func(scratch *Writer) error {
		return writeByTemplate(scratch, templates, d.ClassName, obj)
	})
	if err != nil {
		return err
	}
	w.I32(int32(len(body)))
	w.WriteRaw(body)
	return nil
}
