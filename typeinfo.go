// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package onisave

// TypeCode identifies the shape of a serialized value. It occupies the low
// 6 bits of a descriptor's tag byte.
type TypeCode uint8

// Type codes, matching the wire values used by the save format's type
// system.
const (
	TypeUserDefined TypeCode = 0
	TypeSByte       TypeCode = 1
	TypeByte        TypeCode = 2
	TypeBoolean     TypeCode = 3
	TypeInt16       TypeCode = 4
	TypeUInt16      TypeCode = 5
	TypeInt32       TypeCode = 6
	TypeUInt32      TypeCode = 7
	TypeInt64       TypeCode = 8
	TypeUInt64      TypeCode = 9
	TypeSingle      TypeCode = 10
	TypeDouble      TypeCode = 11
	TypeString      TypeCode = 12
	TypeEnumeration TypeCode = 13
	TypeVector2I    TypeCode = 14
	TypeVector2     TypeCode = 15
	TypeVector3     TypeCode = 16
	TypeArray       TypeCode = 17
	TypePair        TypeCode = 18
	TypeDictionary  TypeCode = 19
	TypeList        TypeCode = 20
	TypeHashSet     TypeCode = 21
	TypeQueue       TypeCode = 22
	TypeColour      TypeCode = 23
)

// Tag byte bit layout: low 6 bits are the type code, 0x40 marks a value
// type, 0x80 marks a generic type.
const (
	tagCodeMask    = 0x3F
	tagValueType   = 0x40
	tagGenericType = 0x80
)

// maxGenericChildren defensively bounds the child-count byte; the format
// only ever uses 1 or 2 in practice (spec §9 Design Notes).
const maxGenericChildren = 16

// genericCapable lists the type codes allowed to carry the generic flag
// and a child descriptor list.
var genericCapable = map[TypeCode]bool{
	TypePair:        true,
	TypeDictionary:  true,
	TypeList:        true,
	TypeHashSet:     true,
	TypeUserDefined: true,
	TypeQueue:       true,
}

// TypeDescriptor is the in-memory form of the type-code language: a tagged
// variant carrying a type code, an optional class name (UserDefined /
// Enumeration), and an ordered list of child descriptors (array element
// type, or the type arguments of a generic).
type TypeDescriptor struct {
	Code        TypeCode
	IsValueType bool
	IsGeneric   bool
	ClassName   string
	Children    []*TypeDescriptor
}

// DecodeTypeDescriptor reads one tag byte followed by whatever the tag
// requires: a class name for UserDefined/Enumeration, then either a
// byte-prefixed child list (generic types) or a single child (Array).
func DecodeTypeDescriptor(r *Reader) (*TypeDescriptor, error) {
	tagOffset := r.Offset()
	tag, err := r.U8()
	if err != nil {
		return nil, err
	}

	d := &TypeDescriptor{
		Code:        TypeCode(tag & tagCodeMask),
		IsValueType: tag&tagValueType != 0,
		IsGeneric:   tag&tagGenericType != 0,
	}

	if d.Code == TypeUserDefined || d.Code == TypeEnumeration {
		name, isNull, err := r.KleiString()
		if err != nil {
			return nil, err
		}
		if isNull {
			return nil, corrupt(tagOffset, "UserDefined/Enumeration descriptor has a null class name")
		}
		d.ClassName = name
	}

	switch {
	case d.IsGeneric:
		if !genericCapable[d.Code] {
			return nil, corrupt(tagOffset, "type code %d marked generic but is not generic-capable", d.Code)
		}
		count, err := r.U8()
		if err != nil {
			return nil, err
		}
		if count > maxGenericChildren {
			return nil, corrupt(tagOffset, "generic child count %d exceeds limit %d", count, maxGenericChildren)
		}
		d.Children = make([]*TypeDescriptor, count)
		for i := range d.Children {
			child, err := DecodeTypeDescriptor(r)
			if err != nil {
				return nil, err
			}
			d.Children[i] = child
		}
	case d.Code == TypeArray:
		child, err := DecodeTypeDescriptor(r)
		if err != nil {
			return nil, err
		}
		d.Children = []*TypeDescriptor{child}
	}

	return d, nil
}

// EncodeTypeDescriptor writes the tag byte, optional class name, and
// optional child list — the exact inverse of DecodeTypeDescriptor.
func EncodeTypeDescriptor(w *Writer, d *TypeDescriptor) error {
	tag := uint8(d.Code) & tagCodeMask
	if d.IsValueType {
		tag |= tagValueType
	}
	if d.IsGeneric {
		tag |= tagGenericType
	}
	w.U8(tag)

	if d.Code == TypeUserDefined || d.Code == TypeEnumeration {
		if d.ClassName == "" {
			return corruptNoOffset("UserDefined/Enumeration descriptor has an empty class name")
		}
		w.KleiString(d.ClassName, false)
	}

	switch {
	case d.IsGeneric:
		if !genericCapable[d.Code] {
			return corruptNoOffset("type code %d marked generic but is not generic-capable", d.Code)
		}
		if len(d.Children) > maxGenericChildren {
			return corruptNoOffset("generic child count %d exceeds limit %d", len(d.Children), maxGenericChildren)
		}
		w.U8(uint8(len(d.Children)))
		for _, child := range d.Children {
			if err := EncodeTypeDescriptor(w, child); err != nil {
				return err
			}
		}
	case d.Code == TypeArray:
		if len(d.Children) != 1 {
			return corruptNoOffset("Array descriptor must have exactly one child, has %d", len(d.Children))
		}
		if err := EncodeTypeDescriptor(w, d.Children[0]); err != nil {
			return err
		}
	}

	return nil
}
