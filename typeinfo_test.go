// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package onisave

import (
	"reflect"
	"testing"
)

func TestTypeDescriptorRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		d    *TypeDescriptor
	}{
		{"primitive", &TypeDescriptor{Code: TypeInt32}},
		{"value type primitive", &TypeDescriptor{Code: TypeInt32, IsValueType: true}},
		{"user defined", &TypeDescriptor{Code: TypeUserDefined, ClassName: "MinionIdentity"}},
		{"enumeration", &TypeDescriptor{Code: TypeEnumeration, ClassName: "DlcId"}},
		{
			"array",
			&TypeDescriptor{Code: TypeArray, Children: []*TypeDescriptor{
				{Code: TypeByte},
			}},
		},
		{
			"generic list",
			&TypeDescriptor{Code: TypeList, IsGeneric: true, Children: []*TypeDescriptor{
				{Code: TypeInt32},
			}},
		},
		{
			"generic dictionary",
			&TypeDescriptor{Code: TypeDictionary, IsGeneric: true, Children: []*TypeDescriptor{
				{Code: TypeString},
				{Code: TypeInt32},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter()
			if err := EncodeTypeDescriptor(w, tt.d); err != nil {
				t.Fatalf("EncodeTypeDescriptor() error = %v", err)
			}
			r := NewReader(w.Bytes())
			got, err := DecodeTypeDescriptor(r)
			if err != nil {
				t.Fatalf("DecodeTypeDescriptor() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.d) {
				t.Errorf("round trip = %+v, want %+v", got, tt.d)
			}
		})
	}
}

func TestTypeDescriptorTagBitLayout(t *testing.T) {
	d := &TypeDescriptor{Code: TypeList, IsValueType: true, IsGeneric: true, Children: []*TypeDescriptor{
		{Code: TypeInt32},
	}}
	w := NewWriter()
	if err := EncodeTypeDescriptor(w, d); err != nil {
		t.Fatalf("EncodeTypeDescriptor() error = %v", err)
	}
	tag := w.Bytes()[0]
	if TypeCode(tag&tagCodeMask) != TypeList {
		t.Errorf("tag code = %d, want %d", tag&tagCodeMask, TypeList)
	}
	if tag&tagValueType == 0 {
		t.Error("value type bit not set")
	}
	if tag&tagGenericType == 0 {
		t.Error("generic type bit not set")
	}
}

func TestDecodeTypeDescriptorRejectsGenericOnNonGenericCapable(t *testing.T) {
	w := NewWriter()
	w.U8(uint8(TypeInt32) | tagGenericType)
	r := NewReader(w.Bytes())
	if _, err := DecodeTypeDescriptor(r); err == nil {
		t.Fatal("expected error for generic flag on non-generic-capable code")
	}
}

func TestDecodeTypeDescriptorRejectsNullClassName(t *testing.T) {
	w := NewWriter()
	w.U8(uint8(TypeUserDefined))
	w.KleiString("", true)
	r := NewReader(w.Bytes())
	if _, err := DecodeTypeDescriptor(r); err == nil {
		t.Fatal("expected error for null class name")
	}
}
