// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package onisave

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Reader is a positional little-endian reader over an immutable byte span.
// The cursor is monotonic: every successful read advances it by exactly the
// payload size, and reading past the end always yields a *TruncatedError
// bound to the offset at the moment of failure.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data for reading. The slice is borrowed, not copied.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the current cursor position.
func (r *Reader) Offset() int64 {
	return int64(r.pos)
}

// Len returns the total length of the underlying span.
func (r *Reader) Len() int {
	return len(r.data)
}

// Remaining returns the unread tail of the span without advancing the
// cursor. The returned slice aliases the reader's backing array.
func (r *Reader) Remaining() []byte {
	return r.data[r.pos:]
}

func (r *Reader) need(n int) error {
	if n < 0 || r.pos+n > len(r.data) {
		return &TruncatedError{Offset: int64(r.pos)}
	}
	return nil
}

// Exact reads exactly n raw bytes. The returned slice aliases the reader's
// backing array (no copy).
func (r *Reader) Exact(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// AsciiFixed reads n raw ASCII bytes with no length prefix. Used only for
// the short magic markers ("world" is klei_string-prefixed, KSAV is not).
func (r *Reader) AsciiFixed(n int) (string, error) {
	b, err := r.Exact(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// U8 reads an unsigned byte.
func (r *Reader) U8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

// I8 reads a signed byte.
func (r *Reader) I8() (int8, error) {
	v, err := r.U8()
	return int8(v), err
}

// Bool reads a single byte; any non-zero value is true.
func (r *Reader) Bool() (bool, error) {
	v, err := r.U8()
	return v != 0, err
}

// U16 reads a little-endian unsigned 16-bit integer.
func (r *Reader) U16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// I16 reads a little-endian signed 16-bit integer.
func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

// U32 reads a little-endian unsigned 32-bit integer.
func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// I32 reads a little-endian signed 32-bit integer.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// U64 reads a little-endian unsigned 64-bit integer.
func (r *Reader) U64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// I64 reads a little-endian signed 64-bit integer.
func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

// F32 reads a little-endian IEEE-754 single-precision float.
func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// F64 reads a little-endian IEEE-754 double-precision float.
func (r *Reader) F64() (float64, error) {
	v, err := r.U64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// KleiString reads an i32 length prefix followed by that many UTF-8 bytes.
// length == -1 yields ("", true, nil) for null; length == 0 yields empty;
// length < -1 is corruption.
func (r *Reader) KleiString() (s string, isNull bool, err error) {
	offset := r.Offset()
	n, err := r.I32()
	if err != nil {
		return "", false, err
	}
	switch {
	case n == -1:
		return "", true, nil
	case n == 0:
		return "", false, nil
	case n < -1:
		return "", false, corrupt(offset, "invalid klei_string length %d", n)
	}
	b, err := r.Exact(int(n))
	if err != nil {
		return "", false, err
	}
	return string(b), false, nil
}

// Writer is a dual of Reader: it accumulates little-endian primitives into
// a growable buffer.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated output. The slice aliases the writer's
// internal buffer and must not be retained across further writes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// WriteRaw appends raw bytes verbatim.
func (w *Writer) WriteRaw(b []byte) {
	w.buf.Write(b)
}

// AsciiFixed writes a raw ASCII string with no length prefix.
func (w *Writer) AsciiFixed(s string) {
	w.buf.WriteString(s)
}

// U8 writes an unsigned byte.
func (w *Writer) U8(v uint8) {
	w.buf.WriteByte(v)
}

// I8 writes a signed byte.
func (w *Writer) I8(v int8) {
	w.U8(uint8(v))
}

// Bool writes a single byte: 1 for true, 0 for false.
func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
	} else {
		w.U8(0)
	}
}

// U16 writes a little-endian unsigned 16-bit integer.
func (w *Writer) U16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// I16 writes a little-endian signed 16-bit integer.
func (w *Writer) I16(v int16) {
	w.U16(uint16(v))
}

// U32 writes a little-endian unsigned 32-bit integer.
func (w *Writer) U32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// I32 writes a little-endian signed 32-bit integer.
func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

// U64 writes a little-endian unsigned 64-bit integer.
func (w *Writer) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// I64 writes a little-endian signed 64-bit integer.
func (w *Writer) I64(v int64) {
	w.U64(uint64(v))
}

// F32 writes a little-endian IEEE-754 single-precision float.
func (w *Writer) F32(v float32) {
	w.U32(math.Float32bits(v))
}

// F64 writes a little-endian IEEE-754 double-precision float.
func (w *Writer) F64(v float64) {
	w.U64(math.Float64bits(v))
}

// KleiString writes a length-prefixed string: null writes -1 with no
// payload, empty writes 0, otherwise length then UTF-8 bytes.
func (w *Writer) KleiString(s string, isNull bool) {
	if isNull {
		w.I32(-1)
		return
	}
	w.I32(int32(len(s)))
	if len(s) > 0 {
		w.buf.WriteString(s)
	}
}

// measure runs fn against a fresh Writer and returns the bytes it produced.
// This is the only correct way to compute a composite's data_length prefix
// without a second parsing pass (see spec §4.4's write-side length rule).
func measure(fn func(w *Writer) error) ([]byte, error) {
	scratch := NewWriter()
	if err := fn(scratch); err != nil {
		return nil, err
	}
	return scratch.Bytes(), nil
}
