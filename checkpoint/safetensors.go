// safetensors.go - Lesen und Schreiben von .safetensors-Dateien
//
// Layout: 8 Byte Header-Laenge (uint64 little-endian), JSON-Header,
// danach die rohen Tensor-Daten. Der optionale Eintrag "__metadata__"
// enthaelt String-Paare.
package checkpoint

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/d4l3k/go-bfloat16"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"github.com/x448/float16"
)

const (
	metadataKey = "__metadata__"

	// maxHeaderSize begrenzt den JSON-Header gegen kaputte Laengenfelder.
	maxHeaderSize = 100 << 20
)

// tensorInfo ist ein Header-Eintrag.
type tensorInfo struct {
	DType       DType    `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

func dtypeSize(d DType) int {
	switch d {
	case F32, I32:
		return 4
	case F16, BF16:
		return 2
	case F64, I64:
		return 8
	}
	return 0
}

// readSafetensors liest r komplett. size ist die Dateigroesse.
func readSafetensors(r io.ReaderAt, size int64) (tree, map[string]string, error) {
	var lenBuf [8]byte
	if _, err := r.ReadAt(lenBuf[:], 0); err != nil {
		return nil, nil, fmt.Errorf("%w: header length: %v", ErrCorrupt, err)
	}

	n := binary.LittleEndian.Uint64(lenBuf[:])
	if n == 0 || n > maxHeaderSize || int64(n) > size-8 {
		return nil, nil, fmt.Errorf("%w: header length %d", ErrCorrupt, n)
	}

	header := make([]byte, n)
	if _, err := r.ReadAt(header, 8); err != nil {
		return nil, nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(header, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: header json: %v", ErrCorrupt, err)
	}

	var meta map[string]string
	if m, ok := raw[metadataKey]; ok {
		if err := json.Unmarshal(m, &meta); err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, metadataKey, err)
		}
		delete(raw, metadataKey)
	}

	type named struct {
		name string
		info tensorInfo
	}
	infos := make([]named, 0, len(raw))
	for name, msg := range raw {
		var info tensorInfo
		if err := json.Unmarshal(msg, &info); err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
		}
		infos = append(infos, named{name, info})
	}

	// Map-Reihenfolge ist zufaellig, die Offsets geben die Schreibreihenfolge
	slices.SortFunc(infos, func(a, b named) int {
		return cmp.Or(cmp.Compare(a.info.DataOffsets[0], b.info.DataOffsets[0]), cmp.Compare(a.name, b.name))
	})

	base := 8 + int64(n)
	root := newTree()
	for _, e := range infos {
		t, err := readSafetensor(r, base, size, e.info)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", e.name, err)
		}
		root.Set(e.name, t)
	}
	return root, meta, nil
}

func readSafetensor(r io.ReaderAt, base, size int64, info tensorInfo) (*Tensor, error) {
	t := &Tensor{DType: info.DType, Shape: info.Shape}
	for _, d := range t.Shape {
		if d < 0 {
			return nil, fmt.Errorf("%w: negative dimension in %v", ErrCorrupt, t.Shape)
		}
	}

	begin, end := info.DataOffsets[0], info.DataOffsets[1]
	if begin < 0 || end < begin || base+end > size {
		return nil, fmt.Errorf("%w: data offsets [%d, %d] outside file", ErrCorrupt, begin, end)
	}

	width := dtypeSize(info.DType)
	if width == 0 {
		// unbekannter Typ: Shape bleibt fuer inspect sichtbar
		return t, nil
	}
	if want := int64(t.NumElements() * width); end-begin != want {
		return nil, fmt.Errorf("%w: %s%v has %d bytes, want %d", ErrCorrupt, info.DType, t.Shape, end-begin, want)
	}

	buf := make([]byte, end-begin)
	if _, err := r.ReadAt(buf, base+begin); err != nil {
		return nil, fmt.Errorf("%w: data: %v", ErrCorrupt, err)
	}

	t.Data = decodeFloats(buf, info.DType)
	return t, nil
}

// decodeFloats konvertiert little-endian Rohdaten nach float32.
func decodeFloats(buf []byte, dtype DType) []float32 {
	le := binary.LittleEndian
	switch dtype {
	case BF16:
		return bfloat16.DecodeFloat32(buf)
	}

	width := dtypeSize(dtype)
	out := make([]float32, len(buf)/width)
	for i := range out {
		b := buf[i*width:]
		switch dtype {
		case F32:
			out[i] = math.Float32frombits(le.Uint32(b))
		case F16:
			out[i] = float16.Frombits(le.Uint16(b)).Float32()
		case F64:
			out[i] = float32(math.Float64frombits(le.Uint64(b)))
		case I64:
			out[i] = float32(int64(le.Uint64(b)))
		case I32:
			out[i] = float32(int32(le.Uint32(b)))
		}
	}
	return out
}

// =============================================================================
// Schreiben
// =============================================================================

// WriteOptions steuern WriteSafetensors.
type WriteOptions struct {
	// DType der Gleitkomma-Tensoren: F32 (Default), F16 oder BF16.
	DType DType

	// Metadata landet unter "__metadata__".
	Metadata map[string]string
}

// WriteSafetensors schreibt tensors in Einfuegereihenfolge nach w.
// Tensoren mit Ganzzahl-Typ (num_batches_tracked) bleiben I64.
func WriteSafetensors(w io.Writer, tensors *orderedmap.OrderedMap[string, *Tensor], opts WriteOptions) error {
	dtype := cmp.Or(opts.DType, F32)
	switch dtype {
	case F32, F16, BF16:
	default:
		return fmt.Errorf("%w: cannot write %s", ErrUnsupportedDType, dtype)
	}

	header := make(map[string]any, tensors.Len()+1)
	if len(opts.Metadata) > 0 {
		header[metadataKey] = opts.Metadata
	}

	var payload bytes.Buffer
	for p := tensors.Oldest(); p != nil; p = p.Next() {
		t := p.Value
		if !t.Readable() {
			return fmt.Errorf("%s: %w: %s", p.Key, ErrUnsupportedDType, t.DType)
		}

		out := dtype
		if !t.DType.Float() {
			out = I64
		}

		begin := int64(payload.Len())
		encodeFloats(&payload, t.Data, out)
		header[p.Key] = tensorInfo{
			DType:       out,
			Shape:       t.Shape,
			DataOffsets: [2]int64{begin, int64(payload.Len())},
		}
	}

	hb, err := json.Marshal(header)
	if err != nil {
		return err
	}
	// Header auf 8 Byte mit Leerzeichen auffuellen
	if pad := len(hb) % 8; pad != 0 {
		hb = append(hb, bytes.Repeat([]byte{' '}, 8-pad)...)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(hb))); err != nil {
		return err
	}
	if _, err := w.Write(hb); err != nil {
		return err
	}
	_, err = payload.WriteTo(w)
	return err
}

func encodeFloats(buf *bytes.Buffer, data []float32, dtype DType) {
	le := binary.LittleEndian
	switch dtype {
	case BF16:
		buf.Write(bfloat16.EncodeFloat32(data))
	case F16:
		for _, v := range data {
			buf.Write(le.AppendUint16(nil, float16.Fromfloat32(v).Bits()))
		}
	case I64:
		for _, v := range data {
			buf.Write(le.AppendUint64(nil, uint64(int64(v))))
		}
	default:
		for _, v := range data {
			buf.Write(le.AppendUint32(nil, math.Float32bits(v)))
		}
	}
}
