package checkpoint

import "fmt"

// DType bezeichnet den Datentyp eines gespeicherten Tensors in
// safetensors-Schreibweise.
type DType string

const (
	F32  DType = "F32"
	F16  DType = "F16"
	BF16 DType = "BF16"
	F64  DType = "F64"
	I64  DType = "I64"
	I32  DType = "I32"
)

// Float ist true fuer Gleitkomma-Typen, die als Gewichte gebunden werden koennen.
func (d DType) Float() bool {
	switch d {
	case F32, F16, BF16, F64:
		return true
	}
	return false
}

// Tensor ist ein Parameter-Tensor aus einem Checkpoint. Die Werte sind
// bereits nach float32 konvertiert. Data ist nil wenn der Datentyp nicht
// gelesen werden kann.
type Tensor struct {
	DType DType
	Shape []int
	Data  []float32
}

// NumElements ist das Produkt der Shape. Skalare haben ein Element.
func (t *Tensor) NumElements() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Readable ist true wenn Data gueltige Werte enthaelt.
func (t *Tensor) Readable() bool {
	return t.Data != nil && len(t.Data) == t.NumElements()
}

func (t *Tensor) String() string {
	return fmt.Sprintf("%s%v", t.DType, t.Shape)
}
