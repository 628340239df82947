// activation.go - Elementweise Aktivierungen und Dropout
package nn

import (
	"fmt"
	"math"

	"github.com/sketch2face/sketch2face/ml"
)

// Activation wendet eine elementweise Nichtlinearitaet in-place an.
type Activation interface {
	Forward(x *ml.Tensor) *ml.Tensor
	String() string
}

// LeakyReLU mit konfigurierbarer negativer Steigung
type LeakyReLU struct {
	Slope float32
}

func (a LeakyReLU) Forward(x *ml.Tensor) *ml.Tensor {
	data := x.Data()
	for i, v := range data {
		if v < 0 {
			data[i] = v * a.Slope
		}
	}
	return x
}

func (a LeakyReLU) String() string {
	return fmt.Sprintf("LeakyReLU(%g)", a.Slope)
}

// ReLU
type ReLU struct{}

func (ReLU) Forward(x *ml.Tensor) *ml.Tensor {
	data := x.Data()
	for i, v := range data {
		if v < 0 {
			data[i] = 0
		}
	}
	return x
}

func (ReLU) String() string {
	return "ReLU"
}

// Tanh begrenzt die Ausgabe auf [-1, 1].
type Tanh struct{}

func (Tanh) Forward(x *ml.Tensor) *ml.Tensor {
	data := x.Data()
	for i, v := range data {
		data[i] = float32(math.Tanh(float64(v)))
	}
	return x
}

func (Tanh) String() string {
	return "Tanh"
}

// Dropout ist nur strukturell vorhanden: im Inferenz-Modus ist es die Identitaet.
type Dropout struct {
	Rate float32
}

func (d Dropout) Forward(x *ml.Tensor) *ml.Tensor {
	return x
}

func (d Dropout) String() string {
	return fmt.Sprintf("Dropout(%g)", d.Rate)
}
