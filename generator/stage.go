// stage.go - Deklarative Stufen-Beschreibung und generischer Stufen-Builder
//
// Dieses Modul enthaelt:
// - StageSpec: unveraenderliche Beschreibung einer Encoder- oder Decoder-Stufe
// - ParamSpec: erwarteter Parametername + Shape im PyTorch-Sequential-Schema
// - buildStage: erzeugt aus StageSpec + Parametern eine ausfuehrbare Stufe
//
// Parameternamen folgen nn.Sequential-Indizes:
//
//	<name>.0.weight / <name>.0.bias   Faltung (Bias nur ohne Normalisierung)
//	<name>.1.weight / .bias / .running_mean / .running_var   BatchNorm
package generator

import (
	"fmt"

	"github.com/sketch2face/sketch2face/ml"
	"github.com/sketch2face/sketch2face/ml/nn"
)

// Direction unterscheidet Downsampling- und Upsampling-Stufen.
type Direction int

const (
	Down Direction = iota
	Up
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// ActivationKind waehlt die Nichtlinearitaet einer Stufe.
type ActivationKind int

const (
	ActLeakyReLU ActivationKind = iota
	ActReLU
	ActTanh
)

func (a ActivationKind) String() string {
	switch a {
	case ActReLU:
		return "relu"
	case ActTanh:
		return "tanh"
	default:
		return "leaky_relu"
	}
}

const (
	leakySlope  = 0.2
	dropoutRate = 0.5
)

// StageSpec beschreibt eine Stufe vollstaendig. Werte werden nur kopiert.
type StageSpec struct {
	Name       string
	Kernel     int
	Stride     int
	Padding    int
	In         int
	Out        int
	Direction  Direction
	Normalize  bool
	Activation ActivationKind
	Dropout    bool
}

// UseBias ist true wenn die Faltung einen eigenen Bias hat.
func (s StageSpec) UseBias() bool {
	return !s.Normalize
}

// ParamSpec ist ein erwarteter Parameter.
type ParamSpec struct {
	Name  string
	Shape []int
}

// Parameters listet die Parameter der Stufe in Checkpoint-Reihenfolge.
func (s StageSpec) Parameters() []ParamSpec {
	k := s.Kernel
	weight := []int{s.Out, s.In, k, k}
	if s.Direction == Up {
		weight = []int{s.In, s.Out, k, k}
	}

	params := []ParamSpec{{Name: s.Name + ".0.weight", Shape: weight}}
	if s.UseBias() {
		params = append(params, ParamSpec{Name: s.Name + ".0.bias", Shape: []int{s.Out}})
	}
	if s.Normalize {
		for _, field := range []string{"weight", "bias", "running_mean", "running_var"} {
			params = append(params, ParamSpec{Name: s.Name + ".1." + field, Shape: []int{s.Out}})
		}
	}
	return params
}

func (s StageSpec) String() string {
	return fmt.Sprintf("%s(%s %d->%d k%d s%d p%d norm=%t %s dropout=%t)",
		s.Name, s.Direction, s.In, s.Out, s.Kernel, s.Stride, s.Padding, s.Normalize, s.Activation, s.Dropout)
}

// =============================================================================
// Ausfuehrbare Stufe
// =============================================================================

// layer ist eine Faltung (normal oder transponiert).
type layer interface {
	Forward(x *ml.Tensor) (*ml.Tensor, error)
}

type stage struct {
	spec StageSpec
	conv layer
	norm *nn.BatchNorm2D // nil ohne Normalisierung
	act  nn.Activation
	drop *nn.Dropout // nil ohne Dropout
}

// buildStage erzeugt eine Stufe aus bereits validierten Parametern.
func buildStage(spec StageSpec, params Params) (*stage, error) {
	weight := params[spec.Name+".0.weight"].Data
	var bias []float32
	if spec.UseBias() {
		bias = params[spec.Name+".0.bias"].Data
	}

	s := &stage{spec: spec}

	var err error
	switch spec.Direction {
	case Down:
		s.conv, err = nn.NewConv2D(weight, bias, spec.In, spec.Out, spec.Kernel, spec.Stride, spec.Padding)
	case Up:
		s.conv, err = nn.NewConvTranspose2D(weight, bias, spec.In, spec.Out, spec.Kernel, spec.Stride, spec.Padding)
	default:
		err = fmt.Errorf("unknown direction %d", spec.Direction)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Name, err)
	}

	if spec.Normalize {
		p := spec.Name + ".1."
		s.norm, err = nn.NewBatchNorm2D(
			params[p+"weight"].Data,
			params[p+"bias"].Data,
			params[p+"running_mean"].Data,
			params[p+"running_var"].Data,
			nn.DefaultBatchNormEps,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", spec.Name, err)
		}
	}

	switch spec.Activation {
	case ActLeakyReLU:
		s.act = nn.LeakyReLU{Slope: leakySlope}
	case ActReLU:
		s.act = nn.ReLU{}
	case ActTanh:
		s.act = nn.Tanh{}
	}

	if spec.Dropout {
		s.drop = &nn.Dropout{Rate: dropoutRate}
	}
	return s, nil
}

// forward: Faltung -> Norm -> Aktivierung -> Dropout.
// Die Faltung liefert einen neuen Tensor, alles danach arbeitet in-place.
func (s *stage) forward(x *ml.Tensor) (*ml.Tensor, error) {
	y, err := s.conv.Forward(x)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.spec.Name, err)
	}
	if s.norm != nil {
		if y, err = s.norm.Forward(y); err != nil {
			return nil, fmt.Errorf("%s: %w", s.spec.Name, err)
		}
	}
	y = s.act.Forward(y)
	if s.drop != nil {
		y = s.drop.Forward(y)
	}
	return y, nil
}
