// Package generatortest erzeugt synthetische Gewichte fuer Tests.
package generatortest

import (
	"math/rand/v2"
	"strings"

	"github.com/sketch2face/sketch2face/generator"
)

// RandomParams fuellt jeden erwarteten Parameter von a deterministisch.
// Gewichte liegen in [-0.05, 0.05], running_var in [0.5, 1.5].
func RandomParams(a *generator.Architecture, seed uint64) generator.Params {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	params := make(generator.Params)
	for _, spec := range a.Parameters() {
		n := 1
		for _, d := range spec.Shape {
			n *= d
		}
		data := make([]float32, n)
		for i := range data {
			switch {
			case strings.HasSuffix(spec.Name, "running_var"):
				data[i] = 0.5 + r.Float32()
			case strings.HasSuffix(spec.Name, ".1.weight"):
				data[i] = 0.8 + 0.4*r.Float32()
			default:
				data[i] = (r.Float32()*2 - 1) * 0.05
			}
		}
		params[spec.Name] = generator.Param{Shape: spec.Shape, Data: data}
	}
	return params
}

// Input erzeugt eine deterministische Eingabe (1, 3, 256, 256) in [-1, 1].
func Input(seed uint64) []float32 {
	r := rand.New(rand.NewPCG(seed, 1))
	data := make([]float32, generator.InputChannels*generator.Resolution*generator.Resolution)
	for i := range data {
		data[i] = r.Float32()*2 - 1
	}
	return data
}
