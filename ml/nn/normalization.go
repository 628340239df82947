// normalization.go - BatchNorm2D im Inferenz-Modus
//
// Die Laufzeit-Statistiken aus dem Training werden beim Erstellen zu einer
// Skalierung und Verschiebung pro Kanal gefaltet und danach nie mehr
// veraendert.
package nn

import (
	"fmt"
	"math"

	"github.com/sketch2face/sketch2face/ml"
)

// DefaultBatchNormEps entspricht dem PyTorch-Default.
const DefaultBatchNormEps = 1e-5

// BatchNorm2D normalisiert pro Kanal mit eingefrorenen Statistiken.
type BatchNorm2D struct {
	Channels int
	Eps      float32

	scale []float32
	shift []float32
}

// NewBatchNorm2D erstellt eine eingefrorene BatchNorm aus affinen Parametern
// und Laufzeit-Statistiken. Alle Slices muessen die Laenge channels haben.
func NewBatchNorm2D(weight, bias, runningMean, runningVar []float32, eps float32) (*BatchNorm2D, error) {
	channels := len(runningMean)
	for name, s := range map[string][]float32{"weight": weight, "bias": bias, "running_var": runningVar} {
		if len(s) != channels {
			return nil, fmt.Errorf("%w: batch_norm %s has %d values, want %d", ml.ErrShapeMismatch, name, len(s), channels)
		}
	}

	bn := &BatchNorm2D{
		Channels: channels,
		Eps:      eps,
		scale:    make([]float32, channels),
		shift:    make([]float32, channels),
	}
	for c := range channels {
		s := float64(weight[c]) / math.Sqrt(float64(runningVar[c])+float64(eps))
		bn.scale[c] = float32(s)
		bn.shift[c] = float32(float64(bias[c]) - float64(runningMean[c])*s)
	}
	return bn, nil
}

// Forward normalisiert x in-place und gibt x zurueck.
func (bn *BatchNorm2D) Forward(x *ml.Tensor) (*ml.Tensor, error) {
	n, c, _, _ := x.Dims()
	if c != bn.Channels {
		return nil, fmt.Errorf("%w: batch_norm expects %d channels, got %d", ml.ErrShapeMismatch, bn.Channels, c)
	}

	for b := range n {
		for ch := range c {
			scale, shift := bn.scale[ch], bn.shift[ch]
			plane := x.Plane(b, ch)
			for i, v := range plane {
				plane[i] = v*scale + shift
			}
		}
	}
	return x, nil
}
