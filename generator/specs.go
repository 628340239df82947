// specs.go - Die 16 Stufen des U-Net-Generators als deklarative Tabelle
package generator

// Feste Ein-/Ausgabe des Netzes.
const (
	Resolution     = 256
	InputChannels  = 3
	OutputChannels = 3

	// DefaultBaseFilters ist die Breite der ersten Encoder-Stufe (ngf).
	DefaultBaseFilters = 64

	numEncoder = 8
	numDecoder = 8
)

// Config parametrisiert die Architektur. Nur BaseFilters ist variabel.
type Config struct {
	BaseFilters int
}

// DefaultConfig ist die Konfiguration der trainierten Checkpoints.
func DefaultConfig() Config {
	return Config{BaseFilters: DefaultBaseFilters}
}

// decoderOutMultipliers: Ausgabebreite von dec1..dec7 in Vielfachen von ngf.
// dec8 gibt immer OutputChannels aus.
var decoderOutMultipliers = [numDecoder - 1]int{8, 8, 8, 8, 4, 2, 1}

// stageSpecs erzeugt die Encoder-Stufen gefolgt von den Decoder-Stufen.
func stageSpecs(cfg Config) []StageSpec {
	ngf := cfg.BaseFilters
	specs := make([]StageSpec, 0, numEncoder+numDecoder)

	encOut := make([]int, numEncoder+1) // 1-basiert
	in := InputChannels
	for i := 1; i <= numEncoder; i++ {
		out := ngf * min(1<<(i-1), 8)
		encOut[i] = out
		specs = append(specs, StageSpec{
			Name:       encoderName(i),
			Kernel:     4,
			Stride:     2,
			Padding:    1,
			In:         in,
			Out:        out,
			Direction:  Down,
			Normalize:  i != 1 && i != numEncoder,
			Activation: ActLeakyReLU,
		})
		in = out
	}

	in = encOut[numEncoder]
	for i := 1; i <= numDecoder; i++ {
		spec := StageSpec{
			Name:      decoderName(i),
			Kernel:    4,
			Stride:    2,
			Padding:   1,
			In:        in,
			Direction: Up,
			Dropout:   i <= 3,
		}
		if i == numDecoder {
			spec.Out = OutputChannels
			spec.Activation = ActTanh
		} else {
			spec.Out = ngf * decoderOutMultipliers[i-1]
			spec.Normalize = true
			spec.Activation = ActReLU
		}
		specs = append(specs, spec)

		// naechste Stufe sieht concat(dec_i, enc_(8-i))
		if i < numDecoder {
			in = spec.Out + encOut[numEncoder-i]
		}
	}
	return specs
}
