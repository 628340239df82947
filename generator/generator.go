// generator.go - pix2pix U-Net Generator (Sketch -> Gesicht)
//
// Dieses Modul enthaelt:
// - Architecture: unparametrisierter Generator (Stufen + erwartete Parameter)
// - Params: benannte Parameter-Tensoren zum Binden
// - Generator: gebundener, eingefrorener Generator mit Forward
//
// Ein Generator entsteht nur ueber Architecture.Bind und hat keine
// exportierten Mutatoren. Forward darf parallel aufgerufen werden.
package generator

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/sketch2face/sketch2face/ml"
)

var (
	// ErrInputShape: Eingabe ist nicht (1, 3, 256, 256).
	ErrInputShape = fmt.Errorf("generator: input shape: %w", ml.ErrShapeMismatch)

	// ErrResourceExhausted: ein Panic im Forward-Pass, auch aus den
	// Kernel-Goroutines. Speichermangel beendet die Go-Laufzeit dagegen
	// fatal und kommt hier nie an.
	ErrResourceExhausted = errors.New("generator: resource exhausted")

	ErrMissingParameter = errors.New("generator: missing parameter")
	ErrParameterShape   = fmt.Errorf("generator: parameter shape: %w", ml.ErrShapeMismatch)
	ErrInvalidConfig    = errors.New("generator: invalid config")
)

// Param ist ein Parameter-Tensor in Zeilen-Hauptordnung.
type Param struct {
	Shape []int
	Data  []float32
}

// Params bildet Parameternamen (enc1.0.weight, ...) auf Tensoren ab.
type Params map[string]Param

// =============================================================================
// Architecture
// =============================================================================

// Architecture ist der Generator ohne Gewichte.
type Architecture struct {
	cfg    Config
	stages []StageSpec
	params []ParamSpec
}

// New erstellt die Architektur fuer cfg. BaseFilters <= 0 ist ungueltig.
func New(cfg Config) (*Architecture, error) {
	if cfg.BaseFilters <= 0 {
		return nil, fmt.Errorf("%w: base filters %d", ErrInvalidConfig, cfg.BaseFilters)
	}

	stages := stageSpecs(cfg)
	var params []ParamSpec
	for _, s := range stages {
		params = append(params, s.Parameters()...)
	}
	return &Architecture{cfg: cfg, stages: stages, params: params}, nil
}

// Default ist die Architektur der trainierten Checkpoints (ngf=64).
func Default() *Architecture {
	a, _ := New(DefaultConfig())
	return a
}

func (a *Architecture) Config() Config { return a.cfg }

// Stages gibt eine Kopie der 16 Stufen zurueck (Encoder zuerst).
func (a *Architecture) Stages() []StageSpec {
	return slices.Clone(a.stages)
}

// Encoder gibt die 8 Encoder-Stufen zurueck.
func (a *Architecture) Encoder() []StageSpec {
	return slices.Clone(a.stages[:numEncoder])
}

// Decoder gibt die 8 Decoder-Stufen zurueck.
func (a *Architecture) Decoder() []StageSpec {
	return slices.Clone(a.stages[numEncoder:])
}

// Parameters listet alle erwarteten Parameter in Checkpoint-Reihenfolge.
func (a *Architecture) Parameters() []ParamSpec {
	out := make([]ParamSpec, len(a.params))
	for i, p := range a.params {
		out[i] = ParamSpec{Name: p.Name, Shape: slices.Clone(p.Shape)}
	}
	return out
}

// NumParams zaehlt die trainierbaren Werte wie model.parameters() in
// PyTorch. Laufzeit-Statistiken der BatchNorm zaehlen nicht mit.
func (a *Architecture) NumParams() int {
	total := 0
	for _, p := range a.params {
		if !isBuffer(p.Name) {
			total += numElements(p.Shape)
		}
	}
	return total
}

// NumValues zaehlt alle Werte des state_dict inklusive running_mean und
// running_var.
func (a *Architecture) NumValues() int {
	total := 0
	for _, p := range a.params {
		total += numElements(p.Shape)
	}
	return total
}

// isBuffer meldet BatchNorm-Statistiken, die keine Gradienten haben.
func isBuffer(name string) bool {
	return strings.HasSuffix(name, ".running_mean") || strings.HasSuffix(name, ".running_var")
}

// Bind prueft params gegen die Architektur und erzeugt einen eingefrorenen
// Generator. Die Daten werden kopiert; params darf danach veraendert werden.
// Zusaetzliche Eintraege in params werden ignoriert.
func (a *Architecture) Bind(params Params) (*Generator, error) {
	owned := make(Params, len(a.params))
	for _, spec := range a.params {
		p, ok := params[spec.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingParameter, spec.Name)
		}
		if !slices.Equal(p.Shape, spec.Shape) {
			return nil, fmt.Errorf("%w: %s has shape %v, want %v", ErrParameterShape, spec.Name, p.Shape, spec.Shape)
		}
		if len(p.Data) != numElements(spec.Shape) {
			return nil, fmt.Errorf("%w: %s has %d values, want %d", ErrParameterShape, spec.Name, len(p.Data), numElements(spec.Shape))
		}
		owned[spec.Name] = Param{Shape: slices.Clone(p.Shape), Data: slices.Clone(p.Data)}
	}

	g := &Generator{
		arch:   a,
		stages: make([]*stage, len(a.stages)),
		graph:  buildGraph(),
	}
	for i, spec := range a.stages {
		s, err := buildStage(spec, owned)
		if err != nil {
			return nil, err
		}
		g.stages[i] = s
	}

	slog.Debug("generator bound", "stages", len(g.stages), "parameters", a.NumParams(), "base_filters", a.cfg.BaseFilters)
	return g, nil
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// =============================================================================
// Generator
// =============================================================================

// Generator ist ein gebundener U-Net-Generator im Inferenz-Modus.
type Generator struct {
	arch   *Architecture
	stages []*stage
	graph  []node
}

// Architecture gibt die Architektur zurueck, aus der g gebunden wurde.
func (g *Generator) Architecture() *Architecture { return g.arch }

// NumParams zaehlt die trainierbaren Werte, siehe Architecture.NumParams.
func (g *Generator) NumParams() int { return g.arch.NumParams() }

// Forward bildet x (1, 3, 256, 256) in [-1, 1] auf ein Bild derselben Form in
// [-1, 1] ab. x wird nicht veraendert.
func (g *Generator) Forward(x *ml.Tensor) (out *ml.Tensor, err error) {
	if x == nil || !x.HasShape(1, InputChannels, Resolution, Resolution) {
		var got []int
		if x != nil {
			got = x.Shape()
		}
		return nil, fmt.Errorf("%w: got %v, want [1 %d %d %d]", ErrInputShape, got, InputChannels, Resolution, Resolution)
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("forward pass aborted", "panic", r)
			out, err = nil, fmt.Errorf("%w: %v", ErrResourceExhausted, r)
		}
	}()

	values := make(map[string]*ml.Tensor, len(g.graph)+1)
	values[inputNode] = x

	var last *ml.Tensor
	for _, n := range g.graph {
		switch n.op {
		case opStage:
			last, err = g.stages[n.stage].forward(values[n.inputs[0]])
		case opConcat:
			last, err = ml.Concat(values[n.inputs[0]], values[n.inputs[1]])
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", n.name, err)
		}
		values[n.name] = last
	}
	return last, nil
}
