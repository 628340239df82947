// bind.go - Parameter gegen die Architektur pruefen und binden
//
// Strenges Laden wie load_state_dict(strict=True): jeder erwartete Name muss
// mit exakt passender Shape vorhanden sein, unbekannte Namen sind Fehler.
// Einzige Ausnahme ist num_batches_tracked der BatchNorm-Schichten.
package checkpoint

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/sketch2face/sketch2face/generator"
)

// Load oeffnet path und bindet die Parameter an arch.
func Load(path string, arch *generator.Architecture) (*generator.Generator, *Checkpoint, error) {
	c, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	g, err := c.Bind(arch)
	if err != nil {
		return nil, c, err
	}
	return g, c, nil
}

// Bind validiert den aufgeloesten state_dict gegen arch und erzeugt den
// eingefrorenen Generator. Bei einem Fehler existiert kein Generator.
func (c *Checkpoint) Bind(arch *generator.Architecture) (*generator.Generator, error) {
	sd, conv := c.StateDict()

	params, err := Validate(sd, arch)
	if err != nil {
		return nil, loadError(c.path, err)
	}

	g, err := arch.Bind(params)
	if err != nil {
		return nil, &LoadError{Path: c.path, Err: err}
	}

	slog.Info("checkpoint bound",
		"path", c.path,
		"format", c.format,
		"convention", conv,
		"parameters", arch.NumParams(),
		"metadata", c.Metadata())
	return g, nil
}

// Validate prueft sd gegen arch und gibt die Parameter zum Binden zurueck.
// Der erste Fehler wird als *LoadError zurueckgegeben, alle weiteren
// werden geloggt.
func Validate(sd *orderedmap.OrderedMap[string, *Tensor], arch *generator.Architecture) (generator.Params, error) {
	expected := arch.Parameters()
	expectedNames := make([]string, len(expected))
	known := make(map[string]bool, len(expected))
	for i, spec := range expected {
		expectedNames[i] = spec.Name
		known[spec.Name] = true
	}

	var problems []*LoadError
	params := make(generator.Params, len(expected))
	for _, spec := range expected {
		t, ok := sd.Get(spec.Name)
		switch {
		case !ok:
			problems = append(problems, &LoadError{
				Param:      spec.Name,
				Want:       spec.Shape,
				Suggestion: closest(spec.Name, stateDictKeys(sd)),
				Err:        ErrMissingParameter,
			})
		case !slices.Equal(t.Shape, spec.Shape):
			problems = append(problems, &LoadError{
				Param: spec.Name,
				Want:  spec.Shape,
				Got:   t.Shape,
				Err:   ErrShapeMismatch,
			})
		case !t.DType.Float() || !t.Readable():
			problems = append(problems, &LoadError{Param: spec.Name, Err: fmt.Errorf("%w: %s", ErrUnsupportedDType, t.DType)})
		default:
			params[spec.Name] = generator.Param{Shape: t.Shape, Data: t.Data}
		}
	}

	for p := sd.Oldest(); p != nil; p = p.Next() {
		if known[p.Key] || strings.HasSuffix(p.Key, "."+numBatchesTracked) {
			continue
		}
		problems = append(problems, &LoadError{
			Param:      p.Key,
			Got:        p.Value.Shape,
			Suggestion: closest(p.Key, expectedNames),
			Err:        ErrUnexpectedParameter,
		})
	}

	if len(problems) == 0 {
		return params, nil
	}
	for _, p := range problems[1:] {
		slog.Debug("checkpoint problem", "error", p)
	}
	if len(problems) > 1 {
		slog.Warn("checkpoint incompatible", "problems", len(problems))
	}
	return nil, problems[0]
}

func stateDictKeys(sd *orderedmap.OrderedMap[string, *Tensor]) []string {
	keys := make([]string, 0, sd.Len())
	for p := sd.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}
