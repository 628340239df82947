// checkpoint.go - Checkpoint-Container oeffnen und Wrapper aufloesen
//
// Dieses Modul enthaelt:
// - Open: erkennt PyTorch (zip/pickle) oder safetensors und liest alles ein
// - Checkpoint: geordneter, flacher Baum aus Punkt-Namen
// - Convention: welcher Wrapper den state_dict enthaelt
// - Metadata: Trainings-Metadaten, nur zur Diagnose
//
// Aufloesung: generator_state_dict -> model_state_dict -> Checkpoint selbst.
// Verschachtelte Dicts werden mit Punkten zusammengefuegt, dadurch gilt
// dieselbe Regel fuer safetensors-Dateien mit Praefix-Namen.
package checkpoint

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Format ist das Dateiformat eines Checkpoints.
type Format string

const (
	FormatPyTorch     Format = "pytorch"
	FormatSafetensors Format = "safetensors"
)

// Convention benennt den Wrapper, aus dem die Parameter stammen.
type Convention string

const (
	ConventionGenerator Convention = "generator_state_dict"
	ConventionModel     Convention = "model_state_dict"
	ConventionBare      Convention = "bare"
)

// Reihenfolge der Wrapper-Aufloesung
var wrapperOrder = []Convention{ConventionGenerator, ConventionModel}

// numBatchesTracked wird beim Binden toleriert und nie gebunden.
const numBatchesTracked = "num_batches_tracked"

var zipMagic = []byte("PK\x03\x04")

// Checkpoint ist ein geoeffneter Container. Werte sind nach Open unveraenderlich.
type Checkpoint struct {
	path     string
	format   Format
	topLevel []string

	// Punkt-Name -> *Tensor oder Skalar
	entries *orderedmap.OrderedMap[string, any]

	// safetensors "__metadata__"
	extra map[string]string
}

// Open liest den Checkpoint unter path vollstaendig ein.
func Open(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Path: path, Err: ErrNotFound}
	} else if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	head := make([]byte, 9)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %v", ErrCorrupt, err)}
	}

	format, err := detectFormat(path, head[:n])
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var root tree
	var extra map[string]string
	switch format {
	case FormatSafetensors:
		root, extra, err = readSafetensors(f, info.Size())
	default:
		root, err = readTorch(path)
	}
	if err != nil {
		return nil, loadError(path, err)
	}

	c := newCheckpoint(path, format, root, extra)
	slog.Info("checkpoint opened", "path", path, "format", format, "convention", c.Convention(), "entries", c.entries.Len())
	return c, nil
}

// detectFormat erkennt das Format an Endung und Magic-Bytes.
func detectFormat(path string, head []byte) (Format, error) {
	switch {
	case strings.EqualFold(filepath.Ext(path), ".safetensors"):
		return FormatSafetensors, nil
	case bytes.HasPrefix(head, zipMagic):
		return FormatPyTorch, nil
	case len(head) > 0 && head[0] == 0x80:
		// Pickle-Protokoll >= 2 (altes torch.save-Format)
		return FormatPyTorch, nil
	case len(head) == 9 && head[8] == '{':
		return FormatSafetensors, nil
	}
	return "", fmt.Errorf("%w: unknown container format", ErrCorrupt)
}

func newCheckpoint(path string, format Format, root tree, extra map[string]string) *Checkpoint {
	c := &Checkpoint{
		path:    path,
		format:  format,
		entries: orderedmap.New[string, any](),
		extra:   extra,
	}
	flatten("", root, c.entries)

	switch format {
	case FormatSafetensors:
		// flache Namen: oberste Ebene ist das erste Segment
		for p := c.entries.Oldest(); p != nil; p = p.Next() {
			top, _, _ := strings.Cut(p.Key, ".")
			if !slices.Contains(c.topLevel, top) {
				c.topLevel = append(c.topLevel, top)
			}
		}
	default:
		for p := root.Oldest(); p != nil; p = p.Next() {
			c.topLevel = append(c.topLevel, p.Key)
		}
	}
	return c
}

func flatten(prefix string, m tree, out *orderedmap.OrderedMap[string, any]) {
	for p := m.Oldest(); p != nil; p = p.Next() {
		name := p.Key
		if prefix != "" {
			name = prefix + "." + p.Key
		}
		if sub, ok := p.Value.(tree); ok {
			flatten(name, sub, out)
			continue
		}
		out.Set(name, p.Value)
	}
}

func (c *Checkpoint) Path() string   { return c.path }
func (c *Checkpoint) Format() Format { return c.format }

// Keys gibt die Schluessel der obersten Ebene in Dateireihenfolge zurueck.
func (c *Checkpoint) Keys() []string {
	return slices.Clone(c.topLevel)
}

// Convention bestimmt den Wrapper nach der festen Aufloesungsreihenfolge.
func (c *Checkpoint) Convention() Convention {
	for _, w := range wrapperOrder {
		if slices.Contains(c.topLevel, string(w)) {
			return w
		}
	}
	return ConventionBare
}

// StateDict gibt die Tensoren des aufgeloesten Wrappers ohne Praefix zurueck.
// Skalare (epoch, best_loss, ...) gehoeren nie zum state_dict.
func (c *Checkpoint) StateDict() (*orderedmap.OrderedMap[string, *Tensor], Convention) {
	conv := c.Convention()
	return c.tensorsUnder(string(conv), conv == ConventionBare), conv
}

// tensorsUnder sammelt alle Tensoren unter prefix. all ignoriert prefix.
func (c *Checkpoint) tensorsUnder(prefix string, all bool) *orderedmap.OrderedMap[string, *Tensor] {
	out := orderedmap.New[string, *Tensor]()
	for p := c.entries.Oldest(); p != nil; p = p.Next() {
		t, ok := p.Value.(*Tensor)
		if !ok {
			continue
		}
		if all {
			out.Set(p.Key, t)
			continue
		}
		if name, ok := strings.CutPrefix(p.Key, prefix+"."); ok {
			out.Set(name, t)
		}
	}
	return out
}

// Entry gibt einen Eintrag ueber seinen vollen Punkt-Namen zurueck.
func (c *Checkpoint) Entry(name string) (any, bool) {
	return c.entries.Get(name)
}
