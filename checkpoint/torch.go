// torch.go - Lesen von torch.save-Dateien (zip und altes Pickle-Format)
//
// Der Pickle-Baum wird in einen geordneten Baum aus
// *orderedmap.OrderedMap[string, any], *Tensor und Skalaren uebersetzt.
// Speicher werden nach float32 konvertiert.
package checkpoint

import (
	"fmt"
	"log/slog"
	"math/big"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type tree = *orderedmap.OrderedMap[string, any]

func newTree() tree {
	return orderedmap.New[string, any]()
}

// readTorch laedt path mit gopickle. Panics des Unpicklers bei
// beschaedigten Dateien werden zu ErrCorrupt.
func readTorch(path string) (root tree, err error) {
	defer func() {
		if r := recover(); r != nil {
			root, err = nil, fmt.Errorf("%w: unpickle: %v", ErrCorrupt, r)
		}
	}()

	obj, err := pytorch.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	v, err := fromPickle(obj)
	if err != nil {
		return nil, err
	}

	root, ok := v.(tree)
	if !ok {
		// ein nacktes Modul-Objekt statt eines Dicts
		return nil, fmt.Errorf("%w: top-level object is %T, want a mapping", ErrCorrupt, obj)
	}
	return root, nil
}

// fromPickle uebersetzt einen gopickle-Wert rekursiv.
func fromPickle(v any) (any, error) {
	switch v := v.(type) {
	case *types.OrderedDict:
		out := newTree()
		for e := v.List.Front(); e != nil; e = e.Next() {
			entry, ok := e.Value.(*types.OrderedDictEntry)
			if !ok {
				continue
			}
			if err := setPickle(out, entry.Key, entry.Value); err != nil {
				return nil, err
			}
		}
		return out, nil
	case *types.Dict:
		out := newTree()
		for _, k := range v.Keys() {
			val, _ := v.Get(k)
			if err := setPickle(out, k, val); err != nil {
				return nil, err
			}
		}
		return out, nil
	case *pytorch.Tensor:
		return fromTorchTensor(v)
	case *types.List:
		return fromSequence(v.Len(), v.Get)
	case *types.Tuple:
		return fromSequence(v.Len(), v.Get)
	case *big.Int:
		if v.IsInt64() {
			return v.Int64(), nil
		}
		return v.String(), nil
	case nil, bool, int, int64, float64, string:
		return v, nil
	default:
		// Optimizer-Objekte, Klassen usw. werden nur fuer inspect beschrieben
		return fmt.Sprintf("<%T>", v), nil
	}
}

func setPickle(out tree, key, value any) error {
	conv, err := fromPickle(value)
	if err != nil {
		return fmt.Errorf("%v: %w", key, err)
	}
	out.Set(fmt.Sprint(key), conv)
	return nil
}

func fromSequence(n int, get func(int) any) (any, error) {
	out := make([]any, n)
	for i := range n {
		v, err := fromPickle(get(i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// fromTorchTensor liest die Werte eines Tensors aus seinem Storage.
// Nicht zusammenhaengende Tensoren werden ueber die Strides eingesammelt.
func fromTorchTensor(t *pytorch.Tensor) (*Tensor, error) {
	out := &Tensor{Shape: append([]int{}, t.Size...)}

	var at func(i int) float32
	var size int
	switch s := t.Source.(type) {
	case *pytorch.FloatStorage:
		out.DType, size = F32, len(s.Data)
		at = func(i int) float32 { return s.Data[i] }
	case *pytorch.HalfStorage:
		out.DType, size = F16, len(s.Data)
		at = func(i int) float32 { return s.Data[i] }
	case *pytorch.BFloat16Storage:
		out.DType, size = BF16, len(s.Data)
		at = func(i int) float32 { return s.Data[i] }
	case *pytorch.DoubleStorage:
		out.DType, size = F64, len(s.Data)
		at = func(i int) float32 { return float32(s.Data[i]) }
	case *pytorch.LongStorage:
		out.DType, size = I64, len(s.Data)
		at = func(i int) float32 { return float32(s.Data[i]) }
	case *pytorch.IntStorage:
		out.DType, size = I32, len(s.Data)
		at = func(i int) float32 { return float32(s.Data[i]) }
	default:
		// Daten bleiben nil, Bind meldet ErrUnsupportedDType
		out.DType = DType(fmt.Sprintf("%T", t.Source))
		slog.Debug("unsupported torch storage", "type", out.DType, "shape", out.Shape)
		return out, nil
	}

	strides := t.Stride
	if len(strides) != len(out.Shape) {
		strides = contiguousStrides(out.Shape)
	}

	n := out.NumElements()
	out.Data = make([]float32, n)
	idx := make([]int, len(out.Shape))
	for i := range n {
		off := t.StorageOffset
		for d, v := range idx {
			off += v * strides[d]
		}
		if off < 0 || off >= size {
			return nil, fmt.Errorf("%w: tensor %v reads offset %d of storage with %d values", ErrCorrupt, out.Shape, off, size)
		}
		out.Data[i] = at(off)

		// Index wie ein Zaehler in Zeilen-Hauptordnung weiterschalten
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < out.Shape[d] {
				break
			}
			idx[d] = 0
		}
	}
	return out, nil
}

func contiguousStrides(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
}
