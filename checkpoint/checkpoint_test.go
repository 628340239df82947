package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/nlpodyssey/gopickle/pytorch"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/sketch2face/sketch2face/generator"
	"github.com/sketch2face/sketch2face/generator/generatortest"
	"github.com/sketch2face/sketch2face/ml"
)

func smallArch(t *testing.T) *generator.Architecture {
	t.Helper()
	arch, err := generator.New(generator.Config{BaseFilters: 8})
	if err != nil {
		t.Fatal(err)
	}
	return arch
}

// stateDict baut einen state_dict wie torch ihn speichert, inklusive
// num_batches_tracked fuer jede BatchNorm.
func stateDict(arch *generator.Architecture, params generator.Params, prefix string) *orderedmap.OrderedMap[string, *Tensor] {
	sd := orderedmap.New[string, *Tensor]()
	for _, spec := range arch.Parameters() {
		p := params[spec.Name]
		sd.Set(prefix+spec.Name, &Tensor{DType: F32, Shape: p.Shape, Data: p.Data})
		if base, ok := strings.CutSuffix(spec.Name, "running_var"); ok {
			sd.Set(prefix+base+numBatchesTracked, &Tensor{DType: I64, Shape: []int{}, Data: []float32{1234}})
		}
	}
	return sd
}

func writeFile(t *testing.T, name string, sd *orderedmap.OrderedMap[string, *Tensor], opts WriteOptions) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := WriteSafetensors(f, sd, opts); err != nil {
		t.Fatalf("WriteSafetensors() error = %v", err)
	}
	return path
}

func forward(t *testing.T, g *generator.Generator) []float32 {
	t.Helper()
	x, err := ml.FromData(generatortest.Input(11), 1, 3, 256, 256)
	if err != nil {
		t.Fatal(err)
	}
	out, err := g.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	return out.Data()
}

func TestConventionsBitIdentical(t *testing.T) {
	arch := smallArch(t)
	params := generatortest.RandomParams(arch, 21)

	ref, err := arch.Bind(params)
	if err != nil {
		t.Fatal(err)
	}
	want := forward(t, ref)

	cases := []struct {
		name   string
		prefix string
		conv   Convention
	}{
		{"generator_state_dict", "generator_state_dict.", ConventionGenerator},
		{"model_state_dict", "model_state_dict.", ConventionModel},
		{"bare", "", ConventionBare},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			sd := stateDict(arch, params, tt.prefix)
			if tt.prefix != "" {
				// fremde Wrapper neben dem aufgeloesten werden ignoriert
				sd.Set("discriminator_state_dict.model.0.weight", &Tensor{DType: F32, Shape: []int{2}, Data: []float32{1, 2}})
			}
			path := writeFile(t, tt.name+".safetensors", sd, WriteOptions{})

			g, c, err := Load(path, arch)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if c.Convention() != tt.conv {
				t.Errorf("Convention() = %v, erwartet %v", c.Convention(), tt.conv)
			}
			if diff := cmp.Diff(want, forward(t, g)); diff != "" {
				t.Errorf("Ausgabe weicht vom direkt gebundenen Generator ab")
			}
		})
	}
}

func TestModelWrapperPrecedence(t *testing.T) {
	arch := smallArch(t)
	good := generatortest.RandomParams(arch, 1)

	sd := stateDict(arch, good, "generator_state_dict.")
	// model_state_dict ist unvollstaendig, darf aber nicht gewinnen
	sd.Set("model_state_dict.enc1.0.weight", &Tensor{DType: F32, Shape: []int{1}, Data: []float32{0}})

	path := writeFile(t, "both.safetensors", sd, WriteOptions{})
	if _, _, err := Load(path, arch); err != nil {
		t.Errorf("Load() error = %v, generator_state_dict muss Vorrang haben", err)
	}
}

func TestLoadErrors(t *testing.T) {
	arch := smallArch(t)

	tests := []struct {
		name    string
		mutate  func(sd *orderedmap.OrderedMap[string, *Tensor])
		wantErr error
		param   string
	}{
		{
			name: "Shape vertauscht",
			mutate: func(sd *orderedmap.OrderedMap[string, *Tensor]) {
				p := sd.Value("enc3.0.weight")
				sd.Set("enc3.0.weight", &Tensor{DType: F32, Shape: []int{p.Shape[1], p.Shape[0], 4, 4}, Data: p.Data})
			},
			wantErr: ErrShapeMismatch,
			param:   "enc3.0.weight",
		},
		{
			name: "Vektor zu kurz",
			mutate: func(sd *orderedmap.OrderedMap[string, *Tensor]) {
				p := sd.Value("dec8.0.bias")
				sd.Set("dec8.0.bias", &Tensor{DType: F32, Shape: []int{2}, Data: p.Data[:2]})
			},
			wantErr: ErrShapeMismatch,
			param:   "dec8.0.bias",
		},
		{
			name: "Parameter fehlt",
			mutate: func(sd *orderedmap.OrderedMap[string, *Tensor]) {
				sd.Delete("dec4.1.running_mean")
			},
			wantErr: ErrMissingParameter,
			param:   "dec4.1.running_mean",
		},
		{
			name: "unerwarteter Parameter",
			mutate: func(sd *orderedmap.OrderedMap[string, *Tensor]) {
				sd.Set("enc9.0.weight", &Tensor{DType: F32, Shape: []int{1}, Data: []float32{1}})
			},
			wantErr: ErrUnexpectedParameter,
			param:   "enc9.0.weight",
		},
		{
			name: "Ganzzahl-Gewicht",
			mutate: func(sd *orderedmap.OrderedMap[string, *Tensor]) {
				p := sd.Value("enc1.0.bias")
				sd.Set("enc1.0.bias", &Tensor{DType: I64, Shape: p.Shape, Data: p.Data})
			},
			wantErr: ErrUnsupportedDType,
			param:   "enc1.0.bias",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sd := stateDict(arch, generatortest.RandomParams(arch, 5), "")
			tt.mutate(sd)
			path := writeFile(t, "broken.safetensors", sd, WriteOptions{})

			g, _, err := Load(path, arch)
			if g != nil {
				t.Error("Load() hat trotz Fehler einen Generator geliefert")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Load() error = %v, erwartet %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrLoad) {
				t.Errorf("Load() error = %v, erwartet ErrLoad", err)
			}

			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("Load() error = %T, erwartet *LoadError", err)
			}
			if le.Param != tt.param {
				t.Errorf("LoadError.Param = %q, erwartet %q", le.Param, tt.param)
			}
			if le.Path != path {
				t.Errorf("LoadError.Path = %q, erwartet %q", le.Path, path)
			}
		})
	}
}

func TestLoadErrorSuggestion(t *testing.T) {
	arch := smallArch(t)
	sd := stateDict(arch, generatortest.RandomParams(arch, 5), "")
	sd.Set("enc1.0.weigth", &Tensor{DType: F32, Shape: []int{1}, Data: []float32{0}})

	_, _, err := Load(writeFile(t, "typo.safetensors", sd, WriteOptions{}), arch)

	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("Load() error = %v, erwartet *LoadError", err)
	}
	if le.Suggestion != "enc1.0.weight" {
		t.Errorf("Suggestion = %q, erwartet enc1.0.weight", le.Suggestion)
	}
	if !strings.Contains(err.Error(), "did you mean") {
		t.Errorf("Fehlermeldung ohne Vorschlag: %v", err)
	}
}

func TestClosest(t *testing.T) {
	candidates := []string{"enc1.0.weight", "enc1.0.bias", "dec8.0.weight"}

	tests := []struct {
		name string
		want string
	}{
		{"enc1.0.weigth", "enc1.0.weight"},
		{"dec8.0.bias", "enc1.0.bias"},
		{"dec8.0.wieght", "dec8.0.weight"},
		{"optimizer", ""},
	}

	for _, tt := range tests {
		if got := closest(tt.name, candidates); got != tt.want {
			t.Errorf("closest(%q) = %q, erwartet %q", tt.name, got, tt.want)
		}
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.pt")
	if err := os.WriteFile(garbage, []byte("hello world, not a checkpoint"), 0o644); err != nil {
		t.Fatal(err)
	}

	badHeader := filepath.Join(dir, "bad.safetensors")
	if err := os.WriteFile(badHeader, []byte{0xff, 0xff, 0xff, 0xff, 0, 0, 0, 0, '{', '}'}, 0o644); err != nil {
		t.Fatal(err)
	}

	badJSON := filepath.Join(dir, "json.safetensors")
	if err := os.WriteFile(badJSON, []byte{4, 0, 0, 0, 0, 0, 0, 0, '{', 'x', 'x', 'x'}, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"fehlt", filepath.Join(dir, "missing.pt"), ErrNotFound},
		{"Muell", garbage, ErrCorrupt},
		{"Header-Laenge", badHeader, ErrCorrupt},
		{"Header-JSON", badJSON, ErrCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Open() error = %v, erwartet %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrLoad) {
				t.Errorf("Open() error = %v, erwartet ErrLoad", err)
			}
		})
	}
}

func TestSafetensorsHalfPrecision(t *testing.T) {
	sd := orderedmap.New[string, *Tensor]()
	sd.Set("a", &Tensor{DType: F32, Shape: []int{2, 2}, Data: []float32{0.5, -1.25, 3, 0.1}})
	sd.Set("n", &Tensor{DType: I64, Shape: []int{}, Data: []float32{42}})

	for _, dtype := range []DType{F32, F16, BF16} {
		t.Run(string(dtype), func(t *testing.T) {
			path := writeFile(t, "half.safetensors", sd, WriteOptions{DType: dtype})

			c, err := Open(path)
			if err != nil {
				t.Fatal(err)
			}

			v, _ := c.Entry("a")
			a := v.(*Tensor)
			if a.DType != dtype {
				t.Errorf("DType = %v, erwartet %v", a.DType, dtype)
			}
			if diff := cmp.Diff([]int{2, 2}, a.Shape); diff != "" {
				t.Errorf("Shape (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]float32{0.5, -1.25, 3, 0.1}, a.Data, cmpopts.EquateApprox(0.01, 0)); diff != "" {
				t.Errorf("Data (-want +got):\n%s", diff)
			}

			v, _ = c.Entry("n")
			if n := v.(*Tensor); n.DType != I64 || n.Data[0] != 42 {
				t.Errorf("num_batches_tracked = %v %v, erwartet I64 42", n.DType, n.Data)
			}
		})
	}
}

func TestSafetensorsRejectsUnwritableDType(t *testing.T) {
	sd := orderedmap.New[string, *Tensor]()
	if err := WriteSafetensors(new(strings.Builder), sd, WriteOptions{DType: F64}); !errors.Is(err, ErrUnsupportedDType) {
		t.Errorf("WriteSafetensors(F64) error = %v, erwartet ErrUnsupportedDType", err)
	}
}

func TestSafetensorsMetadata(t *testing.T) {
	epoch, loss, total := int64(42), 0.0375, int64(12000)
	meta := Metadata{Epoch: &epoch, BestLoss: &loss, DatasetsUsed: []string{"cuhk", "celeba"}, TotalSamples: &total}

	sd := orderedmap.New[string, *Tensor]()
	sd.Set("x", &Tensor{DType: F32, Shape: []int{1}, Data: []float32{1}})
	path := writeFile(t, "meta.safetensors", sd, WriteOptions{Metadata: meta.Strings()})

	c, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(meta, c.Metadata()); diff != "" {
		t.Errorf("Metadata (-want +got):\n%s", diff)
	}
}

// nestedTree bildet den Baum nach, den readTorch fuer eine torch.save-Datei
// mit Trainings-Metadaten liefert.
func nestedTree(arch *generator.Architecture, params generator.Params) tree {
	gen := newTree()
	for p := stateDict(arch, params, "").Oldest(); p != nil; p = p.Next() {
		gen.Set(p.Key, p.Value)
	}

	opt := newTree()
	opt.Set("param_groups", []any{"<*types.Dict>"})

	root := newTree()
	root.Set("epoch", 57)
	root.Set("generator_state_dict", gen)
	root.Set("discriminator_state_dict", newTree())
	root.Set("optimizer_state_dict", opt)
	root.Set("best_loss", 0.125)
	root.Set("datasets_used", []any{"sketches", "photos"})
	root.Set("total_samples", 8000)
	return root
}

func TestNestedTorchTree(t *testing.T) {
	arch := smallArch(t)
	params := generatortest.RandomParams(arch, 9)

	c := newCheckpoint("model.pt", FormatPyTorch, nestedTree(arch, params), nil)

	wantKeys := []string{"epoch", "generator_state_dict", "discriminator_state_dict", "optimizer_state_dict", "best_loss", "datasets_used", "total_samples"}
	if diff := cmp.Diff(wantKeys, c.Keys()); diff != "" {
		t.Errorf("Keys() (-want +got):\n%s", diff)
	}
	if c.Convention() != ConventionGenerator {
		t.Errorf("Convention() = %v, erwartet generator_state_dict", c.Convention())
	}

	sd, _ := c.StateDict()
	if _, ok := sd.Get("enc1.0.weight"); !ok {
		t.Error("StateDict() enthaelt enc1.0.weight nicht ohne Praefix")
	}

	ref, _ := arch.Bind(params)
	g, err := c.Bind(arch)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if diff := cmp.Diff(forward(t, ref), forward(t, g)); diff != "" {
		t.Error("Ausgabe weicht vom direkt gebundenen Generator ab")
	}

	m := c.Metadata()
	if m.Epoch == nil || *m.Epoch != 57 {
		t.Errorf("Epoch = %v, erwartet 57", m.Epoch)
	}
	if m.BestLoss == nil || *m.BestLoss != 0.125 {
		t.Errorf("BestLoss = %v, erwartet 0.125", m.BestLoss)
	}
	if diff := cmp.Diff([]string{"sketches", "photos"}, m.DatasetsUsed); diff != "" {
		t.Errorf("DatasetsUsed (-want +got):\n%s", diff)
	}
	if m.TotalSamples == nil || *m.TotalSamples != 8000 {
		t.Errorf("TotalSamples = %v, erwartet 8000", m.TotalSamples)
	}
}

func TestFromTorchTensorStrided(t *testing.T) {
	// 2x3 Tensor als Transponierte eines zusammenhaengenden 3x2 Speichers
	tt := &pytorch.Tensor{
		Source:        &pytorch.FloatStorage{Data: []float32{1, 2, 3, 4, 5, 6}},
		StorageOffset: 0,
		Size:          []int{2, 3},
		Stride:        []int{1, 2},
	}

	got, err := fromTorchTensor(tt)
	if err != nil {
		t.Fatal(err)
	}
	if got.DType != F32 {
		t.Errorf("DType = %v, erwartet F32", got.DType)
	}
	if diff := cmp.Diff([]float32{1, 3, 5, 2, 4, 6}, got.Data); diff != "" {
		t.Errorf("Data (-want +got):\n%s", diff)
	}

	long := &pytorch.Tensor{
		Source: &pytorch.LongStorage{Data: []int64{7, 8, 9}},
		Size:   []int{},
		Stride: []int{},
		// Skalar ab Offset 2
		StorageOffset: 2,
	}
	got, err = fromTorchTensor(long)
	if err != nil {
		t.Fatal(err)
	}
	if got.DType != I64 || len(got.Data) != 1 || got.Data[0] != 9 {
		t.Errorf("Skalar = %v %v, erwartet I64 [9]", got.DType, got.Data)
	}
}

func TestInspect(t *testing.T) {
	arch := smallArch(t)
	c := newCheckpoint("model.pt", FormatPyTorch, nestedTree(arch, generatortest.RandomParams(arch, 3)), nil)

	s := Inspect(c, arch)
	if !s.Compatible {
		t.Errorf("Compatible = false: %v", s.Problem)
	}
	if s.Convention != ConventionGenerator {
		t.Errorf("Convention = %v", s.Convention)
	}
	if len(s.Groups) != 16 || s.Groups[0].Name != "enc1" || s.Groups[15].Name != "dec8" {
		t.Errorf("Groups = %d, erwartet enc1..dec8", len(s.Groups))
	}
	if !s.HasEncoder || !s.HasDecoder || s.HasDiscriminator {
		t.Errorf("Heuristik enc=%v dec=%v disc=%v", s.HasEncoder, s.HasDecoder, s.HasDiscriminator)
	}
	if s.FirstWeight == nil || s.FirstWeight.Name != "enc1.0.weight" {
		t.Errorf("FirstWeight = %v, erwartet enc1.0.weight", s.FirstWeight)
	}
	if s.LastWeight == nil || s.LastWeight.Name != "dec8.0.weight" {
		t.Errorf("LastWeight = %v, erwartet dec8.0.weight", s.LastWeight)
	}

	// alle state_dict-Werte plus ein num_batches_tracked pro Norm-Stufe (13 Stufen)
	if want := arch.NumValues() + 13; s.TotalParams != want {
		t.Errorf("TotalParams = %d, erwartet %d", s.TotalParams, want)
	}

	kinds := map[string]string{}
	for _, e := range s.TopLevel {
		kinds[e.Key] = e.Kind
	}
	if kinds["generator_state_dict"] != "mapping" || kinds["discriminator_state_dict"] != "mapping" || kinds["epoch"] != "int" {
		t.Errorf("TopLevel Kinds = %v", kinds)
	}
}
