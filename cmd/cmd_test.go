package cmd

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/sketch2face/sketch2face/checkpoint"
	"github.com/sketch2face/sketch2face/generator"
	"github.com/sketch2face/sketch2face/generator/generatortest"
	"github.com/sketch2face/sketch2face/version"
	"github.com/sketch2face/sketch2face/vision"
)

// run fuehrt die CLI mit args aus und gibt stdout und stderr zurueck.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cli := NewCLI()
	cli.SetArgs(args)
	cli.SetOut(&stdout)
	cli.SetErr(&stderr)
	err := cli.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

// writeCheckpoint legt einen kleinen Checkpoint (ngf=8) unter dem Wrapper
// model_state_dict als safetensors an.
func writeCheckpoint(t *testing.T, dir string) string {
	t.Helper()

	arch, err := generator.New(generator.Config{BaseFilters: 8})
	require.NoError(t, err)
	params := generatortest.RandomParams(arch, 3)

	sd := orderedmap.New[string, *checkpoint.Tensor]()
	for _, spec := range arch.Parameters() {
		p := params[spec.Name]
		sd.Set("model_state_dict."+spec.Name, &checkpoint.Tensor{DType: checkpoint.F32, Shape: p.Shape, Data: p.Data})
	}

	path := filepath.Join(dir, "model.safetensors")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, checkpoint.WriteSafetensors(f, sd, checkpoint.WriteOptions{
		Metadata: map[string]string{"epoch": "12", "best_loss": "0.25"},
	}))
	require.NoError(t, f.Close())
	return path
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestVersion(t *testing.T) {
	for _, args := range [][]string{{"version"}, {"--version"}} {
		stdout, _, err := run(t, args...)
		require.NoError(t, err)
		require.Equal(t, "sketch2face version is "+version.Version+"\n", stdout)
	}
}

func TestSketch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_sketch.png")

	_, stderr, err := run(t, "sketch", "-o", path, "--size", "128")
	require.NoError(t, err)
	require.Contains(t, stderr, "Test sketch saved as")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 128, 128), decodePNG(t, data).Bounds())
}

func TestSketchStdout(t *testing.T) {
	stdout, stderr, err := run(t, "sketch", "-o", "-")
	require.NoError(t, err)
	require.Empty(t, stderr)
	require.Equal(t, image.Rect(0, 0, 256, 256), decodePNG(t, []byte(stdout)).Bounds())
}

func TestSketchErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := run(t, "sketch", "--size", "0", "-o", filepath.Join(dir, "a.png"))
	require.ErrorContains(t, err, "invalid size")

	_, _, err = run(t, "sketch", "-o", filepath.Join(dir, "a.webp"))
	require.ErrorIs(t, err, vision.ErrUnsupportedFormat)

	_, _, err = run(t, "sketch", "extra")
	require.Error(t, err)
}

func TestConvertInspectGenerate(t *testing.T) {
	dir := t.TempDir()
	src := writeCheckpoint(t, dir)
	dst := filepath.Join(dir, "bare.safetensors")

	// convert: Wrapper aufloesen, Metadaten behalten, F16 schreiben
	_, stderr, err := run(t, "--ngf", "8", "convert", src, dst, "--dtype", "f16")
	require.NoError(t, err)
	require.Contains(t, stderr, "model_state_dict")

	cp, err := checkpoint.Open(dst)
	require.NoError(t, err)
	require.Equal(t, checkpoint.ConventionBare, cp.Convention())
	require.NotNil(t, cp.Metadata().Epoch)
	require.EqualValues(t, 12, *cp.Metadata().Epoch)

	sd, _ := cp.StateDict()
	w, ok := sd.Get("enc1.0.weight")
	require.True(t, ok)
	require.Equal(t, checkpoint.F16, w.DType)

	// ohne --force kein Ueberschreiben
	_, _, err = run(t, "--ngf", "8", "convert", src, dst)
	require.ErrorContains(t, err, "already exists")
	_, _, err = run(t, "--ngf", "8", "convert", src, dst, "--force")
	require.NoError(t, err)

	// inspect
	stdout, _, err := run(t, "--ngf", "8", "inspect", src, "--params", "1")
	require.NoError(t, err)
	for _, want := range []string{"model_state_dict", "enc1", "more parameters", "epoch", "pix2pix u-net"} {
		require.Contains(t, stdout, want)
	}
	require.NotContains(t, stdout, "problem")

	// generate ueber den konvertierten Checkpoint
	input := filepath.Join(dir, "sketch.png")
	_, _, err = run(t, "sketch", "-o", input)
	require.NoError(t, err)

	_, stderr, err = run(t, "--ngf", "8", "generate", input, "--checkpoint", dst, "--verbose")
	require.NoError(t, err)
	require.Contains(t, stderr, "inference:")

	data, err := os.ReadFile(filepath.Join(dir, "output_sketch.png"))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 256, 256), decodePNG(t, data).Bounds())
}

func TestInspectIncompatible(t *testing.T) {
	src := writeCheckpoint(t, t.TempDir())

	// Architektur mit ngf=16 passt nicht, inspect meldet das nur
	stdout, _, err := run(t, "--ngf", "16", "inspect", src)
	require.NoError(t, err)
	require.Contains(t, stdout, "problem")
	require.Contains(t, stdout, "shape mismatch")
}

func TestConvertIncompatible(t *testing.T) {
	dir := t.TempDir()
	src := writeCheckpoint(t, dir)
	dst := filepath.Join(dir, "out.safetensors")

	_, _, err := run(t, "--ngf", "16", "convert", src, dst)
	require.ErrorIs(t, err, checkpoint.ErrShapeMismatch)

	_, err = os.Stat(dst)
	require.True(t, errors.Is(err, os.ErrNotExist), "bei Fehler keine Ausgabe")
}

func TestGenerateErrors(t *testing.T) {
	dir := t.TempDir()
	src := writeCheckpoint(t, dir)

	garbage := filepath.Join(dir, "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o644))

	tests := []struct {
		name string
		args []string
		err  error
	}{
		{"fehlender Checkpoint", []string{"--ngf", "8", "generate", garbage, "--checkpoint", filepath.Join(dir, "none.pt")}, checkpoint.ErrNotFound},
		{"falsche Architektur", []string{"--ngf", "16", "generate", garbage, "--checkpoint", src}, checkpoint.ErrLoad},
		{"kein Bild", []string{"--ngf", "8", "generate", garbage, "--checkpoint", src}, vision.ErrUnknownFormat},
		{"ungueltiges ngf", []string{"--ngf", "0", "generate", garbage, "--checkpoint", src}, generator.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestHumanNumber(t *testing.T) {
	tests := map[int]string{
		0:          "0",
		999:        "999",
		1_500:      "1.5K",
		54_424_387: "54.4M",
		2e9:        "2.0B",
	}
	for n, want := range tests {
		if got := humanNumber(n); got != want {
			t.Errorf("humanNumber(%d) = %q, erwartet %q", n, got, want)
		}
	}
}

func TestShapeString(t *testing.T) {
	if got := shapeString([]int{64, 3, 4, 4}); got != "64x3x4x4" {
		t.Errorf("shapeString = %q", got)
	}
	if got := shapeString(nil); got != "scalar" {
		t.Errorf("shapeString(nil) = %q", got)
	}
}

func TestDefaultOutput(t *testing.T) {
	got := defaultOutput(filepath.Join("a", "b", "face.jpg"))
	if want := filepath.Join("a", "b", "output_face.jpg"); got != want {
		t.Errorf("defaultOutput = %q, erwartet %q", got, want)
	}
	if strings.Contains(defaultOutput("face.png"), string(filepath.Separator)) {
		t.Error("defaultOutput ohne Verzeichnis darf keinen Trenner enthalten")
	}
}
