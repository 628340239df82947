package generator

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestConcatOrder(t *testing.T) {
	nodes := buildGraph()
	if len(nodes) != numEncoder+numDecoder+numDecoder-1 {
		t.Fatalf("%d Knoten, erwartet %d", len(nodes), numEncoder+numDecoder+numDecoder-1)
	}

	byName := make(map[string]node, len(nodes))
	for _, n := range nodes {
		byName[n.name] = n
	}

	// dec_(i-1) zuerst, dann enc_(9-i)
	for i := 2; i <= numDecoder; i++ {
		cat := byName[decoderName(i)].inputs[0]
		n, ok := byName[cat]
		if !ok || n.op != opConcat {
			t.Fatalf("%s liest %q, erwartet einen Concat-Knoten", decoderName(i), cat)
		}
		want := []string{decoderName(i - 1), encoderName(numEncoder + 1 - i)}
		if diff := cmp.Diff(want, n.inputs); diff != "" {
			t.Errorf("%s Eingaenge (-want +got):\n%s", cat, diff)
		}
	}

	if got := byName["dec1"].inputs; len(got) != 1 || got[0] != "enc8" {
		t.Errorf("dec1 liest %v, erwartet [enc8]", got)
	}
	if got := byName["enc1"].inputs; len(got) != 1 || got[0] != inputNode {
		t.Errorf("enc1 liest %v, erwartet [%s]", got, inputNode)
	}

	// topologisch sortiert
	seen := map[string]bool{inputNode: true}
	for _, n := range nodes {
		for _, in := range n.inputs {
			if !seen[in] {
				t.Errorf("%s liest %s vor dessen Berechnung", n.name, in)
			}
		}
		seen[n.name] = true
	}
}
