// graph.go - Feste Knotentabelle fuer den Forward-Pass
//
// Der Generator ist ein kleiner DAG: 8 Encoder-Knoten, 7 Concat-Knoten und
// 8 Decoder-Knoten. Die Tabelle ist topologisch sortiert, Forward arbeitet
// sie einfach von oben nach unten ab.
package generator

import "fmt"

type nodeOp int

const (
	opStage nodeOp = iota
	opConcat
)

const inputNode = "input"

type node struct {
	name   string
	op     nodeOp
	stage  int      // Index in Generator.stages bei opStage
	inputs []string // opStage: 1 Eingang, opConcat: [decoder, encoder]
}

func encoderName(i int) string { return fmt.Sprintf("enc%d", i) }
func decoderName(i int) string { return fmt.Sprintf("dec%d", i) }

// buildGraph erzeugt die Knotentabelle. Stufe i im Slice ist encN bzw. decN
// in der Reihenfolge aus stageSpecs.
func buildGraph() []node {
	nodes := make([]node, 0, numEncoder+numDecoder+numDecoder-1)

	prev := inputNode
	for i := 1; i <= numEncoder; i++ {
		nodes = append(nodes, node{name: encoderName(i), op: opStage, stage: i - 1, inputs: []string{prev}})
		prev = encoderName(i)
	}

	for i := 1; i <= numDecoder; i++ {
		in := prev
		if i > 1 {
			// Decoder-Ausgabe zuerst, Encoder-Feature danach
			in = fmt.Sprintf("cat%d", i)
			nodes = append(nodes, node{
				name:   in,
				op:     opConcat,
				inputs: []string{decoderName(i - 1), encoderName(numEncoder + 1 - i)},
			})
		}
		nodes = append(nodes, node{name: decoderName(i), op: opStage, stage: numEncoder + i - 1, inputs: []string{in}})
		prev = decoderName(i)
	}
	return nodes
}
