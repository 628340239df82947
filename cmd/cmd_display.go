// cmd_display.go - Tabellen-Ausgabe fuer inspect
// Hauptfunktionen: showSummary, humanNumber
package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"

	"github.com/sketch2face/sketch2face/checkpoint"
)

// keyWidth begrenzt lange Schluessel der obersten Ebene
const keyWidth = 48

// showSummary - Gibt die Checkpoint-Struktur aus. perGroup begrenzt die
// Parameter pro Schichtgruppe, 0 zeigt alle.
func showSummary(s *checkpoint.Summary, perGroup int, w io.Writer) error {
	tableRender := func(header string, rows func() [][]string) {
		fmt.Fprintln(w, " ", header)
		table := tablewriter.NewWriter(w)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetBorder(false)
		table.SetNoWhiteSpace(true)
		table.SetTablePadding("    ")
		table.SetAutoWrapText(false)
		table.AppendBulk(rows())
		table.Render()
		fmt.Fprintln(w)
	}

	tableRender("Checkpoint", func() (rows [][]string) {
		rows = append(rows, []string{"", "path", s.Path})
		rows = append(rows, []string{"", "format", string(s.Format)})

		convention := string(s.Convention)
		if s.LegacyStateDict {
			convention += " (state_dict wrapper is not resolved)"
		}
		rows = append(rows, []string{"", "state dict", convention})

		m := s.Metadata
		if m.Epoch != nil {
			rows = append(rows, []string{"", "epoch", strconv.FormatInt(*m.Epoch, 10)})
		}
		if m.BestLoss != nil {
			rows = append(rows, []string{"", "best loss", strconv.FormatFloat(*m.BestLoss, 'g', 6, 64)})
		}
		if m.DatasetsUsed != nil {
			rows = append(rows, []string{"", "datasets", strings.Join(m.DatasetsUsed, ", ")})
		}
		if m.TotalSamples != nil {
			rows = append(rows, []string{"", "samples", humanNumber(int(*m.TotalSamples))})
		}
		return
	})

	tableRender("Keys", func() (rows [][]string) {
		for _, e := range s.TopLevel {
			rows = append(rows, []string{"", runewidth.Truncate(e.Key, keyWidth, "..."), e.Kind})
		}
		return
	})

	tableRender("Layers", func() (rows [][]string) {
		for _, g := range s.Groups {
			rows = append(rows, []string{"", g.Name, "", "", humanNumber(g.Count())})

			shown := g.Params
			if perGroup > 0 && len(shown) > perGroup {
				shown = shown[:perGroup]
			}
			for _, p := range shown {
				rows = append(rows, []string{"", "  " + p.Name, shapeString(p.Shape), string(p.DType), strconv.Itoa(p.Count)})
			}
			if n := len(g.Params) - len(shown); n > 0 {
				rows = append(rows, []string{"", fmt.Sprintf("  ... and %d more parameters", n), "", "", ""})
			}
		}
		return
	})

	tableRender("Architecture", func() (rows [][]string) {
		rows = append(rows, []string{"", "parameters", fmt.Sprintf("%s (%d)", humanNumber(s.TotalParams), s.TotalParams)})
		rows = append(rows, []string{"", "generator", yesNo(s.HasGenerator)})
		rows = append(rows, []string{"", "discriminator", yesNo(s.HasDiscriminator)})
		rows = append(rows, []string{"", "encoder", yesNo(s.HasEncoder)})
		rows = append(rows, []string{"", "decoder", yesNo(s.HasDecoder)})
		if s.FirstWeight != nil {
			rows = append(rows, []string{"", "first layer", s.FirstWeight.Name + " " + shapeString(s.FirstWeight.Shape)})
		}
		if s.LastWeight != nil {
			rows = append(rows, []string{"", "last layer", s.LastWeight.Name + " " + shapeString(s.LastWeight.Shape)})
		}
		return
	})

	tableRender("Compatibility", func() (rows [][]string) {
		rows = append(rows, []string{"", "pix2pix u-net", yesNo(s.Compatible)})
		if s.Problem != nil {
			rows = append(rows, []string{"", "problem", s.Problem.Error()})
		}
		rows = append(rows, []string{"", "recommendation", s.Recommendation()})
		return
	})

	return nil
}

// shapeString - [64 3 4 4] -> 64x3x4x4, Skalare als "scalar"
func shapeString(shape []int) string {
	if len(shape) == 0 {
		return "scalar"
	}
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, "x")
}

// humanNumber - 54424387 -> 54.4M
func humanNumber(n int) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1e9)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1e6)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1e3)
	default:
		return strconv.Itoa(n)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
