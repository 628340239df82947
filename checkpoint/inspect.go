// inspect.go - Struktur-Zusammenfassung eines Checkpoints fuer Menschen
package checkpoint

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sketch2face/sketch2face/generator"
)

// legacyStateDictKey wird nur von inspect angezeigt, Bind loest ihn nicht auf.
const legacyStateDictKey = "state_dict"

// TopLevelEntry beschreibt einen Eintrag der obersten Ebene.
type TopLevelEntry struct {
	Key  string
	Kind string // "mapping", "tensor" oder Go-Typ des Skalars
}

// ParamInfo beschreibt einen Tensor im aufgeloesten state_dict.
type ParamInfo struct {
	Name  string
	DType DType
	Shape []int
	Count int
}

// Group fasst Parameter mit gleichem ersten Namenssegment zusammen (enc1, dec8).
type Group struct {
	Name   string
	Params []ParamInfo
}

// Count summiert die Elemente der Gruppe.
func (g Group) Count() int {
	n := 0
	for _, p := range g.Params {
		n += p.Count
	}
	return n
}

// Summary ist das Ergebnis von Inspect.
type Summary struct {
	Path       string
	Format     Format
	TopLevel   []TopLevelEntry
	Convention Convention

	// LegacyStateDict ist true wenn nur ein "state_dict"-Wrapper existiert.
	LegacyStateDict bool

	Groups      []Group
	TotalParams int

	HasGenerator     bool
	HasDiscriminator bool
	HasEncoder       bool
	HasDecoder       bool

	FirstWeight *ParamInfo
	LastWeight  *ParamInfo

	Metadata Metadata

	// Compatible ist true wenn Validate gegen die Architektur erfolgreich ist.
	Compatible bool
	Problem    error
}

// Inspect beschreibt c und prueft die Kompatibilitaet mit arch.
func Inspect(c *Checkpoint, arch *generator.Architecture) *Summary {
	sd, conv := c.StateDict()
	s := &Summary{
		Path:       c.path,
		Format:     c.format,
		Convention: conv,
		Metadata:   c.Metadata(),
	}

	for _, key := range c.topLevel {
		s.TopLevel = append(s.TopLevel, TopLevelEntry{Key: key, Kind: c.kindOf(key)})
	}

	if conv == ConventionBare && c.kindOf(legacyStateDictKey) == "mapping" {
		s.LegacyStateDict = true
	}

	groups := map[string]int{}
	for p := sd.Oldest(); p != nil; p = p.Next() {
		info := ParamInfo{Name: p.Key, DType: p.Value.DType, Shape: p.Value.Shape, Count: p.Value.NumElements()}
		s.TotalParams += info.Count

		group, _, _ := strings.Cut(p.Key, ".")
		i, ok := groups[group]
		if !ok {
			i = len(s.Groups)
			groups[group] = i
			s.Groups = append(s.Groups, Group{Name: group})
		}
		s.Groups[i].Params = append(s.Groups[i].Params, info)

		lower := strings.ToLower(p.Key)
		s.HasGenerator = s.HasGenerator || strings.Contains(lower, "gen")
		s.HasDiscriminator = s.HasDiscriminator || strings.Contains(lower, "disc")
		s.HasEncoder = s.HasEncoder || strings.Contains(lower, "enc")
		s.HasDecoder = s.HasDecoder || strings.Contains(lower, "dec")

		if strings.Contains(p.Key, "weight") && len(info.Shape) >= 2 {
			if s.FirstWeight == nil {
				first := info
				s.FirstWeight = &first
			}
			last := info
			s.LastWeight = &last
		}
	}

	_, err := Validate(sd, arch)
	s.Compatible = err == nil
	s.Problem = err
	return s
}

// kindOf beschreibt den Eintrag key der obersten Ebene.
func (c *Checkpoint) kindOf(key string) string {
	if !slices.Contains(c.topLevel, key) {
		return "missing"
	}
	if v, ok := c.entries.Get(key); ok {
		if _, ok := v.(*Tensor); ok {
			return "tensor"
		}
		if v == nil {
			return "none"
		}
		return fmt.Sprintf("%T", v)
	}
	// kein Blatt: verschachtelter (ggf. leerer) Eintrag
	return "mapping"
}

// Recommendation gibt die Empfehlung aus der Architektur-Analyse zurueck.
func (s *Summary) Recommendation() string {
	if s.HasGenerator {
		return "GAN checkpoint with a generator: use only the generator for inference"
	}
	return "direct mapping model: use the entire state dict for inference"
}
