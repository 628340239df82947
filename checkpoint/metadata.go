package checkpoint

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Schluessel der Trainings-Metadaten
const (
	keyEpoch        = "epoch"
	keyBestLoss     = "best_loss"
	keyDatasetsUsed = "datasets_used"
	keyTotalSamples = "total_samples"
)

// Metadata enthaelt optionale Trainings-Informationen. Sie beeinflussen die
// gebundenen Parameter nie.
type Metadata struct {
	Epoch        *int64   `json:"epoch,omitempty"`
	BestLoss     *float64 `json:"best_loss,omitempty"`
	DatasetsUsed []string `json:"datasets_used,omitempty"`
	TotalSamples *int64   `json:"total_samples,omitempty"`
}

// Empty ist true wenn kein Feld gesetzt ist.
func (m Metadata) Empty() bool {
	return m.Epoch == nil && m.BestLoss == nil && m.DatasetsUsed == nil && m.TotalSamples == nil
}

// LogValue implementiert slog.LogValuer.
func (m Metadata) LogValue() slog.Value {
	var attrs []slog.Attr
	if m.Epoch != nil {
		attrs = append(attrs, slog.Int64(keyEpoch, *m.Epoch))
	}
	if m.BestLoss != nil {
		attrs = append(attrs, slog.Float64(keyBestLoss, *m.BestLoss))
	}
	if m.DatasetsUsed != nil {
		attrs = append(attrs, slog.Any(keyDatasetsUsed, m.DatasetsUsed))
	}
	if m.TotalSamples != nil {
		attrs = append(attrs, slog.Int64(keyTotalSamples, *m.TotalSamples))
	}
	return slog.GroupValue(attrs...)
}

// Strings kodiert die Metadaten fuer safetensors "__metadata__".
func (m Metadata) Strings() map[string]string {
	out := make(map[string]string)
	if m.Epoch != nil {
		out[keyEpoch] = strconv.FormatInt(*m.Epoch, 10)
	}
	if m.BestLoss != nil {
		out[keyBestLoss] = strconv.FormatFloat(*m.BestLoss, 'g', -1, 64)
	}
	if m.DatasetsUsed != nil {
		b, _ := json.Marshal(m.DatasetsUsed)
		out[keyDatasetsUsed] = string(b)
	}
	if m.TotalSamples != nil {
		out[keyTotalSamples] = strconv.FormatInt(*m.TotalSamples, 10)
	}
	return out
}

// Metadata liest die Trainings-Metadaten. Bei PyTorch stehen sie als
// Skalare auf oberster Ebene, bei safetensors in "__metadata__".
func (c *Checkpoint) Metadata() Metadata {
	var m Metadata

	get := func(key string) (any, bool) {
		if v, ok := c.entries.Get(key); ok {
			return v, true
		}
		if s, ok := c.extra[key]; ok {
			return s, true
		}
		return nil, false
	}

	if v, ok := get(keyEpoch); ok {
		if n, ok := asInt(v); ok {
			m.Epoch = &n
		}
	}
	if v, ok := get(keyBestLoss); ok {
		if f, ok := asFloat(v); ok {
			m.BestLoss = &f
		}
	}
	if v, ok := get(keyTotalSamples); ok {
		if n, ok := asInt(v); ok {
			m.TotalSamples = &n
		}
	}
	if v, ok := get(keyDatasetsUsed); ok {
		m.DatasetsUsed = asStrings(v)
	}
	return m
}

func asInt(v any) (int64, bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case *Tensor:
		if v.Readable() && len(v.Data) == 1 {
			return int64(v.Data[0]), true
		}
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case *Tensor:
		if v.Readable() && len(v.Data) == 1 {
			return float64(v.Data[0]), true
		}
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// asStrings akzeptiert Listen, JSON-Arrays und komma-getrennte Strings.
func asStrings(v any) []string {
	switch v := v.(type) {
	case []any:
		out := make([]string, len(v))
		for i, s := range v {
			out[i] = fmt.Sprint(s)
		}
		return out
	case string:
		var list []string
		if err := json.Unmarshal([]byte(v), &list); err == nil {
			return list
		}
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{fmt.Sprint(v)}
}
