package service

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tejashriiii/OilSpill/model"
)

// knownClasses are the labels the overlay renderer has colors for.
// Anything else is drawn as "unknown".
var knownClasses = map[string]struct{}{
	"oil":        {},
	"water":      {},
	"land":       {},
	"vegetation": {},
}

// extractor is one strategy for locating the detection list inside a
// workflow payload. Strategies are pure; ok reports whether the
// location held a list.
type extractor func(root map[string]any) ([]any, bool)

// extractors are tried in priority order; the first hit wins.
var extractors = []extractor{
	// flat: {"predictions": [...]}
	func(root map[string]any) ([]any, bool) {
		list, ok := root["predictions"].([]any)
		return list, ok
	},
	// nested: {"predictions": {"predictions": [...]}}
	func(root map[string]any) ([]any, bool) {
		inner, ok := root["predictions"].(map[string]any)
		if !ok {
			return nil, false
		}
		list, ok := inner["predictions"].([]any)
		return list, ok
	},
	// outputs: {"outputs": [{"predictions": [...]}]}
	func(root map[string]any) ([]any, bool) {
		outputs, ok := root["outputs"].([]any)
		if !ok || len(outputs) == 0 {
			return nil, false
		}
		first, ok := outputs[0].(map[string]any)
		if !ok {
			return nil, false
		}
		list, ok := first["predictions"].([]any)
		return list, ok
	},
}

// NormalizeDetections flattens an arbitrary workflow payload into
// drawable polygons scaled to the displayW×displayH image. The payload
// shape is not trusted: the detection list is searched for at several
// known locations, malformed entries are skipped one by one, and a
// payload with no recognizable list yields an empty slice. It never
// fails.
func NormalizeDetections(payload any, displayW, displayH int) []model.Detection {
	root := unwrapPayload(payload)
	if root == nil {
		return nil
	}

	var entries []any
	for _, extract := range extractors {
		if list, ok := extract(root); ok {
			entries = list
			break
		}
	}
	if entries == nil {
		return nil
	}

	srcW, srcH := sourceDimensions(root, displayW, displayH)
	scaleX := float64(displayW) / srcW
	scaleY := float64(displayH) / srcH

	detections := make([]model.Detection, 0, len(entries))
	for _, raw := range entries {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		points := extractPoints(entry, scaleX, scaleY)
		if len(points) < 3 {
			continue
		}

		detections = append(detections, model.Detection{
			Class:  classLabel(entry),
			Points: points,
		})
	}

	return detections
}

// unwrapPayload accepts either the payload object itself or an array
// whose first element is the object.
func unwrapPayload(payload any) map[string]any {
	if arr, ok := payload.([]any); ok {
		if len(arr) == 0 {
			return nil
		}
		payload = arr[0]
	}
	root, _ := payload.(map[string]any)
	return root
}

// sourceDimensions recovers the reference resolution the payload
// coordinates were expressed in, falling back to the display size.
func sourceDimensions(root map[string]any, displayW, displayH int) (float64, float64) {
	candidates := []any{}
	if inner, ok := root["predictions"].(map[string]any); ok {
		candidates = append(candidates, inner["image"])
	}
	candidates = append(candidates, root["image"])
	if meta, ok := root["metadata"].(map[string]any); ok {
		candidates = append(candidates, meta["image"])
	}

	for _, candidate := range candidates {
		info, ok := candidate.(map[string]any)
		if !ok {
			continue
		}
		w, wok := toFloat(info["width"])
		h, hok := toFloat(info["height"])
		if wok && hok && w > 0 && h > 0 {
			return w, h
		}
	}

	return float64(displayW), float64(displayH)
}

func classLabel(entry map[string]any) string {
	name, _ := entry["class"].(string)
	if name == "" {
		name, _ = entry["class_name"].(string)
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := knownClasses[name]; !ok {
		return "unknown"
	}
	return name
}

// extractPoints pulls the scaled polygon vertices from one entry.
// Points failing numeric coercion are dropped individually.
func extractPoints(entry map[string]any, scaleX, scaleY float64) []model.Point {
	raw, ok := entry["points"].([]any)
	if !ok {
		return nil
	}

	points := make([]model.Point, 0, len(raw))
	for _, rp := range raw {
		p, ok := rp.(map[string]any)
		if !ok {
			continue
		}
		x, xok := toFloat(p["x"])
		y, yok := toFloat(p["y"])
		if !xok || !yok {
			continue
		}
		points = append(points, model.Point{X: x * scaleX, Y: y * scaleY})
	}
	return points
}

// toFloat coerces the numeric representations JSON decoding can
// produce, plus numeric strings.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
