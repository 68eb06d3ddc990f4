package llm

import (
	"encoding/json"
	"math"
	"strings"

	"internship-portal/internal/shared/telemetry"
)

var requiredKeys = []string{"score", "strengths", "missing_skills", "suggestions"}

var listKeys = []string{"strengths", "missing_skills", "suggestions"}

// ParseResponse decodes raw model output into a validated Result. Markdown code
// fences are stripped; if the remainder is not JSON, the outermost {...} span is tried.
func ParseResponse(raw string) (Result, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return Result{}, err
	}
	return ValidateResult(obj)
}

func decodeObject(raw string) (map[string]any, error) {
	text := stripFences(raw)
	if text == "" {
		return nil, invalidResponse("empty response")
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil && obj != nil {
		return obj, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, invalidResponse("no JSON object in response")
	}
	obj = nil
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil || obj == nil {
		return nil, invalidResponse("malformed JSON: %v", err)
	}
	return obj, nil
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// ValidateResult checks a decoded object for the required keys and types.
func ValidateResult(obj map[string]any) (Result, error) {
	for _, key := range requiredKeys {
		if _, ok := obj[key]; !ok {
			return Result{}, invalidField(key, "missing required field")
		}
	}

	score, ok := obj["score"].(float64)
	if !ok || math.IsNaN(score) || score < 0 || score > 100 {
		return Result{}, invalidField("score", "want a number between 0 and 100, got %v", obj["score"])
	}

	lists := make(map[string][]string, len(listKeys))
	for _, key := range listKeys {
		items, err := stringList(key, obj[key])
		if err != nil {
			return Result{}, err
		}
		if len(items) == 0 {
			telemetry.Warn("llm.response.empty_list", map[string]any{"field": key})
		}
		lists[key] = items
	}

	return Result{
		Score:         int(score),
		Strengths:     lists["strengths"],
		MissingSkills: lists["missing_skills"],
		Suggestions:   lists["suggestions"],
	}, nil
}

func stringList(key string, v any) ([]string, error) {
	raw, ok := v.([]any)
	if !ok {
		return nil, invalidField(key, "must be a list")
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		switch val := item.(type) {
		case string:
			if s := strings.TrimSpace(val); s != "" {
				out = append(out, s)
			}
		case nil:
		default:
			b, err := json.Marshal(val)
			if err != nil {
				return nil, invalidField(key, "contains an unsupported item")
			}
			out = append(out, string(b))
		}
	}
	return out, nil
}
