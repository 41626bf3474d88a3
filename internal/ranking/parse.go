package ranking

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ProviderScore is the provider's verdict for one ordinal.
type ProviderScore struct {
	Score  int
	Reason string
}

// ScoreMap maps 1-based snapshot ordinals to provider verdicts. Ordinals
// absent from the map fall back to their baseline.
type ScoreMap map[int]ProviderScore

// ParseResult is the validated content of a provider reply.
type ParseResult struct {
	Scores ScoreMap
	// Dropped counts entries skipped as malformed, out of range or duplicated.
	Dropped int
}

// ParseResponse extracts the JSON object from a provider reply and validates
// it against a snapshot of size snapshotSize. Individual bad entries are
// dropped; only a missing or malformed envelope is an error. An empty matches
// list is valid and yields an empty map.
func ParseResponse(raw string, snapshotSize int) (*ParseResult, error) {
	object, ok := extractObject(raw)
	if !ok {
		return nil, &ParseError{Message: "no JSON object found in provider reply"}
	}

	decoder := json.NewDecoder(strings.NewReader(object))
	decoder.UseNumber()

	var envelope map[string]any
	if err := decoder.Decode(&envelope); err != nil {
		return nil, &ParseError{Message: "decode provider reply", Cause: err}
	}

	rawMatches, present := envelope["matches"]
	if !present {
		return nil, &ParseError{Message: `field "matches" is missing`}
	}

	matches, ok := rawMatches.([]any)
	if !ok {
		return nil, &ParseError{Message: fmt.Sprintf(`field "matches" must be a list, got %T`, rawMatches)}
	}

	result := &ParseResult{Scores: make(ScoreMap, len(matches))}
	seen := make(map[int]struct{}, len(matches))
	for _, rawEntry := range matches {
		entry, ok := rawEntry.(map[string]any)
		if !ok {
			result.Dropped++
			continue
		}

		ordinal, ok := coerceOrdinal(entry["ordinal"])
		if !ok || ordinal < 1 || ordinal > snapshotSize {
			result.Dropped++
			continue
		}

		if _, dup := seen[ordinal]; dup {
			result.Dropped++
			continue
		}
		seen[ordinal] = struct{}{}

		score, ok := coerceScore(entry["matchScore"])
		if !ok {
			result.Dropped++
			continue
		}

		result.Scores[ordinal] = ProviderScore{
			Score:  score,
			Reason: coerceString(entry["reason"]),
		}
	}

	return result, nil
}

// extractObject returns the first balanced, syntactically valid JSON object in
// raw that carries a "matches" key. Without one it falls back to the first
// valid object. Surrounding prose and markdown fences are ignored.
func extractObject(raw string) (string, bool) {
	first := ""
	for start := strings.IndexByte(raw, '{'); start != -1; {
		if end, ok := balancedEnd(raw, start); ok {
			candidate := raw[start : end+1]
			if json.Valid([]byte(candidate)) {
				if hasMatchesKey(candidate) {
					return candidate, true
				}
				if first == "" {
					first = candidate
				}
			}
		}

		next := strings.IndexByte(raw[start+1:], '{')
		if next == -1 {
			break
		}
		start += next + 1
	}

	return first, first != ""
}

func hasMatchesKey(object string) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(object), &fields); err != nil {
		return false
	}
	_, ok := fields["matches"]
	return ok
}

// balancedEnd finds the index of the brace closing the one at start, skipping
// braces inside string literals.
func balancedEnd(raw string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}

	return 0, false
}

// coerceOrdinal accepts integral numbers and integer strings.
func coerceOrdinal(v any) (int, bool) {
	f, ok := coerceFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// coerceScore accepts any finite number and rounds it. Range is enforced later.
func coerceScore(v any) (int, bool) {
	f, ok := coerceFloat(v)
	if !ok {
		return 0, false
	}
	return int(math.Round(f)), true
}

func coerceFloat(v any) (float64, bool) {
	var (
		f   float64
		err error
	)

	switch val := v.(type) {
	case json.Number:
		f, err = val.Float64()
	case float64:
		f = val
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0, false
		}
		f, err = strconv.ParseFloat(trimmed, 64)
	default:
		return 0, false
	}

	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return f, true
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
