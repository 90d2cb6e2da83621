package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var (
	ErrParse              = errors.New("failed to parse model response")
	ErrMissingPlayerState = errors.New("model response missing playerState")
)

// ActionCount is the number of suggested actions every response carries.
const ActionCount = 4

// DefaultActions pads replies that suggest fewer than ActionCount distinct actions.
var DefaultActions = []string{"Look around", "Check inventory", "Do something evil", "Do something silly"}

var (
	fenceOpener   = regexp.MustCompile("```[a-zA-Z]*\n")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// StripCodeFences removes markdown code fences and trims the result.
func StripCodeFences(s string) string {
	s = fenceOpener.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// ExtractFirstJSON returns the first balanced JSON object in s after
// stripping code fences. Braces inside string literals are ignored. When no
// balanced object exists it returns its best candidate and false.
func ExtractFirstJSON(s string) (string, bool) {
	t := StripCodeFences(s)
	start := strings.IndexByte(t, '{')
	if start < 0 {
		return t, false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(t); i++ {
		c := t[i]
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
				return t[start : i+1], true
			}
		}
	}

	if end := strings.LastIndexByte(t, '}'); end > start {
		return t[start : end+1], false
	}
	return t, false
}

// ParseObject parses raw as a JSON object. Trailing commas before a closing
// brace or bracket are repaired once before giving up.
func ParseObject(raw string) (map[string]any, error) {
	obj, err := parseObject(raw)
	if err == nil {
		return obj, nil
	}
	repaired := trailingComma.ReplaceAllString(raw, "$1")
	if repaired != raw {
		if obj, rerr := parseObject(repaired); rerr == nil {
			return obj, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrParse, err)
}

func parseObject(raw string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("not a JSON object")
	}
	return obj, nil
}

// Normalize turns raw model output into a GameResponse. It fails with
// ErrParse when no JSON object can be recovered and with
// ErrMissingPlayerState when the object has no playerState; every other
// field is coerced or defaulted.
func Normalize(raw string) (*GameResponse, error) {
	candidate, _ := ExtractFirstJSON(raw)
	obj, err := ParseObject(candidate)
	if err != nil {
		return nil, err
	}
	return NormalizeObject(obj)
}

// NormalizeObject applies the field rules of Normalize to a parsed object.
func NormalizeObject(obj map[string]any) (*GameResponse, error) {
	ps, ok := obj["playerState"].(map[string]any)
	if !ok {
		return nil, ErrMissingPlayerState
	}

	res := &GameResponse{
		Narrative:         strings.TrimSpace(toString(obj["narrative"])),
		VisualDescription: strings.TrimSpace(toString(obj["visualDescription"])),
		PlayerState:       decodePlayerState(ps),
		SuggestedActions:  NormalizeActions(toStringList(obj["suggestedActions"])),
		RequiresChoice:    truthy(obj["requiresChoice"]),
		GameOver:          truthy(obj["gameOver"]),
	}
	if res.Narrative == "" {
		res.Narrative = "..."
	}
	if s, ok := obj["visualArt"].(string); ok {
		res.VisualArt = s
	}
	if s, ok := obj["mapArt"].(string); ok {
		res.MapArt = s
	}
	if mc, ok := obj["mapCoordinates"].(map[string]any); ok {
		x, xok := mc["x"].(float64)
		y, yok := mc["y"].(float64)
		if xok && yok {
			res.MapCoordinates = &MapCoordinates{X: int(math.Trunc(x)), Y: int(math.Trunc(y))}
		}
	}
	return res, nil
}

// NormalizeActions trims, drops empties, removes case-insensitive
// duplicates and pads from DefaultActions to exactly ActionCount entries.
func NormalizeActions(actions []string) []string {
	fold := cases.Fold()
	seen := make(map[string]bool, ActionCount)
	out := make([]string, 0, ActionCount)

	add := func(a string) {
		a = strings.TrimSpace(a)
		if a == "" || len(out) == ActionCount {
			return
		}
		key := fold.String(a)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, a)
	}

	for _, a := range actions {
		add(a)
	}
	for _, a := range DefaultActions {
		add(a)
	}
	return out
}
