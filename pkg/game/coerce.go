package game

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Lenient conversions for values decoded into any. Models drift between
// "12", 12 and 12.0 for the same field, and between a list and a scalar.

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func toInt(v any) int {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return int(math.Trunc(t))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return toInt(f)
	case bool:
		if t {
			return 1
		}
	}
	return 0
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
		return t != ""
	default:
		return true
	}
}

// toStringList never returns nil.
func toStringList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, toString(item))
		}
		return out
	case string:
		if t == "" {
			return []string{}
		}
		return []string{t}
	}
	return []string{}
}

func decodeJournal(v any) []JournalEntry {
	items, _ := v.([]any)
	out := make([]JournalEntry, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, JournalEntry{
			ID:          toString(m["id"]),
			Turn:        toInt(m["turn"]),
			Title:       toString(m["title"]),
			Description: toString(m["description"]),
			Type:        toString(m["type"]),
		})
	}
	return out
}

func decodePlayerState(m map[string]any) PlayerState {
	return PlayerState{
		Name:                 toString(m["name"]),
		Class:                toString(m["class"]),
		Appearance:           toString(m["appearance"]),
		CharacterDescription: strings.TrimSpace(toString(m["characterDescription"])),
		HP:                   toInt(m["hp"]),
		MaxHP:                toInt(m["maxHp"]),
		Mana:                 toInt(m["mana"]),
		MaxMana:              toInt(m["maxMana"]),
		Level:                toInt(m["level"]),
		XP:                   toInt(m["xp"]),
		Gold:                 toInt(m["gold"]),
		Location:             toString(m["location"]),
		Inventory:            toStringList(m["inventory"]),
		StatusEffects:        toStringList(m["statusEffects"]),
		Turn:                 toInt(m["turn"]),
		Journal:              decodeJournal(m["journal"]),
	}
}
