package game

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/cases"
)

const validPlayerState = `{"name":"Wren","class":"Scout","appearance":"Hooded","characterDescription":"Hooded scout with a lantern","hp":18,"maxHp":20,"mana":4,"maxMana":10,"level":2,"xp":35,"gold":7,"location":"Fog-Marsh","inventory":["lantern","rope"],"statusEffects":[],"turn":3,"journal":[{"id":"j1","turn":1,"title":"Arrival","description":"Woke on the road","type":"location"}]}`

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\nart\n```", want: "art"},
		{name: "no fence", in: "  plain  ", want: "plain"},
		{name: "inline fences", in: "x ``` y", want: "x  y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func TestExtractFirstJSON(t *testing.T) {
	obj := `{"narrative":"A {strange} door","nested":{"deep":{"x":[1,2,{"y":"}"}]}},"quote":"she said \"}\""}`

	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{name: "bare object", in: obj, want: obj, wantOK: true},
		{name: "prose before and after", in: "Sure! Here you go:\n" + obj + "\nHope that helps {really}.", want: obj, wantOK: true},
		{name: "code fenced", in: "```json\n" + obj + "\n```", want: obj, wantOK: true},
		{name: "second object ignored", in: `{"a":1} {"b":2}`, want: `{"a":1}`, wantOK: true},
		{name: "no object", in: "nothing here", want: "nothing here", wantOK: false},
		{name: "unbalanced", in: `{"a":{"b":1}`, want: `{"a":{"b":1}`, wantOK: false},
		{name: "unbalanced with trailing prose", in: "Reply: {\"a\":{\"b\":1} done", want: `{"a":{"b":1}`, wantOK: false},
		{name: "open brace only", in: "```\nnote { unfinished\n```", want: "note { unfinished", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractFirstJSON(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseObject(t *testing.T) {
	t.Run("strict", func(t *testing.T) {
		obj, err := ParseObject(`{"a":[1,2]}`)
		require.NoError(t, err)
		assert.Len(t, obj["a"], 2)
	})

	t.Run("trailing commas repaired", func(t *testing.T) {
		obj, err := ParseObject("{\"a\":[1,2, ],\n\"b\":{\"c\":true,\n},}")
		require.NoError(t, err)
		assert.Len(t, obj["a"], 2)
		assert.Equal(t, map[string]any{"c": true}, obj["b"])
	})

	t.Run("unrepairable", func(t *testing.T) {
		_, err := ParseObject(`{"a": nope}`)
		assert.ErrorIs(t, err, ErrParse)
	})

	t.Run("array is not an object", func(t *testing.T) {
		_, err := ParseObject(`[1,2]`)
		assert.ErrorIs(t, err, ErrParse)
	})

	t.Run("null is not an object", func(t *testing.T) {
		_, err := ParseObject(`null`)
		assert.ErrorIs(t, err, ErrParse)
	})
}

func TestNormalize_FencedDuplicates(t *testing.T) {
	raw := "```json\n{\"narrative\":\"Hi\",\"playerState\":" + validPlayerState + ",\"suggestedActions\":[\"a\",\"a\",\"b\"]}\n```"

	res, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "Hi", res.Narrative)
	assert.Equal(t, []string{"a", "b", "Look around", "Check inventory"}, res.SuggestedActions)
	assert.Equal(t, "Wren", res.PlayerState.Name)
	assert.Equal(t, 18, res.PlayerState.HP)
	assert.Equal(t, []string{"lantern", "rope"}, res.PlayerState.Inventory)
	require.Len(t, res.PlayerState.Journal, 1)
	assert.Equal(t, "Arrival", res.PlayerState.Journal[0].Title)
}

func TestNormalize_Defaults(t *testing.T) {
	res, err := Normalize(`{"playerState":{}}`)
	require.NoError(t, err)

	assert.Equal(t, "...", res.Narrative)
	assert.Equal(t, "", res.VisualDescription)
	assert.False(t, res.SceneChanged())
	assert.Empty(t, res.VisualArt)
	assert.Empty(t, res.MapArt)
	assert.Nil(t, res.MapCoordinates)
	assert.Equal(t, DefaultActions, res.SuggestedActions)
	assert.False(t, res.RequiresChoice)
	assert.False(t, res.GameOver)
	assert.NotNil(t, res.PlayerState.Inventory)
	assert.NotNil(t, res.PlayerState.StatusEffects)
	assert.NotNil(t, res.PlayerState.Journal)
}

func TestNormalize_MissingPlayerState(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "absent", raw: `{"narrative":"Hi"}`},
		{name: "null", raw: `{"narrative":"Hi","playerState":null}`},
		{name: "not an object", raw: `{"narrative":"Hi","playerState":"alive"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Normalize(tt.raw)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrMissingPlayerState)
		})
	}
}

func TestNormalize_ParseError(t *testing.T) {
	res, err := Normalize("The model rambled and produced no JSON at all.")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrParse)
}

func TestNormalize_Coercion(t *testing.T) {
	raw := `{
		"narrative": "  The fog thins.  ",
		"visualDescription": "  a stone arch in fog  ",
		"visualArt": 42,
		"mapArt": "#####\n#.X.#\n#####",
		"mapCoordinates": {"x": 1.9, "y": -2},
		"playerState": {"hp": "15", "gold": 3.7, "inventory": "torch", "level": true},
		"suggestedActions": ["  Go north ", "", "GO NORTH", "go north", 7, null],
		"requiresChoice": "true",
		"gameOver": 1,
	}`

	res, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "The fog thins.", res.Narrative)
	assert.Equal(t, "a stone arch in fog", res.VisualDescription)
	assert.True(t, res.SceneChanged())
	assert.Empty(t, res.VisualArt, "non-string visualArt is dropped")
	assert.Equal(t, "#####\n#.X.#\n#####", res.MapArt)
	require.NotNil(t, res.MapCoordinates)
	assert.Equal(t, MapCoordinates{X: 1, Y: -2}, *res.MapCoordinates)
	assert.Equal(t, 15, res.PlayerState.HP)
	assert.Equal(t, 3, res.PlayerState.Gold)
	assert.Equal(t, 1, res.PlayerState.Level)
	assert.Equal(t, []string{"torch"}, res.PlayerState.Inventory)
	assert.Equal(t, []string{"Go north", "7", "Look around", "Check inventory"}, res.SuggestedActions)
	assert.True(t, res.RequiresChoice)
	assert.True(t, res.GameOver)
}

func TestNormalize_PartialCoordinatesDropped(t *testing.T) {
	res, err := Normalize(`{"playerState":{},"mapCoordinates":{"x":1,"y":"2"}}`)
	require.NoError(t, err)
	assert.Nil(t, res.MapCoordinates)
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := "Here:\n```json\n{\"narrative\":\"Hi\",\"mapCoordinates\":{\"x\":0,\"y\":0},\"playerState\":" + validPlayerState + ",\"suggestedActions\":[\"Run\",\"run\"],}\n```"

	first, err := Normalize(raw)
	require.NoError(t, err)
	second, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A normalized response survives another pass unchanged.
	data, err := json.Marshal(first)
	require.NoError(t, err)
	third, err := Normalize(string(data))
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestNormalizeActions(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "empty", in: nil, want: DefaultActions},
		{name: "exactly four", in: []string{"a", "b", "c", "d"}, want: []string{"a", "b", "c", "d"}},
		{name: "truncates", in: []string{"a", "b", "c", "d", "e"}, want: []string{"a", "b", "c", "d"}},
		{name: "truncates after dedup", in: []string{"a", "A", "b", "c", "d", "e"}, want: []string{"a", "b", "c", "d"}},
		{name: "skips defaults already present", in: []string{"look AROUND", "Sing"}, want: []string{"look AROUND", "Sing", "Check inventory", "Do something evil"}},
		{name: "unicode case folding", in: []string{"Éteindre la lampe", "éteindre LA LAMPE"}, want: []string{"Éteindre la lampe", "Look around", "Check inventory", "Do something evil"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeActions(tt.in)
			assert.Equal(t, tt.want, got)
			assertDistinct(t, got)
		})
	}
}

func assertDistinct(t *testing.T, actions []string) {
	t.Helper()
	require.Len(t, actions, ActionCount)
	fold := cases.Fold()
	seen := map[string]bool{}
	for _, a := range actions {
		key := fold.String(strings.TrimSpace(a))
		assert.False(t, seen[key], "duplicate action %q", a)
		seen[key] = true
	}
}
