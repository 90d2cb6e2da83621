// Package demo is an offline text backend. It answers chat requests with
// seeded, well-formed engine replies so the game stays playable without a
// model server. It is not meant to be clever.
//
// The service keeps no state between calls: every reply is derived by
// replaying the user turns found in the conversation it is given, so many
// sessions can share one instance.
package demo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwebster45206/hushpath/internal/services"
	"github.com/jwebster45206/hushpath/pkg/ascii"
	"github.com/jwebster45206/hushpath/pkg/chat"
	"github.com/jwebster45206/hushpath/pkg/game"
	"github.com/jwebster45206/hushpath/pkg/prng"
	"github.com/jwebster45206/hushpath/pkg/prompts"
	"github.com/jwebster45206/hushpath/pkg/silhouette"
)

// Sector map size in cells
const (
	MapWidth  = 30
	MapHeight = 16
)

// BeginAction is the action replayed for the opening turn.
const BeginAction = "Begin"

var (
	zones = []string{
		"The Quiet Road",
		"A Broken Orchard",
		"Fog-Marsh",
		"Cinder Steps",
		"Hollow Gate",
		"Lantern Ruins",
		"The Bent Forest",
		"Saltwind Ridge",
	}
	sceneMoods = []string{"high-contrast", "monochrome", "black background", "single subject", "clean silhouette"}
	sceneProps = []string{
		"a lone traveler",
		"a stone arch",
		"a lantern",
		"a twisted tree",
		"a cracked mask",
		"a distant tower",
		"a hanging sign (no text)",
		"a narrow bridge",
	}
	openers = []string{
		"A cold hush clings to the air.",
		"The world holds its breath.",
		"Something unseen shifts behind you.",
		"Your footsteps sound too loud.",
		"A thin light cuts the darkness.",
	}
	beats = []string{
		"You spot a shape that doesn't belong.",
		"A path suggests itself, then doubts you.",
		"A soft whisper crawls along the stones.",
		"The ground answers with a faint tremor.",
		"For a moment, you feel watched.",
	}
	endings = []string{
		"You keep moving, anyway.",
		"You steady your breath and choose.",
		"You press on, pretending it's fine.",
		"You test your luck with a small grin.",
		"You decide this is someone else's problem. It isn't.",
	}
	mapFeatures = []string{"~", "^", "*", "#"}
)

// Actions offered on every demo turn.
var Actions = []string{"Move north", "Search the area", "Do something evil", "Do something silly"}

// DemoService implements services.LLMService without a model.
type DemoService struct {
	logger *slog.Logger
}

var _ services.LLMService = (*DemoService)(nil)

func NewDemoService(logger *slog.Logger) *DemoService {
	return &DemoService{logger: logger}
}

func (d *DemoService) Name() string { return services.BackendDemo }

func (d *DemoService) InitModel(ctx context.Context) error { return nil }

func (d *DemoService) Ping(ctx context.Context) error { return nil }

// Chat replays the user turns in messages and returns the reply to the
// last one as JSON.
func (d *DemoService) Chat(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resp, err := Reply(messages)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal demo reply: %w", err)
	}
	d.logger.Debug("Demo reply",
		"turn", resp.PlayerState.Turn,
		"location", resp.PlayerState.Location)
	return string(out), nil
}

// Generate draws the requested theme with the procedural silhouette and
// converts it, standing in for a model drawing ASCII art itself.
func (d *DemoService) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	theme, dims := parseASCIIRequest(prompt)
	aspect, settings := silhouette.AspectLandscape, ascii.SceneSettings
	if dims == prompts.PortraitDims {
		aspect, settings = silhouette.AspectPortrait, ascii.PortraitSettings
	}
	return ascii.Convert(silhouette.Generate(theme, aspect), settings)
}

// parseASCIIRequest recovers the theme and dimensions from a prompt built
// by prompts.ASCIIRequest. Any other prompt is used whole as the theme.
func parseASCIIRequest(prompt string) (theme, dims string) {
	theme = strings.TrimSpace(prompt)
	for _, line := range strings.Split(prompt, "\n") {
		if v, ok := strings.CutPrefix(line, "Theme: "); ok {
			theme = strings.TrimSuffix(strings.TrimSpace(v), ".")
		}
		if v, ok := strings.CutPrefix(line, "Dimensions: "); ok {
			dims = strings.TrimSuffix(strings.TrimSpace(v), ".")
		}
	}
	return theme, dims
}

// ErrNoTurn is returned when the conversation holds no user message.
var ErrNoTurn = errors.New("demo: conversation has no user turn")

// Reply computes the engine reply for the last user message in messages.
func Reply(messages []chat.ChatMessage) (*game.GameResponse, error) {
	genre := genreOf(messages)

	var actions []string
	for _, m := range messages {
		if m.Role == chat.ChatRoleUser {
			actions = append(actions, m.Content)
		}
	}
	if len(actions) == 0 {
		return nil, ErrNoTurn
	}

	w := newWorld(genre, appearanceOf(actions[0]))
	var resp *game.GameResponse
	for i, a := range actions {
		if i == 0 {
			a = BeginAction
		}
		resp = w.step(a)
	}
	return resp, nil
}

// genreOf reads the SETTING line of the system instruction.
func genreOf(messages []chat.ChatMessage) string {
	for _, m := range messages {
		if m.Role != chat.ChatRoleSystem {
			continue
		}
		for _, line := range strings.Split(m.Content, "\n") {
			if v, ok := strings.CutPrefix(line, "SETTING: "); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return prompts.DefaultGenre
}

// appearanceOf reads the appearance from the start prompt.
func appearanceOf(start string) string {
	_, rest, ok := strings.Cut(start, "Player appearance: ")
	if !ok {
		return ""
	}
	line, _, _ := strings.Cut(rest, "\n")
	return strings.TrimSuffix(strings.TrimSpace(line), ".")
}

type world struct {
	genre  string
	coords game.MapCoordinates
	player game.PlayerState
}

func newWorld(genre, appearance string) *world {
	if appearance == "" {
		appearance = "Hooded"
	}
	w := &world{genre: genre}
	w.player = game.PlayerState{
		Name:                 "Traveler",
		Class:                "Unknown",
		Appearance:           appearance,
		CharacterDescription: "Hooded traveler with tired eyes",
		HP:                   20,
		MaxHP:                20,
		Mana:                 10,
		MaxMana:              10,
		Level:                1,
		Location:             w.locationLabel(0, 0),
		Inventory:            []string{},
		StatusEffects:        []string{},
		Journal:              []game.JournalEntry{},
	}
	return w
}

func (w *world) step(action string) *game.GameResponse {
	w.coords = Move(w.coords, action)
	x, y := w.coords.X, w.coords.Y

	w.player.Turn++
	w.player.Location = w.locationLabel(x, y)
	if prng.FromString(fmt.Sprintf("%s|gold|%d", w.genre, w.player.Turn)).Float64() < 0.05 {
		w.player.Gold++
	}
	w.player.HP = max(1, min(w.player.MaxHP, w.player.HP))

	coords := w.coords
	player := w.player
	player.Inventory = append([]string{}, w.player.Inventory...)
	player.StatusEffects = append([]string{}, w.player.StatusEffects...)
	player.Journal = append([]game.JournalEntry{}, w.player.Journal...)

	return &game.GameResponse{
		Narrative:         w.narrative(action, x, y),
		VisualDescription: w.scenePrompt(x, y),
		MapArt:            MakeMap(w.genre, x, y),
		MapCoordinates:    &coords,
		PlayerState:       player,
		SuggestedActions:  append([]string{}, Actions...),
	}
}

// Move applies the first direction word found in action.
func Move(c game.MapCoordinates, action string) game.MapCoordinates {
	for _, word := range strings.FieldsFunc(strings.ToLower(action), isWordBreak) {
		switch word {
		case "north", "up":
			return game.MapCoordinates{X: c.X, Y: c.Y - 1}
		case "south", "down":
			return game.MapCoordinates{X: c.X, Y: c.Y + 1}
		case "east", "right":
			return game.MapCoordinates{X: c.X + 1, Y: c.Y}
		case "west", "left":
			return game.MapCoordinates{X: c.X - 1, Y: c.Y}
		}
	}
	return c
}

func isWordBreak(r rune) bool {
	return !(r >= 'a' && r <= 'z')
}

// MakeMap draws the sector at (x, y): a walled grid with seeded features
// and the player marker at the center.
func MakeMap(genre string, x, y int) string {
	rnd := prng.FromString(fmt.Sprintf("%s|%d|%d", genre, x, y))

	grid := make([][]string, MapHeight)
	for j := range grid {
		grid[j] = make([]string, MapWidth)
		for i := range grid[j] {
			if i == 0 || j == 0 || i == MapWidth-1 || j == MapHeight-1 {
				grid[j][i] = "#"
			} else {
				grid[j][i] = "."
			}
		}
	}

	for range 30 {
		fx := 1 + rnd.Intn(MapWidth-2)
		fy := 1 + rnd.Intn(MapHeight-2)
		f := rnd.Choice(mapFeatures)
		if rnd.Float64() < 0.65 {
			grid[fy][fx] = f
		}
	}
	grid[MapHeight/2][MapWidth/2] = "X"

	rows := make([]string, MapHeight)
	for j, row := range grid {
		rows[j] = strings.Join(row, "")
	}
	return strings.Join(rows, "\n")
}

func (w *world) locationLabel(x, y int) string {
	h := prng.Hash(fmt.Sprintf("%s|loc|%d|%d", w.genre, x, y))
	return zones[h%uint32(len(zones))]
}

func (w *world) scenePrompt(x, y int) string {
	h := prng.Hash(fmt.Sprintf("%s|scene|%d|%d", w.genre, x, y))
	return sceneProps[h%uint32(len(sceneProps))] + ", " + strings.Join(sceneMoods, ", ")
}

func (w *world) narrative(action string, x, y int) string {
	rnd := prng.FromString(fmt.Sprintf("%s|%s|%d|%d|%d", w.genre, action, x, y, w.player.Turn))
	parts := []string{rnd.Choice(openers), rnd.Choice(beats)}
	if a := strings.TrimSpace(action); a != "" {
		parts = append(parts, `"`+a+`"`)
	}
	parts = append(parts, rnd.Choice(endings))
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
