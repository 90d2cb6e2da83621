// Package game holds the turn-level data model exchanged with the language
// model and the normalizer that turns raw model output into it.
package game

// Journal entry kinds. The model is asked to use these but they are not enforced.
const (
	JournalLocation  = "location"
	JournalCharacter = "character"
	JournalEvent     = "event"
	JournalCombat    = "combat"
)

type JournalEntry struct {
	ID          string `json:"id"`
	Turn        int    `json:"turn"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// PlayerState is the model's view of the player character. Its shape is
// guaranteed after normalization; its values are whatever the model sent.
type PlayerState struct {
	Name                 string         `json:"name"`
	Class                string         `json:"class"`
	Appearance           string         `json:"appearance"`
	CharacterDescription string         `json:"characterDescription"`
	HP                   int            `json:"hp"`
	MaxHP                int            `json:"maxHp"`
	Mana                 int            `json:"mana"`
	MaxMana              int            `json:"maxMana"`
	Level                int            `json:"level"`
	XP                   int            `json:"xp"`
	Gold                 int            `json:"gold"`
	Location             string         `json:"location"`
	Inventory            []string       `json:"inventory"`
	StatusEffects        []string       `json:"statusEffects"`
	Turn                 int            `json:"turn"`
	Journal              []JournalEntry `json:"journal"`
}

// MapCoordinates identifies a map sector.
type MapCoordinates struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// GameResponse is one normalized model reply.
type GameResponse struct {
	Narrative string `json:"narrative"`
	// VisualDescription is an image prompt for the current scene. Empty
	// means the scene did not change, whether the model sent "" or nothing.
	VisualDescription string          `json:"visualDescription"`
	VisualArt         string          `json:"visualArt,omitempty"`
	MapArt            string          `json:"mapArt,omitempty"`
	MapCoordinates    *MapCoordinates `json:"mapCoordinates,omitempty"`
	PlayerState       PlayerState     `json:"playerState"`
	SuggestedActions  []string        `json:"suggestedActions"`
	RequiresChoice    bool            `json:"requiresChoice"`
	GameOver          bool            `json:"gameOver"`
}

// SceneChanged reports whether the reply asks for new scene art.
func (r *GameResponse) SceneChanged() bool {
	return r.VisualDescription != ""
}

// StoryPanel is one entry of the comic-style story log.
type StoryPanel struct {
	ID        string `json:"id"`
	Turn      int    `json:"turn"`
	Location  string `json:"location"`
	Action    string `json:"action,omitempty"`
	Narrative string `json:"narrative"`
	Art       string `json:"art,omitempty"`
	Timestamp int64  `json:"timestamp"` // unix millis
}
