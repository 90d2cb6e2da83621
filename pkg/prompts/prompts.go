package prompts

import (
	"fmt"
	"strings"
)

// DefaultGenre is used when the player picks none.
const DefaultGenre = "High Fantasy"

// Genres offered by the clients. Any free-form genre is accepted.
var Genres = []string{
	DefaultGenre, "Adventure", "Comedy", "Crime", "Drama", "Horror",
	"Mystery", "Science Fiction", "Thriller", "Western", "Cyberpunk",
	"Steampunk", "Pirate", "Noir", "Cosmic horror", "Post-apocalyptic",
}

// SystemPrompt is the engine instruction. The single %s is the genre.
const SystemPrompt = `You are the Engine for "Hushpath", a high-end text RPG.
SETTING: %s

MANDATE:
1) RESPONSE FORMAT: Strict JSON ONLY. No markdown. No commentary.
2) REQUIRED FIELDS (always include all of them):
   - narrative (string, under 60 words)
   - visualDescription (string): short image prompt (10-20 words) OR empty string "" if no meaningful scene change
   - mapArt (string): 30 chars wide x 16 lines tall ASCII sector map
   - mapCoordinates (object): {x:int, y:int} sector id. Start is {0,0}. Only change when leaving the sector.
   - playerState (object) with: name, class, appearance, characterDescription, hp, maxHp, mana, maxMana, level, xp, gold, location, inventory[], statusEffects[], turn, journal[]
   - suggestedActions (array of EXACTLY 4 strings): [Logical, Logical, Evil, Silly]
   - requiresChoice (boolean)
   - gameOver (boolean)

3) VISUALS (visualDescription):
   - You do NOT draw ASCII art.
   - Output a short image prompt for the CURRENT scene.
   - Avoid any text/signs/letters.
   - Only output a new visualDescription on meaningful changes. Otherwise output "".

4) MAP:
   - mapArt must include an 'X' marking the player.
   - Use # for walls, . for floor/path, ~ for water, ^ for hills/rocks, * for special.

5) CHARACTER DESCRIPTION:
   - characterDescription max 10-15 words.
   - Only change it if appearance meaningfully changes.

Stay consistent. Keep it playable.
`

const startPrompt = `START GAME. Player appearance: %s.
Describe where we start.
Provide visualDescription for the opening scene.
Provide mapArt and mapCoordinates: {x:0, y:0}.`

// StartAction labels the opening story panel.
const StartAction = "Entered the World"

// SystemInstruction renders SystemPrompt for genre.
func SystemInstruction(genre string) string {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		genre = DefaultGenre
	}
	return fmt.Sprintf(SystemPrompt, genre)
}

// StartPrompt is the first user message of a playthrough.
func StartPrompt(appearance string) string {
	return fmt.Sprintf(startPrompt, strings.TrimSpace(appearance))
}

// ASCII art dimensions requested from the text model, as "<cols>x<rows>".
const (
	SceneDims    = "80x30"
	PortraitDims = "40x50"
)

const asciiRequest = `Generate ASCII ART only.
Dimensions: %s.
Theme: %s.
Rules: no markdown, art only. Use: /\|_-.' ,:;()[]{}<>~+*#@ and whitespace.`

// ASCIIRequest asks the text model to draw art directly. It is the fallback
// when no image could be converted.
func ASCIIRequest(theme, dims string) string {
	return fmt.Sprintf(asciiRequest, dims, theme)
}
