package prompts

import "strings"

// imageQualifiers steer diffusion models toward clean silhouettes that
// survive conversion to a handful of glyphs.
var imageQualifiers = []string{
	"monochrome",
	"pure black background (#000000)",
	"single subject centered",
	"white / light-gray subject",
	"very high contrast",
	"clean silhouette edges",
	"simple shapes, minimal detail",
	"no text, no letters, no watermark, no logo",
	"no busy background, no scenery clutter",
}

// NegativePrompt is sent with every image request.
const NegativePrompt = "text, letters, numbers, caption, logo, watermark, low contrast, blurry, grain, noise, colorful, gradients, busy background"

// EnhanceImagePrompt appends the silhouette qualifiers to prompt.
func EnhanceImagePrompt(prompt string) string {
	parts := append([]string{strings.TrimSpace(prompt)}, imageQualifiers...)
	return strings.Join(parts, ", ")
}

// PortraitImagePrompt is the image prompt for a character portrait.
func PortraitImagePrompt(description string) string {
	return "Full body standing character, " + strings.TrimSpace(description) + ", centered"
}

// PortraitTheme is the theme used when the text model draws the portrait.
func PortraitTheme(description string) string {
	return "Full body standing character silhouette, " + strings.TrimSpace(description)
}
