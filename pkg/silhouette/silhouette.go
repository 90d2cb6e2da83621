// Package silhouette synthesizes black-background, white-silhouette images
// from prompt keywords when no image model is reachable. The output feeds
// the ASCII converter, so it never contains midtones.
package silhouette

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"

	"github.com/jwebster45206/hushpath/pkg/prng"
)

// Aspect ratio tags understood by SizeFor
const (
	AspectLandscape = "3:2"
	AspectPortrait  = "2:3"
	AspectSquare    = "1:1"
)

// Archetype names the primary shape drawn for a prompt.
type Archetype string

const (
	Mask  Archetype = "mask"
	House Archetype = "house"
	Trees Archetype = "trees"
	Rock  Archetype = "rock"
)

// SizeFor returns the pixel size used for an aspect ratio tag. Unknown tags
// fall back to the landscape size.
func SizeFor(aspect string) (int, int) {
	switch aspect {
	case AspectPortrait:
		return 512, 768
	case AspectSquare:
		return 512, 512
	default:
		return 768, 512
	}
}

var keywordArchetypes = []struct {
	archetype Archetype
	words     []string
}{
	{Mask, []string{"mask", "skull", "face"}},
	{House, []string{"house", "hut", "cabin", "door"}},
	{Trees, []string{"forest", "tree", "woods", "marsh"}},
	{Rock, []string{"mountain", "ridge", "cliff"}},
}

// ArchetypeFor returns the archetype matched by keywords in prompt, or ""
// when none match.
func ArchetypeFor(prompt string) Archetype {
	words := strings.ToLower(prompt)
	for _, k := range keywordArchetypes {
		if containsAny(words, k.words...) {
			return k.archetype
		}
	}
	return ""
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

type scene struct {
	*canvas
	rnd     func() float64
	width   float64
	height  float64
	cx      float64
	groundY float64
}

// Generate draws the silhouette for prompt at the size for aspect. The same
// prompt (case-insensitively) and aspect always produce identical pixels.
func Generate(prompt, aspect string) *image.Gray {
	w, h := SizeFor(aspect)
	words := strings.ToLower(prompt)
	rnd := prng.MakeGenerator(prng.Hash(words))

	s := &scene{
		canvas: newCanvas(w, h),
		rnd:    rnd,
		width:  float64(w),
		height: float64(h),
		cx:     float64(w) * 0.5,
	}
	s.groundY = s.height * (0.72 + (rnd()-0.5)*0.05)

	s.paint()
	// Ground line anchors the silhouette.
	if rnd() < 0.75 {
		s.rect(0, s.groundY, s.width, math.Max(2, s.height*0.02))
	}

	switch s.primary(words) {
	case Mask:
		s.drawMask()
	case House:
		s.drawHouse()
	case Trees:
		count := 3 + int(math.Floor(rnd()*4))
		spread := s.width * 0.28
		for i := 0; i < count; i++ {
			s.drawTree(s.cx + (rnd()-0.5)*spread)
		}
	default:
		s.drawRock()
	}

	if containsAny(words, "moon", "night", "dark") || rnd() < 0.35 {
		s.circle(s.width*(0.18+rnd()*0.2), s.height*(0.18+rnd()*0.15), s.width*(0.04+rnd()*0.02))
	}
	if containsAny(words, "fog", "mist", "marsh") || rnd() < 0.35 {
		s.paint()
		bands := 2 + int(math.Floor(rnd()*3))
		for i := 0; i < bands; i++ {
			y := s.height * (0.55 + rnd()*0.25)
			s.rect(0, y, s.width, math.Max(2, s.height*0.01))
		}
	}

	specks := 2 + int(math.Floor(rnd()*4))
	s.paint()
	for i := 0; i < specks; i++ {
		x := s.width * (0.15 + rnd()*0.7)
		y := s.height * (0.15 + rnd()*0.55)
		s.circle(x, y, math.Max(2, math.Floor(4+rnd()*10)))
	}

	return s.img
}

// primary picks the archetype; without a keyword match it draws from a
// weighted table that favors rocks and houses.
func (s *scene) primary(words string) Archetype {
	if a := ArchetypeFor(words); a != "" {
		return a
	}
	switch {
	case s.rnd() < 0.25:
		return Mask
	case s.rnd() < 0.55:
		return House
	default:
		return Rock
	}
}

func (s *scene) drawMask() {
	w := s.width * (0.32 + s.rnd()*0.08)
	h := s.height * (0.36 + s.rnd()*0.08)
	x := s.cx - w/2
	y := s.groundY - h

	s.rect(x, y, w, h)
	s.circle(x, y+h*0.18, w*0.22)
	s.circle(x+w, y+h*0.18, w*0.22)
	s.circle(x, y+h*0.82, w*0.22)
	s.circle(x+w, y+h*0.82, w*0.22)

	s.cut()
	s.circle(s.cx-w*0.18, y+h*0.45, w*0.09)
	s.circle(s.cx+w*0.18, y+h*0.45, w*0.09)
	s.paint()
}

func (s *scene) drawHouse() {
	w := s.width * (0.34 + s.rnd()*0.1)
	h := s.height * (0.26 + s.rnd()*0.08)
	x := s.cx - w/2
	y := s.groundY - h

	s.rect(x, y, w, h)
	s.triangle(point{x - w*0.05, y}, point{s.cx, y - h*0.55}, point{x + w*1.05, y})

	s.cut()
	dw := w * 0.18
	dh := h * 0.55
	s.rect(s.cx-dw/2, s.groundY-dh, dw, dh)
	s.paint()
}

func (s *scene) drawTree(x float64) {
	trunkW := s.width * (0.03 + s.rnd()*0.02)
	trunkH := s.height * (0.12 + s.rnd()*0.06)
	s.rect(x-trunkW/2, s.groundY-trunkH, trunkW, trunkH)
	s.circle(x, s.groundY-trunkH, s.width*(0.06+s.rnd()*0.03))
}

func (s *scene) drawRock() {
	w := s.width * (0.22 + s.rnd()*0.1)
	h := s.height * (0.14 + s.rnd()*0.06)
	x := s.cx - w/2
	y := s.groundY - h
	s.polygon([]point{
		{x, s.groundY},
		{x + w*0.15, y + h*0.2},
		{s.cx, y},
		{x + w*0.85, y + h*0.25},
		{x + w, s.groundY},
	})
}

// EncodePNG encodes a generated silhouette for transport.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode silhouette: %w", err)
	}
	return buf.Bytes(), nil
}
