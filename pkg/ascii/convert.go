package ascii

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strings"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Convert renders img as ASCII art. The output has exactly s.Width columns
// and Rows(s.Width, w, h) lines, each terminated by a newline.
func Convert(img image.Image, s Settings) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	if img == nil {
		return "", fmt.Errorf("%w: nil image", ErrDecode)
	}
	b := img.Bounds()
	if b.Empty() {
		return "", fmt.Errorf("%w: empty image", ErrDecode)
	}

	ramp := Ramp(s.RampIndex)
	maxIndex := len(ramp) - 1
	width := s.Width
	height := Rows(width, b.Dx(), b.Dy())

	// Solid black backing neutralizes transparency.
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.Black, image.Point{}, draw.Src)
	xdraw.BiLinear.Scale(canvas, canvas.Bounds(), img, b, xdraw.Over, nil)

	var out strings.Builder
	out.Grow((width + 1) * height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := canvas.PixOffset(x, y)
			r := float64(canvas.Pix[off])
			g := float64(canvas.Pix[off+1])
			bl := float64(canvas.Pix[off+2])

			gray := 0.2126*r + 0.7152*g + 0.0722*bl
			gray = (gray-128)*s.Contrast + 128
			gray = max(0, min(255, gray))

			v := gray / 255
			if v < s.Threshold {
				v = 0
			}
			if s.Inverted {
				v = 1 - v
			}

			idx := int(math.Floor(v * float64(maxIndex)))
			out.WriteByte(ramp[max(0, min(maxIndex, idx))])
		}
		out.WriteByte('\n')
	}
	return out.String(), nil
}

// Decode decodes a PNG, JPEG, GIF, BMP or WEBP image.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// DecodeBase64 decodes raw base64 image data or a data: URL.
func DecodeBase64(s string) (image.Image, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrDecode, err)
	}
	return Decode(data)
}

// ConvertBytes decodes data and converts it. Decode failures are not repaired.
func ConvertBytes(data []byte, s Settings) (string, error) {
	img, err := Decode(data)
	if err != nil {
		return "", err
	}
	return Convert(img, s)
}
