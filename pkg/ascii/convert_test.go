package ascii

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func lines(art string) []string {
	return strings.Split(strings.TrimSuffix(art, "\n"), "\n")
}

func TestConvert_Dimensions(t *testing.T) {
	tests := []struct {
		name  string
		imgW  int
		imgH  int
		width int
	}{
		{name: "scene aspect", imgW: 768, imgH: 512, width: 80},
		{name: "portrait aspect", imgW: 512, imgH: 768, width: 40},
		{name: "upscale tiny image", imgW: 3, imgH: 5, width: 17},
		{name: "very wide image clamps to one row", imgW: 1000, imgH: 10, width: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SceneSettings
			s.Width = tt.width
			art, err := Convert(solid(tt.imgW, tt.imgH, color.White), s)
			require.NoError(t, err)

			rows := lines(art)
			assert.Len(t, rows, Rows(tt.width, tt.imgW, tt.imgH))
			for i, row := range rows {
				assert.Len(t, row, tt.width, "row %d", i)
			}
		})
	}
}

func TestConvert_BlackImage(t *testing.T) {
	s := Settings{Width: 2, Contrast: 1, Threshold: 0.1, RampIndex: RampSimple}

	t.Run("2x2 yields a single corrected row", func(t *testing.T) {
		art, err := Convert(solid(2, 2, color.Black), s)
		require.NoError(t, err)
		assert.Equal(t, "  \n", art)
	})

	t.Run("2x4 yields two rows of the darkest glyph", func(t *testing.T) {
		art, err := Convert(solid(2, 4, color.Black), s)
		require.NoError(t, err)
		assert.Equal(t, "  \n  \n", art)
	})
}

func TestConvert_Transforms(t *testing.T) {
	black := solid(4, 8, color.Black)

	t.Run("inverted black is the brightest glyph", func(t *testing.T) {
		s := Settings{Width: 4, Contrast: 1, Inverted: true, RampIndex: RampSimple}
		art, err := Convert(black, s)
		require.NoError(t, err)
		for _, row := range lines(art) {
			assert.Equal(t, "@@@@", row)
		}
	})

	t.Run("zero contrast collapses to mid gray", func(t *testing.T) {
		s := Settings{Width: 4, Contrast: 0, RampIndex: RampSimple}
		art, err := Convert(black, s)
		require.NoError(t, err)
		for _, row := range lines(art) {
			assert.Equal(t, "====", row)
		}
	})

	t.Run("threshold clips mid gray to black", func(t *testing.T) {
		s := Settings{Width: 4, Contrast: 0, Threshold: 0.6, RampIndex: RampSimple}
		art, err := Convert(black, s)
		require.NoError(t, err)
		for _, row := range lines(art) {
			assert.Equal(t, "    ", row)
		}
	})

	t.Run("transparent pixels render against black", func(t *testing.T) {
		transparent := solid(4, 8, color.RGBA{})
		s := Settings{Width: 4, Contrast: 1, RampIndex: RampDense}
		art, err := Convert(transparent, s)
		require.NoError(t, err)
		for _, row := range lines(art) {
			assert.Equal(t, "    ", row)
		}
	})
}

func TestConvert_Deterministic(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			if (x/8+y/8)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	first, err := Convert(img, SceneSettings)
	require.NoError(t, err)
	second, err := Convert(img, SceneSettings)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestConvert_InvalidSettings(t *testing.T) {
	img := solid(2, 2, color.Black)
	tests := []struct {
		name string
		s    Settings
	}{
		{name: "zero width", s: Settings{Width: 0, Contrast: 1}},
		{name: "negative contrast", s: Settings{Width: 4, Contrast: -1}},
		{name: "threshold above one", s: Settings{Width: 4, Contrast: 1, Threshold: 1.5}},
		{name: "width above max", s: Settings{Width: MaxWidth + 1, Contrast: 1}},
		{name: "huge width", s: Settings{Width: 1 << 30, Contrast: 1}},
		{name: "nan contrast", s: Settings{Width: 4, Contrast: math.NaN()}},
		{name: "infinite contrast", s: Settings{Width: 4, Contrast: math.Inf(1)}},
		{name: "nan threshold", s: Settings{Width: 4, Contrast: 1, Threshold: math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Convert(img, tt.s)
			assert.ErrorIs(t, err, ErrInvalidSettings)
		})
	}
}

func TestConvert_TallImageCapped(t *testing.T) {
	art, err := Convert(solid(1, 2000, color.White), Settings{Width: MaxWidth, Contrast: 1})
	require.NoError(t, err)

	rows := lines(art)
	assert.Len(t, rows, MaxRows)
	assert.Len(t, rows[0], MaxWidth)
}

func TestRows(t *testing.T) {
	assert.Equal(t, 1, Rows(80, 0, 10))
	assert.Equal(t, 1, Rows(1, 1000, 1))
	assert.Equal(t, 22, Rows(80, 100, 50))
	assert.Equal(t, MaxRows, Rows(MaxWidth, 1, 1<<20))
}

func TestRamp_Clamped(t *testing.T) {
	assert.Equal(t, DenseRamp, Ramp(-4))
	assert.Equal(t, DenseRamp, Ramp(RampDense))
	assert.Equal(t, SimpleRamp, Ramp(RampSimple))
	assert.Equal(t, SimpleRamp, Ramp(99))
	assert.Equal(t, byte(' '), DenseRamp[0])
	assert.Equal(t, byte('$'), DenseRamp[len(DenseRamp)-1])
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(4, 8, color.Black)))

	t.Run("png bytes", func(t *testing.T) {
		art, err := ConvertBytes(buf.Bytes(), Settings{Width: 4, Contrast: 1})
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("    \n", 4), art)
	})

	t.Run("data url", func(t *testing.T) {
		url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
		img, err := DecodeBase64(url)
		require.NoError(t, err)
		assert.Equal(t, 4, img.Bounds().Dx())
	})

	t.Run("garbage fails with decode error", func(t *testing.T) {
		_, err := ConvertBytes([]byte("not an image"), SceneSettings)
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("bad base64 fails with decode error", func(t *testing.T) {
		_, err := DecodeBase64("%%%")
		assert.ErrorIs(t, err, ErrDecode)
	})
}
