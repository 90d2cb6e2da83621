package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jwebster45206/hushpath/internal/art"
	"github.com/jwebster45206/hushpath/pkg/ascii"
	"github.com/jwebster45206/hushpath/pkg/silhouette"
)

// maxUploadBytes caps uploaded images.
const maxUploadBytes = 10 << 20

const (
	PresetScene    = "scene"
	PresetPortrait = "portrait"
)

type ASCIIResponse struct {
	Art    string `json:"art"`
	Source string `json:"source,omitempty"`
	Preset string `json:"preset,omitempty"`
}

// ArtHandler exposes the art pipelines outside a game:
// GET  /v1/ascii?prompt=&preset=&backend= - resolve art for a prompt
// POST /v1/ascii?width=&contrast=...    - convert an uploaded image
// GET  /v1/silhouette.png?prompt=&aspect= - the procedural image itself
type ArtHandler struct {
	images art.ImageRequester
	text   art.Generator
	logger *slog.Logger
}

// NewArtHandler accepts nil images or text; the missing strategy is skipped.
func NewArtHandler(images art.ImageRequester, text art.Generator, logger *slog.Logger) *ArtHandler {
	return &ArtHandler{images: images, text: text, logger: logger}
}

func (h *ArtHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	prompt := strings.TrimSpace(r.URL.Query().Get("prompt"))
	if prompt == "" {
		respondError(w, h.logger, http.StatusBadRequest, "prompt is required")
		return
	}

	images, text := h.images, h.text
	switch backend := r.URL.Query().Get("backend"); backend {
	case "":
	case art.SourceImage:
		text = nil
	case art.SourceText:
		images = nil
	default:
		respondError(w, h.logger, http.StatusBadRequest, "unknown backend: "+backend)
		return
	}
	if images == nil && text == nil {
		respondError(w, h.logger, http.StatusServiceUnavailable, "requested backend is not configured")
		return
	}

	var p *art.Pipeline
	preset := r.URL.Query().Get("preset")
	switch preset {
	case "", PresetScene:
		preset = PresetScene
		p = art.ScenePipeline(images, text, "")
	case PresetPortrait:
		p = art.PortraitPipeline(images, text)
	default:
		respondError(w, h.logger, http.StatusBadRequest, "unknown preset: "+preset)
		return
	}

	res := p.Resolve(r.Context(), h.logger, prompt)
	if res.Status != art.Success {
		respondError(w, h.logger, http.StatusBadGateway, "no art could be produced")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, ASCIIResponse{Art: res.Art, Source: res.Source, Preset: preset})
}

// Convert turns an uploaded image into ASCII. The image is read from the
// "image" multipart field, or from the raw body for any other content type.
func (h *ArtHandler) Convert(w http.ResponseWriter, r *http.Request) {
	settings, err := settingsFromQuery(r)
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	data, err := readUpload(w, r)
	if err != nil {
		h.logger.Warn("Failed to read upload", "error", err)
		respondError(w, h.logger, http.StatusBadRequest, "failed to read image")
		return
	}

	out, err := ascii.ConvertBytes(data, settings)
	if err != nil {
		if errors.Is(err, ascii.ErrDecode) || errors.Is(err, ascii.ErrInvalidSettings) {
			respondError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to convert image", "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "conversion failed")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, ASCIIResponse{Art: out})
}

func (h *ArtHandler) Silhouette(w http.ResponseWriter, r *http.Request) {
	aspect := r.URL.Query().Get("aspect")
	if aspect == "" {
		aspect = silhouette.AspectLandscape
	}
	data, err := silhouette.EncodePNG(silhouette.Generate(r.URL.Query().Get("prompt"), aspect))
	if err != nil {
		h.logger.Error("Failed to encode silhouette", "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "encode failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}

func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		f, _, err := r.FormFile("image")
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return io.ReadAll(r.Body)
}

// settingsFromQuery starts from the preset and applies any overrides.
func settingsFromQuery(r *http.Request) (ascii.Settings, error) {
	q := r.URL.Query()
	s := ascii.SceneSettings
	if q.Get("preset") == PresetPortrait {
		s = ascii.PortraitSettings
	}

	var err error
	if v := q.Get("width"); v != "" {
		if s.Width, err = strconv.Atoi(v); err != nil {
			return s, errors.New("width must be an integer")
		}
	}
	if v := q.Get("contrast"); v != "" {
		if s.Contrast, err = strconv.ParseFloat(v, 64); err != nil {
			return s, errors.New("contrast must be a number")
		}
	}
	if v := q.Get("threshold"); v != "" {
		if s.Threshold, err = strconv.ParseFloat(v, 64); err != nil {
			return s, errors.New("threshold must be a number")
		}
	}
	if v := q.Get("ramp"); v != "" {
		switch v {
		case "dense":
			s.RampIndex = ascii.RampDense
		case "simple":
			s.RampIndex = ascii.RampSimple
		default:
			return s, errors.New("ramp must be dense or simple")
		}
	}
	if v := q.Get("inverted"); v != "" {
		if s.Inverted, err = strconv.ParseBool(v); err != nil {
			return s, errors.New("inverted must be a boolean")
		}
	}
	return s, s.Validate()
}
