package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/jwebster45206/hushpath/internal/metrics"
	"github.com/jwebster45206/hushpath/internal/retry"
	"github.com/jwebster45206/hushpath/pkg/ascii"
	"github.com/jwebster45206/hushpath/pkg/prompts"
	"github.com/jwebster45206/hushpath/pkg/silhouette"
)

// ImageSource tells where a gateway image came from.
type ImageSource string

const (
	SourceBackend    ImageSource = "backend"
	SourceProcedural ImageSource = "procedural"
)

// Fixed txt2img settings. Few steps are enough for flat silhouettes.
const (
	ImageSteps     = 10
	ImageCfgScale  = 6
	ImageSampler   = "Euler a"
	imageBatchSize = 1
)

var (
	ErrEmptyPrompt = errors.New("image prompt is empty")
	errNoImages    = errors.New("backend returned no images")
)

// ImageGateway requests raster images for prompts. It never fails because
// of the backend: when every attempt fails, or no backend is configured, it
// answers with the procedural silhouette for the same prompt.
type ImageGateway struct {
	backend ImageBackend
	bridge  ImageBackend
	policy  retry.Policy
	logger  *slog.Logger
}

// NewImageGateway accepts a nil backend, in which case every request is
// served procedurally.
func NewImageGateway(backend ImageBackend, logger *slog.Logger) *ImageGateway {
	return &ImageGateway{
		backend: backend,
		policy:  retry.ImagePolicy,
		logger:  logger,
	}
}

// WithBridge prefers bridge over the network backend.
func (g *ImageGateway) WithBridge(bridge ImageBackend) *ImageGateway {
	g.bridge = bridge
	return g
}

// WithPolicy overrides the retry policy.
func (g *ImageGateway) WithPolicy(p retry.Policy) *ImageGateway {
	g.policy = p
	return g
}

func (g *ImageGateway) target() ImageBackend {
	if g.bridge != nil {
		return g.bridge
	}
	return g.backend
}

// Name returns the active backend name, or "procedural".
func (g *ImageGateway) Name() string {
	if t := g.target(); t != nil {
		return t.Name()
	}
	return string(SourceProcedural)
}

func (g *ImageGateway) Ping(ctx context.Context) error {
	if t := g.target(); t != nil {
		return t.Ping(ctx)
	}
	return nil
}

// NewTxt2ImgRequest builds the payload for prompt at the size for aspect.
func NewTxt2ImgRequest(prompt, aspect string) *Txt2ImgRequest {
	w, h := silhouette.SizeFor(aspect)
	return &Txt2ImgRequest{
		Prompt:         prompts.EnhanceImagePrompt(prompt),
		NegativePrompt: prompts.NegativePrompt,
		Width:          w,
		Height:         h,
		Steps:          ImageSteps,
		CfgScale:       ImageCfgScale,
		SamplerIndex:   ImageSampler,
		BatchSize:      imageBatchSize,
		NIter:          1,
	}
}

// RequestImage returns an image for prompt. The only error is
// ErrEmptyPrompt, for a prompt that is blank after trimming. The backend
// receives the trimmed prompt; the procedural fallback is seeded with
// prompt exactly as given.
func (g *ImageGateway) RequestImage(ctx context.Context, prompt, aspect string) (image.Image, ImageSource, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, "", ErrEmptyPrompt
	}

	t := g.target()
	if t == nil {
		metrics.ImageFallbacks.Inc()
		return silhouette.Generate(prompt, aspect), SourceProcedural, nil
	}

	backend := t.Name()
	req := NewTxt2ImgRequest(strings.TrimSpace(prompt), aspect)
	start := time.Now()

	notify := func(err error, attempt int, wait time.Duration) {
		metrics.GatewayRetries.WithLabelValues(metrics.GatewayImage).Inc()
		g.logger.Warn("Image backend call failed, retrying",
			"backend", backend,
			"attempt", attempt,
			"retry_in", wait,
			"error", err)
	}
	img, err := retry.Do(ctx, g.policy, notify, func(ctx context.Context) (image.Image, error) {
		resp, err := t.Txt2Img(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp == nil || len(resp.Images) == 0 {
			return nil, errNoImages
		}
		img, err := ascii.DecodeBase64(resp.Images[0])
		if err != nil {
			return nil, fmt.Errorf("backend image: %w", err)
		}
		return img, nil
	})
	metrics.GatewayDuration.WithLabelValues(metrics.GatewayImage).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GatewayRequests.WithLabelValues(metrics.GatewayImage, backend, metrics.StatusError).Inc()
		metrics.ImageFallbacks.Inc()
		g.logger.Warn("Image backend unavailable, using procedural silhouette",
			"backend", backend,
			"prompt", prompt,
			"error", err)
		return silhouette.Generate(prompt, aspect), SourceProcedural, nil
	}

	metrics.GatewayRequests.WithLabelValues(metrics.GatewayImage, backend, metrics.StatusSuccess).Inc()
	return img, SourceBackend, nil
}
