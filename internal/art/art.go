// Package art resolves the ASCII art shown for a scene or a portrait by
// trying an ordered list of strategies until one produces art.
package art

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/jwebster45206/hushpath/internal/metrics"
	"github.com/jwebster45206/hushpath/internal/services"
	"github.com/jwebster45206/hushpath/pkg/ascii"
	"github.com/jwebster45206/hushpath/pkg/game"
	"github.com/jwebster45206/hushpath/pkg/prompts"
	"github.com/jwebster45206/hushpath/pkg/silhouette"
)

// Slots label what the art is for.
const (
	SlotScene    = "scene"
	SlotPortrait = "portrait"
)

// Strategy names, reported as Result.Source
const (
	SourceImage  = "image"
	SourceText   = "text"
	SourceStatic = "static"
)

// ErrNoArt is returned by a strategy that produced nothing usable.
var ErrNoArt = errors.New("no art produced")

type Status int

const (
	// Exhausted means every strategy failed; callers keep their previous art.
	Exhausted Status = iota
	Success
)

func (s Status) String() string {
	if s == Success {
		return "success"
	}
	return "exhausted"
}

// Result is the outcome of Resolve. Art and Source are empty when Exhausted.
type Result struct {
	Status Status
	Art    string
	Source string
}

// Strategy renders art for a prompt.
type Strategy interface {
	Name() string
	Render(ctx context.Context, prompt string) (string, error)
}

// Resolve runs strategies in order and returns the first art produced.
func Resolve(ctx context.Context, logger *slog.Logger, prompt string, strategies ...Strategy) Result {
	for _, s := range strategies {
		if ctx.Err() != nil {
			break
		}
		out, err := s.Render(ctx, prompt)
		if err == nil && strings.TrimSpace(out) == "" {
			err = ErrNoArt
		}
		if err != nil {
			logger.Warn("Art strategy failed", "strategy", s.Name(), "error", err)
			continue
		}
		return Result{Status: Success, Art: out, Source: s.Name()}
	}
	return Result{Status: Exhausted}
}

// ImageRequester is satisfied by services.ImageGateway.
type ImageRequester interface {
	RequestImage(ctx context.Context, prompt, aspect string) (image.Image, services.ImageSource, error)
}

// Generator is satisfied by every services.LLMService.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageStrategy requests an image and converts it to ASCII.
type ImageStrategy struct {
	Images   ImageRequester
	Aspect   string
	Settings ascii.Settings
	// Prompt rewrites the resolver prompt before the request. Optional.
	Prompt func(string) string
}

func (s ImageStrategy) Name() string { return SourceImage }

func (s ImageStrategy) Render(ctx context.Context, prompt string) (string, error) {
	if s.Prompt != nil {
		prompt = s.Prompt(prompt)
	}
	img, _, err := s.Images.RequestImage(ctx, prompt, s.Aspect)
	if err != nil {
		return "", fmt.Errorf("failed to get image: %w", err)
	}
	return ascii.Convert(img, s.Settings)
}

// TextStrategy asks the text model to draw the art itself.
type TextStrategy struct {
	LLM  Generator
	Dims string
	// Theme rewrites the resolver prompt into the drawing theme. Optional.
	Theme func(string) string
}

func (s TextStrategy) Name() string { return SourceText }

func (s TextStrategy) Render(ctx context.Context, prompt string) (string, error) {
	if s.Theme != nil {
		prompt = s.Theme(prompt)
	}
	out, err := s.LLM.Generate(ctx, prompts.ASCIIRequest(prompt, s.Dims))
	if err != nil {
		return "", err
	}
	art := game.StripCodeFences(out)
	if strings.TrimSpace(art) == "" {
		return "", ErrNoArt
	}
	return art, nil
}

// StaticStrategy returns art the model already supplied.
type StaticStrategy struct {
	Art string
}

func (s StaticStrategy) Name() string { return SourceStatic }

func (s StaticStrategy) Render(context.Context, string) (string, error) {
	if strings.TrimSpace(s.Art) == "" {
		return "", ErrNoArt
	}
	return s.Art, nil
}

// Pipeline is a named strategy list.
type Pipeline struct {
	Slot       string
	Strategies []Strategy
}

// Resolve runs the pipeline and records the outcome.
func (p *Pipeline) Resolve(ctx context.Context, logger *slog.Logger, prompt string) Result {
	res := Resolve(ctx, logger.With("slot", p.Slot), prompt, p.Strategies...)
	source := res.Source
	if res.Status == Exhausted {
		source = res.Status.String()
	}
	metrics.ArtResolutions.WithLabelValues(p.Slot, source).Inc()
	return res
}

// ScenePipeline tries the image backend, then model-drawn ASCII, then the
// visualArt the model sent with the turn. Nil dependencies are skipped.
func ScenePipeline(images ImageRequester, text Generator, visualArt string) *Pipeline {
	p := &Pipeline{Slot: SlotScene}
	if images != nil {
		p.Strategies = append(p.Strategies, ImageStrategy{
			Images:   images,
			Aspect:   silhouette.AspectLandscape,
			Settings: ascii.SceneSettings,
		})
	}
	if text != nil {
		p.Strategies = append(p.Strategies, TextStrategy{LLM: text, Dims: prompts.SceneDims})
	}
	if strings.TrimSpace(visualArt) != "" {
		p.Strategies = append(p.Strategies, StaticStrategy{Art: visualArt})
	}
	return p
}

// PortraitPipeline resolves a character portrait from its description.
func PortraitPipeline(images ImageRequester, text Generator) *Pipeline {
	p := &Pipeline{Slot: SlotPortrait}
	if images != nil {
		p.Strategies = append(p.Strategies, ImageStrategy{
			Images:   images,
			Aspect:   silhouette.AspectPortrait,
			Settings: ascii.PortraitSettings,
			Prompt:   prompts.PortraitImagePrompt,
		})
	}
	if text != nil {
		p.Strategies = append(p.Strategies, TextStrategy{
			LLM:   text,
			Dims:  prompts.PortraitDims,
			Theme: prompts.PortraitTheme,
		})
	}
	return p
}
