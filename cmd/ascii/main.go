// Command ascii converts an image file, or the image generated for a prompt,
// to ASCII art on stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/jwebster45206/hushpath/internal/config"
	"github.com/jwebster45206/hushpath/internal/logger"
	"github.com/jwebster45206/hushpath/internal/services"
	"github.com/jwebster45206/hushpath/pkg/ascii"
	"github.com/jwebster45206/hushpath/pkg/silhouette"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(os.Stderr, cfg.Environment, cfg.Level(), true)

	if err := run(context.Background(), os.Args[1:], cfg, log, os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "ascii:", err)
		}
		os.Exit(2)
	}
}

type options struct {
	in        string
	prompt    string
	preset    string
	aspect    string
	width     int
	contrast  float64
	threshold float64
	ramp      string
	inverted  bool
	savePNG   string
	backend   string
}

func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("ascii", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.in, "in", "", "image file to convert (PNG, JPEG, GIF, BMP, WEBP)")
	fs.StringVar(&o.prompt, "prompt", "", "generate the image for this prompt instead")
	fs.StringVar(&o.preset, "preset", "scene", "scene or portrait")
	fs.StringVar(&o.aspect, "aspect", "", "aspect for generated images: 3:2, 2:3 or 1:1 (default from preset)")
	fs.IntVar(&o.width, "width", 0, "output columns (default from preset)")
	fs.Float64Var(&o.contrast, "contrast", -1, "contrast, 1.0 is neutral (default from preset)")
	fs.Float64Var(&o.threshold, "threshold", -1, "black threshold in [0,1] (default from preset)")
	fs.StringVar(&o.ramp, "ramp", "", "dense or simple (default from preset)")
	fs.BoolVar(&o.inverted, "invert", false, "swap dark and bright")
	fs.StringVar(&o.savePNG, "save-png", "", "also write the source image to this PNG file")
	fs.StringVar(&o.backend, "image", cfg.Image.Provider, "image provider for -prompt: sdwebui or procedural")
	fs.StringVar(&cfg.Image.SDWebUIURL, "sdwebui-url", cfg.Image.SDWebUIURL, "Stable Diffusion WebUI base URL")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if (o.in == "") == (o.prompt == "") {
		return nil, errors.New("exactly one of -in or -prompt is required")
	}
	return o, nil
}

// settings starts from the preset and applies the flags that were set.
func (o *options) settings() (ascii.Settings, string, error) {
	var s ascii.Settings
	var aspect string
	switch o.preset {
	case "scene":
		s, aspect = ascii.SceneSettings, silhouette.AspectLandscape
	case "portrait":
		s, aspect = ascii.PortraitSettings, silhouette.AspectPortrait
	default:
		return s, "", fmt.Errorf("unknown preset %q", o.preset)
	}
	if o.aspect != "" {
		aspect = o.aspect
	}
	if o.width > 0 {
		s.Width = o.width
	}
	if o.contrast >= 0 {
		s.Contrast = o.contrast
	}
	if o.threshold >= 0 {
		s.Threshold = o.threshold
	}
	switch o.ramp {
	case "":
	case "dense":
		s.RampIndex = ascii.RampDense
	case "simple":
		s.RampIndex = ascii.RampSimple
	default:
		return s, "", fmt.Errorf("unknown ramp %q", o.ramp)
	}
	if o.inverted {
		s.Inverted = true
	}
	return s, aspect, s.Validate()
}

func run(ctx context.Context, args []string, cfg *config.Config, log *slog.Logger, stdout io.Writer) error {
	o, err := parseFlags(args, cfg, os.Stderr)
	if err != nil {
		return err
	}
	settings, aspect, err := o.settings()
	if err != nil {
		return err
	}

	var data []byte
	if o.in != "" {
		if data, err = os.ReadFile(o.in); err != nil {
			return err
		}
	} else {
		var backend services.ImageBackend
		if o.backend == config.ProviderSDWebUI {
			backend = services.NewSDWebUIService(cfg.Image.SDWebUIURL, cfg.Image.Timeout, log)
		}
		gateway := services.NewImageGateway(backend, log)

		ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		img, source, err := gateway.RequestImage(ctx, o.prompt, aspect)
		if err != nil {
			return err
		}
		log.Info("Image ready", "source", source, "backend", gateway.Name())
		if data, err = silhouette.EncodePNG(img); err != nil {
			return err
		}
	}

	if o.savePNG != "" {
		if err := os.WriteFile(o.savePNG, data, 0o644); err != nil {
			return err
		}
	}

	out, err := ascii.ConvertBytes(data, settings)
	if err != nil {
		return err
	}
	_, err = io.WriteString(stdout, out)
	return err
}
