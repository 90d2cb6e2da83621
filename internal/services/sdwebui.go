package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/hushpath/internal/retry"
)

// Txt2ImgRequest is the Automatic1111 txt2img payload.
type Txt2ImgRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	CfgScale       float64 `json:"cfg_scale"`
	SamplerIndex   string  `json:"sampler_index"`
	BatchSize      int     `json:"batch_size"`
	NIter          int     `json:"n_iter"`
}

// Txt2ImgResponse carries base64 encoded images.
type Txt2ImgResponse struct {
	Images []string `json:"images"`
	Info   string   `json:"info,omitempty"`
}

// ImageBackend renders a txt2img request.
type ImageBackend interface {
	Txt2Img(ctx context.Context, req *Txt2ImgRequest) (*Txt2ImgResponse, error)
	Ping(ctx context.Context) error
	Name() string
}

// ImageBridgeFunc adapts an in-process renderer to ImageBackend.
type ImageBridgeFunc func(ctx context.Context, req *Txt2ImgRequest) (*Txt2ImgResponse, error)

func (f ImageBridgeFunc) Txt2Img(ctx context.Context, req *Txt2ImgRequest) (*Txt2ImgResponse, error) {
	return f(ctx, req)
}

func (f ImageBridgeFunc) Ping(context.Context) error { return nil }

func (f ImageBridgeFunc) Name() string { return BackendBridge }

// BackendSDWebUI names the Automatic1111 backend.
const BackendSDWebUI = "sdwebui"

// SDWebUIService talks to a Stable Diffusion WebUI started with --api.
type SDWebUIService struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ImageBackend = (*SDWebUIService)(nil)

func NewSDWebUIService(baseURL string, timeout time.Duration, logger *slog.Logger) *SDWebUIService {
	return &SDWebUIService{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (s *SDWebUIService) Name() string { return BackendSDWebUI }

func (s *SDWebUIService) Txt2Img(ctx context.Context, payload *Txt2ImgRequest) (*Txt2ImgResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	url := s.baseURL + "/sdapi/v1/txt2img"
	s.logger.Debug("Making SD WebUI txt2img request",
		"url", url,
		"width", payload.Width,
		"height", payload.Height,
		"steps", payload.Steps)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.Warn("SD WebUI returned error",
			"status_code", resp.StatusCode,
			"response_body", string(snippet))
		err := fmt.Errorf("txt2img failed with status: %d", resp.StatusCode)
		// Client errors won't change on retry, except rate limiting.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}

	var out Txt2ImgResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// Ping checks that the API is enabled.
func (s *SDWebUIService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/sdapi/v1/sd-models", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sd webui unreachable: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sd webui returned status: %d", resp.StatusCode)
	}
	return nil
}
