package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"sync"
)

// MockImageBackend is a mock implementation of ImageBackend for testing
type MockImageBackend struct {
	Txt2ImgFunc func(ctx context.Context, req *Txt2ImgRequest) (*Txt2ImgResponse, error)
	PingFunc    func(ctx context.Context) error

	Requests []Txt2ImgRequest

	mu sync.Mutex
}

var _ ImageBackend = (*MockImageBackend)(nil)

func NewMockImageBackend() *MockImageBackend {
	return &MockImageBackend{Requests: make([]Txt2ImgRequest, 0)}
}

func (m *MockImageBackend) Name() string { return BackendMock }

// Txt2Img returns a white square on black at the requested size unless
// Txt2ImgFunc is set.
func (m *MockImageBackend) Txt2Img(ctx context.Context, req *Txt2ImgRequest) (*Txt2ImgResponse, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, *req)
	fn := m.Txt2ImgFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	data, err := MockPNG(req.Width, req.Height)
	if err != nil {
		return nil, err
	}
	return &Txt2ImgResponse{Images: []string{base64.StdEncoding.EncodeToString(data)}}, nil
}

func (m *MockImageBackend) Ping(ctx context.Context) error {
	m.mu.Lock()
	fn := m.PingFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return nil
}

// SetError makes every Txt2Img call fail with err
func (m *MockImageBackend) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Txt2ImgFunc = func(ctx context.Context, req *Txt2ImgRequest) (*Txt2ImgResponse, error) {
		return nil, err
	}
}

// Calls returns how many requests were made
func (m *MockImageBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// MockPNG encodes a black w x h image with a white centered square.
func MockPNG(w, h int) ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := h / 4; y < h*3/4; y++ {
		for x := w / 4; x < w*3/4; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
