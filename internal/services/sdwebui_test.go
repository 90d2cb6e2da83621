package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/hushpath/pkg/silhouette"
)

func TestSDWebUIService_Txt2Img(t *testing.T) {
	var got Txt2ImgRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sdapi/v1/txt2img", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		data, err := MockPNG(got.Width, got.Height)
		assert.NoError(t, err)
		_ = json.NewEncoder(w).Encode(Txt2ImgResponse{Images: []string{base64.StdEncoding.EncodeToString(data)}})
	}))
	defer srv.Close()

	svc := NewSDWebUIService(srv.URL+"/", 5*time.Second, testLogger())
	resp, err := svc.Txt2Img(context.Background(), NewTxt2ImgRequest("a lantern", silhouette.AspectPortrait))
	require.NoError(t, err)
	require.Len(t, resp.Images, 1)

	assert.Equal(t, 512, got.Width)
	assert.Equal(t, 768, got.Height)
	assert.Equal(t, 10, got.Steps)
	assert.InDelta(t, 6, got.CfgScale, 1e-9)
	assert.Equal(t, "Euler a", got.SamplerIndex)
	assert.Equal(t, 1, got.BatchSize)
	assert.Equal(t, 1, got.NIter)
	assert.Contains(t, got.Prompt, "a lantern, monochrome")
	assert.Contains(t, got.NegativePrompt, "watermark")
}

func TestSDWebUIService_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "CUDA out of memory", http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewSDWebUIService(srv.URL, 5*time.Second, testLogger())
	_, err := svc.Txt2Img(context.Background(), NewTxt2ImgRequest("x", ""))
	assert.ErrorContains(t, err, "500")
}

func TestSDWebUIService_StatusRetries(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int
	}{
		{name: "not found is permanent", status: http.StatusNotFound, wantCalls: 1},
		{name: "unprocessable is permanent", status: http.StatusUnprocessableEntity, wantCalls: 1},
		{name: "rate limited is retried", status: http.StatusTooManyRequests, wantCalls: 3},
		{name: "server error is retried", status: http.StatusBadGateway, wantCalls: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			svc := NewSDWebUIService(srv.URL, 5*time.Second, testLogger())
			gw := NewImageGateway(svc, testLogger()).WithPolicy(fastPolicy(3))
			_, src, err := gw.RequestImage(context.Background(), "a lantern", silhouette.AspectSquare)
			require.NoError(t, err)
			assert.Equal(t, SourceProcedural, src)
			assert.Equal(t, int32(tt.wantCalls), calls.Load())
		})
	}
}

func TestSDWebUIService_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sdapi/v1/sd-models" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	assert.NoError(t, NewSDWebUIService(srv.URL, time.Second, testLogger()).Ping(context.Background()))
	assert.Error(t, NewSDWebUIService(srv.URL+"/nope", time.Second, testLogger()).Ping(context.Background()))
}
