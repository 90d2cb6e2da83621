package handlers

import (
	"bufio"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/hushpath/internal/demo"
)

// readEvent returns the next "event:" name and its data line.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestEventsHandler_Stream(t *testing.T) {
	f := newAPIFixture(t, demo.NewDemoService(quietLogger()))
	snap := f.create(t)

	resp := f.do(t, http.MethodGet, "/v1/game/"+snap.ID+"/events", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	name, data := readEvent(t, r)
	assert.Equal(t, "connected", name)
	assert.Contains(t, data, snap.ID)

	done := make(chan int, 1)
	go func() {
		body := strings.NewReader(`{"action":"go west"}`)
		action, err := http.Post(f.server.URL+"/v1/game/"+snap.ID+"/action", "application/json", body)
		if !assert.NoError(t, err) {
			done <- 0
			return
		}
		action.Body.Close()
		done <- action.StatusCode
	}()

	name, data = readEvent(t, r)
	assert.Equal(t, "turn.started", name)
	assert.Contains(t, data, "go west")

	for name != "turn.completed" {
		name, _ = readEvent(t, r)
	}

	select {
	case status := <-done:
		assert.Equal(t, http.StatusOK, status)
	case <-time.After(5 * time.Second):
		t.Fatal("action did not finish")
	}
}

func TestEventsHandler_UnknownGame(t *testing.T) {
	f := newAPIFixture(t, demo.NewDemoService(quietLogger()))
	resp := f.do(t, http.MethodGet, "/v1/game/33333333-3333-3333-3333-333333333333/events", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
