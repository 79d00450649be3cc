package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacal/internal/caldate"
	"vacal/internal/event"
	"vacal/internal/layout"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testArtifact() *Artifact {
	win := caldate.Rolling(date(2025, time.August, 10), 0, 1, time.Sunday)
	events := []event.Event{
		{Name: "aiko", Title: "trip", Start: date(2025, time.August, 11), End: date(2025, time.August, 13)},
	}
	return &Artifact{
		SVG:        []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`),
		Window:     win,
		Rows:       layout.Assign(win, events),
		Width:      1200,
		Height:     800,
		RenderedAt: date(2025, time.August, 15),
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := NewServer("127.0.0.1:0", "preview.png")
	rec := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestArtifactEndpointsBeforeRender(t *testing.T) {
	s := NewServer("127.0.0.1:0", "preview.png")
	for _, path := range []string{"/calendar", "/calendar.svg", "/api/layout"} {
		rec := get(t, s.Handler(), path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestCalendarPage(t *testing.T) {
	s := NewServer("127.0.0.1:0", "preview.png")
	s.SetArtifact(testArtifact())

	rec := get(t, s.Handler(), "/calendar")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `data-ready="true"`)
	assert.Contains(t, rec.Body.String(), "<svg")
}

func TestCalendarSVG(t *testing.T) {
	s := NewServer("127.0.0.1:0", "preview.png")
	a := testArtifact()
	s.SetArtifact(a)

	rec := get(t, s.Handler(), "/calendar.svg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "image/svg+xml")
	assert.Equal(t, string(a.SVG), rec.Body.String())
}

func TestPreviewPNG(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "calendar.png")
	require.NoError(t, os.WriteFile(pngPath, []byte("png-bytes"), 0o600))

	s := NewServer("127.0.0.1:0", pngPath)
	rec := get(t, s.Handler(), "/preview.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestLayoutAPI(t *testing.T) {
	s := NewServer("127.0.0.1:0", "preview.png")
	s.SetArtifact(testArtifact())

	rec := get(t, s.Handler(), "/api/layout")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Weeks [][]string `json:"weeks"`
		Rows  [][]struct {
			Name  string `json:"name"`
			Start string `json:"start"`
			End   string `json:"end"`
			Lane  int    `json:"lane"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Weeks, 1)
	assert.Equal(t, "2025-08-10", resp.Weeks[0][0])
	assert.Equal(t, "2025-08-16", resp.Weeks[0][6])

	require.Len(t, resp.Rows, 1)
	require.Len(t, resp.Rows[0], 1)
	assert.Equal(t, "aiko", resp.Rows[0][0].Name)
	assert.Equal(t, "2025-08-11", resp.Rows[0][0].Start)
	assert.Equal(t, "2025-08-13", resp.Rows[0][0].End)
	assert.Equal(t, 0, resp.Rows[0][0].Lane)
}

func TestStartServesEphemeralPort(t *testing.T) {
	s := NewServer("127.0.0.1:0", "preview.png")

	ctx, cancel := context.WithCancel(context.Background())
	baseURL, done, err := s.Start(ctx)
	require.NoError(t, err)

	resp, err := http.Get(baseURL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
