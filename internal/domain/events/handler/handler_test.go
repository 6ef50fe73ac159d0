package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/visitor-arrivals/internal/domain/events"
)

type fakeDispatcher struct {
	objects []events.ObjectCreated
	err     error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, objects []events.ObjectCreated) error {
	f.objects = append(f.objects, objects...)
	return f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

const body = `{"Records":[{"eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"b"},"object":{"key":"staging/2023.csv"}}}]}`

func TestServer_Events(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"accepted", body, nil, http.StatusAccepted, `{"objects":1}`},
		{"bad json", "{", nil, http.StatusBadRequest, `"error"`},
		{"no records", `{"Records":[]}`, nil, http.StatusBadRequest, "no records"},
		{"handler failure", body, errors.New("broker down"), http.StatusInternalServerError, "failed to process notification"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{err: tt.err}
			srv := httptest.NewServer(New(d, Options{AllowedOrigins: []string{"*"}}, testLogger()))
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/events", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			var sb bytes.Buffer
			_, err = sb.ReadFrom(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, sb.String(), tt.wantBody)
		})
	}
}

func TestServer_EventsRejectsGet(t *testing.T) {
	rec := httptest.NewRecorder()
	New(&fakeDispatcher{}, Options{}, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	New(&fakeDispatcher{}, Options{}, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Metrics(t *testing.T) {
	h := New(&fakeDispatcher{}, Options{EnableMetrics: true}, testLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "arrivals_")
}

func TestServer_CORSPreflight(t *testing.T) {
	h := New(&fakeDispatcher{}, Options{AllowedOrigins: []string{"https://ops.example.com"}}, testLogger())

	req := httptest.NewRequest(http.MethodOptions, "/events", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://ops.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
