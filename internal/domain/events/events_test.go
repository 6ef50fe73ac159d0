package events

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/visitor-arrivals/pkg/broker"
)

const notification = `{
  "Records": [
    {
      "eventName": "ObjectCreated:Put",
      "s3": {
        "bucket": {"name": "visitors-arrivals"},
        "object": {"key": "landing/Visitor+Arrivals+2023%28Jan-Oct%29.pdf", "size": 2048}
      }
    },
    {
      "eventName": "s3:ObjectCreated:CompleteMultipartUpload",
      "s3": {
        "bucket": {"name": "visitors-arrivals"},
        "object": {"key": "staging/2023.csv", "size": 512}
      }
    },
    {
      "eventName": "s3:ObjectRemoved:Delete",
      "s3": {
        "bucket": {"name": "visitors-arrivals"},
        "object": {"key": "staging/2022.csv"}
      }
    }
  ]
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestDecode(t *testing.T) {
	objects, err := Decode([]byte(notification))
	require.NoError(t, err)

	assert.Equal(t, []ObjectCreated{
		{EventName: "ObjectCreated:Put", Bucket: "visitors-arrivals", Key: "landing/Visitor Arrivals 2023(Jan-Oct).pdf", Size: 2048},
		{EventName: "s3:ObjectCreated:CompleteMultipartUpload", Bucket: "visitors-arrivals", Key: "staging/2023.csv", Size: 512},
	}, objects)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"not json", "{", nil},
		{"no records", `{"Records": []}`, ErrNoRecords},
		{"missing records", `{}`, ErrNoRecords},
		{"bad escape", `{"Records":[{"s3":{"bucket":{"name":"b"},"object":{"key":"a%zz"}}}]}`, nil},
		{"missing bucket", `{"Records":[{"s3":{"object":{"key":"a.pdf"}}}]}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.body))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

type recorder struct {
	keys []string
	err  error
}

func (r *recorder) handle(_ context.Context, obj ObjectCreated) error {
	r.keys = append(r.keys, obj.Key)
	return r.err
}

func TestRouter(t *testing.T) {
	extract := &recorder{}
	dispatch := &recorder{}
	router := NewRouter(testLogger()).
		Handle("extract", "landing/", ".pdf", extract.handle).
		Handle("dispatch", "staging/", ".csv", dispatch.handle)

	err := router.Dispatch(context.Background(), []ObjectCreated{
		{Bucket: "b", Key: "landing/2023.PDF"},
		{Bucket: "b", Key: "staging/2023.csv"},
		{Bucket: "b", Key: "staging/2023.pdf"},
		{Bucket: "b", Key: "other/2023.csv"},
		{Bucket: "b", Key: "staging/2024.csv"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"landing/2023.PDF"}, extract.keys)
	assert.Equal(t, []string{"staging/2023.csv", "staging/2024.csv"}, dispatch.keys)

	_, ok := router.Match("landing/notes.txt")
	assert.False(t, ok)
}

func TestRouter_ContinuesAfterFailure(t *testing.T) {
	failing := &recorder{err: errors.New("bucket unavailable")}
	router := NewRouter(testLogger()).Handle("extract", "", ".pdf", failing.handle)

	err := router.Dispatch(context.Background(), []ObjectCreated{
		{Bucket: "b", Key: "a.pdf"},
		{Bucket: "b", Key: "b.pdf"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract b/a.pdf")
	assert.Len(t, failing.keys, 2)
}

func TestRouter_HandleMessage(t *testing.T) {
	dispatch := &recorder{}
	router := NewRouter(testLogger()).Handle("dispatch", "staging/", ".csv", dispatch.handle)

	require.NoError(t, router.HandleMessage(context.Background(), []byte(notification)))
	assert.Equal(t, []string{"staging/2023.csv"}, dispatch.keys)

	err := router.HandleMessage(context.Background(), []byte(`{"Records": []}`))
	assert.ErrorIs(t, err, broker.ErrMalformed)
	assert.ErrorIs(t, err, ErrNoRecords)
}
