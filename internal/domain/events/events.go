// Package events decodes S3-style object notifications and routes created
// objects to the pipeline stage that consumes them.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNoRecords is returned for a notification without object records.
var ErrNoRecords = errors.New("events: notification has no records")

// Notification is the S3 event notification document. MinIO bucket
// notifications use the same shape.
type Notification struct {
	Records []Record `json:"Records"`
}

// Record is one entry of a notification.
type Record struct {
	EventName string `json:"eventName"`
	S3        struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key  string `json:"key"`
			Size int64  `json:"size"`
		} `json:"object"`
	} `json:"s3"`
}

// ObjectCreated identifies a newly stored object.
type ObjectCreated struct {
	EventName string
	Bucket    string
	Key       string
	Size      int64
}

// Decode parses a notification and returns every created object it names.
// Keys are URL-unescaped with '+' read as a space. Records for other event
// types are ignored.
func Decode(data []byte) ([]ObjectCreated, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to decode notification: %w", err)
	}
	if len(n.Records) == 0 {
		return nil, ErrNoRecords
	}

	out := make([]ObjectCreated, 0, len(n.Records))
	for i, r := range n.Records {
		if r.EventName != "" && !strings.Contains(r.EventName, "ObjectCreated") {
			continue
		}
		key, err := url.QueryUnescape(r.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("record %d: invalid key %q: %w", i, r.S3.Object.Key, err)
		}
		if r.S3.Bucket.Name == "" || key == "" {
			return nil, fmt.Errorf("record %d: missing bucket or key", i)
		}
		out = append(out, ObjectCreated{
			EventName: r.EventName,
			Bucket:    r.S3.Bucket.Name,
			Key:       key,
			Size:      r.S3.Object.Size,
		})
	}
	return out, nil
}
