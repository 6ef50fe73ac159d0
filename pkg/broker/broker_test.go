package broker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcknowledge(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"success", nil, true},
		{"malformed", ErrMalformed, true},
		{"wrapped malformed", fmt.Errorf("decode event: %w", ErrMalformed), true},
		{"job failure", errors.New("write failed"), false},
		{"cancelled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Acknowledge(tt.err))
		})
	}
}
