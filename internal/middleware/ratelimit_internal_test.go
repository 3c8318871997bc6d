package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryAfterSeconds(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		resetAt time.Time
		want    int
	}{
		{name: "last fraction of a second", resetAt: now.Add(300 * time.Millisecond), want: 1},
		{name: "rounds up", resetAt: now.Add(59*time.Second + 100*time.Millisecond), want: 60},
		{name: "whole seconds", resetAt: now.Add(30 * time.Second), want: 30},
		{name: "window boundary", resetAt: now, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryAfterSeconds(tt.resetAt, now))
		})
	}
}
