package service

import (
	"time"

	"taskScheduler/internal/security"
)

type options struct {
	now      func() time.Time
	newToken func() (string, error)
}

// Option настраивает сервисы; в тестах используется для подмены часов и генератора токенов.
type Option func(*options)

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func WithTokenSource(newToken func() (string, error)) Option {
	return func(o *options) {
		if newToken != nil {
			o.newToken = newToken
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now, newToken: security.NewResetToken}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
