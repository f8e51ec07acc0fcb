package search

import (
	"log/slog"
	"time"
)

const (
	DefaultDebounce       = 500 * time.Millisecond
	DefaultMinQueryLength = 3
)

// Option configures an Input
type Option func(*Input)

// WithDebounce sets the quiet interval before a lookup fires
func WithDebounce(d time.Duration) Option {
	return func(in *Input) {
		if d > 0 {
			in.debounce = d
		}
	}
}

// WithMinQueryLength sets the minimum rune count that triggers a lookup
func WithMinQueryLength(n int) Option {
	return func(in *Input) {
		if n > 0 {
			in.minLen = n
		}
	}
}

// WithPlaceholder sets the hint shown while the input is empty
func WithPlaceholder(p string) Option {
	return func(in *Input) {
		in.placeholder = p
	}
}

// OnSelect registers the selection callback
func OnSelect(fn func(Result)) Option {
	return func(in *Input) {
		in.onSelect = fn
	}
}

// OnChange registers a callback receiving every new State
func OnChange(fn func(State)) Option {
	return func(in *Input) {
		in.onChange = fn
	}
}

// OnError registers the lookup failure callback
func OnError(fn func(error)) Option {
	return func(in *Input) {
		in.onError = fn
	}
}

// WithLogger sets the logger
func WithLogger(log *slog.Logger) Option {
	return func(in *Input) {
		if log != nil {
			in.log = log
		}
	}
}
