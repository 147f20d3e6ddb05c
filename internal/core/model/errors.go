package model

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownUser         = errors.New("unknown or unrated user")
	ErrUnknownMovie        = errors.New("unknown movie")
	ErrAmbiguousTitle      = errors.New("ambiguous movie title")
	ErrInsufficientHistory = errors.New("insufficient embedded history")
	ErrColdSeed            = errors.New("no vector available for seed")
	ErrNoConnection        = errors.New("no connection found")
	ErrGraphUnavailable    = errors.New("graph query unavailable")
	ErrModelNotLoaded      = errors.New("embedding model not loaded")
)

// Error attaches the offending id or title to one of the sentinel kinds.
// errors.Is(err, ErrUnknownUser) matches on Kind.
type Error struct {
	Kind    error
	Subject string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Subject != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Subject)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Errorf(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Subject: fmt.Sprintf(format, args...)}
}

var codes = map[error]string{
	ErrUnknownUser:         "unknown_user",
	ErrUnknownMovie:        "unknown_movie",
	ErrAmbiguousTitle:      "ambiguous_title",
	ErrInsufficientHistory: "insufficient_history",
	ErrColdSeed:            "cold_seed",
	ErrNoConnection:        "no_connection",
	ErrGraphUnavailable:    "graph_unavailable",
	ErrModelNotLoaded:      "model_not_loaded",
}

// Code is a stable snake_case name for the kind of err, "internal" when it
// matches none of the sentinels.
func Code(err error) string {
	for kind, code := range codes {
		if errors.Is(err, kind) {
			return code
		}
	}
	return "internal"
}
