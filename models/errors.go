package models

import "errors"

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrStateMismatch     = errors.New("state mismatch")
	ErrMissingFields     = errors.New("please fill in all fields")
	ErrInvalidEmail      = errors.New("please enter a valid email address")
	ErrPasswordMismatch  = errors.New("passwords do not match")
	ErrEmptyReason       = errors.New("please provide a reason for the report")
	ErrInvalidSpotifyURL = errors.New("please enter a valid spotify playlist url")
	ErrSpotifyNotLinked  = errors.New("no spotify access, try linking your account again")
)

// API error taxonomy: every backend response outside 2xx maps onto exactly one
// of these so callers can branch with errors.Is instead of raw status codes.
var (
	ErrUnauthorized = errors.New("not authenticated")
	ErrForbidden    = errors.New("not authorized")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnavailable  = errors.New("service unavailable")
)
