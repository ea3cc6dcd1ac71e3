package api

import (
	"fmt"
)

// NetworkError covers transport-level failures and unexpected status
// codes. Callers at the engine boundary treat it as "no result".
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DecodeError marks a malformed or unexpected server payload. The field
// path makes the offending payload findable in logs; the caller still
// sees an empty result.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// AuthError is a non-2xx on an authenticated call. It carries no server
// detail on purpose; login and signup surfaces show a generic message.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (status %d)", e.Status)
}

// ResourceLoadError means a media asset failed to prepare. The clip is
// skippable but never retried automatically.
type ResourceLoadError struct {
	Key string
	Err error
}

func (e *ResourceLoadError) Error() string {
	return fmt.Sprintf("loading asset %s: %v", e.Key, e.Err)
}

func (e *ResourceLoadError) Unwrap() error {
	return e.Err
}

// CapacityError is a business rule failure, not a fault: the user has
// not followed enough shows yet. It blocks the UI flow that raised it
// and nothing else.
type CapacityError struct {
	Needed int
	Have   int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("need %d followed shows, have %d", e.Needed, e.Have)
}
