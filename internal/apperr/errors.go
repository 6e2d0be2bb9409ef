// Package apperr holds sentinel errors shared across packages. Wrap them with
// context and match with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidReference   = errors.New("invalid reference")
	ErrAmbiguousReference = errors.New("ambiguous reference")
	ErrInvalidAnchor      = errors.New("invalid anchor")
	ErrNotProject         = errors.New("not in a Zendown project")
)
