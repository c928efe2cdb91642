package domain

import "errors"

var (
	// ErrNotFound is returned by stores when a document or chunk does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrModelMismatch is returned when a query embedding model differs
	// from the model the stored vectors were produced with. Searching
	// across embedding spaces silently degrades relevance, so it is
	// rejected outright.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrUnsupportedFormat is returned when a submitted file has no
	// extraction path.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrServiceUnavailable is the structured query-time failure when
	// an external service cannot be reached. Callers surface it as-is;
	// it is never dressed up as an answer.
	ErrServiceUnavailable = errors.New("external service unavailable")
)
