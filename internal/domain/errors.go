package domain

import "errors"

// Failure taxonomy for the pipeline. Adapters and use cases wrap these with
// fmt.Errorf("...: %w", err) so callers can test with errors.Is.
var (
	// ErrInvalidInput covers bad chunking parameters and empty file sets.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyInput is returned when an index build receives no chunks.
	ErrEmptyInput = errors.New("no chunks to index")

	// ErrNotInitialized is returned by search when no index is in memory.
	ErrNotInitialized = errors.New("index not initialized")

	// ErrIndexNotFound is returned by load when no persisted index exists.
	ErrIndexNotFound = errors.New("persisted index not found")

	// ErrFormat marks a corrupt or dimension-mismatched persisted index.
	ErrFormat = errors.New("index format mismatch")

	// ErrCharacterNotFound is returned when the model reports that the
	// character does not appear in any indexed story.
	ErrCharacterNotFound = errors.New("character not found in the stories")

	// ErrMalformedOutput is returned when the model output is not valid JSON
	// or lacks required fields.
	ErrMalformedOutput = errors.New("malformed model output")
)
