package pipeline

import "errors"

// Named failures surfaced at the pipeline boundary. Input errors fail fast
// with no retry; transient external failures are recorded on the session and
// left to the caller to restart.
var (
	// ErrSpecificationMissing is returned by Start when neither an inline
	// specification nor a resolvable reference is supplied.
	ErrSpecificationMissing = errors.New("specification missing")

	// ErrManifestUnparseable is returned when the analyzer response cannot be
	// parsed even after balanced-fragment recovery.
	ErrManifestUnparseable = errors.New("manifest unparseable")

	// ErrEmptyManifest is returned when analysis succeeds but plans no files.
	ErrEmptyManifest = errors.New("empty manifest")

	// ErrEmptyGeneration is returned when the model produces empty or
	// whitespace-only file content.
	ErrEmptyGeneration = errors.New("empty generation")

	// ErrSessionNotFound is returned by Status for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
)
