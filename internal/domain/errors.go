package domain

import "errors"

var (
	// ErrInvalidCoordinate rejects a latitude outside [-90, 90] or a longitude outside [-180, 180].
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrDataUnavailable means an external collaborator could not supply events
	// or weather for a requested window. Samples hitting it are dropped.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrInsufficientPositiveSamples flags a training set with too few positives
	// to produce a reliable model. It is reported as a warning, never returned as fatal.
	ErrInsufficientPositiveSamples = errors.New("insufficient positive samples")

	// ErrFeatureSchemaMismatch means an inference-time feature vector does not
	// match the feature names recorded in the model artifact.
	ErrFeatureSchemaMismatch = errors.New("feature schema mismatch")

	// ErrModelArtifactMissing means no persisted model exists for a hazard type.
	ErrModelArtifactMissing = errors.New("model artifact missing")

	// ErrUnknownHazard rejects a hazard type other than fire or quake.
	ErrUnknownHazard = errors.New("unknown hazard type")
)
