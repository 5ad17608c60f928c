package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrEmptyVocabulary  = errors.New("vocabulary empty after filtering")
	ErrUnknownToken     = errors.New("token id not in vocabulary")
	ErrZeroCounts       = errors.New("zero total occurrence count")
	ErrInvalidPartition = errors.New("partition does not cover document")
	ErrNotPopulated     = errors.New("sense mapping not populated")
	ErrSnapshotExists   = errors.New("snapshot path already exists")
	ErrNotFound         = errors.New("not found")
)
