// Package errs defines the sentinel errors shared across coldvault's
// storage layers. Callers should use errors.Is against these values
// rather than matching error strings.
package errs

import "errors"

var (
	// ErrCompression indicates a codec failed to compress a value.
	ErrCompression = errors.New("coldvault: compression failed")

	// ErrDecompression indicates a codec failed to decompress a value.
	// Returned per-item by read iterators rather than aborting iteration.
	ErrDecompression = errors.New("coldvault: decompression failed")

	// ErrSerialization indicates a Backup's metadata could not be
	// encoded as JSON.
	ErrSerialization = errors.New("coldvault: serialization failed")

	// ErrDeserialization indicates a payload read back from disk (the
	// JSON metadata or the binary-encoded VersionLog) could not be
	// parsed.
	ErrDeserialization = errors.New("coldvault: deserialization failed")

	// ErrIO wraps filesystem failures encountered while saving or
	// loading a Backup.
	ErrIO = errors.New("coldvault: io error")

	// ErrNoVersionsFound is returned when a loaded VersionLog has no
	// latest Fragment to recover.
	ErrNoVersionsFound = errors.New("coldvault: no versions found")

	// ErrBackupLoad is returned by Backup.LoadFromDisk when the decoded
	// VersionLog payload is present but cannot be reconstructed.
	ErrBackupLoad = errors.New("coldvault: backup load failed")

	// ErrKeyNotFound is returned when an entry key has no value in
	// the latest Fragment.
	ErrKeyNotFound = errors.New("coldvault: key not found")

	// ErrVersionNotFound is returned when a requested version number
	// has no corresponding Version in the log, or when a Backup has
	// no latest Fragment at all.
	ErrVersionNotFound = errors.New("coldvault: version not found")

	// ErrUnknownAlgorithm is returned when a CompressionPolicy names
	// an algorithm the running codec registry does not recognize.
	ErrUnknownAlgorithm = errors.New("coldvault: unknown compression algorithm")
)
