package embedding

import "errors"

// ErrBackendUnavailable is returned when the embedding backend cannot be
// reached or fails to produce usable vectors.
var ErrBackendUnavailable = errors.New("embedding backend unavailable")

// ErrUnknownProvider is returned by NewBackend for an unsupported provider name.
var ErrUnknownProvider = errors.New("unknown embedding provider")
