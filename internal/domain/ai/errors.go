package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrEmptyDigest is returned when the provider answered without any content.
var ErrEmptyDigest = errors.New("ai returned an empty digest")
