package intercept

import (
	"errors"
	"fmt"
)

// Kind categorizes a delivery failure that the interceptor could not absorb.
type Kind string

const (
	// KindNetwork indicates the origin could not be reached.
	KindNetwork Kind = "NETWORK"

	// KindTimeout indicates the bounded wait for a private host expired.
	KindTimeout Kind = "TIMEOUT"

	// KindCacheMiss indicates the network failed and no snapshot or default
	// exists for the request.
	KindCacheMiss Kind = "CACHE_MISS"

	// KindPersistence indicates a failed write could not be queued.
	KindPersistence Kind = "PERSISTENCE"
)

// DeliveryError is returned by the interceptor when a request ends in a
// dead end: no network, no cache, no queue.
type DeliveryError struct {
	// Kind identifies the failure category.
	Kind Kind

	// Cause is the network failure category behind a cache miss
	// (KindNetwork or KindTimeout). Empty for other kinds.
	Cause Kind

	Method string
	URL    string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	if e.Cause != "" {
		return fmt.Sprintf("%s (%s): %s %s: %v", e.Kind, e.Cause, e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Method, e.URL, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is, or was caused by, a private-host timeout.
// Uses errors.As to handle wrapped errors.
func IsTimeout(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind == KindTimeout || de.Cause == KindTimeout
	}
	return false
}

// IsCacheMiss reports whether err is a cache miss after a network failure.
func IsCacheMiss(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind == KindCacheMiss
	}
	return false
}

// IsPersistence reports whether err is a failure to queue a write.
func IsPersistence(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind == KindPersistence
	}
	return false
}

// IsNetwork reports whether err is a plain network failure.
func IsNetwork(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind == KindNetwork
	}
	return false
}
