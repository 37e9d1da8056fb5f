// Package services provides repository interfaces and SQL implementations
// for the small amount of state wlanmon keeps across restarts: user
// preferences and the last-known device and alert snapshot.
package services

import "errors"

// Sentinel errors returned by repositories.
var (
	ErrNotFound = errors.New("not found")
)
