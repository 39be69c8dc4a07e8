package service

import "errors"

var (
	// ErrLinkNotFound is returned when an update or delete references a
	// nonexistent link.
	ErrLinkNotFound = errors.New("link not found")
)
