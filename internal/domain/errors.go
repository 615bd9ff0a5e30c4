package domain

import "errors"

var (
	// ErrConfigurationMissing means a required credential is absent. Fatal at startup.
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrStaleMessage marks a message older than the freshness window.
	ErrStaleMessage = errors.New("stale message")

	// ErrDeliveryFormatting means the transport rejected a rich-formatted edit.
	ErrDeliveryFormatting = errors.New("rich formatting rejected")
)
