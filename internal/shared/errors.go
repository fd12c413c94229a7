package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrAuthFailed   = fmt.Errorf("authentication failed")
	ErrTokenExpired = fmt.Errorf("identity token expired")
	ErrTimeout      = fmt.Errorf("operation timed out")

	// Document store errors
	ErrNotFound          = fmt.Errorf("document not found")
	ErrAlreadyExists     = fmt.Errorf("document already exists")
	ErrInvalidDocument   = fmt.Errorf("invalid document")
	ErrTrackListTooLarge = fmt.Errorf("tracklist exceeds the maximum number of tracks")

	// Queue errors
	ErrPublishFailed = fmt.Errorf("failed to publish message")

	// Input validation errors
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
