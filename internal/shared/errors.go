package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Session errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrNoToken          = fmt.Errorf("no access token stored")
	ErrInvalidState     = fmt.Errorf("invalid state parameter")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Upstream errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrUnauthorized       = fmt.Errorf("unauthorized")
	ErrInvalidResponse    = fmt.Errorf("invalid response format")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// View errors
	ErrPrimaryFetch   = fmt.Errorf("failed to get Spotify profile info")
	ErrSecondaryFetch = fmt.Errorf("failed to get top items")
	ErrDetailFetch    = fmt.Errorf("failed to get details")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
