package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Publish pipeline errors
	ErrValidation              = fmt.Errorf("validation failed")
	ErrAccountNotConnected     = fmt.Errorf("account not connected")
	ErrChannelNotOwned         = fmt.Errorf("account does not own channel")
	ErrCredentialRefreshFailed = fmt.Errorf("credential refresh failed")
	ErrInvalidAsset            = fmt.Errorf("invalid asset")
	ErrUpload                  = fmt.Errorf("upload failed")
	ErrThumbnail               = fmt.Errorf("thumbnail failed")

	// Scheduling errors
	ErrQueueFull         = fmt.Errorf("publish queue full")
	ErrAlreadyProcessed  = fmt.Errorf("publish request already processed")
	ErrPublisherShutdown = fmt.Errorf("publisher shut down")

	// Lookup errors
	ErrNotFound        = fmt.Errorf("not found")
	ErrTaskNotFound    = fmt.Errorf("task not found")
	ErrChannelNotFound = fmt.Errorf("channel not found")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
