package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrMissingToken  = fmt.Errorf("missing API token")
	ErrSandboxTarget = fmt.Errorf("sandbox target refused")

	// Input file errors
	ErrInputFile   = fmt.Errorf("input file unreadable")
	ErrInputFormat = fmt.Errorf("input file is not a JSON array")

	// Record errors
	ErrInvalidRecord = fmt.Errorf("record failed validation")

	// Gateway outcomes
	ErrConflict    = fmt.Errorf("record already exists")
	ErrRateLimited = fmt.Errorf("rate limited")
	ErrAPIRequest  = fmt.Errorf("API request failed")

	// Run errors
	ErrFailureLog = fmt.Errorf("failure log write failed")

	// Input validation errors
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
