package tools

import "errors"

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrToolNotFound is returned when a tool name is not registered.
	ErrToolNotFound = errors.New("tool not found")

	// ErrDuplicateTool is returned when registering a name twice.
	ErrDuplicateTool = errors.New("tool already registered")
)

// User-safe messages for degraded paths. Kept in one place so the
// orchestrator and tests agree on the exact wording.
const (
	msgStoreUnavailable  = "The operational data store is temporarily unavailable. Please try again."
	msgNoCostCenterData  = "no cost center data configured"
	msgInsufficientData  = "insufficient data"
	msgNoAssetsAvailable = "No assets are available in the operational store."
)
