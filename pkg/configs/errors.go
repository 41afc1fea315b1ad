package configs

import "errors"

var (
	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("configs: invalid request")
	// ErrCategoryRequired is returned by Save when neither a category id nor a
	// category name is given.
	ErrCategoryRequired = errors.New("configs: category ID or name is required")
	// ErrCategoryNotFound is returned for unknown or foreign categories.
	ErrCategoryNotFound = errors.New("configs: category not found")
	// ErrConfigurationNotFound is returned for unknown or foreign configurations.
	ErrConfigurationNotFound = errors.New("configs: configuration not found")
)

// Message returns the user-facing text for err, without the package prefix.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrCategoryRequired):
		return "Category ID or name is required"
	case errors.Is(err, ErrCategoryNotFound):
		return "Category not found"
	case errors.Is(err, ErrConfigurationNotFound):
		return "Configuration not found"
	case errors.Is(err, ErrInvalidRequest):
		return "Invalid request"
	case err == nil:
		return ""
	default:
		return "Request failed"
	}
}
