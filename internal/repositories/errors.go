package repositories

import "errors"

var (
	ErrBlacklistEntryNotFound = errors.New("blacklist entry not found")
	ErrInvalidBlacklistEntry  = errors.New("invalid blacklist entry")
	ErrDatabaseOperation      = errors.New("database operation failed")
)
