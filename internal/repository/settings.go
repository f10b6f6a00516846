package repository

import "context"

// SettingsRepository reads the key/value application settings table.
type SettingsRepository interface {
	// GetMany returns the values for the requested keys. Missing keys are
	// simply absent from the result.
	GetMany(ctx context.Context, keys ...string) (map[string]string, error)
}
