package repository

import (
	"context"

	"github.com/ErlanBelekov/taskboard/internal/domain"
)

// UserRepository is read-only: users are created and edited by profile and
// admin flows that live outside this service.
type UserRepository interface {
	// FindByEmail matches the email exactly (case-sensitive).
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
}
