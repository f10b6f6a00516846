package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/taskboard/internal/domain"
	"github.com/ErlanBelekov/taskboard/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// CredentialStore verifies email/password pairs against bcrypt hashes.
type CredentialStore struct {
	users     repository.UserRepository
	dummyHash []byte
}

// NewCredentialStore precomputes a throwaway hash at the given cost. It is
// compared against whenever there is no real hash, so a missing or inactive
// account costs the same bcrypt work as a wrong password. cost should match
// the cost of the stored hashes.
func NewCredentialStore(users repository.UserRepository, cost int) (*CredentialStore, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate dummy secret: %w", err)
	}
	dummy, err := bcrypt.GenerateFromPassword(secret, cost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}
	return &CredentialStore{users: users, dummyHash: dummy}, nil
}

// Verify returns the identity for an active user whose password matches.
// Every credential failure is reported as domain.ErrInvalidCredentials.
func (s *CredentialStore) Verify(ctx context.Context, email, password string) (domain.Identity, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return domain.Identity{}, fmt.Errorf("find user: %w", err)
	}

	if user == nil || !user.Active() {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return domain.Identity{}, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.Identity{}, domain.ErrInvalidCredentials
	}
	return user.Identity(), nil
}
