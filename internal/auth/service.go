package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/societyhub/societyhub/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate checks email and password. Unknown, inactive and mismatched
// accounts all yield shared.ErrInvalidCredentials; lookup failures are
// returned as is.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, shared.ErrInvalidCredentials
	}
	user, err := s.repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return nil, shared.ErrInvalidCredentials
	case err != nil:
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// Societies lists the societies the user belongs to.
func (s *Service) Societies(ctx context.Context, userID int64) ([]Society, error) {
	return s.repo.Societies(ctx, userID)
}

// DefaultSociety picks the first society of the user. ok is false when the
// user belongs to none.
func (s *Service) DefaultSociety(ctx context.Context, userID int64) (Society, bool, error) {
	societies, err := s.repo.Societies(ctx, userID)
	if err != nil || len(societies) == 0 {
		return Society{}, false, err
	}
	return societies[0], true, nil
}

// SwitchSociety checks that the user belongs to societyID.
func (s *Service) SwitchSociety(ctx context.Context, userID, societyID int64) (Society, error) {
	societies, err := s.repo.Societies(ctx, userID)
	if err != nil {
		return Society{}, err
	}
	for _, soc := range societies {
		if soc.ID == societyID {
			return soc, nil
		}
	}
	return Society{}, shared.ErrNotMember
}

// HashPassword returns the bcrypt hash stored for new users.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
