package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/radcase/radcase/internal/platform/auth"
)

type Service struct {
	users  UserRepository
	tokens *auth.TokenService
}

func NewService(users UserRepository, tokens *auth.TokenService) *Service {
	return &Service{users: users, tokens: tokens}
}

// SignUp registers a new staff member. The email is lowercased before storage
// so lookups are case-insensitive without relying on collation tricks.
func (s *Service) SignUp(ctx context.Context, name, email, password, role string) (*User, error) {
	if !auth.ValidRole(role) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks the credentials and returns the matching user. A missing
// user and a wrong password both collapse into ErrInvalidCredentials so the
// response does not reveal whether the email is registered.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := auth.ComparePasswordAndHash(password, u.PasswordHash); err != nil {
		if errors.Is(err, auth.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return u, nil
}

// Login authenticates and issues a signed session token carrying the user's
// role claim.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(auth.Identity{
		ID:    u.ID.String(),
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	})
	if err != nil {
		return nil, "", fmt.Errorf("issue session token: %w", err)
	}
	return u, token, nil
}

// GetUser returns the user with the given ID.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}
