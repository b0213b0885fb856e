package service

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/erdemdnmz2/WebQuery/internal/core"
)

// AuthService verifies application logins. The password a user logs in with
// is also their database credential; after a successful check the caller is
// expected to hand the plaintext to the CredentialCache.
type AuthService struct {
	userRepo core.UserRepository
}

func NewAuthService(userRepo core.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

// Register creates a new non-admin user.
func (s *AuthService) Register(username, email, password string) (*core.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.userRepo.CreateUser(username, email, string(hashedPassword), false)
}

// CreateAdmin creates the first admin user, only allowed if no users exist
func (s *AuthService) CreateAdmin(username, email, password string) (*core.User, error) {
	count, err := s.userRepo.CountUsers()
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("setup already completed")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.userRepo.CreateUser(username, email, string(hashedPassword), true)
}

// Authenticate checks credentials and returns user if valid
func (s *AuthService) Authenticate(username, password string) (*core.User, error) {
	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, errors.New("invalid credentials") // Don't leak if user exists
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, errors.New("invalid credentials")
	}

	return user, nil
}

// ResetPassword resets a user's password by username
func (s *AuthService) ResetPassword(username, newPassword string) error {
	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return errors.New("user not found: " + username)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePassword(user.ID, string(hashedPassword))
}
