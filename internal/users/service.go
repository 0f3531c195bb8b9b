package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"ms-booking/internal/auth"
	"ms-booking/internal/config"
	"ms-booking/internal/models"
	"ms-booking/internal/token"
)

var ErrWrongPassword = errors.New("wrong password")

type UserDBLayer interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user models.User) error
	DeleteUser(ctx context.Context, userID string) error
}

// Credentials bundles the access/refresh pair issued on register and login.
type Credentials struct {
	Access  *token.Details
	Refresh *token.Details
}

type UserService struct {
	DB    UserDBLayer
	Auth  config.AuthConfig
	Cache *auth.PrincipalCache
}

func NewUserService(db UserDBLayer, authCfg config.AuthConfig, cache *auth.PrincipalCache) *UserService {
	return &UserService{DB: db, Auth: authCfg, Cache: cache}
}

func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, *Credentials, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		UserID:           uuid.NewString(),
		Username:         req.Username,
		Email:            req.Email,
		Password:         string(hashed),
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		PhoneNumber:      req.PhoneNumber,
		RegistrationDate: time.Now(),
	}

	if err := s.DB.CreateUser(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	creds, err := s.issueCredentials(user.UserID)
	if err != nil {
		return nil, nil, err
	}
	return &user, creds, nil
}

func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.User, *Credentials, error) {
	user, err := s.DB.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, nil, ErrWrongPassword
	}

	creds, err := s.issueCredentials(user.UserID)
	if err != nil {
		return nil, nil, err
	}
	return user, creds, nil
}

// Refresh exchanges a valid refresh credential for a fresh access credential.
// The principal is re-read so a deleted account cannot mint new sessions.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*models.User, *token.Details, error) {
	subjectID, err := token.Verify(s.Auth.RefreshSecret, refreshToken)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.DB.GetUserByID(ctx, subjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	access, err := token.Issue(user.UserID, s.Auth.AccessSecret, s.Auth.AccessTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	return user, access, nil
}

// Delete removes the account and drops it from the principal cache, which is
// how outstanding credentials are revoked.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	if err := s.DB.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if s.Cache != nil {
		_ = s.Cache.Invalidate(ctx, userID)
	}
	return nil
}

func (s *UserService) issueCredentials(userID string) (*Credentials, error) {
	access, err := token.Issue(userID, s.Auth.AccessSecret, s.Auth.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := token.Issue(userID, s.Auth.RefreshSecret, s.Auth.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &Credentials{Access: access, Refresh: refresh}, nil
}
