package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/team-raffle-backend/internal/config"
	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/ArowuTest/team-raffle-backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure AuthServiceImpl implements AuthService
var _ AuthService = (*AuthServiceImpl)(nil)

// AuthServiceImpl authenticates the facilitator against a configured bcrypt hash
type AuthServiceImpl struct {
	cfg *config.Config
}

// NewAuthService creates a new AuthServiceImpl
func NewAuthService(cfg *config.Config) *AuthServiceImpl {
	return &AuthServiceImpl{cfg: cfg}
}

// Login checks the facilitator password and issues a token
func (s *AuthServiceImpl) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	hash := s.cfg.Auth.FacilitatorPasswordHash
	if hash == "" {
		slog.Warn("Facilitator login attempted but no password hash is configured")
		return nil, ErrInvalidCredentials
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password))
	if err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			slog.Error("Facilitator password hash is unusable", "error", err)
		}
		return nil, ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(utils.RoleFacilitator, utils.RoleFacilitator, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &models.LoginResponse{Token: token, ExpiresIn: s.cfg.JWT.ExpiresIn}, nil
}
