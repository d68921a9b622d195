package services

import (
	"context"
	"testing"

	"github.com/ArowuTest/team-raffle-backend/internal/config"
	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/ArowuTest/team-raffle-backend/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func authConfig(t *testing.T, password string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpiresIn = 3600
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		require.NoError(t, err)
		cfg.Auth.FacilitatorPasswordHash = string(hash)
	}
	return cfg
}

func TestLogin(t *testing.T) {
	cfg := authConfig(t, "s3cret")
	svc := NewAuthService(cfg)

	resp, err := svc.Login(context.Background(), &models.LoginRequest{Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, 3600, resp.ExpiresIn)

	claims, err := utils.ValidateJWT(resp.Token, cfg)
	require.NoError(t, err)
	assert.Equal(t, utils.RoleFacilitator, claims["role"])
}

func TestLoginRejected(t *testing.T) {
	_, err := NewAuthService(authConfig(t, "s3cret")).Login(context.Background(), &models.LoginRequest{Password: "guess"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = NewAuthService(authConfig(t, "")).Login(context.Background(), &models.LoginRequest{Password: "anything"})
	assert.ErrorIs(t, err, ErrInvalidCredentials, "no configured hash means no login")
}
