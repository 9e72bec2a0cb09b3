package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sjd-portal/grievance-api/internal/models"
)

type authRepoStub struct {
	usersByEmail  map[string]*models.User
	usersByID     map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	revokedFor    []string
	audits        []models.AuditLog
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{
		usersByEmail:  map[string]*models.User{},
		usersByID:     map[string]*models.User{},
		refreshTokens: map[string]*models.RefreshToken{},
	}
}

func (r *authRepoStub) addUser(u *models.User) {
	r.usersByEmail[u.Email] = u
	r.usersByID[u.ID] = u
}

func (r *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := r.usersByEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (r *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := r.usersByID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (r *authRepoStub) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = fmt.Sprintf("u-%d", len(r.usersByID)+1)
	}
	r.addUser(user)
	return nil
}

func (r *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (r *authRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	u, ok := r.usersByID[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	r.revokedFor = append(r.revokedFor, userID)
	return nil
}

func (r *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	r.refreshTokens[token.Token] = token
	return nil
}

func (r *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	t, ok := r.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t, nil
}

func (r *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range r.refreshTokens {
		if t.ID == id {
			t.Revoked = true
		}
	}
	return nil
}

func (r *authRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.audits = append(r.audits, *log)
	return nil
}

func newAuthServiceForTest(t *testing.T) (*AuthService, *authRepoStub) {
	t.Helper()
	repo := newAuthRepoStub()
	svc := NewAuthService(repo, &sequenceStub{}, NopNotifier{}, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "grievance-api",
	})
	return svc, repo
}

func seedUser(t *testing.T, repo *authRepoStub, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		ID:           "u-citizen",
		UniqueCode:   "SJD/2026/0001",
		Email:        "asha@example.com",
		PasswordHash: string(hash),
		FirstName:    "Asha",
		LastName:     "Verma",
		Role:         models.RolePublic,
		District:     "Raipur",
	}
	repo.addUser(u)
	return u
}

func TestAuthServiceRegister(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		FirstName: "Asha",
		LastName:  "Verma",
		Email:     "asha@example.com",
		Password:  "secret123",
		District:  "Raipur",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RolePublic, user.Role)
	year := time.Now().UTC().Year()
	assert.Equal(t, fmt.Sprintf("SJD/%d/0001", year), user.UniqueCode)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionUserRegistered, repo.audits[0].Action)

	second, err := svc.Register(context.Background(), models.RegisterRequest{
		FirstName: "Ram",
		LastName:  "Sahu",
		Email:     "ram@example.com",
		Password:  "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("SJD/%d/0002", year), second.UniqueCode)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)
	seedUser(t, repo, "secret123")

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		FirstName: "Asha",
		LastName:  "Verma",
		Email:     "asha@example.com",
		Password:  "secret123",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestAuthServiceLogin(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)
	seedUser(t, repo, "secret123")

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "asha@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "SJD/2026/0001", resp.User.UniqueCode)
	assert.Equal(t, "Raipur", resp.User.District)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-citizen", claims.UserID)
	assert.Equal(t, models.RolePublic, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)
	seedUser(t, repo, "secret123")

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "asha@example.com", Password: "wrong"})
	require.Error(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	require.Error(t, err)
}

func TestAuthServiceLoginDeactivatedAccount(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)
	u := seedUser(t, repo, "secret123")
	u.IsDeleted = true

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "asha@example.com", Password: "secret123"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deactivated")
}

func TestAuthServiceRefreshTokenRotation(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)
	seedUser(t, repo, "secret123")

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "asha@example.com", Password: "secret123"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// Rotation revokes the old token.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
}

func TestAuthServiceChangePassword(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)
	seedUser(t, repo, "secret123")

	err := svc.ChangePassword(context.Background(), "u-citizen", models.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "newsecret1",
	})
	require.NoError(t, err)
	assert.Contains(t, repo.revokedFor, "u-citizen")

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "asha@example.com", Password: "newsecret1"})
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), "u-citizen", models.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "another123",
	})
	require.Error(t, err)
}
