// Package services contains server-side business logic: the authentication
// flows and the per-user activity resources.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/habittracker/internal/common"
	"github.com/dmitrijs2005/habittracker/internal/cryptox"
	"github.com/dmitrijs2005/habittracker/internal/dbx"
	"github.com/dmitrijs2005/habittracker/internal/logging"
	"github.com/dmitrijs2005/habittracker/internal/server/models"
	"github.com/dmitrijs2005/habittracker/internal/server/ratelimit"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/habittracker/internal/server/tokens"
)

const minPasswordLength = 6

// AccessTokenIssuer mints access tokens. *auth.Issuer satisfies it.
type AccessTokenIssuer interface {
	Issue(user *models.User) (string, time.Time, error)
}

// RefreshTokenRotator is the refresh-token lifecycle. *tokens.Rotator satisfies it.
type RefreshTokenRotator interface {
	Create(ctx context.Context, userID string, lifetime time.Duration) (*tokens.Issued, error)
	Rotate(ctx context.Context, presented string, lifetime time.Duration) (*tokens.Rotation, error)
	RevokeAll(ctx context.Context, userID string) (int64, error)
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is returned by every successful register, login and refresh.
type AuthResponse struct {
	AccessToken              string    `json:"accessToken"`
	ExpiresAtUtc             time.Time `json:"expiresAtUtc"`
	UserID                   string    `json:"userId"`
	Email                    string    `json:"email"`
	FullName                 *string   `json:"fullName"`
	RefreshToken             string    `json:"refreshToken"`
	RefreshTokenExpiresAtUtc time.Time `json:"refreshTokenExpiresAtUtc"`
}

// AuthService composes the credential store, the access token issuer and the
// refresh token rotator into the register, login and refresh flows.
type AuthService struct {
	db              dbx.DBTX
	repomanager     repomanager.RepositoryManager
	issuer          AccessTokenIssuer
	rotator         RefreshTokenRotator
	limiter         ratelimit.LoginLimiter
	refreshLifetime time.Duration
	log             logging.Logger
}

// NewAuthService wires an AuthService. A nil limiter disables throttling.
func NewAuthService(db dbx.DBTX, m repomanager.RepositoryManager, issuer AccessTokenIssuer, rotator RefreshTokenRotator,
	limiter ratelimit.LoginLimiter, refreshLifetime time.Duration, log logging.Logger) *AuthService {
	if limiter == nil {
		limiter = ratelimit.Nop{}
	}
	return &AuthService{
		db:              db,
		repomanager:     m,
		issuer:          issuer,
		rotator:         rotator,
		limiter:         limiter,
		refreshLifetime: refreshLifetime,
		log:             log.With("module", "auth"),
	}
}

// Register creates an account and starts its first session.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)

	v := &validator{}
	v.email("email", email)
	if len(req.Password) < minPasswordLength {
		v.add("password", "password must be at least %d characters.", minPasswordLength)
	}
	if v.required("fullName", req.FullName) {
		v.maxLen("fullName", req.FullName, 200)
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, fieldError("email", "Email is already registered.")
	} else if !errors.Is(err, common.ErrorNotFound) {
		s.log.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	fullName := strings.TrimSpace(req.FullName)
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		UserName:     email,
		FullName:     &fullName,
		PasswordHash: cryptox.HashPassword(req.Password),
	}
	if err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, fieldError("email", "Email is already registered.")
		}
		s.log.Error(ctx, "user create failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return s.startSession(ctx, user)
}

// Login verifies credentials and starts a new session, revoking the user's
// previous refresh tokens. clientIP feeds the login throttle and may be empty.
func (s *AuthService) Login(ctx context.Context, req LoginRequest, clientIP string) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)

	v := &validator{}
	v.email("email", email)
	v.required("password", req.Password)
	if err := v.err(); err != nil {
		return nil, err
	}

	if err := s.limiter.Allow(ctx, email, clientIP); err != nil {
		s.log.Warn(ctx, "login throttled", "ip", clientIP)
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			cryptox.BurnPasswordCheck(req.Password)
			s.limiter.Fail(ctx, email, clientIP)
			return nil, common.ErrorUnauthorized
		}
		s.log.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	ok, err := cryptox.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		s.log.Error(ctx, "stored password hash unreadable", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}
	if !ok {
		s.limiter.Fail(ctx, email, clientIP)
		return nil, common.ErrorUnauthorized
	}

	s.limiter.Reset(ctx, email, clientIP)
	return s.startSession(ctx, user)
}

// Refresh rotates a refresh token and issues a new access token for its owner.
// Every rejection of the token itself is common.ErrorUnauthorized.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	v := &validator{}
	v.required("refreshToken", req.RefreshToken)
	if err := v.err(); err != nil {
		return nil, err
	}

	rot, err := s.rotator.Rotate(ctx, req.RefreshToken, s.refreshLifetime)
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			return nil, common.ErrorUnauthorized
		}
		s.log.Error(ctx, "refresh token rotation failed", "error", err)
		return nil, common.ErrorInternal
	}

	access, expiresAt, err := s.issuer.Issue(rot.User)
	if err != nil {
		s.log.Error(ctx, "access token issue failed", "user_id", rot.User.ID, "error", err)
		return nil, common.ErrorInternal
	}

	return buildResponse(rot.User, access, expiresAt, &rot.Issued), nil
}

func (s *AuthService) startSession(ctx context.Context, user *models.User) (*AuthResponse, error) {
	access, expiresAt, err := s.issuer.Issue(user)
	if err != nil {
		s.log.Error(ctx, "access token issue failed", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}

	if _, err := s.rotator.RevokeAll(ctx, user.ID); err != nil {
		s.log.Error(ctx, "refresh token revoke failed", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}

	issued, err := s.rotator.Create(ctx, user.ID, s.refreshLifetime)
	if err != nil {
		s.log.Error(ctx, "refresh token create failed", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}

	return buildResponse(user, access, expiresAt, issued), nil
}

func buildResponse(user *models.User, access string, expiresAt time.Time, issued *tokens.Issued) *AuthResponse {
	return &AuthResponse{
		AccessToken:              access,
		ExpiresAtUtc:             expiresAt,
		UserID:                   user.ID,
		Email:                    user.Email,
		FullName:                 user.FullName,
		RefreshToken:             issued.Plaintext,
		RefreshTokenExpiresAtUtc: issued.Token.ExpiresAt,
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
