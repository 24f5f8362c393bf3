// Package services contains server-side business logic. AuthService handles
// sign-up, sign-in, token rotation, revocation and the per-request
// authentication of access tokens.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/farmtrack/internal/common"
	"github.com/dmitrijs2005/farmtrack/internal/cryptox"
	"github.com/dmitrijs2005/farmtrack/internal/dbx"
	"github.com/dmitrijs2005/farmtrack/internal/logging"
	"github.com/dmitrijs2005/farmtrack/internal/server/auth"
	"github.com/dmitrijs2005/farmtrack/internal/server/models"
	"github.com/dmitrijs2005/farmtrack/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// SignUpInput is the data needed to create a profile. Role may be empty,
// which means USER.
type SignUpInput struct {
	Login    string      `validate:"required,max=64"`
	Email    string      `validate:"required,email,max=254"`
	Password string      `validate:"required,min=6,max=128"`
	Role     models.Role `validate:"omitempty,oneof=ADMIN USER"`
}

// ProfileSummary is the public view of a profile.
type ProfileSummary struct {
	ID        string      `json:"id"`
	Login     string      `json:"login"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"createdAt"`
}

func summarize(p *models.Profile) *ProfileSummary {
	return &ProfileSummary{
		ID:        p.ID,
		Login:     p.Login,
		Email:     p.Email,
		Role:      p.Role,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
	}
}

// dummyPassword is hashed once at construction; sign-in for an unknown
// email compares against it so both failure paths cost one bcrypt check.
const dummyPassword = "farmtrack-unknown-profile"

// AuthService implements the authentication flows.
type AuthService struct {
	tx               dbx.Transactor
	repomanager      repomanager.RepositoryManager
	hasher           cryptox.PasswordHasher
	access           *auth.Codec
	refresh          *auth.Codec
	validate         *validator.Validate
	logger           logging.Logger
	allowAdminSignUp bool
	dummyVerifier    string
}

// AuthOption customizes an AuthService.
type AuthOption func(*AuthService)

// WithAdminSignUp lets SignUp create ADMIN profiles.
func WithAdminSignUp(allow bool) AuthOption {
	return func(s *AuthService) { s.allowAdminSignUp = allow }
}

// WithLogger sets the service logger. The default discards everything.
func WithLogger(l logging.Logger) AuthOption {
	return func(s *AuthService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewAuthService wires the service. access and refresh must be codecs of
// the matching kind, and access must expire first.
func NewAuthService(tx dbx.Transactor, m repomanager.RepositoryManager, hasher cryptox.PasswordHasher,
	access, refresh *auth.Codec, opts ...AuthOption) (*AuthService, error) {

	if access == nil || access.Kind() != auth.KindAccess {
		return nil, errors.New("access codec missing or of wrong kind")
	}
	if refresh == nil || refresh.Kind() != auth.KindRefresh {
		return nil, errors.New("refresh codec missing or of wrong kind")
	}
	if access.Lifetime() >= refresh.Lifetime() {
		return nil, errors.New("access token lifetime must be shorter than refresh token lifetime")
	}

	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy verifier: %w", err)
	}

	s := &AuthService{
		tx:            tx,
		repomanager:   m,
		hasher:        hasher,
		access:        access,
		refresh:       refresh,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		logger:        logging.Nop(),
		dummyVerifier: dummy,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("module", "auth")
	return s, nil
}

// SignUp creates an active profile. Email is stored lower-cased.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*ProfileSummary, error) {
	if in.Role == models.RoleAdmin && !s.allowAdminSignUp {
		return nil, common.ErrForbidden
	}
	return s.createProfile(ctx, in)
}

// CreateAdmin creates an ADMIN profile regardless of the sign-up setting.
// It backs the bootstrap command, not the public API.
func (s *AuthService) CreateAdmin(ctx context.Context, login, email, password string) (*ProfileSummary, error) {
	return s.createProfile(ctx, SignUpInput{Login: login, Email: email, Password: password, Role: models.RoleAdmin})
}

func (s *AuthService) createProfile(ctx context.Context, in SignUpInput) (*ProfileSummary, error) {
	in.Login = strings.TrimSpace(in.Login)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: role: unknown role %q", common.ErrMalformedRequest, in.Role)
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrMalformedRequest, describeValidation(err))
	}

	repo := s.repomanager.Profiles(s.tx.Conn())

	exists, err := repo.Exists(ctx, in.Login, in.Email)
	if err != nil {
		s.logger.Error(ctx, "profile lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	if exists {
		return nil, common.ErrDuplicateSubject
	}

	verifier, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrorInternal
	}

	p, err := repo.Create(ctx, &models.Profile{
		Login:        in.Login,
		Email:        in.Email,
		PasswordHash: verifier,
		Role:         in.Role,
		Active:       true,
	})
	if err != nil {
		// A concurrent sign-up can pass the pre-check and lose at the
		// unique index.
		if errors.Is(err, common.ErrDuplicateSubject) {
			return nil, common.ErrDuplicateSubject
		}
		s.logger.Error(ctx, "profile create failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "profile created", "profile_id", p.ID, "role", p.Role)
	return summarize(p), nil
}

// SignIn checks the credentials and returns a freshly registered token pair.
// Unknown email, inactive profile and wrong password are indistinguishable.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	p, err := s.repomanager.Profiles(s.tx.Conn()).GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "profile lookup failed", "error", err)
			return nil, common.ErrorInternal
		}
		s.hasher.Matches(password, s.dummyVerifier)
		return nil, common.ErrInvalidCredentials
	}

	if !s.hasher.Matches(password, p.PasswordHash) || !p.Active {
		s.logger.Debug(ctx, "sign-in rejected", "profile_id", p.ID)
		return nil, common.ErrInvalidCredentials
	}

	var pair *TokenPair
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, p, tx)
		return genErr
	})
	if err != nil {
		s.logger.Error(ctx, "token registration failed", "profile_id", p.ID, "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "signed in", "profile_id", p.ID)
	return pair, nil
}

// Refresh exchanges a registered refresh token for a new pair. The presented
// token is deleted in the same transaction that registers the new pair, so
// it can be used once. Access tokens issued earlier stay valid until they
// expire or are revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.refresh.Verify(refreshToken)
	if err != nil {
		return nil, common.ErrUnauthenticated
	}

	rec, err := s.repomanager.Tokens(s.tx.Conn()).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnauthenticated
		}
		s.logger.Error(ctx, "token lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	if rec.Type != models.TokenRefresh || rec.ID != claims.ID {
		return nil, common.ErrUnauthenticated
	}

	p, err := s.repomanager.Profiles(s.tx.Conn()).GetByID(ctx, rec.ProfileID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnauthenticated
		}
		s.logger.Error(ctx, "profile lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	if !p.Active {
		return nil, common.ErrUnauthenticated
	}

	var pair *TokenPair
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		removed, err := s.repomanager.Tokens(tx).RevokeOne(ctx, rec.ID)
		if err != nil {
			return err
		}
		if !removed {
			// Lost a race with another refresh or a revocation.
			return common.ErrUnauthenticated
		}
		pair, err = s.generateTokenPair(ctx, p, tx)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrUnauthenticated) {
			return nil, err
		}
		s.logger.Error(ctx, "token rotation failed", "profile_id", p.ID, "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "tokens refreshed", "profile_id", p.ID)
	return pair, nil
}

// Logout revokes every token of the principal in ctx. Without a principal it
// returns false and no error.
func (s *AuthService) Logout(ctx context.Context) (bool, error) {
	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return false, nil
	}

	n, err := s.repomanager.Tokens(s.tx.Conn()).RevokeAll(ctx, principal.ProfileID())
	if err != nil {
		s.logger.Error(ctx, "revoke all failed", "profile_id", principal.ProfileID(), "error", err)
		return false, common.ErrorInternal
	}

	s.logger.Info(ctx, "logged out", "profile_id", principal.ProfileID(), "revoked", n)
	return n > 0, nil
}

// RevokeToken deletes a single token record by id and reports whether it
// existed.
func (s *AuthService) RevokeToken(ctx context.Context, tokenID string) (bool, error) {
	tokenID, err := parseID("token", tokenID)
	if err != nil {
		return false, err
	}

	ok, err := s.repomanager.Tokens(s.tx.Conn()).RevokeOne(ctx, tokenID)
	if err != nil {
		s.logger.Error(ctx, "revoke failed", "token_id", tokenID, "error", err)
		return false, common.ErrorInternal
	}
	return ok, nil
}

// DeactivateProfile marks a profile inactive and revokes all of its tokens
// in one transaction. It reports whether the profile was active before.
func (s *AuthService) DeactivateProfile(ctx context.Context, profileID string) (bool, error) {
	profileID, err := parseID("profile", profileID)
	if err != nil {
		return false, err
	}

	var changed bool
	var revoked int64
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if changed, err = s.repomanager.Profiles(tx).Deactivate(ctx, profileID); err != nil {
			return err
		}
		revoked, err = s.repomanager.Tokens(tx).RevokeAll(ctx, profileID)
		return err
	})
	if err != nil {
		s.logger.Error(ctx, "deactivate failed", "profile_id", profileID, "error", err)
		return false, common.ErrorInternal
	}

	if changed {
		s.logger.Info(ctx, "profile deactivated", "profile_id", profileID, "revoked", revoked)
	}
	return changed, nil
}

// Authenticate resolves an access token to a Principal. The store is
// consulted on every call, so revocation and profile deactivation take
// effect immediately.
// Verification and lookup failures all yield common.ErrUnauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (auth.Principal, error) {
	claims, err := s.access.Verify(accessToken)
	if err != nil {
		s.logger.Debug(ctx, "access token rejected", "reason", err.Error())
		return auth.Principal{}, common.ErrUnauthenticated
	}

	rec, err := s.repomanager.Tokens(s.tx.Conn()).Find(ctx, accessToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return auth.Principal{}, common.ErrUnauthenticated
		}
		s.logger.Error(ctx, "token lookup failed", "error", err)
		return auth.Principal{}, common.ErrorInternal
	}
	if rec.Type != models.TokenAccess || rec.ID != claims.ID {
		return auth.Principal{}, common.ErrUnauthenticated
	}

	p, err := s.repomanager.Profiles(s.tx.Conn()).GetByID(ctx, rec.ProfileID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return auth.Principal{}, common.ErrUnauthenticated
		}
		s.logger.Error(ctx, "profile lookup failed", "error", err)
		return auth.Principal{}, common.ErrorInternal
	}
	if !p.Active {
		return auth.Principal{}, common.ErrUnauthenticated
	}

	return auth.NewPrincipal(rec.ProfileID, claims.Subject, claims.ID, claims.Roles), nil
}

// Me returns the profile of the principal in ctx.
func (s *AuthService) Me(ctx context.Context) (*ProfileSummary, error) {
	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return nil, common.ErrUnauthenticated
	}

	p, err := s.repomanager.Profiles(s.tx.Conn()).GetByID(ctx, principal.ProfileID())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnauthenticated
		}
		s.logger.Error(ctx, "profile lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	return summarize(p), nil
}

// PurgeExpired deletes token rows that expired at or before now.
func (s *AuthService) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.repomanager.Tokens(s.tx.Conn()).PurgeExpired(ctx, now)
}

// --- helpers below ---

func (s *AuthService) generateTokenPair(ctx context.Context, p *models.Profile, tx dbx.DBTX) (*TokenPair, error) {
	roles := []string{string(p.Role)}

	access, err := s.access.Issue(p.Email, roles, s.access.Lifetime())
	if err != nil {
		return nil, err
	}
	refresh, err := s.refresh.Issue(p.Email, roles, s.refresh.Lifetime())
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Tokens(tx)
	if err := repo.Register(ctx, &models.Token{
		ID: access.ID, ProfileID: p.ID, Token: access.Token, Type: models.TokenAccess, ExpiresAt: access.ExpiresAt,
	}); err != nil {
		return nil, fmt.Errorf("register access token: %w", err)
	}
	if err := repo.Register(ctx, &models.Token{
		ID: refresh.ID, ProfileID: p.ID, Token: refresh.Token, Type: models.TokenRefresh, ExpiresAt: refresh.ExpiresAt,
	}); err != nil {
		return nil, fmt.Errorf("register refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access.Token, RefreshToken: refresh.Token}, nil
}

// parseID trims raw and requires a UUID, the type of every id column.
func parseID(kind, raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %s id is not a valid uuid", common.ErrMalformedRequest, kind)
	}
	return id.String(), nil
}

// describeValidation renders validator errors as "field: rule" pairs.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+": "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}
