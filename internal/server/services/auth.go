// Package services contains server-side business logic. This file implements
// AuthService, which handles registration, email verification, login,
// refresh-token rotation, logout and the password-reset flow.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/akrylov/authgate/internal/common"
	"github.com/akrylov/authgate/internal/dbx"
	"github.com/akrylov/authgate/internal/logging"
	"github.com/akrylov/authgate/internal/server/auth"
	"github.com/akrylov/authgate/internal/server/config"
	"github.com/akrylov/authgate/internal/server/mail"
	"github.com/akrylov/authgate/internal/server/models"
	"github.com/akrylov/authgate/internal/server/observability"
	"github.com/akrylov/authgate/internal/server/repositories/repomanager"
)

// opaqueTokenBytes is the entropy of store-backed token values; the hex
// encoding doubles the length.
const opaqueTokenBytes = 32

// Operation names used in logs and metrics.
const (
	opRegister      = "register"
	opVerify        = "verify"
	opLogin         = "login"
	opRefresh       = "refresh"
	opLogout        = "logout"
	opResetRequest  = "reset_request"
	opResetValidate = "reset_validate"
	opResetConfirm  = "reset_confirm"
)

// Internal token-failure reasons. They stay in logs and metrics; callers only
// ever see common.ErrInvalidToken.
const (
	reasonNotFound      = "token_not_found"
	reasonWrongKind     = "wrong_token_kind"
	reasonUsed          = "token_already_used"
	reasonExpired       = "token_expired"
	reasonUsedOrExpired = "token_used_or_expired"
)

// Profile carries the registration attributes the service stores but never
// interprets.
type Profile struct {
	FullName    string
	DateOfBirth time.Time
	City        string
	Country     string
	Pincode     string
	Gender      string
}

// RegisterResult confirms a registration. It never contains the verification
// token value or the password hash.
type RegisterResult struct {
	Message string
	Email   string
}

// VerifyResult confirms a successful email verification.
type VerifyResult struct {
	Message string
	Email   string
}

// Session bundles the credentials minted by Login and Refresh. ExpiresIn is
// the access-token validity window.
type Session struct {
	Message      string
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// LogoutResult confirms a logout.
type LogoutResult struct {
	Message string
	Email   string
}

// ResetValidation reports whether a password-reset token is redeemable.
type ResetValidation struct {
	Message string
	Valid   bool
}

// ConfirmResetResult confirms a completed password reset.
type ConfirmResetResult struct {
	Message string
}

// AuthService orchestrates the credential and token lifecycle against the two
// stores, the password hasher, the token codec and the mail dispatcher. All
// operations are synchronous and single-pass; the stores are the only shared
// mutable state.
type AuthService struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	codec     *auth.Codec
	mailer    mail.Mailer
	templates *mail.TemplateBuilder
	logger    logging.Logger
	metrics   *observability.Metrics

	refreshTokenValidity      time.Duration
	verificationTokenValidity time.Duration
	resetTokenValidity        time.Duration
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	codec *auth.Codec,
	mailer mail.Mailer,
	templates *mail.TemplateBuilder,
	logger logging.Logger,
	metrics *observability.Metrics,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		db:                        db,
		repos:                     m,
		codec:                     codec,
		mailer:                    mailer,
		templates:                 templates,
		logger:                    logger.With("module", "auth_service"),
		metrics:                   metrics,
		refreshTokenValidity:      cfg.RefreshTokenValidity,
		verificationTokenValidity: cfg.VerificationTokenValidity,
		resetTokenValidity:        cfg.ResetTokenValidity,
	}
}

// Register creates an unverified user, issues a verification token and emails
// a verification link. A failed email delivery is logged and swallowed; the
// user record stays and verification can be re-triggered later.
func (s *AuthService) Register(ctx context.Context, email, password string, profile Profile) (*RegisterResult, error) {
	s.logger.Info(ctx, "register attempt", "email", email)

	usersRepo := s.repos.Users(s.db)

	if _, err := usersRepo.GetByEmail(ctx, email); err == nil {
		return nil, s.businessFailure(ctx, opRegister, "email_already_registered", common.ErrEmailAlreadyRegistered, "email", email)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, s.internalError(ctx, opRegister, err)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, s.internalError(ctx, opRegister, err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     profile.FullName,
		DateOfBirth:  profile.DateOfBirth,
		City:         profile.City,
		Country:      profile.Country,
		Pincode:      profile.Pincode,
		Gender:       profile.Gender,
		Verified:     false,
	}

	if _, err := usersRepo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrEmailAlreadyRegistered) {
			// lost a race against a concurrent registration
			return nil, s.businessFailure(ctx, opRegister, "email_already_registered", common.ErrEmailAlreadyRegistered, "email", email)
		}
		return nil, s.internalError(ctx, opRegister, err)
	}

	tokenValue, err := s.issueOpaqueToken(ctx, s.db, user.ID, models.TokenKindVerification, s.verificationTokenValidity)
	if err != nil {
		return nil, s.internalError(ctx, opRegister, err)
	}

	s.sendVerificationEmail(ctx, user, tokenValue)

	s.logger.Info(ctx, "register success", "user_id", user.ID, "email", user.Email)
	s.metrics.RecordOperation(opRegister, observability.OutcomeSuccess, "")
	return &RegisterResult{
		Message: "User registered successfully. Please verify email.",
		Email:   user.Email,
	}, nil
}

// Verify redeems a verification token: the owning user becomes verified and
// the token is consumed, both inside one transaction.
func (s *AuthService) Verify(ctx context.Context, tokenValue string) (*VerifyResult, error) {
	s.logger.Info(ctx, "verify attempt")

	token, err := s.repos.Tokens(s.db).FindByValue(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.invalidToken(ctx, opVerify, reasonNotFound)
		}
		return nil, s.internalError(ctx, opVerify, err)
	}

	if token.Kind != models.TokenKindVerification {
		return nil, s.invalidToken(ctx, opVerify, reasonWrongKind)
	}
	if token.Used {
		return nil, s.invalidToken(ctx, opVerify, reasonUsed)
	}
	if token.Expired(time.Now()) {
		return nil, s.invalidToken(ctx, opVerify, reasonExpired)
	}

	user, err := s.repos.Users(s.db).GetByID(ctx, token.UserID)
	if err != nil {
		return nil, s.internalError(ctx, opVerify, err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.consume(ctx, tx, token.Value); err != nil {
			return err
		}
		return s.repos.Users(tx).SetVerified(ctx, token.UserID)
	})
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			return nil, s.invalidToken(ctx, opVerify, reasonUsed)
		}
		return nil, s.internalError(ctx, opVerify, err)
	}

	s.logger.Info(ctx, "verify success", "user_id", user.ID, "email", user.Email)
	s.metrics.RecordOperation(opVerify, observability.OutcomeSuccess, "")
	return &VerifyResult{Message: "User verified successfully", Email: user.Email}, nil
}

// Login validates credentials and mints a session. Unknown email and wrong
// password both surface as ErrInvalidCredentials so callers cannot enumerate
// accounts; an unverified account is rejected before the password comparison.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	s.logger.Info(ctx, "login attempt", "email", email)

	user, err := s.repos.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.businessFailure(ctx, opLogin, "email_not_found", common.ErrInvalidCredentials, "email", email)
		}
		return nil, s.internalError(ctx, opLogin, err)
	}

	if !user.Verified {
		return nil, s.businessFailure(ctx, opLogin, "email_not_verified", common.ErrAccountNotVerified, "email", email)
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, s.businessFailure(ctx, opLogin, "invalid_password", common.ErrInvalidCredentials, "email", email)
	}

	session, err := s.issueSession(ctx, s.db, user, "Login successful")
	if err != nil {
		return nil, s.internalError(ctx, opLogin, err)
	}

	s.logger.Info(ctx, "login success", "user_id", user.ID, "email", user.Email)
	s.metrics.RecordOperation(opLogin, observability.OutcomeSuccess, "")
	return session, nil
}

// Refresh rotates a refresh token: the presented token is consumed and a new
// access/refresh pair is minted. Consumption and the new token's creation are
// one transaction, so a store failure leaves the old token valid. The
// conditional consume guarantees at-most-once redemption under concurrency.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	s.logger.Info(ctx, "refresh attempt")

	token, err := s.repos.Tokens(s.db).FindByValueAndKind(ctx, refreshToken, models.TokenKindRefresh)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.invalidToken(ctx, opRefresh, reasonNotFound)
		}
		return nil, s.internalError(ctx, opRefresh, err)
	}

	if token.Used || token.Expired(time.Now()) {
		return nil, s.invalidToken(ctx, opRefresh, reasonUsedOrExpired)
	}

	user, err := s.repos.Users(s.db).GetByID(ctx, token.UserID)
	if err != nil {
		return nil, s.internalError(ctx, opRefresh, err)
	}

	var session *Session
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.consume(ctx, tx, token.Value); err != nil {
			return err
		}
		var issueErr error
		session, issueErr = s.issueSession(ctx, tx, user, "Token refreshed successfully")
		return issueErr
	})
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			return nil, s.invalidToken(ctx, opRefresh, reasonUsedOrExpired)
		}
		return nil, s.internalError(ctx, opRefresh, err)
	}

	s.logger.Info(ctx, "refresh success", "user_id", user.ID, "email", user.Email)
	s.metrics.RecordOperation(opRefresh, observability.OutcomeSuccess, "")
	return session, nil
}

// Logout consumes a refresh token without minting replacements. An expired
// but unused token is still accepted so stale sessions can be cleaned up;
// only the used flag gates logout.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) (*LogoutResult, error) {
	s.logger.Info(ctx, "logout attempt")

	token, err := s.repos.Tokens(s.db).FindByValueAndKind(ctx, refreshToken, models.TokenKindRefresh)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.invalidToken(ctx, opLogout, reasonNotFound)
		}
		return nil, s.internalError(ctx, opLogout, err)
	}

	if token.Used {
		return nil, s.invalidToken(ctx, opLogout, reasonUsed)
	}

	user, err := s.repos.Users(s.db).GetByID(ctx, token.UserID)
	if err != nil {
		return nil, s.internalError(ctx, opLogout, err)
	}

	if err := s.consume(ctx, s.db, token.Value); err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			return nil, s.invalidToken(ctx, opLogout, reasonUsed)
		}
		return nil, s.internalError(ctx, opLogout, err)
	}

	s.logger.Info(ctx, "logout success", "user_id", user.ID, "email", user.Email)
	s.metrics.RecordOperation(opLogout, observability.OutcomeSuccess, "")
	return &LogoutResult{Message: "User logged out successfully!", Email: user.Email}, nil
}

// RequestPasswordReset issues a single-use reset token and emails a reset
// link. It always reports success to the caller, even for unknown addresses,
// to prevent email enumeration.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	s.logger.Info(ctx, "reset request", "email", email)

	user, err := s.repos.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "reset request for unknown email", "email", email)
			s.metrics.RecordOperation(opResetRequest, observability.OutcomeFailure, "email_not_found")
			return nil
		}
		return s.internalError(ctx, opResetRequest, err)
	}

	tokenValue, err := s.issueOpaqueToken(ctx, s.db, user.ID, models.TokenKindResetPassword, s.resetTokenValidity)
	if err != nil {
		return s.internalError(ctx, opResetRequest, err)
	}

	s.sendPasswordResetEmail(ctx, user, tokenValue)

	s.metrics.RecordOperation(opResetRequest, observability.OutcomeSuccess, "")
	return nil
}

// ValidateResetToken checks a reset token's kind, used flag and expiry
// without consuming it, so a reset form can be shown before the password is
// submitted.
func (s *AuthService) ValidateResetToken(ctx context.Context, tokenValue string) (*ResetValidation, error) {
	token, err := s.repos.Tokens(s.db).FindByValueAndKind(ctx, tokenValue, models.TokenKindResetPassword)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.invalidToken(ctx, opResetValidate, reasonNotFound)
		}
		return nil, s.internalError(ctx, opResetValidate, err)
	}

	if token.Used {
		return nil, s.invalidToken(ctx, opResetValidate, reasonUsed)
	}
	if token.Expired(time.Now()) {
		return nil, s.invalidToken(ctx, opResetValidate, reasonExpired)
	}

	s.metrics.RecordOperation(opResetValidate, observability.OutcomeSuccess, "")
	return &ResetValidation{Message: "Token is valid", Valid: true}, nil
}

// ConfirmPasswordReset consumes a reset token and overwrites the password
// hash in one transaction.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenValue, newPassword string) (*ConfirmResetResult, error) {
	token, err := s.repos.Tokens(s.db).FindByValueAndKind(ctx, tokenValue, models.TokenKindResetPassword)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.invalidToken(ctx, opResetConfirm, reasonNotFound)
		}
		return nil, s.internalError(ctx, opResetConfirm, err)
	}

	if token.Used {
		return nil, s.invalidToken(ctx, opResetConfirm, reasonUsed)
	}
	if token.Expired(time.Now()) {
		return nil, s.invalidToken(ctx, opResetConfirm, reasonExpired)
	}

	passwordHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return nil, s.internalError(ctx, opResetConfirm, err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.consume(ctx, tx, token.Value); err != nil {
			return err
		}
		return s.repos.Users(tx).UpdatePassword(ctx, token.UserID, passwordHash)
	})
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			return nil, s.invalidToken(ctx, opResetConfirm, reasonUsed)
		}
		return nil, s.internalError(ctx, opResetConfirm, err)
	}

	s.logger.Info(ctx, "reset confirm success", "user_id", token.UserID)
	s.metrics.RecordOperation(opResetConfirm, observability.OutcomeSuccess, "")
	return &ConfirmResetResult{Message: "Password reset successful"}, nil
}

// --- helpers below ---

// issueSession mints an access token and a fresh refresh token for the user.
// The refresh token is persisted through db, which may be a transaction.
func (s *AuthService) issueSession(ctx context.Context, db dbx.DBTX, user *models.User, message string) (*Session, error) {
	accessToken, err := s.codec.Generate(user.ID, user.Email, user.FullName)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.issueOpaqueToken(ctx, db, user.ID, models.TokenKindRefresh, s.refreshTokenValidity)
	if err != nil {
		return nil, err
	}

	return &Session{
		Message:      message,
		Email:        user.Email,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.codec.Validity(),
	}, nil
}

// issueOpaqueToken creates and persists a new unused token of the given kind
// and returns its value.
func (s *AuthService) issueOpaqueToken(ctx context.Context, db dbx.DBTX, userID string, kind models.TokenKind, validity time.Duration) (string, error) {
	value, err := common.MakeRandHexString(opaqueTokenBytes)
	if err != nil {
		return "", err
	}

	token := &models.Token{
		UserID:    userID,
		Value:     value,
		Kind:      kind,
		Used:      false,
		ExpiresAt: time.Now().Add(validity),
	}
	if err := s.repos.Tokens(db).Create(ctx, token); err != nil {
		return "", err
	}
	return value, nil
}

// consume marks a token used via the store's conditional update. A zero-row
// update means the token vanished or lost a concurrent redemption race; both
// map to ErrInvalidToken.
func (s *AuthService) consume(ctx context.Context, db dbx.DBTX, value string) error {
	if err := s.repos.Tokens(db).Consume(ctx, value); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidToken
		}
		return err
	}
	return nil
}

func (s *AuthService) sendVerificationEmail(ctx context.Context, user *models.User, tokenValue string) {
	name := user.FullName
	if name == "" {
		name = "User"
	}

	htmlBody, err := s.templates.VerificationEmail(name, tokenValue)
	if err == nil {
		err = s.mailer.Send(ctx, user.Email, "Verify your account", htmlBody)
	}
	if err != nil {
		s.logger.Error(ctx, "verification email failed", "email", user.Email, "error", err)
		s.metrics.RecordEmailDelivery("verification", observability.OutcomeError)
		return
	}

	s.logger.Info(ctx, "verification email sent", "email", user.Email)
	s.metrics.RecordEmailDelivery("verification", observability.OutcomeSuccess)
}

func (s *AuthService) sendPasswordResetEmail(ctx context.Context, user *models.User, tokenValue string) {
	name := user.FullName
	if name == "" {
		name = "User"
	}

	htmlBody, err := s.templates.PasswordResetEmail(name, tokenValue)
	if err == nil {
		err = s.mailer.Send(ctx, user.Email, "Reset your password", htmlBody)
	}
	if err != nil {
		s.logger.Error(ctx, "password reset email failed", "email", user.Email, "error", err)
		s.metrics.RecordEmailDelivery("reset_password", observability.OutcomeError)
		return
	}

	s.logger.Info(ctx, "password reset email sent", "email", user.Email)
	s.metrics.RecordEmailDelivery("reset_password", observability.OutcomeSuccess)
}

// businessFailure logs a rejected operation and returns its typed error.
func (s *AuthService) businessFailure(ctx context.Context, operation, reason string, err error, args ...any) error {
	s.logger.Warn(ctx, operation+" failed", append([]any{"reason", reason}, args...)...)
	s.metrics.RecordOperation(operation, observability.OutcomeFailure, reason)
	return err
}

// invalidToken collapses the detailed token-failure reason to the single
// externally visible ErrInvalidToken, keeping the reason in logs and metrics.
func (s *AuthService) invalidToken(ctx context.Context, operation, reason string) error {
	return s.businessFailure(ctx, operation, reason, common.ErrInvalidToken)
}

// internalError hides infrastructure failures behind ErrorInternal so the
// transport layer can map them to a 5xx without leaking details.
func (s *AuthService) internalError(ctx context.Context, operation string, err error) error {
	s.logger.Error(ctx, operation+" failed", "error", err)
	s.metrics.RecordOperation(operation, observability.OutcomeError, "internal")
	return common.ErrorInternal
}
