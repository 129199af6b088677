package services

import (
	"errors"

	"github.com/distrifarma/rutero-backend/internal/database"
	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Authentication errors
var (
	// ErrInvalidCredentials covers unknown accounts and wrong passwords
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountLocked indicates the account was deactivated by the failed-login
	// policy (or by an administrator) and rejects even correct credentials
	ErrAccountLocked = errors.New("account is inactive; contact an administrator")
)

// AuthService implements the login flow with the progressive lockout policy:
// each failure bumps the counter, the configured limit deactivates the
// account, and only an administrator reset reactivates it.
type AuthService struct {
	userRepo   *database.UserRepository
	auditRepo  *database.LoginAuditRepository
	logger     *logrus.Logger
	maxFailed  int
	bcryptCost int
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo *database.UserRepository,
	auditRepo *database.LoginAuditRepository,
	logger *logrus.Logger,
	maxFailed int,
	bcryptCost int,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		auditRepo:  auditRepo,
		logger:     logger,
		maxFailed:  maxFailed,
		bcryptCost: bcryptCost,
	}
}

// LoginContext carries request metadata for the audit trail
type LoginContext struct {
	IP      string
	Browser string
	OS      string
}

// Login authenticates an email/password pair. The lockout check runs before
// password verification, so a locked account rejects correct credentials too.
func (s *AuthService) Login(email, password string, ctx LoginContext) (*models.User, error) {
	user, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.audit(email, nil, false, ctx)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive() {
		s.audit(email, user, false, ctx)
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		attempts, incErr := s.userRepo.IncrementFailedAttempts(user.ID, s.maxFailed)
		if incErr != nil {
			s.logger.WithError(incErr).WithField("email", email).Error("Failed to record login failure")
		} else if attempts >= s.maxFailed {
			s.logger.WithFields(logrus.Fields{
				"email":    email,
				"attempts": attempts,
			}).Warn("Account locked by failed-login policy")
		}
		s.audit(email, user, false, ctx)
		return nil, ErrInvalidCredentials
	}

	if err := s.userRepo.ResetFailedAttempts(user.ID); err != nil {
		s.logger.WithError(err).WithField("email", email).Warn("Failed to reset login counter")
	}
	if err := s.userRepo.UpdateLastLogin(user.ID); err != nil {
		s.logger.WithError(err).WithField("email", email).Warn("Failed to stamp last login")
	}

	s.audit(email, user, true, ctx)
	return user, nil
}

// RecordFailedAttempt bumps the counter for an email without a password check
// (thin endpoint kept for the legacy client). Unknown accounts are a no-op.
func (s *AuthService) RecordFailedAttempt(email string, ctx LoginContext) error {
	user, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	if _, err := s.userRepo.IncrementFailedAttempts(user.ID, s.maxFailed); err != nil {
		return err
	}

	s.audit(email, user, false, ctx)
	return nil
}

// HashPassword hashes a password at the configured cost
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *AuthService) audit(email string, user *models.User, success bool, ctx LoginContext) {
	audit := &models.LoginAudit{
		Email:   email,
		Success: success,
	}
	if user != nil {
		audit.UserID.UUID = user.ID
		audit.UserID.Valid = true
	}
	if ctx.IP != "" {
		audit.IPAddress.String = ctx.IP
		audit.IPAddress.Valid = true
	}
	if ctx.Browser != "" {
		audit.Browser.String = ctx.Browser
		audit.Browser.Valid = true
	}
	if ctx.OS != "" {
		audit.OS.String = ctx.OS
		audit.OS.Valid = true
	}

	if err := s.auditRepo.RecordAttempt(audit); err != nil {
		s.logger.WithError(err).WithField("email", email).Warn("Failed to record login audit")
	}
}
