package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/bastionauth/bastion/internal/auth"
	"github.com/bastionauth/bastion/internal/models"
	"github.com/bastionauth/bastion/internal/throttle"
	pkgauth "github.com/bastionauth/bastion/pkg/auth"
	pkglogger "github.com/bastionauth/bastion/pkg/logger"
)

// AccountRepository is the durable account store consumed by the login flow.
// RecordFailure and ResetCounters must mutate the ledger atomically at the
// store boundary.
type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	RecordFailure(ctx context.Context, id string, threshold int, suspension time.Duration) (*models.Account, error)
	ResetCounters(ctx context.Context, id string) error
}

// CredentialVerifier compares a supplied credential against an opaque stored
// hash. Returns pkgauth.ErrCredentialMismatch on a clean mismatch; any other
// error is a verifier fault.
type CredentialVerifier interface {
	Verify(hashedPassword, password string) error
}

// TokenIssuer produces a signed, time-bounded token for an authenticated
// account.
type TokenIssuer interface {
	Issue(accountID, email, role string) (string, error)
}

// LoginConfig holds the brute-force thresholds.
type LoginConfig struct {
	MaxFailedAttempts  int           // per-account failures before suspension
	SuspensionDuration time.Duration // account lockout length
	MaxAddressFailures int           // per-address failures before blocking
}

// Response messages. The unknown-account and wrong-password messages share
// identical base wording so a blocked probe cannot learn whether the account
// exists.
const (
	msgFieldsRequired = "Email, password, and IP are required."

	msgAddressBlocked = "IP temporarily blocked due to excessive failed login attempts. Please try again after 15 minutes."

	msgInvalidCredential = "Invalid email or password. Please check your credentials."
	msgSuspensionNotice  = " Your account has been temporarily suspended for 15 minutes due to multiple failed attempts."
	msgRemainingFmt      = " You have %d attempt(s) remaining before account suspension."

	msgSuspendedFmt = "Account temporarily suspended due to multiple failed login attempts. Please try again in %d minutes."

	msgWelcomeBack   = "Login successful! Welcome back."
	msgSecurityReset = "Login successful! Your account security status has been reset."
)

// LoginService arbitrates login requests: it sequences the address gate,
// account lookup, suspension check, credential verification and counter
// mutation, and decides accept or reject.
type LoginService struct {
	accounts AccountRepository
	throttle throttle.Store
	verifier CredentialVerifier
	issuer   TokenIssuer
	delay    *auth.TimingDelay
	config   LoginConfig
	logger   *slog.Logger
	audit    *pkglogger.AuditLogger
	now      func() time.Time
}

func NewLoginService(
	accounts AccountRepository,
	throttleStore throttle.Store,
	verifier CredentialVerifier,
	issuer TokenIssuer,
	delay *auth.TimingDelay,
	config LoginConfig,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
) *LoginService {
	return &LoginService{
		accounts: accounts,
		throttle: throttleStore,
		verifier: verifier,
		issuer:   issuer,
		delay:    delay,
		config:   config,
		logger:   logger,
		audit:    audit,
		now:      time.Now,
	}
}

// Login evaluates one login request and returns its deterministic outcome.
// Only store or verifier faults are returned as errors; the caller maps
// those to an internal-error response.
//
// Check order is load-bearing: the address gate runs before any account
// lookup so blocked addresses cost no database work and learn nothing about
// account existence, and suspension is evaluated strictly before credential
// verification so a suspended account rejects even the correct password
// without consuming further state.
func (s *LoginService) Login(ctx context.Context, email, password, address string) (*models.LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	address = strings.TrimSpace(address)

	if email == "" || password == "" || address == "" {
		return &models.LoginResult{
			Outcome: models.LoginInvalidInput,
			Message: msgFieldsRequired,
		}, nil
	}

	count, err := s.throttle.Count(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("address throttle read: %w", err)
	}
	if count >= s.config.MaxAddressFailures {
		s.logger.Warn("login blocked: address over threshold",
			slog.String("address", address),
			slog.Int("failures", count))
		s.audit.LogLoginAttempt(pkglogger.AuditEvent{
			EventType:     "login_blocked",
			Address:       address,
			FailureReason: "address_over_threshold",
		})
		s.delay.Wait(false)
		return &models.LoginResult{
			Outcome: models.LoginAddressBlocked,
			Message: msgAddressBlocked,
		}, nil
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return s.rejectUnknownAccount(ctx, email, address)
		}
		return nil, fmt.Errorf("account lookup: %w", err)
	}

	if now := s.now(); account.Suspended(now) {
		return s.rejectSuspended(account, address, now), nil
	}

	verr := s.verifier.Verify(account.PasswordHash, password)
	if verr != nil {
		if !errors.Is(verr, pkgauth.ErrCredentialMismatch) {
			return nil, fmt.Errorf("credential verification: %w", verr)
		}
		return s.rejectMismatch(ctx, account, address)
	}

	return s.acceptLogin(ctx, account, address)
}

// rejectUnknownAccount handles a lookup miss. The failure still counts
// toward the address threshold even though no account was touched, and the
// message is byte-identical to the wrong-password base wording.
func (s *LoginService) rejectUnknownAccount(ctx context.Context, email, address string) (*models.LoginResult, error) {
	if _, err := s.throttle.Increment(ctx, address); err != nil {
		return nil, fmt.Errorf("address throttle increment: %w", err)
	}

	s.logger.Info("login failed: unknown account",
		slog.String("email", pkglogger.SanitizedEmail(email)))
	s.audit.LogLoginAttempt(pkglogger.AuditEvent{
		EventType:     "login_failure",
		Address:       address,
		FailureReason: "unknown_account",
	})
	s.delay.Wait(false)

	return &models.LoginResult{
		Outcome: models.LoginInvalidCredential,
		Message: msgInvalidCredential,
	}, nil
}

// rejectSuspended short-circuits a suspended account without incrementing
// the address throttle or the failure counter.
func (s *LoginService) rejectSuspended(account *models.Account, address string, now time.Time) *models.LoginResult {
	minutes := int(math.Ceil(account.SuspendedUntil.Sub(now).Minutes()))

	s.logger.Warn("login rejected: account suspended",
		slog.String("user_id", account.ID),
		slog.Int("minutes_remaining", minutes))
	s.audit.LogLoginAttempt(pkglogger.AuditEvent{
		EventType:     "login_failure",
		AccountID:     account.ID,
		Address:       address,
		FailureReason: "account_suspended",
	})
	s.delay.Wait(false)

	return &models.LoginResult{
		Outcome:           models.LoginAccountSuspended,
		Message:           fmt.Sprintf(msgSuspendedFmt, minutes),
		RetryAfterMinutes: minutes,
	}
}

func (s *LoginService) rejectMismatch(ctx context.Context, account *models.Account, address string) (*models.LoginResult, error) {
	updated, err := s.accounts.RecordFailure(ctx, account.ID, s.config.MaxFailedAttempts, s.config.SuspensionDuration)
	if err != nil {
		return nil, fmt.Errorf("record failure: %w", err)
	}

	if _, err := s.throttle.Increment(ctx, address); err != nil {
		return nil, fmt.Errorf("address throttle increment: %w", err)
	}

	suspendedNow := updated.FailedAttempts >= s.config.MaxFailedAttempts

	message := msgInvalidCredential
	if suspendedNow {
		message += msgSuspensionNotice
		s.logger.Warn("account suspended after repeated failures",
			slog.String("user_id", updated.ID),
			slog.Int("failed_attempts", updated.FailedAttempts))
		if updated.SuspendedUntil != nil {
			s.audit.LogSuspension(updated.ID, address, *updated.SuspendedUntil)
		}
	} else if remaining := s.config.MaxFailedAttempts - updated.FailedAttempts; remaining > 0 {
		message += fmt.Sprintf(msgRemainingFmt, remaining)
	}

	s.logger.Info("login failed: invalid credential",
		slog.String("user_id", updated.ID),
		slog.Int("failed_attempts", updated.FailedAttempts))
	s.audit.LogLoginAttempt(pkglogger.AuditEvent{
		EventType:     "login_failure",
		AccountID:     updated.ID,
		Address:       address,
		FailureReason: "credential_mismatch",
	})
	s.delay.Wait(false)

	return &models.LoginResult{
		Outcome: models.LoginInvalidCredential,
		Message: message,
	}, nil
}

func (s *LoginService) acceptLogin(ctx context.Context, account *models.Account, address string) (*models.LoginResult, error) {
	hadFailures := account.FailedAttempts > 0

	if err := s.accounts.ResetCounters(ctx, account.ID); err != nil {
		return nil, fmt.Errorf("reset counters: %w", err)
	}

	// Early reset for the address as well, instead of waiting for the TTL.
	if err := s.throttle.Clear(ctx, address); err != nil {
		return nil, fmt.Errorf("address throttle clear: %w", err)
	}

	profile := account.Profile()

	token, err := s.issuer.Issue(account.ID, account.Email, profile.Role)
	if err != nil {
		return nil, fmt.Errorf("token issuance: %w", err)
	}

	message := msgWelcomeBack
	if hadFailures {
		message = msgSecurityReset
	}

	s.logger.Info("login success", slog.String("user_id", account.ID))
	s.audit.LogLoginAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		AccountID: account.ID,
		Address:   address,
		Success:   true,
	})
	s.delay.Wait(true)

	return &models.LoginResult{
		Outcome: models.LoginSuccess,
		Message: message,
		Token:   token,
		Account: profile,
	}, nil
}
