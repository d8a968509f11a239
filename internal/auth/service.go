package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/sweetshop/sweetshop-api/internal/mailer"
)

// ResetTTL is the validity window for password reset tickets.
const ResetTTL = time.Hour

// AuthResult carries a freshly minted session token and the identity it
// belongs to.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// RegisterResult is the outcome of a registration. Admin registrations are
// pending until the OTP is verified and carry no token.
type RegisterResult struct {
	PendingVerification bool
	Token               string
	User                *User
}

// Service implements the authentication lifecycle: registration, OTP
// gating, login, external identity login, and password reset.
type Service struct {
	repo         RepositoryManager
	tokens       TokenService
	mail         mailer.Mailer
	verifier     AssertionVerifier
	logger       Logger
	resetBaseURL string
}

// NewService returns a new auth Service
func NewService(repo RepositoryManager, tokens TokenService, mail mailer.Mailer, verifier AssertionVerifier) *Service {
	return &Service{
		repo:     repo,
		tokens:   tokens,
		mail:     mail,
		verifier: verifier,
		logger:   defLogger{},
	}
}

func (s *Service) WithLogger(logger Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithResetBaseURL sets the client route reset links point at.
func (s *Service) WithResetBaseURL(base string) *Service {
	s.resetBaseURL = base
	return s
}

// Register creates an identity. Customers are created immediately and get
// a session token. Admin registrations persist in a pending state and the
// OTP goes to the fixed approver address.
func (s *Service) Register(ctx context.Context, email, password, role string) (*RegisterResult, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	// Anything that is not an explicit admin request registers as customer.
	if role != RoleAdmin {
		role = RoleCustomer
	}

	user := &User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}

	if role == RoleCustomer {
		if user, err = s.repo.Users().Create(ctx, user); err != nil {
			return nil, err
		}

		token, err := s.tokens.Generate(NewIdentityFromUser(user))
		if err != nil {
			return nil, err
		}

		return &RegisterResult{Token: token, User: user}, nil
	}

	otp, err := GenerateOTP()
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(OTPTTL)
	user.OTPCode = otp
	user.OTPExpiresAt = &expiresAt

	if user, err = s.repo.Users().Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.mail.SendOTP(ctx, user.Email, otp); err != nil {
		s.logger.Error("OTP dispatch for %s failed, rolling back pending admin: %v", user.Email, err)

		// A pending record without a deliverable OTP would permanently
		// block the email, remove it so the caller can retry.
		if delErr := s.repo.Users().Delete(ctx, user.ID); delErr != nil {
			s.logger.Error("failed to roll back pending admin registration: %v", delErr)
		}

		return nil, errors.Wrap(err, ErrMailDelivery.Category, ErrMailDelivery.Message).
			WithCode(ErrMailDelivery.Code).
			WithTextCode(ErrMailDelivery.TextCode)
	}

	return &RegisterResult{PendingVerification: true, User: user}, nil
}

// VerifyOTP finishes a pending admin registration. The consume is a single
// atomic check-and-clear, a code verifies successfully exactly once.
func (s *Service) VerifyOTP(ctx context.Context, email, otp string) (*AuthResult, error) {
	user, err := s.repo.Users().ConsumeOTP(ctx, email, otp)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(NewIdentityFromUser(user))
	if err != nil {
		return nil, err
	}

	return &AuthResult{Token: token, User: user}, nil
}

// Login verifies a password credential. Every failure mode returns the
// same undifferentiated error.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(NewIdentityFromUser(user))
	if err != nil {
		return nil, err
	}

	return &AuthResult{Token: token, User: user}, nil
}

// LoginWithAssertion verifies an external identity assertion and logs the
// matching local identity in, creating a customer account on first login.
func (s *Service) LoginWithAssertion(ctx context.Context, credential string) (*AuthResult, error) {
	external, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Users().GetByEmail(ctx, external.Email)
	if err != nil {
		if !errors.IsNotFound(err) {
			return nil, err
		}

		user, err = s.repo.Users().Create(ctx, &User{
			Email:    external.Email,
			GoogleID: external.Subject,
			Role:     RoleCustomer,
		})
		if err != nil {
			return nil, err
		}
	}

	token, err := s.tokens.Generate(NewIdentityFromUser(user))
	if err != nil {
		return nil, err
	}

	return &AuthResult{Token: token, User: user}, nil
}

// ForgotPassword creates a reset ticket and mails a reset link. It
// succeeds uniformly whether or not the email exists so the endpoint can
// not be used to enumerate accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return err
	}

	expiresAt := time.Now().Add(ResetTTL)
	reset, err := s.repo.PasswordResets().Create(ctx, &PasswordReset{
		UserID:    user.ID,
		Email:     user.Email,
		Status:    ResetRequestedStatus,
		ExpiresAt: &expiresAt,
	})
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/%s", s.resetBaseURL, reset.ID)
	if err := s.mail.SendPasswordReset(ctx, user.Email, link); err != nil {
		// Surfacing the failure would reveal that the account exists.
		s.logger.Error("reset link dispatch failed: %v", err)
	}

	return nil
}

// ResetPassword consumes a ticket and replaces the credential hash. A
// confirmation mismatch fails before the ticket is touched, the same link
// stays usable for a corrected attempt.
func (s *Service) ResetPassword(ctx context.Context, ticket, password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}

	id, err := uuid.Parse(ticket)
	if err != nil {
		return ErrInvalidResetToken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		reset, err := s.repo.PasswordResets().ConsumeTx(ctx, tx, id)
		if err != nil {
			return err
		}

		return s.repo.Users().ResetPasswordTx(ctx, tx, reset.UserID, hash)
	})

	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return richErr
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to finalize password reset")
	}

	return nil
}
