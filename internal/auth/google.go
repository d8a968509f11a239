package auth

import (
	"context"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

const googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

// Google issues tokens under either form of the issuer.
var googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// ExternalIdentity is the result of a verified identity assertion.
type ExternalIdentity struct {
	Subject string
	Email   string
}

// AssertionVerifier validates a third-party identity assertion.
type AssertionVerifier interface {
	Verify(ctx context.Context, credential string) (*ExternalIdentity, error)
}

// GoogleClaims are the ID token claims we care about.
type GoogleClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
}

// GoogleVerifier validates Google-issued ID tokens against Google's JWKS.
type GoogleVerifier struct {
	clientID string
	keyFunc  jwt.Keyfunc
	logger   Logger
}

var _ AssertionVerifier = (*GoogleVerifier)(nil)

// NewGoogleVerifier creates a verifier backed by Google's published JWK
// set, refreshed in the background.
func NewGoogleVerifier(clientID string, logger Logger) (*GoogleVerifier, error) {
	if logger == nil {
		logger = defLogger{}
	}

	jwks, err := keyfunc.Get(googleJWKSURL, keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			logger.Warn("failed to refresh Google JWK set: %v", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not fetch Google JWK set")
	}

	return &GoogleVerifier{
		clientID: clientID,
		keyFunc:  jwks.Keyfunc,
		logger:   logger,
	}, nil
}

// NewGoogleVerifierWithKeyfunc creates a verifier with a custom key
// resolver, used by tests and non-JWKS deployments.
func NewGoogleVerifierWithKeyfunc(clientID string, keyFunc jwt.Keyfunc, logger Logger) *GoogleVerifier {
	if logger == nil {
		logger = defLogger{}
	}
	return &GoogleVerifier{
		clientID: clientID,
		keyFunc:  keyFunc,
		logger:   logger,
	}
}

// Verify implements AssertionVerifier. The assertion must be signed by
// Google, addressed to our client id, and carry an email claim.
func (v *GoogleVerifier) Verify(ctx context.Context, credential string) (*ExternalIdentity, error) {
	claims := &GoogleClaims{}

	token, err := jwt.ParseWithClaims(credential, claims, v.keyFunc,
		jwt.WithAudience(v.clientID),
		jwt.WithValidMethods([]string{"RS256"}),
	)
	if err != nil {
		v.logger.Debug("Google assertion rejected: %v", err)
		return nil, ErrInvalidAssertion
	}

	if !token.Valid {
		return nil, ErrInvalidAssertion
	}

	if !v.issuerAllowed(claims.Issuer) {
		v.logger.Debug("Google assertion has unexpected issuer: %s", claims.Issuer)
		return nil, ErrInvalidAssertion
	}

	if claims.Email == "" {
		return nil, ErrInvalidAssertion
	}

	return &ExternalIdentity{
		Subject: claims.RegisteredClaims.Subject,
		Email:   claims.Email,
	}, nil
}

func (v *GoogleVerifier) issuerAllowed(issuer string) bool {
	for _, iss := range googleIssuers {
		if issuer == iss {
			return true
		}
	}
	return false
}
