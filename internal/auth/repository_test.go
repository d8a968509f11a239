package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetshop/sweetshop-api/internal/auth"
)

func TestUsersRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := auth.NewUsersRepository(db)

	t.Run("create and get by email", func(t *testing.T) {
		created, err := repo.Create(ctx, &auth.User{
			Email:        "Alice@Example.com",
			PasswordHash: "hash",
			Role:         auth.RoleCustomer,
		})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)

		// Lookups are case insensitive.
		found, err := repo.GetByEmail(ctx, "ALICE@example.COM")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, "alice@example.com", found.Email)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		_, err := repo.Create(ctx, &auth.User{
			Email:        "alice@example.com",
			PasswordHash: "hash",
			Role:         auth.RoleCustomer,
		})
		assert.Equal(t, auth.ErrUserExists, err)
	})

	t.Run("unknown email is not found", func(t *testing.T) {
		_, err := repo.GetByEmail(ctx, "nobody@example.com")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestUsersRepository_ConsumeOTP(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := auth.NewUsersRepository(db)

	pending := func(t *testing.T, email, code string, expiresAt time.Time) {
		t.Helper()
		_, err := repo.Create(ctx, &auth.User{
			Email:        email,
			PasswordHash: "hash",
			Role:         auth.RoleAdmin,
			OTPCode:      code,
			OTPExpiresAt: &expiresAt,
		})
		require.NoError(t, err)
	}

	t.Run("valid code verifies exactly once", func(t *testing.T) {
		pending(t, "admin@example.com", "123456", time.Now().Add(10*time.Minute))

		user, err := repo.ConsumeOTP(ctx, "admin@example.com", "123456")
		require.NoError(t, err)
		assert.Empty(t, user.OTPCode)
		assert.Nil(t, user.OTPExpiresAt)

		// A second attempt with the same code fails.
		_, err = repo.ConsumeOTP(ctx, "admin@example.com", "123456")
		assert.Equal(t, auth.ErrInvalidOrExpiredOTP, err)
	})

	t.Run("wrong code fails and leaves the OTP pending", func(t *testing.T) {
		pending(t, "admin2@example.com", "222222", time.Now().Add(10*time.Minute))

		_, err := repo.ConsumeOTP(ctx, "admin2@example.com", "999999")
		assert.Equal(t, auth.ErrInvalidOrExpiredOTP, err)

		_, err = repo.ConsumeOTP(ctx, "admin2@example.com", "222222")
		assert.NoError(t, err)
	})

	t.Run("expired code fails", func(t *testing.T) {
		pending(t, "admin3@example.com", "333333", time.Now().Add(-time.Minute))

		_, err := repo.ConsumeOTP(ctx, "admin3@example.com", "333333")
		assert.Equal(t, auth.ErrInvalidOrExpiredOTP, err)
	})

	t.Run("unknown email fails", func(t *testing.T) {
		_, err := repo.ConsumeOTP(ctx, "ghost@example.com", "123456")
		assert.Equal(t, auth.ErrInvalidOrExpiredOTP, err)
	})
}

func TestPasswordResetsRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := auth.NewUsersRepository(db)
	resets := auth.NewPasswordResetsRepository(db)

	user, err := users.Create(ctx, &auth.User{
		Email:        "reset@example.com",
		PasswordHash: "hash",
		Role:         auth.RoleCustomer,
	})
	require.NoError(t, err)

	t.Run("consume is single use", func(t *testing.T) {
		expiresAt := time.Now().Add(time.Hour)
		ticket, err := resets.Create(ctx, &auth.PasswordReset{
			UserID:    user.ID,
			Email:     user.Email,
			ExpiresAt: &expiresAt,
		})
		require.NoError(t, err)
		assert.Equal(t, auth.ResetRequestedStatus, ticket.Status)

		consumed, err := resets.Consume(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, auth.ResetChangedStatus, consumed.Status)
		assert.Equal(t, user.ID, consumed.UserID)

		_, err = resets.Consume(ctx, ticket.ID)
		assert.Equal(t, auth.ErrInvalidResetToken, err)
	})

	t.Run("expired ticket cannot be consumed", func(t *testing.T) {
		expiresAt := time.Now().Add(-time.Minute)
		ticket, err := resets.Create(ctx, &auth.PasswordReset{
			UserID:    user.ID,
			Email:     user.Email,
			ExpiresAt: &expiresAt,
		})
		require.NoError(t, err)

		_, err = resets.Consume(ctx, ticket.ID)
		assert.Equal(t, auth.ErrInvalidResetToken, err)
	})
}
