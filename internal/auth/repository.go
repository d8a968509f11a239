package auth

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var consumeOTPSQL = `UPDATE "users" AS "usr"
SET
	"otp_code" = '',
	"otp_expires_at" = NULL,
	"updated_at" = ?
WHERE
	"usr"."email" = ?
AND "usr"."otp_code" = ?
AND "usr"."otp_code" <> ''
AND "usr"."otp_expires_at" > ?
RETURNING *;`

var resetUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"updated_at" = ?
WHERE
	"usr"."id" = ?
RETURNING *;`

var consumeResetSQL = `UPDATE "password_resets" AS "pwdr"
SET
	"status" = ?,
	"reseted_at" = ?
WHERE
	"pwdr"."id" = ?
AND "pwdr"."status" = ?
AND "pwdr"."expires_at" > ?
RETURNING *;`

// Users persists identity records. Uniqueness of email is enforced by the
// table constraint, not application locking.
type Users interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ConsumeOTP is an atomic check-and-clear: at most one concurrent call
	// succeeds for a given pending code.
	ConsumeOTP(ctx context.Context, email, code string) (*User, error)
	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
}

// PasswordResets persists reset tickets.
type PasswordResets interface {
	Create(ctx context.Context, reset *PasswordReset) (*PasswordReset, error)
	// Consume marks a requested, unexpired ticket as changed. At most one
	// concurrent call succeeds.
	Consume(ctx context.Context, id uuid.UUID) (*PasswordReset, error)
	ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*PasswordReset, error)
}

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Users() Users
	PasswordResets() PasswordResets
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
}

type mngr struct {
	db             *bun.DB
	users          Users
	passwordResets PasswordResets
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:             db,
		users:          NewUsersRepository(db),
		passwordResets: NewPasswordResetsRepository(db),
	}
}

func (m mngr) Users() Users { return m.users }

func (m mngr) PasswordResets() PasswordResets { return m.passwordResets }

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

type users struct {
	db *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	return &users{db: db}
}

func (r *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("user not found", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not query user by email")
	}

	return record, nil
}

func (r *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("user not found", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not query user by id")
	}

	return record, nil
}

func (r *users) Create(ctx context.Context, user *User) (*User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = NormalizeEmail(user.Email)

	_, err := r.db.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not create user")
	}

	return user, nil
}

func (r *users) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "could not delete user")
	}

	return nil
}

func (r *users) ConsumeOTP(ctx context.Context, email, code string) (*User, error) {
	now := time.Now()
	record := &User{}

	err := r.db.NewRaw(consumeOTPSQL, now, NormalizeEmail(email), code, now).Scan(ctx, record)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidOrExpiredOTP
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not consume OTP")
	}

	return record, nil
}

func (r *users) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.ResetPasswordTx(ctx, r.db, id, passwordHash)
}

func (r *users) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	record := &User{}
	err := tx.NewRaw(resetUserPasswordSQL, passwordHash, time.Now(), id).Scan(ctx, record)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errors.New("user not found", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound)
		}
		return errors.Wrap(err, errors.CategoryInternal, "could not reset user password")
	}

	return nil
}

type passwordResets struct {
	db *bun.DB
}

var _ PasswordResets = (*passwordResets)(nil)

func NewPasswordResetsRepository(db *bun.DB) PasswordResets {
	return &passwordResets{db: db}
}

func (r *passwordResets) Create(ctx context.Context, reset *PasswordReset) (*PasswordReset, error) {
	if reset.ID == uuid.Nil {
		reset.ID = uuid.New()
	}
	if reset.Status == "" {
		reset.Status = ResetRequestedStatus
	}

	_, err := r.db.NewInsert().Model(reset).Exec(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not create password reset")
	}

	return reset, nil
}

func (r *passwordResets) Consume(ctx context.Context, id uuid.UUID) (*PasswordReset, error) {
	return r.ConsumeTx(ctx, r.db, id)
}

func (r *passwordResets) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*PasswordReset, error) {
	now := time.Now()
	record := &PasswordReset{}

	err := tx.NewRaw(consumeResetSQL, ResetChangedStatus, now, id, ResetRequestedStatus, now).Scan(ctx, record)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidResetToken
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not consume password reset")
	}

	return record, nil
}

// NormalizeEmail lowercases and trims an email so lookups are case
// insensitive regardless of how the address was submitted.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key value")
}
