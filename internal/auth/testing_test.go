package auth_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/sweetshop/sweetshop-api/internal/auth"
)

var testDBSeq atomic.Int64

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:authtest%d?mode=memory&cache=shared", testDBSeq.Add(1))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)

	// Keep the shared in-memory database alive for the test duration.
	sqldb.SetMaxIdleConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []any{(*auth.User)(nil), (*auth.PasswordReset)(nil)} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}

// fakeMailer records deliveries and can be told to fail.
type fakeMailer struct {
	otps   []sentOTP
	resets []sentReset
	fail   bool
}

type sentOTP struct {
	RegistrantEmail string
	OTP             string
}

type sentReset struct {
	To   string
	Link string
}

func (m *fakeMailer) SendOTP(ctx context.Context, registrantEmail, otp string) error {
	if m.fail {
		return fmt.Errorf("smtp: connection refused")
	}
	m.otps = append(m.otps, sentOTP{RegistrantEmail: registrantEmail, OTP: otp})
	return nil
}

func (m *fakeMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	if m.fail {
		return fmt.Errorf("smtp: connection refused")
	}
	m.resets = append(m.resets, sentReset{To: to, Link: link})
	return nil
}

// fakeVerifier returns a canned external identity.
type fakeVerifier struct {
	identity *auth.ExternalIdentity
	err      error
}

func (v *fakeVerifier) Verify(ctx context.Context, credential string) (*auth.ExternalIdentity, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.identity, nil
}
