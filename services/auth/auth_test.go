package auth

import (
	"testing"
	"time"

	"lms/apperror"
	"lms/models"
	"lms/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegisterNormalizesEmail(t *testing.T) {
	db := testutil.NewDB(t)
	svc := Service{SaltRound: bcrypt.MinCost}

	user, err := svc.Register(db, RegisterInput{Name: "Ada", Email: " Ada@Example.com ", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NotEqual(t, "secret123", user.Password)

	_, err = svc.Register(db, RegisterInput{Name: "Ada", Email: "ADA@example.com", Password: "secret123"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestLoginLockout(t *testing.T) {
	db := testutil.NewDB(t)
	clock := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	svc := Service{SaltRound: bcrypt.MinCost, Now: func() time.Time { return clock }}

	_, err := svc.Register(db, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)

	for i := 0; i < MaxFailedLogins; i++ {
		_, err = svc.Login(db, "ada@example.com", "wrong", "127.0.0.1", "test")
		assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
	}

	_, err = svc.Login(db, "ada@example.com", "secret123", "127.0.0.1", "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temporarily blocked")

	clock = clock.Add(LockoutDuration + time.Second)
	user, err := svc.Login(db, "ada@example.com", "secret123", "127.0.0.1", "test")
	require.NoError(t, err)
	assert.False(t, user.IsBlocked)
	assert.NotNil(t, user.LastLogin)

	var tracked int64
	require.NoError(t, db.Model(&models.LoginTracking{}).Where("user_id = ?", user.ID).Count(&tracked).Error)
	assert.EqualValues(t, 1, tracked)
}

func TestPasswordReset(t *testing.T) {
	db := testutil.NewDB(t)
	clock := time.Now()
	svc := Service{SaltRound: bcrypt.MinCost, Now: func() time.Time { return clock }}

	_, err := svc.Register(db, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)

	code, err := svc.ForgotPassword(db, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, code)

	first, err := svc.ForgotPassword(db, "ada@example.com")
	require.NoError(t, err)
	assert.Len(t, first, 6)
	second, err := svc.ForgotPassword(db, "ada@example.com")
	require.NoError(t, err)

	if first != second {
		assert.Error(t, svc.ResetPassword(db, "ada@example.com", first, "newsecret1"), "superseded code")
	}

	clock = clock.Add(OTPValidity + time.Minute)
	err = svc.ResetPassword(db, "ada@example.com", second, "newsecret1")
	assert.Contains(t, err.Error(), "expired")

	clock = clock.Add(-OTPValidity)
	require.NoError(t, svc.ResetPassword(db, "ada@example.com", second, "newsecret1"))
	assert.Error(t, svc.ResetPassword(db, "ada@example.com", second, "again12345"), "codes are single use")

	_, err = svc.Login(db, "ada@example.com", "newsecret1", "", "")
	assert.NoError(t, err)
}

func TestLogoutIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	svc := Service{}
	exp := time.Now().Add(time.Hour)

	require.NoError(t, svc.Logout(db, 1, "token-a", exp))
	require.NoError(t, svc.Logout(db, 1, "token-a", exp))

	var n int64
	require.NoError(t, db.Model(&models.TokenBlacklist{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}
