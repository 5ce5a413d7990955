package auth

import (
	"testing"

	"lms/apperror"
	"lms/models"
	"lms/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegisterInstructor(t *testing.T) {
	db := testutil.NewDB(t)
	svc := Service{SaltRound: bcrypt.MinCost}

	user, err := svc.Register(db, RegisterInput{Name: "Grace", Email: "grace@example.com", Password: "secret123", Role: models.RoleInstructor})
	require.NoError(t, err)
	assert.Equal(t, models.RoleInstructor, user.Role)
}

func TestListUsers(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.User(t, db, models.RoleStudent)
	testutil.User(t, db, models.RoleStudent)
	instructor := testutil.User(t, db, models.RoleInstructor)

	users, total, err := ListUsers(db, UserFilter{Role: models.RoleInstructor})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, instructor.ID, users[0].ID)

	users, total, err = ListUsers(db, UserFilter{Search: instructor.Email})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, instructor.ID, users[0].ID)

	_, total, err = ListUsers(db, UserFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}

func TestSetRole(t *testing.T) {
	db := testutil.NewDB(t)
	admin := testutil.User(t, db, models.RoleAdmin)
	student := testutil.User(t, db, models.RoleStudent)

	user, err := SetRole(db, admin.ID, student.ID, models.RoleInstructor)
	require.NoError(t, err)
	assert.Equal(t, models.RoleInstructor, user.Role)

	_, err = SetRole(db, admin.ID, student.ID, "AMC")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = SetRole(db, admin.ID, admin.ID, models.RoleStudent)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	_, err = SetRole(db, admin.ID, 9999, models.RoleStudent)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}
