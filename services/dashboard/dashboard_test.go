package dashboard

import (
	"testing"
	"time"

	"lms/models"
	"lms/models/commerce"
	"lms/models/course"
	"lms/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStats(t *testing.T) {
	db := testutil.NewDB(t)
	at := time.Date(2026, 10, 15, 12, 0, 0, 0, time.Local)

	crs := testutil.Course(t, db, "Go", "100")
	b := testutil.Batch(t, db, crs.ID, "Batch 1", 10)
	alice := testutil.User(t, db, models.RoleStudent)
	bob := testutil.User(t, db, models.RoleStudent)
	testutil.User(t, db, models.RoleAdmin)
	testutil.Enroll(t, db, alice.ID, b, course.EnrollmentActive)
	testutil.Enroll(t, db, bob.ID, b, course.EnrollmentCompleted)

	lastMonth := at.AddDate(0, -1, 0)
	thisMonth := at.AddDate(0, 0, -2)
	orders := []commerce.Order{
		{UserID: alice.ID, CourseID: crs.ID, OrderNumber: "A", Amount: decimal.NewFromInt(100), FinalAmount: decimal.NewFromInt(100), Status: commerce.OrderPaid, PaidAt: &thisMonth},
		{UserID: bob.ID, CourseID: crs.ID, OrderNumber: "B", Amount: decimal.NewFromInt(100), FinalAmount: decimal.NewFromInt(80), Status: commerce.OrderPaid, PaidAt: &lastMonth},
		{UserID: bob.ID, CourseID: crs.ID, OrderNumber: "C", Amount: decimal.NewFromInt(100), FinalAmount: decimal.NewFromInt(100), Status: commerce.OrderPending},
	}
	require.NoError(t, db.Create(&orders).Error)

	stats, err := GetStats(db, at)
	require.NoError(t, err)

	assert.EqualValues(t, 2, stats.TotalStudents)
	assert.EqualValues(t, 1, stats.PublishedCourses)
	assert.EqualValues(t, 1, stats.ActiveEnrollments)
	assert.EqualValues(t, 1, stats.CompletedEnrollments)
	assert.EqualValues(t, 1, stats.PendingOrders)
	assert.True(t, stats.Revenue.Equal(decimal.NewFromInt(180)), stats.Revenue.String())
	assert.True(t, stats.RevenueThisMonth.Equal(decimal.NewFromInt(100)), stats.RevenueThisMonth.String())
	require.Len(t, stats.RecentEnrollments, 2)
	assert.Equal(t, "Go", stats.RecentEnrollments[0].CourseName)
	assert.Equal(t, "Batch 1", stats.RecentEnrollments[0].BatchName)
}

func TestEnrollmentsFilter(t *testing.T) {
	db := testutil.NewDB(t)
	crs := testutil.Course(t, db, "Go", "100")
	b1 := testutil.Batch(t, db, crs.ID, "Batch 1", 10)
	b2 := testutil.Batch(t, db, crs.ID, "Batch 2", 10)
	alice := testutil.User(t, db, models.RoleStudent)
	testutil.Enroll(t, db, alice.ID, b1, course.EnrollmentActive)
	testutil.Enroll(t, db, testutil.User(t, db, models.RoleStudent).ID, b2, course.EnrollmentActive)

	rows, total, err := Enrollments(db, EnrollmentFilter{BatchID: b1.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, alice.Email, rows[0].UserEmail)

	_, total, err = Enrollments(db, EnrollmentFilter{CourseID: crs.ID, Status: course.EnrollmentActive})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}
