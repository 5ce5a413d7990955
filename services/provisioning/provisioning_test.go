package provisioning

import (
	"testing"

	"lms/apperror"
	"lms/models"
	"lms/models/course"
	"lms/services/events"
	"lms/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func countEnrollments(t *testing.T, db *gorm.DB, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&course.Enrollment{}).Where(where, args...).Count(&n).Error)
	return n
}

func TestProvisionIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	crs := testutil.Course(t, db, "Go Basics", "100")
	batch := testutil.Batch(t, db, crs.ID, "Go Basics Batch 1", 10)
	orderID := uint(77)

	first, err := Provision(db, user.ID, crs.ID, &orderID)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, first[0].Created)
	assert.Equal(t, batch.ID, first[0].Enrollment.BatchID)
	assert.Equal(t, course.EnrollmentActive, first[0].Enrollment.Status)
	require.NotNil(t, first[0].Enrollment.OrderID)
	assert.Equal(t, orderID, *first[0].Enrollment.OrderID)

	second, err := Provision(db, user.ID, crs.ID, &orderID)
	require.NoError(t, err)
	assert.False(t, second[0].Created)
	assert.Equal(t, first[0].Enrollment.ID, second[0].Enrollment.ID)

	assert.Equal(t, int64(1), countEnrollments(t, db, "user_id = ?", user.ID))
}

func TestInsertEnrollmentReusesExistingPair(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	crs := testutil.Course(t, db, "Go Basics", "100")
	batch := testutil.Batch(t, db, crs.ID, "Go Basics Batch 1", 10)
	dropped := testutil.Enroll(t, db, user.ID, batch, course.EnrollmentDropped)

	orderID := uint(5)
	outcomes, err := Provision(db, user.ID, crs.ID, &orderID)
	require.NoError(t, err)

	assert.False(t, outcomes[0].Created)
	assert.Equal(t, dropped.ID, outcomes[0].Enrollment.ID)
	assert.Equal(t, course.EnrollmentActive, outcomes[0].Enrollment.Status)

	var reloaded course.Enrollment
	require.NoError(t, db.First(&reloaded, dropped.ID).Error)
	assert.Equal(t, course.EnrollmentActive, reloaded.Status)
	assert.Equal(t, orderID, *reloaded.OrderID)
	assert.Equal(t, int64(1), countEnrollments(t, db, "user_id = ?", user.ID))
}

func TestProvisionReactivatesSuspendedEnrollment(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	crs := testutil.Course(t, db, "Go Basics", "100")
	batch := testutil.Batch(t, db, crs.ID, "Go Basics Batch 1", 10)
	suspended := testutil.Enroll(t, db, user.ID, batch, course.EnrollmentSuspended)

	orderID := uint(7)
	outcomes, err := Provision(db, user.ID, crs.ID, &orderID)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	assert.Equal(t, suspended.ID, outcomes[0].Enrollment.ID)
	assert.Equal(t, course.EnrollmentActive, outcomes[0].Enrollment.Status)

	var reloaded course.Enrollment
	require.NoError(t, db.First(&reloaded, suspended.ID).Error)
	assert.Equal(t, course.EnrollmentActive, reloaded.Status)
	assert.Equal(t, orderID, *reloaded.OrderID)
	assert.Equal(t, int64(1), countEnrollments(t, db, "user_id = ?", user.ID))
}

func TestBundleProvisionsEveryMember(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	x := testutil.Course(t, db, "Course X", "50")
	y := testutil.Course(t, db, "Course Y", "50")
	bundle := testutil.Bundle(t, db, "Bundle B", "80", x.ID, y.ID)

	outcomes, err := Provision(db, user.ID, bundle.ID, nil)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, int64(1), countEnrollments(t, db, "user_id = ? AND course_id = ?", user.ID, x.ID))
	assert.Equal(t, int64(1), countEnrollments(t, db, "user_id = ? AND course_id = ?", user.ID, y.ID))
	assert.Equal(t, int64(0), countEnrollments(t, db, "course_id = ?", bundle.ID))

	// Neither course had a batch, so one was generated per course.
	for _, o := range outcomes {
		assert.True(t, o.NewBatch)
	}
	var batches []course.Batch
	require.NoError(t, db.Order("id asc").Find(&batches).Error)
	require.Len(t, batches, 2)
	assert.Equal(t, "Course X Batch 1", batches[0].Name)
	assert.Equal(t, "Course Y Batch 1", batches[1].Name)
	assert.Equal(t, DefaultBatchCapacity, batches[0].MaxStudents)
}

func TestBundleSkipsCoursesAlreadyActive(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	x := testutil.Course(t, db, "Course X", "50")
	y := testutil.Course(t, db, "Course Y", "50")
	xBatch := testutil.Batch(t, db, x.ID, "Course X Batch 1", 0)
	existing := testutil.Enroll(t, db, user.ID, xBatch, course.EnrollmentActive)
	bundle := testutil.Bundle(t, db, "Bundle B", "80", x.ID, y.ID)

	outcomes, err := Provision(db, user.ID, bundle.ID, nil)
	require.NoError(t, err)

	assert.False(t, outcomes[0].Created)
	assert.Equal(t, existing.ID, outcomes[0].Enrollment.ID)
	assert.True(t, outcomes[1].Created)
	assert.Equal(t, int64(2), countEnrollments(t, db, "user_id = ?", user.ID))
}

func TestFullBatchTriggersNextBatch(t *testing.T) {
	db := testutil.NewDB(t)
	crs := testutil.Course(t, db, "Go Basics", "100")
	full := testutil.Batch(t, db, crs.ID, "Go Basics Batch 1", 1)
	other := testutil.User(t, db, models.RoleStudent)
	testutil.Enroll(t, db, other.ID, full, course.EnrollmentActive)

	user := testutil.User(t, db, models.RoleStudent)
	outcomes, err := Provision(db, user.ID, crs.ID, nil)
	require.NoError(t, err)

	require.True(t, outcomes[0].NewBatch)
	var batch course.Batch
	require.NoError(t, db.First(&batch, outcomes[0].Enrollment.BatchID).Error)
	assert.Equal(t, "Go Basics Batch 2", batch.Name)
	assert.Equal(t, 1, batch.MaxStudents)
	assert.True(t, batch.IsActive)
}

func TestHandleOrderPaidThroughBus(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	crs := testutil.Course(t, db, "Go Basics", "100")

	bus := events.New()
	bus.Subscribe(events.OrderPaidEvent, HandleOrderPaid)

	err := db.Transaction(func(tx *gorm.DB) error {
		return bus.Publish(tx, events.OrderPaid{OrderID: 3, UserID: user.ID, CourseID: crs.ID})
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countEnrollments(t, db, "user_id = ? AND order_id = ?", user.ID, 3))
}

func TestHandleOrderPaidFailureRollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	x := testutil.Course(t, db, "Course X", "50")
	bundle := testutil.Bundle(t, db, "Bundle B", "80", x.ID, 9999)

	bus := events.New()
	bus.Subscribe(events.OrderPaidEvent, HandleOrderPaid)

	err := db.Transaction(func(tx *gorm.DB) error {
		return bus.Publish(tx, events.OrderPaid{OrderID: 1, UserID: user.ID, CourseID: bundle.ID})
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.Equal(t, int64(0), countEnrollments(t, db, "user_id = ?", user.ID))

	var batches int64
	require.NoError(t, db.Model(&course.Batch{}).Count(&batches).Error)
	assert.Equal(t, int64(0), batches)
}

func TestBulkAdmitRespectsCapacity(t *testing.T) {
	db := testutil.NewDB(t)
	crs := testutil.Course(t, db, "Go Basics", "100")
	batch := testutil.Batch(t, db, crs.ID, "Go Basics Batch 1", 2)
	a := testutil.User(t, db, models.RoleStudent)
	b := testutil.User(t, db, models.RoleStudent)
	c := testutil.User(t, db, models.RoleStudent)

	res, err := BulkAdmit(db, batch.ID, []uint{a.ID, b.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a.ID, b.ID}, res.Admitted)

	res, err = BulkAdmit(db, batch.ID, []uint{a.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, res.Skipped)

	_, err = BulkAdmit(db, batch.ID, []uint{c.ID})
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestEnrollFree(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	free := testutil.Course(t, db, "Intro", "0")
	paid := testutil.Course(t, db, "Advanced", "10")

	_, err := EnrollFree(db, user.ID, paid.ID)
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	outcomes, err := EnrollFree(db, user.ID, free.ID)
	require.NoError(t, err)
	assert.True(t, outcomes[0].Created)

	_, err = EnrollFree(db, user.ID, free.ID)
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}
