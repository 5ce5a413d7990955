package orders

import (
	"errors"
	"testing"
	"time"

	"lms/apperror"
	"lms/models"
	"lms/models/commerce"
	"lms/models/course"
	"lms/services/events"
	"lms/services/provisioning"
	"lms/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newBus() *events.Bus {
	bus := events.New()
	bus.Subscribe(events.OrderPaidEvent, provisioning.HandleOrderPaid)
	return bus
}

func count(t *testing.T, db *gorm.DB, model interface{}, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func TestCreateAppliesCoupon(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	crs := testutil.Course(t, db, "Go Basics", "100.00")
	require.NoError(t, db.Create(&commerce.Coupon{
		Code: "SAVE20", Type: commerce.CouponPercentage, Value: decimal.NewFromInt(20), IsActive: true,
	}).Error)

	order, err := Create(db, newBus(), user.ID, CreateInput{CourseID: crs.ID, CouponCode: "save20"})
	require.NoError(t, err)

	assert.Equal(t, commerce.OrderPending, order.Status)
	assert.True(t, order.Amount.Equal(decimal.NewFromInt(100)))
	assert.True(t, order.DiscountAmount.Equal(decimal.NewFromInt(20)))
	assert.True(t, order.FinalAmount.Equal(decimal.NewFromInt(80)))
	assert.NotNil(t, order.CouponID)

	_, err = Create(db, newBus(), user.ID, CreateInput{CourseID: crs.ID})
	assert.True(t, apperror.Is(err, apperror.KindConflict), "second pending order must be rejected")
}

func TestCreateRejectsInvalidCoupon(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	crs := testutil.Course(t, db, "Go Basics", "100.00")

	_, err := Create(db, newBus(), user.ID, CreateInput{CourseID: crs.ID, CouponCode: "NOPE"})
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindConflict, appErr.Kind)
	assert.Equal(t, "Invalid coupon code.", appErr.Message)
}

func TestZeroAmountOrderIsPaidAndProvisioned(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	crs := testutil.Course(t, db, "Go Basics", "5.00")
	require.NoError(t, db.Create(&commerce.Coupon{
		Code: "FLAT10", Type: commerce.CouponFixed, Value: decimal.NewFromInt(10), IsActive: true,
	}).Error)

	order, err := Create(db, newBus(), user.ID, CreateInput{CourseID: crs.ID, CouponCode: "FLAT10"})
	require.NoError(t, err)

	assert.Equal(t, commerce.OrderPaid, order.Status)
	assert.True(t, order.FinalAmount.IsZero())
	assert.Equal(t, int64(1), count(t, db, &commerce.Payment{}, "order_id = ? AND method = ?", order.ID, commerce.PaymentMethodFree))
	assert.Equal(t, int64(1), count(t, db, &course.Enrollment{}, "user_id = ? AND order_id = ?", user.ID, order.ID))

	var c commerce.Coupon
	require.NoError(t, db.Where("code = ?", "FLAT10").First(&c).Error)
	assert.Equal(t, 1, c.UsedCount)
}

func TestMarkPaidTwiceIsNoop(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	admin := testutil.User(t, db, models.RoleAdmin)
	crs := testutil.Course(t, db, "Go Basics", "100")
	bus := newBus()

	order, err := Create(db, bus, user.ID, CreateInput{CourseID: crs.ID})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		paid, err := MarkPaid(db, bus, order.ID, PaymentInput{Method: commerce.PaymentMethodManual, ApprovedBy: &admin.ID})
		require.NoError(t, err)
		assert.Equal(t, commerce.OrderPaid, paid.Status)
	}

	assert.Equal(t, int64(1), count(t, db, &commerce.Payment{}, "order_id = ?", order.ID))
	assert.Equal(t, int64(1), count(t, db, &course.Enrollment{}, "user_id = ?", user.ID))

	_, err = Cancel(db, user, order.ID)
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestPaidOrderRestoresSuspendedStudent(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	crs := testutil.Course(t, db, "Go Basics", "100")
	batch := testutil.Batch(t, db, crs.ID, "Go Basics Batch 1", 10)
	testutil.Enroll(t, db, user.ID, batch, course.EnrollmentSuspended)
	bus := newBus()

	order, err := Create(db, bus, user.ID, CreateInput{CourseID: crs.ID})
	require.NoError(t, err)

	paid, err := MarkPaid(db, bus, order.ID, PaymentInput{Method: commerce.PaymentMethodManual})
	require.NoError(t, err)
	assert.Equal(t, commerce.OrderPaid, paid.Status)

	assert.Equal(t, int64(1), count(t, db, &course.Enrollment{}, "user_id = ? AND course_id = ? AND status = ?",
		user.ID, crs.ID, course.EnrollmentActive))
	assert.Equal(t, int64(1), count(t, db, &course.Enrollment{}, "user_id = ? AND order_id = ?", user.ID, order.ID))
}

func TestMarkPaidRollsBackWhenProvisioningFails(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	crs := testutil.Course(t, db, "Go Basics", "100")

	bus := events.New()
	bus.Subscribe(events.OrderPaidEvent, func(*gorm.DB, events.Event) error {
		return errors.New("provisioning exploded")
	})

	order, err := Create(db, bus, user.ID, CreateInput{CourseID: crs.ID})
	require.NoError(t, err)

	_, err = MarkPaid(db, bus, order.ID, PaymentInput{Method: commerce.PaymentMethodManual})
	require.Error(t, err)

	var reloaded commerce.Order
	require.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, commerce.OrderPending, reloaded.Status)
	assert.Equal(t, int64(0), count(t, db, &commerce.Payment{}, "order_id = ?", order.ID))
}

func TestCancelAndAccess(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.User(t, db, models.RoleStudent)
	other := testutil.User(t, db, models.RoleStudent)
	crs := testutil.Course(t, db, "Go Basics", "100")

	order, err := Create(db, newBus(), owner.ID, CreateInput{CourseID: crs.ID})
	require.NoError(t, err)

	_, err = Get(db, other, order.ID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
	_, err = Cancel(db, other, order.ID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	cancelled, err := Cancel(db, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, commerce.OrderCancelled, cancelled.Status)

	_, err = MarkPaid(db, newBus(), order.ID, PaymentInput{})
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestCreateRejectsEnrolledUser(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	crs := testutil.Course(t, db, "Go Basics", "100")
	batch := testutil.Batch(t, db, crs.ID, "Go Basics Batch 1", 0)
	testutil.Enroll(t, db, user.ID, batch, course.EnrollmentActive)

	_, err := Create(db, newBus(), user.ID, CreateInput{CourseID: crs.ID})
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestStats(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	a := testutil.Course(t, db, "A", "100")
	b := testutil.Course(t, db, "B", "40")
	c := testutil.Course(t, db, "C", "10")
	bus := newBus()

	paid, err := Create(db, bus, user.ID, CreateInput{CourseID: a.ID})
	require.NoError(t, err)
	_, err = MarkPaid(db, bus, paid.ID, PaymentInput{Method: commerce.PaymentMethodManual})
	require.NoError(t, err)

	old, err := Create(db, bus, user.ID, CreateInput{CourseID: b.ID})
	require.NoError(t, err)
	_, err = MarkPaid(db, bus, old.ID, PaymentInput{Method: commerce.PaymentMethodManual})
	require.NoError(t, err)
	lastYear := time.Now().AddDate(-1, 0, 0)
	require.NoError(t, db.Model(&commerce.Order{}).Where("id = ?", old.ID).Update("paid_at", lastYear).Error)

	_, err = Create(db, bus, user.ID, CreateInput{CourseID: c.ID})
	require.NoError(t, err)

	stats, err := GetStats(db, user.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Paid)
	assert.Equal(t, int64(1), stats.Pending)
	assert.True(t, stats.TotalSpent.Equal(decimal.NewFromInt(140)), stats.TotalSpent.String())
	assert.True(t, stats.ThisMonthSpent.Equal(decimal.NewFromInt(100)), stats.ThisMonthSpent.String())
}

func TestHandleNotification(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	crs := testutil.Course(t, db, "Go Basics", "100")
	bus := newBus()
	const key = "server-key"

	order, err := Create(db, bus, user.ID, CreateInput{CourseID: crs.ID})
	require.NoError(t, err)

	n := Notification{
		OrderID:           order.OrderNumber,
		StatusCode:        "200",
		GrossAmount:       "100.00",
		TransactionStatus: "settlement",
		TransactionID:     "trx-1",
	}

	n.SignatureKey = "bogus"
	_, err = HandleNotification(db, bus, key, n)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	n.SignatureKey = Signature(n.OrderID, n.StatusCode, n.GrossAmount, key)
	paid, err := HandleNotification(db, bus, key, n)
	require.NoError(t, err)
	assert.Equal(t, commerce.OrderPaid, paid.Status)

	var payment commerce.Payment
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&payment).Error)
	assert.Equal(t, commerce.PaymentMethodMidtrans, payment.Method)
	assert.Equal(t, "trx-1", payment.Reference)

	// A late expiry for an order that is already paid changes nothing.
	n.TransactionStatus = "expire"
	n.SignatureKey = Signature(n.OrderID, n.StatusCode, n.GrossAmount, key)
	again, err := HandleNotification(db, bus, key, n)
	require.NoError(t, err)
	assert.Equal(t, commerce.OrderPaid, again.Status)
}

type fakeCheckout struct{ calls int }

func (f *fakeCheckout) CreateTransaction(order commerce.Order, _ models.User, _ string) (string, string, error) {
	f.calls++
	return "tok-" + order.OrderNumber, "https://pay.example/" + order.OrderNumber, nil
}

func TestAttachCheckout(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	crs := testutil.Course(t, db, "Go Basics", "100")

	order, err := Create(db, newBus(), user.ID, CreateInput{CourseID: crs.ID})
	require.NoError(t, err)

	gw := &fakeCheckout{}
	order, err = AttachCheckout(db, gw, order, user, crs.Title)
	require.NoError(t, err)
	assert.Equal(t, 1, gw.calls)

	var reloaded commerce.Order
	require.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, "tok-"+order.OrderNumber, reloaded.SnapToken)

	order, err = AttachCheckout(db, nil, order, user, crs.Title)
	require.NoError(t, err)
	assert.Equal(t, 1, gw.calls)
}
