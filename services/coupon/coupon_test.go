package coupon

import (
	"testing"
	"time"

	"lms/models/commerce"
	"lms/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intPtr(i int) *int { return &i }

func TestPercentageCoupon(t *testing.T) {
	c := &commerce.Coupon{Code: "SAVE20", Type: commerce.CouponPercentage, Value: d("20"), IsActive: true}

	res := Evaluate(c, 1, d("100.00"), time.Now())

	assert.True(t, res.Valid)
	assert.True(t, res.DiscountAmount.Equal(d("20.00")), res.DiscountAmount.String())
	assert.True(t, res.FinalAmount.Equal(d("80.00")), res.FinalAmount.String())
}

func TestFixedCouponClampedToAmount(t *testing.T) {
	c := &commerce.Coupon{Code: "FLAT10", Type: commerce.CouponFixed, Value: d("10"), IsActive: true}

	res := Evaluate(c, 1, d("5.00"), time.Now())

	assert.True(t, res.Valid)
	assert.True(t, res.DiscountAmount.Equal(d("5.00")))
	assert.True(t, res.FinalAmount.IsZero())
}

func TestEvaluatePriorityOrder(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)

	// Fails every predicate; the first one in order wins.
	c := &commerce.Coupon{
		Type:           commerce.CouponFixed,
		Value:          d("10"),
		IsActive:       false,
		ExpiresAt:      &past,
		UsageLimit:     intPtr(1),
		UsedCount:      1,
		MinOrderAmount: decimal.NewNullDecimal(d("500")),
		CourseIDs:      []uint{42},
	}

	assert.Equal(t, MsgInactive, Evaluate(c, 1, d("100"), now).Message)

	c.IsActive = true
	assert.Equal(t, MsgExpired, Evaluate(c, 1, d("100"), now).Message)

	c.ExpiresAt = nil
	assert.Equal(t, MsgUsageExceeded, Evaluate(c, 1, d("100"), now).Message)

	c.UsageLimit = nil
	res := Evaluate(c, 1, d("100"), now)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Message, "500.00")

	c.MinOrderAmount = decimal.NullDecimal{}
	assert.Equal(t, MsgNotApplicable, Evaluate(c, 1, d("100"), now).Message)

	assert.True(t, Evaluate(c, 42, d("100"), now).Valid)
}

func TestUnknownCode(t *testing.T) {
	res := Evaluate(nil, 1, d("100"), time.Now())
	assert.False(t, res.Valid)
	assert.Equal(t, MsgInvalidCode, res.Message)
	assert.True(t, res.FinalAmount.Equal(d("100")))
	assert.True(t, res.DiscountAmount.IsZero())
}

func TestDiscountNeverExceedsAmount(t *testing.T) {
	amounts := []string{"0", "0.01", "5", "9.99", "10", "10.01", "99.95", "100", "12345.67"}
	coupons := []*commerce.Coupon{
		{Type: commerce.CouponFixed, Value: d("10"), IsActive: true},
		{Type: commerce.CouponFixed, Value: d("1000000"), IsActive: true},
		{Type: commerce.CouponPercentage, Value: d("1"), IsActive: true},
		{Type: commerce.CouponPercentage, Value: d("33.33"), IsActive: true},
		{Type: commerce.CouponPercentage, Value: d("100"), IsActive: true},
	}

	for _, c := range coupons {
		for _, a := range amounts {
			amount := d(a)
			res := Evaluate(c, 1, amount, time.Now())
			require.True(t, res.Valid)
			assert.True(t, res.DiscountAmount.LessThanOrEqual(amount), "%s %s on %s", c.Type, c.Value, a)
			assert.False(t, res.FinalAmount.IsNegative())
			if c.Type == commerce.CouponPercentage {
				want := amount.Mul(c.Value).Div(decimal.NewFromInt(100)).Round(2)
				assert.True(t, res.DiscountAmount.Equal(want))
			}
		}
	}
}

func TestCheckLoadsCouponByNormalizedCode(t *testing.T) {
	db := testutil.NewDB(t)
	crs := testutil.Course(t, db, "Go Basics", "100.00")
	require.NoError(t, db.Create(&commerce.Coupon{
		Code: "SAVE20", Type: commerce.CouponPercentage, Value: d("20"), IsActive: true,
	}).Error)

	res, err := Check(db, " save20 ", crs.ID)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.True(t, res.FinalAmount.Equal(d("80")))

	res, err = Check(db, "NOPE", crs.ID)
	require.NoError(t, err)
	assert.Equal(t, MsgInvalidCode, res.Message)

	_, err = Check(db, "SAVE20", 9999)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.Empty(t, Validate(&commerce.Coupon{Code: "a", Type: commerce.CouponPercentage, Value: d("50")}))
	assert.Contains(t, Validate(&commerce.Coupon{Code: "a", Type: commerce.CouponPercentage, Value: d("150")}), "value")
	assert.Contains(t, Validate(&commerce.Coupon{Code: " ", Type: "other", Value: d("1")}), "type")
	assert.Contains(t, Validate(&commerce.Coupon{Type: commerce.CouponFixed, Value: d("1")}), "code")
}
