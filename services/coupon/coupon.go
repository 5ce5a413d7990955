package coupon

import (
	"strings"
	"time"

	"lms/apperror"
	"lms/database"
	"lms/models/commerce"
	"lms/models/course"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	MsgInvalidCode   = "Invalid coupon code."
	MsgInactive      = "This coupon is not active."
	MsgExpired       = "This coupon has expired."
	MsgUsageExceeded = "This coupon has reached its usage limit."
	MsgNotApplicable = "This coupon is not applicable to this course."
	MsgApplied       = "Coupon applied successfully."
)

// Result is the outcome of applying a coupon to an amount.
type Result struct {
	Valid          bool            `json:"valid"`
	Message        string          `json:"message"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	CouponID       uint            `json:"-"`
}

func invalid(amount decimal.Decimal, msg string) Result {
	return Result{Message: msg, DiscountAmount: decimal.Zero, FinalAmount: amount}
}

// NormalizeCode is the stored form of a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Evaluate applies c to amount for courseID at now. A nil coupon is an unknown code.
// Predicates are checked in order: active, expiry, usage, minimum amount, course scope.
func Evaluate(c *commerce.Coupon, courseID uint, amount decimal.Decimal, now time.Time) Result {
	if c == nil || c.IsDeleted {
		return invalid(amount, MsgInvalidCode)
	}
	if !c.IsActive {
		return invalid(amount, MsgInactive)
	}
	if c.ExpiresAt != nil && !c.ExpiresAt.After(now) {
		return invalid(amount, MsgExpired)
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return invalid(amount, MsgUsageExceeded)
	}
	if c.MinOrderAmount.Valid && amount.LessThan(c.MinOrderAmount.Decimal) {
		return invalid(amount, "Minimum order amount for this coupon is "+c.MinOrderAmount.Decimal.StringFixed(2)+".")
	}
	if !appliesTo(c, courseID) {
		return invalid(amount, MsgNotApplicable)
	}

	discount := Discount(c, amount)
	final := amount.Sub(discount)
	if final.IsNegative() {
		final = decimal.Zero
	}

	return Result{
		Valid:          true,
		Message:        MsgApplied,
		DiscountAmount: discount,
		FinalAmount:    final,
		CouponID:       c.ID,
	}
}

// Discount is the raw discount of c on amount: fixed values are clamped to amount,
// percentages are amount*value/100 rounded to cents.
func Discount(c *commerce.Coupon, amount decimal.Decimal) decimal.Decimal {
	switch c.Type {
	case commerce.CouponFixed:
		return decimal.Min(c.Value, amount)
	case commerce.CouponPercentage:
		return amount.Mul(c.Value).Div(decimal.NewFromInt(100)).Round(2)
	}
	return decimal.Zero
}

func appliesTo(c *commerce.Coupon, courseID uint) bool {
	if len(c.CourseIDs) == 0 {
		return true
	}
	for _, id := range c.CourseIDs {
		if id == courseID {
			return true
		}
	}
	return false
}

// Find loads a coupon by code. An unknown code returns nil without error.
func Find(db *gorm.DB, code string) (*commerce.Coupon, error) {
	var c commerce.Coupon
	err := db.Where("code = ? AND is_deleted = ?", NormalizeCode(code), false).First(&c).Error
	if database.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load coupon")
	}
	return &c, nil
}

// Check evaluates code against the effective price of courseID.
func Check(db *gorm.DB, code string, courseID uint) (Result, error) {
	var crs course.Course
	if err := db.Where("id = ? AND is_deleted = ?", courseID, false).First(&crs).Error; err != nil {
		if database.IsNotFound(err) {
			return Result{}, apperror.NotFound("Course not found!")
		}
		return Result{}, errors.Wrap(err, "load course")
	}

	c, err := Find(db, code)
	if err != nil {
		return Result{}, err
	}
	return Evaluate(c, crs.ID, crs.EffectivePrice(), time.Now()), nil
}

// Validate checks the fields of a coupon before it is stored.
func Validate(c *commerce.Coupon) map[string]string {
	errs := map[string]string{}
	if NormalizeCode(c.Code) == "" {
		errs["code"] = "Code is required!"
	}
	switch c.Type {
	case commerce.CouponFixed:
		if !c.Value.IsPositive() {
			errs["value"] = "Value must be greater than zero!"
		}
	case commerce.CouponPercentage:
		if !c.Value.IsPositive() || c.Value.GreaterThan(decimal.NewFromInt(100)) {
			errs["value"] = "Percentage must be between 0 and 100!"
		}
	default:
		errs["type"] = "Type must be fixed or percentage!"
	}
	if c.UsageLimit != nil && *c.UsageLimit < 0 {
		errs["usage_limit"] = "Usage limit cannot be negative!"
	}
	return errs
}

// IncrementUsage bumps used_count for a coupon consumed by a paid order.
func IncrementUsage(tx *gorm.DB, couponID uint) error {
	err := tx.Model(&commerce.Coupon{}).Where("id = ?", couponID).
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1)).Error
	return errors.Wrap(err, "increment coupon usage")
}
