package commerce

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CouponFixed      = "fixed"
	CouponPercentage = "percentage"

	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderCancelled = "cancelled"

	PaymentCompleted = "completed"

	PaymentMethodManual   = "manual"
	PaymentMethodMidtrans = "midtrans"
	PaymentMethodFree     = "free"
)

// Coupon is a discount code. Codes are stored upper-cased.
type Coupon struct {
	gorm.Model
	Code           string                    `json:"code" gorm:"uniqueIndex;size:64;not null"`
	Type           string                    `json:"type" gorm:"not null"` // fixed, percentage
	Value          decimal.Decimal           `json:"value" gorm:"type:decimal(12,2);not null"`
	MinOrderAmount decimal.NullDecimal       `json:"min_order_amount" gorm:"type:decimal(12,2)"`
	UsageLimit     *int                      `json:"usage_limit"`
	UsedCount      int                       `json:"used_count" gorm:"default:0"`
	ExpiresAt      *time.Time                `json:"expires_at"`
	CourseIDs      datatypes.JSONSlice[uint] `json:"course_ids"` // empty applies to every course
	IsActive       bool                      `json:"is_active"`
	IsDeleted      bool                      `json:"-" gorm:"default:false"`
}

// Order is a purchase of one course. pending -> paid | cancelled; paid and cancelled are terminal.
type Order struct {
	gorm.Model
	UserID          uint            `json:"user_id" gorm:"index;not null"`
	CourseID        uint            `json:"course_id" gorm:"index;not null"`
	CouponID        *uint           `json:"coupon_id" gorm:"index"`
	OrderNumber     string          `json:"order_number" gorm:"uniqueIndex;size:64"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	DiscountAmount  decimal.Decimal `json:"discount_amount" gorm:"type:decimal(12,2);not null;default:0"`
	FinalAmount     decimal.Decimal `json:"final_amount" gorm:"type:decimal(12,2);not null"`
	Status          string          `json:"status" gorm:"default:'pending';index"` // pending, paid, cancelled
	PaidAt          *time.Time      `json:"paid_at"`
	CancelledAt     *time.Time      `json:"cancelled_at"`
	SnapToken       string          `json:"snap_token,omitempty"`
	SnapRedirectURL string          `json:"snap_redirect_url,omitempty"`
}

// Payment records how an order was settled. One per order.
type Payment struct {
	gorm.Model
	OrderID    uint            `json:"order_id" gorm:"uniqueIndex;not null"`
	UserID     uint            `json:"user_id" gorm:"index;not null"`
	CourseID   uint            `json:"course_id" gorm:"index;not null"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Method     string          `json:"method"` // manual, midtrans, free
	Reference  string          `json:"reference"`
	Status     string          `json:"status" gorm:"default:'completed'"`
	PaidAt     time.Time       `json:"paid_at"`
	ApprovedBy *uint           `json:"approved_by"`
}
