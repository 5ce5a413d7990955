// Package orders owns the order lifecycle. MarkPaid is the only way an order becomes paid:
// admin approval, the payment gateway webhook and free orders all go through it.
package orders

import (
	"fmt"
	"strings"
	"time"

	"lms/apperror"
	"lms/database"
	"lms/models"
	"lms/models/commerce"
	"lms/models/course"
	"lms/services/catalog"
	"lms/services/coupon"
	"lms/services/events"

	"github.com/google/uuid"
	"github.com/jinzhu/now"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreateInput struct {
	CourseID   uint
	CouponCode string
}

// PaymentInput describes how an order was settled.
type PaymentInput struct {
	Method     string
	Reference  string
	ApprovedBy *uint
}

// Create places a pending order for the course at its effective price minus any coupon.
// A zero final amount is settled immediately.
func Create(db *gorm.DB, bus *events.Bus, userID uint, in CreateInput) (commerce.Order, error) {
	crs, err := catalog.ByID(db, in.CourseID)
	if err != nil {
		return commerce.Order{}, err
	}
	if crs.Status != course.StatusActive {
		return commerce.Order{}, apperror.NotFound("Course not found or not active!")
	}

	if !crs.IsBundle() {
		active, err := catalog.ActiveEnrollment(db, userID, crs.ID)
		if err != nil {
			return commerce.Order{}, err
		}
		if active != nil {
			return commerce.Order{}, apperror.Conflict("You are already enrolled in this course!")
		}
	}

	var pending int64
	if err := db.Model(&commerce.Order{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, crs.ID, commerce.OrderPending).
		Count(&pending).Error; err != nil {
		return commerce.Order{}, errors.Wrap(err, "check pending orders")
	}
	if pending > 0 {
		return commerce.Order{}, apperror.Conflict("You already have a pending order for this course!")
	}

	amount := crs.EffectivePrice()
	order := commerce.Order{
		UserID:         userID,
		CourseID:       crs.ID,
		OrderNumber:    NewOrderNumber(time.Now()),
		Amount:         amount,
		DiscountAmount: decimal.Zero,
		FinalAmount:    amount,
		Status:         commerce.OrderPending,
	}

	if strings.TrimSpace(in.CouponCode) != "" {
		c, err := coupon.Find(db, in.CouponCode)
		if err != nil {
			return commerce.Order{}, err
		}
		res := coupon.Evaluate(c, crs.ID, amount, time.Now())
		if !res.Valid {
			return commerce.Order{}, apperror.Conflict("%s", res.Message)
		}
		order.CouponID = &c.ID
		order.DiscountAmount = res.DiscountAmount
		order.FinalAmount = res.FinalAmount
	}

	if err := db.Create(&order).Error; err != nil {
		return commerce.Order{}, errors.Wrap(err, "create order")
	}

	if order.FinalAmount.IsZero() {
		return MarkPaid(db, bus, order.ID, PaymentInput{Method: commerce.PaymentMethodFree, Reference: order.OrderNumber})
	}
	return order, nil
}

// NewOrderNumber is a human readable unique order reference.
func NewOrderNumber(t time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", t.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}

// MarkPaid settles a pending order in one transaction: status, payment record, coupon usage
// and the OrderPaid event whose handlers provision enrollments. Any failure rolls back all of
// it. Marking an already paid order again is a no-op.
func MarkPaid(db *gorm.DB, bus *events.Bus, orderID uint, in PaymentInput) (commerce.Order, error) {
	var order commerce.Order

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
			if database.IsNotFound(err) {
				return apperror.NotFound("Order not found!")
			}
			return errors.Wrap(err, "lock order")
		}

		switch order.Status {
		case commerce.OrderPaid:
			return nil
		case commerce.OrderPending:
		default:
			return apperror.Conflict("Order is not pending!")
		}

		paidAt := time.Now()
		if err := tx.Model(&order).Updates(map[string]interface{}{
			"status":  commerce.OrderPaid,
			"paid_at": paidAt,
		}).Error; err != nil {
			return errors.Wrap(err, "update order status")
		}
		order.Status = commerce.OrderPaid
		order.PaidAt = &paidAt

		payment := commerce.Payment{
			OrderID:    order.ID,
			UserID:     order.UserID,
			CourseID:   order.CourseID,
			Amount:     order.FinalAmount,
			Method:     in.Method,
			Reference:  in.Reference,
			Status:     commerce.PaymentCompleted,
			PaidAt:     paidAt,
			ApprovedBy: in.ApprovedBy,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount", "method", "reference", "status", "paid_at", "approved_by", "updated_at"}),
		}).Create(&payment).Error; err != nil {
			return errors.Wrap(err, "upsert payment")
		}

		if order.CouponID != nil {
			if err := coupon.IncrementUsage(tx, *order.CouponID); err != nil {
				return err
			}
		}

		return bus.Publish(tx, events.OrderPaid{OrderID: order.ID, UserID: order.UserID, CourseID: order.CourseID})
	})
	if err != nil {
		return commerce.Order{}, err
	}
	return order, nil
}

// Cancel moves a pending order to cancelled. Only the owner or an admin may cancel.
func Cancel(db *gorm.DB, actor models.User, orderID uint) (commerce.Order, error) {
	return cancel(db, orderID, func(order commerce.Order) error {
		if order.UserID != actor.ID && actor.Role != models.RoleAdmin {
			return apperror.Forbidden("You are not allowed to cancel this order!")
		}
		return nil
	})
}

func cancel(db *gorm.DB, orderID uint, authorize func(commerce.Order) error) (commerce.Order, error) {
	var order commerce.Order
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
			if database.IsNotFound(err) {
				return apperror.NotFound("Order not found!")
			}
			return errors.Wrap(err, "lock order")
		}
		if authorize != nil {
			if err := authorize(order); err != nil {
				return err
			}
		}
		if order.Status != commerce.OrderPending {
			return apperror.Conflict("Only pending orders can be cancelled!")
		}

		cancelledAt := time.Now()
		order.Status = commerce.OrderCancelled
		order.CancelledAt = &cancelledAt
		return errors.Wrap(tx.Model(&order).Updates(map[string]interface{}{
			"status":       commerce.OrderCancelled,
			"cancelled_at": cancelledAt,
		}).Error, "cancel order")
	})
	return order, err
}

// Get loads an order the actor may see.
func Get(db *gorm.DB, actor models.User, orderID uint) (commerce.Order, error) {
	var order commerce.Order
	if err := db.First(&order, orderID).Error; err != nil {
		if database.IsNotFound(err) {
			return order, apperror.NotFound("Order not found!")
		}
		return order, errors.Wrap(err, "load order")
	}
	if order.UserID != actor.ID && actor.Role != models.RoleAdmin {
		return order, apperror.Forbidden("You are not allowed to view this order!")
	}
	return order, nil
}

// ListFilter narrows order lists. UserID 0 lists every user's orders.
type ListFilter struct {
	UserID uint
	Status string
	Page   int
	Limit  int
}

func List(db *gorm.DB, f ListFilter) ([]commerce.Order, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}

	query := db.Model(&commerce.Order{})
	if f.UserID != 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count orders")
	}
	var items []commerce.Order
	err := query.Order("created_at desc").Offset((f.Page - 1) * f.Limit).Limit(f.Limit).Find(&items).Error
	return items, total, errors.Wrap(err, "list orders")
}

// Stats summarises a user's orders. UserID 0 summarises every order.
type Stats struct {
	Total          int64           `json:"total"`
	Pending        int64           `json:"pending"`
	Paid           int64           `json:"paid"`
	Cancelled      int64           `json:"cancelled"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	ThisMonthSpent decimal.Decimal `json:"this_month_spent"`
}

func GetStats(db *gorm.DB, userID uint, at time.Time) (Stats, error) {
	var rows []commerce.Order
	query := db.Model(&commerce.Order{})
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.Find(&rows).Error; err != nil {
		return Stats{}, errors.Wrap(err, "load orders")
	}

	month := now.With(at)
	start, end := month.BeginningOfMonth(), month.EndOfMonth()

	stats := Stats{TotalSpent: decimal.Zero, ThisMonthSpent: decimal.Zero}
	for _, o := range rows {
		stats.Total++
		switch o.Status {
		case commerce.OrderPending:
			stats.Pending++
		case commerce.OrderCancelled:
			stats.Cancelled++
		case commerce.OrderPaid:
			stats.Paid++
			stats.TotalSpent = stats.TotalSpent.Add(o.FinalAmount)
			if o.PaidAt != nil && !o.PaidAt.Before(start) && !o.PaidAt.After(end) {
				stats.ThisMonthSpent = stats.ThisMonthSpent.Add(o.FinalAmount)
			}
		}
	}
	return stats, nil
}
