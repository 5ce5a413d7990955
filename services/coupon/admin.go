package coupon

import (
	"lms/apperror"
	"lms/database"
	"lms/models/commerce"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Create stores a new coupon with its code upper-cased.
func Create(db *gorm.DB, c commerce.Coupon) (commerce.Coupon, error) {
	c.ID = 0
	c.Code = NormalizeCode(c.Code)
	c.UsedCount = 0
	if errs := Validate(&c); len(errs) > 0 {
		return commerce.Coupon{}, apperror.Validation(errs)
	}
	if err := db.Create(&c).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return commerce.Coupon{}, apperror.Validation(map[string]string{"code": "Coupon code already exists!"})
		}
		return commerce.Coupon{}, errors.Wrap(err, "create coupon")
	}
	return c, nil
}

// Update replaces the editable fields of a coupon. used_count is never written here.
func Update(db *gorm.DB, id uint, in commerce.Coupon) (commerce.Coupon, error) {
	var c commerce.Coupon
	err := db.Where("id = ? AND is_deleted = ?", id, false).First(&c).Error
	if database.IsNotFound(err) {
		return c, apperror.NotFound("Coupon not found!")
	}
	if err != nil {
		return c, errors.Wrap(err, "load coupon")
	}

	c.Code = NormalizeCode(in.Code)
	c.Type = in.Type
	c.Value = in.Value
	c.MinOrderAmount = in.MinOrderAmount
	c.UsageLimit = in.UsageLimit
	c.ExpiresAt = in.ExpiresAt
	c.CourseIDs = in.CourseIDs
	c.IsActive = in.IsActive
	if errs := Validate(&c); len(errs) > 0 {
		return commerce.Coupon{}, apperror.Validation(errs)
	}

	err = db.Model(&c).Select("code", "type", "value", "min_order_amount", "usage_limit", "expires_at", "course_ids", "is_active").
		Updates(&c).Error
	if database.IsUniqueViolation(err) {
		return commerce.Coupon{}, apperror.Validation(map[string]string{"code": "Coupon code already exists!"})
	}
	return c, errors.Wrap(err, "update coupon")
}

func List(db *gorm.DB) ([]commerce.Coupon, error) {
	var coupons []commerce.Coupon
	err := db.Where("is_deleted = ?", false).Order("created_at desc").Find(&coupons).Error
	return coupons, errors.Wrap(err, "list coupons")
}
