package course

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TypeSingle = "single"
	TypeBundle = "bundle"

	StatusDraft    = "DRAFT"
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// Category groups courses in the catalog
type Category struct {
	gorm.Model
	Name      string `json:"name" gorm:"not null"`
	Slug      string `json:"slug" gorm:"uniqueIndex;size:191"`
	IsDeleted bool   `json:"-" gorm:"default:false"`
}

// Course represents a learning course. A bundle course grants enrollment in BundleCourses.
type Course struct {
	gorm.Model
	Title           string                    `json:"title" gorm:"not null"`
	Slug            string                    `json:"slug" gorm:"uniqueIndex;size:191"`
	Description     string                    `json:"description" gorm:"type:text"`
	InstructorID    *uint                     `json:"instructor_id" gorm:"index"`
	CategoryID      *uint                     `json:"category_id" gorm:"index"`
	Price           decimal.Decimal           `json:"price" gorm:"type:decimal(12,2);not null;default:0"`
	DiscountedPrice decimal.NullDecimal       `json:"discounted_price" gorm:"type:decimal(12,2)"`
	CourseType      string                    `json:"course_type" gorm:"default:'single'"` // single, bundle
	BundleCourses   datatypes.JSONSlice[uint] `json:"bundle_courses"`
	ThumbnailURL    string                    `json:"thumbnail_url"`
	Duration        int64                     `json:"duration" gorm:"default:0"`     // duration in hours
	Status          string                    `json:"status" gorm:"default:'DRAFT'"` // DRAFT, ACTIVE, INACTIVE
	IsDeleted       bool                      `json:"-" gorm:"default:false"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

// EffectivePrice is the discounted price when one is set, otherwise the base price.
func (c Course) EffectivePrice() decimal.Decimal {
	if c.DiscountedPrice.Valid {
		return c.DiscountedPrice.Decimal
	}
	return c.Price
}

func (c Course) IsBundle() bool {
	return c.CourseType == TypeBundle
}

// TargetCourseIDs lists the courses a purchase of c enrolls into.
func (c Course) TargetCourseIDs() []uint {
	if c.IsBundle() {
		return append([]uint(nil), c.BundleCourses...)
	}
	return []uint{c.ID}
}

// Review is a student's rating of a course. One per user and course.
type Review struct {
	gorm.Model
	UserID    uint   `json:"user_id" gorm:"not null;uniqueIndex:idx_review_user_course"`
	CourseID  uint   `json:"course_id" gorm:"not null;uniqueIndex:idx_review_user_course"`
	Rating    int    `json:"rating" gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment   string `json:"comment" gorm:"type:text;default:''"`
	IsDeleted bool   `json:"-" gorm:"default:false"`
}
