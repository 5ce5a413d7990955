// Package dashboard aggregates the numbers and lists shown on the admin dashboard.
package dashboard

import (
	"time"

	"lms/models"
	"lms/models/commerce"
	"lms/models/course"
	examModels "lms/models/exam"

	"github.com/jinzhu/now"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Stats struct {
	TotalStudents        int64              `json:"total_students"`
	TotalCourses         int64              `json:"total_courses"`
	PublishedCourses     int64              `json:"published_courses"`
	ActiveEnrollments    int64              `json:"active_enrollments"`
	CompletedEnrollments int64              `json:"completed_enrollments"`
	PendingOrders        int64              `json:"pending_orders"`
	PendingSubmissions   int64              `json:"pending_submissions"`
	CertificatesIssued   int64              `json:"certificates_issued"`
	Revenue              decimal.Decimal    `json:"revenue"`
	RevenueThisMonth     decimal.Decimal    `json:"revenue_this_month"`
	RecentEnrollments    []RecentEnrollment `json:"recent_enrollments"`
}

type RecentEnrollment struct {
	UserName   string    `json:"user_name"`
	CourseName string    `json:"course_name"`
	BatchName  string    `json:"batch_name"`
	Status     string    `json:"status"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

type counter struct {
	model interface{}
	where string
	args  []interface{}
	dst   *int64
}

// GetStats computes the dashboard at the given instant.
func GetStats(db *gorm.DB, at time.Time) (Stats, error) {
	var s Stats
	counters := []counter{
		{&models.User{}, "role = ? AND is_deleted = ?", []interface{}{models.RoleStudent, false}, &s.TotalStudents},
		{&course.Course{}, "is_deleted = ?", []interface{}{false}, &s.TotalCourses},
		{&course.Course{}, "is_deleted = ? AND status = ?", []interface{}{false, course.StatusActive}, &s.PublishedCourses},
		{&course.Enrollment{}, "status = ?", []interface{}{course.EnrollmentActive}, &s.ActiveEnrollments},
		{&course.Enrollment{}, "status = ?", []interface{}{course.EnrollmentCompleted}, &s.CompletedEnrollments},
		{&commerce.Order{}, "status = ?", []interface{}{commerce.OrderPending}, &s.PendingOrders},
		{&course.Submission{}, "status = ? AND is_deleted = ?", []interface{}{course.SubmissionPending, false}, &s.PendingSubmissions},
		{&course.Certificate{}, "1 = 1", nil, &s.CertificatesIssued},
	}
	for _, c := range counters {
		if err := db.Model(c.model).Where(c.where, c.args...).Count(c.dst).Error; err != nil {
			return s, errors.Wrap(err, "dashboard counts")
		}
	}

	var err error
	if s.Revenue, err = revenue(db, time.Time{}, time.Time{}); err != nil {
		return s, err
	}
	month := now.With(at)
	if s.RevenueThisMonth, err = revenue(db, month.BeginningOfMonth(), month.EndOfMonth()); err != nil {
		return s, err
	}

	var recent []course.Enrollment
	if err := db.Preload("Course").Preload("Batch").Order("created_at desc").Limit(5).Find(&recent).Error; err != nil {
		return s, errors.Wrap(err, "recent enrollments")
	}
	userNames, err := names(db, recent)
	if err != nil {
		return s, err
	}
	s.RecentEnrollments = make([]RecentEnrollment, 0, len(recent))
	for _, e := range recent {
		r := RecentEnrollment{UserName: userNames[e.UserID], Status: e.Status, EnrolledAt: e.EnrolledAt}
		if e.Course != nil {
			r.CourseName = e.Course.Title
		}
		if e.Batch != nil {
			r.BatchName = e.Batch.Name
		}
		s.RecentEnrollments = append(s.RecentEnrollments, r)
	}
	return s, nil
}

// revenue sums paid orders, optionally limited to paid_at within [from, to].
func revenue(db *gorm.DB, from, to time.Time) (decimal.Decimal, error) {
	query := db.Model(&commerce.Order{}).Where("status = ?", commerce.OrderPaid)
	if !from.IsZero() {
		query = query.Where("paid_at BETWEEN ? AND ?", from, to)
	}
	var amounts []decimal.Decimal
	if err := query.Pluck("final_amount", &amounts).Error; err != nil {
		return decimal.Zero, errors.Wrap(err, "sum revenue")
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

func names(db *gorm.DB, enrollments []course.Enrollment) (map[uint]string, error) {
	ids := make([]uint, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.UserID)
	}
	out := map[uint]string{}
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := db.Select("id", "name").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "load users")
	}
	for _, u := range users {
		out[u.ID] = u.Name
	}
	return out, nil
}

// EnrollmentFilter narrows the admin enrollment list.
type EnrollmentFilter struct {
	CourseID uint
	BatchID  uint
	Status   string
	Page     int
	Limit    int
}

type EnrollmentRow struct {
	course.Enrollment
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

func Enrollments(db *gorm.DB, f EnrollmentFilter) ([]EnrollmentRow, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}

	query := db.Model(&course.Enrollment{})
	if f.CourseID != 0 {
		query = query.Where("course_id = ?", f.CourseID)
	}
	if f.BatchID != 0 {
		query = query.Where("batch_id = ?", f.BatchID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count enrollments")
	}
	var enrollments []course.Enrollment
	if err := query.Preload("Batch").Order("created_at desc").
		Offset((f.Page - 1) * f.Limit).Limit(f.Limit).Find(&enrollments).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list enrollments")
	}

	ids := make([]uint, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.UserID)
	}
	users := map[uint]models.User{}
	if len(ids) > 0 {
		var list []models.User
		if err := db.Select("id", "name", "email").Where("id IN ?", ids).Find(&list).Error; err != nil {
			return nil, 0, errors.Wrap(err, "load users")
		}
		for _, u := range list {
			users[u.ID] = u
		}
	}

	rows := make([]EnrollmentRow, 0, len(enrollments))
	for _, e := range enrollments {
		u := users[e.UserID]
		rows = append(rows, EnrollmentRow{Enrollment: e, UserName: u.Name, UserEmail: u.Email})
	}
	return rows, total, nil
}

// PendingSubmissions lists submissions waiting for a grade, oldest first.
func PendingSubmissions(db *gorm.DB, kind string, limit int) ([]course.Submission, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	query := db.Where("status = ? AND is_deleted = ?", course.SubmissionPending, false)
	if kind != "" {
		query = query.Where("type = ?", kind)
	}
	var subs []course.Submission
	err := query.Preload("Lesson").Order("created_at asc").Limit(limit).Find(&subs).Error
	return subs, errors.Wrap(err, "list pending submissions")
}

// ExamResponses lists the responses of an exam, best first.
func ExamResponses(db *gorm.DB, examID uint) ([]examModels.Response, error) {
	var responses []examModels.Response
	err := db.Where("exam_id = ?", examID).Order("percentage desc, id asc").Find(&responses).Error
	return responses, errors.Wrap(err, "list responses")
}
