package adminValidator

import (
	"strings"
	"time"

	"lms/models/course"
	examModels "lms/models/exam"
	"lms/validators"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type PageQuery struct {
	Page  int `query:"page" validate:"omitempty,min=1"`
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

// ============ Courses ============

// CourseRequest is shared by create and update. Omitted fields are left unchanged on update.
type CourseRequest struct {
	Title           *string          `json:"title" validate:"omitempty,notblank,max=200"`
	Description     *string          `json:"description"`
	InstructorID    *uint            `json:"instructor_id"`
	CategoryID      *uint            `json:"category_id"`
	Price           *decimal.Decimal `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price"`
	ClearDiscount   bool             `json:"clear_discount"`
	CourseType      *string          `json:"course_type" validate:"omitempty,oneof=single bundle"`
	BundleCourses   []uint           `json:"bundle_courses"`
	ThumbnailURL    *string          `json:"thumbnail_url" validate:"omitempty,max=500"`
	Duration        *int64           `json:"duration" validate:"omitempty,min=0"`
	Status          *string          `json:"status" validate:"omitempty,oneof=DRAFT ACTIVE INACTIVE"`
}

type PublishRequest struct {
	Published bool `json:"published"`
}

type CategoryRequest struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}

type BatchRequest struct {
	Name        string     `json:"name" validate:"required,notblank,max=100"`
	MaxStudents int        `json:"max_students" validate:"min=0"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

type ModuleRequest struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description"`
}

type LessonRequest struct {
	Title      string                  `json:"title" validate:"required,notblank,max=200"`
	Content    string                  `json:"content"`
	VideoURL   string                  `json:"video_url" validate:"omitempty,url"`
	LessonType string                  `json:"lesson_type" validate:"required,oneof=text video quiz assignment"`
	Questions  []course.LessonQuestion `json:"questions"`
}

func CreateCourse() fiber.Handler {
	return validators.Body("validatedCourse", func(r *CourseRequest, errs map[string]string) {
		if r.Title == nil {
			errs["title"] = "Title is required!"
		}
		if r.Price == nil {
			errs["price"] = "Price is required!"
		}
	})
}

func UpdateCourse() fiber.Handler {
	return validators.Body[CourseRequest]("validatedCourse")
}

func PublishCourse() fiber.Handler {
	return validators.Body[PublishRequest]("validatedPublish")
}

func CreateCategory() fiber.Handler {
	return validators.Body("validatedCategory", func(r *CategoryRequest, _ map[string]string) {
		r.Name = strings.TrimSpace(r.Name)
	})
}

func CreateBatch() fiber.Handler {
	return validators.Body[BatchRequest]("validatedBatch")
}

func CreateModule() fiber.Handler {
	return validators.Body[ModuleRequest]("validatedModule")
}

func CreateLesson() fiber.Handler {
	return validators.Body[LessonRequest]("validatedLesson")
}

func List() fiber.Handler {
	return validators.Query[PageQuery]("validatedAdminList")
}

// ============ Coupons ============

type CouponRequest struct {
	Code           string           `json:"code" validate:"required,notblank,max=64"`
	Type           string           `json:"type" validate:"required,oneof=fixed percentage"`
	Value          decimal.Decimal  `json:"value"`
	MinOrderAmount *decimal.Decimal `json:"min_order_amount"`
	UsageLimit     *int             `json:"usage_limit" validate:"omitempty,min=0"`
	ExpiresAt      *time.Time       `json:"expires_at"`
	CourseIDs      []uint           `json:"course_ids"`
	IsActive       bool             `json:"is_active"`
}

func Coupon() fiber.Handler {
	return validators.Body[CouponRequest]("validatedCoupon")
}

// ============ Exams ============

type ExamRequest struct {
	BatchID   uint                  `json:"batch_id"`
	Title     string                `json:"title" validate:"required,notblank,max=200"`
	TotalTime int                   `json:"total_time" validate:"required,min=1"`
	Content   []examModels.Question `json:"content"`
	IsActive  bool                  `json:"is_active"`
}

type OverrideScoreRequest struct {
	Score int `json:"score" validate:"min=0"`
}

func CreateExam() fiber.Handler {
	return validators.Body("validatedExam", func(r *ExamRequest, errs map[string]string) {
		if r.BatchID == 0 {
			errs["batch_id"] = "Batch is required!"
		}
	})
}

func UpdateExam() fiber.Handler {
	return validators.Body[ExamRequest]("validatedExam")
}

func OverrideScore() fiber.Handler {
	return validators.Body[OverrideScoreRequest]("validatedOverride")
}

// ============ Orders, enrollments & grading ============

type OrderListQuery struct {
	UserID uint   `query:"user_id"`
	Status string `query:"status" validate:"omitempty,oneof=pending paid cancelled"`
	Page   int    `query:"page" validate:"omitempty,min=1"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

type ApprovePaymentRequest struct {
	Reference string `json:"reference" validate:"max=200"`
}

type BulkAdmitRequest struct {
	BatchID uint   `json:"batch_id" validate:"required"`
	UserIDs []uint `json:"user_ids" validate:"required,min=1,max=500"`
}

type EnrollmentListQuery struct {
	CourseID uint   `query:"course_id"`
	BatchID  uint   `query:"batch_id"`
	Status   string `query:"status" validate:"omitempty,oneof=pending active completed suspended dropped"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

type GradeRequest struct {
	Score    int    `json:"score" validate:"min=0"`
	MaxScore int    `json:"max_score" validate:"min=0"`
	Feedback string `json:"feedback" validate:"max=5000"`
}

type BulkGradeRequest struct {
	SubmissionIDs []uint `json:"submission_ids"`
}

type SubmissionListQuery struct {
	Type  string `query:"type" validate:"omitempty,oneof=quiz assignment"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=200"`
}

func OrderList() fiber.Handler {
	return validators.Query[OrderListQuery]("validatedOrderList")
}

func ApprovePayment() fiber.Handler {
	return validators.Body[ApprovePaymentRequest]("validatedApprove")
}

func BulkAdmit() fiber.Handler {
	return validators.Body[BulkAdmitRequest]("validatedBulkAdmit")
}

func EnrollmentList() fiber.Handler {
	return validators.Query[EnrollmentListQuery]("validatedEnrollmentList")
}

func Grade() fiber.Handler {
	return validators.Body[GradeRequest]("validatedGrade")
}

func BulkGrade() fiber.Handler {
	return validators.Body[BulkGradeRequest]("validatedBulkGrade")
}

func SubmissionList() fiber.Handler {
	return validators.Query[SubmissionListQuery]("validatedSubmissionList")
}

// ============ Schedule ============

type RoutineRequest struct {
	Weekday   int      `json:"weekday" validate:"min=0,max=6"`
	StartTime string   `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string   `json:"end_time" validate:"required,datetime=15:04"`
	OffDates  []string `json:"off_dates" validate:"dive,datetime=2006-01-02"`
}

type ZoomRequest struct {
	Topic     string `json:"topic" validate:"max=200"`
	MeetingID string `json:"meeting_id" validate:"max=64"`
	JoinURL   string `json:"join_url" validate:"omitempty,url"`
	Password  string `json:"password" validate:"max=64"`
}

func Routine() fiber.Handler {
	return validators.Body[RoutineRequest]("validatedRoutine")
}

func Zoom() fiber.Handler {
	return validators.Body("validatedZoom", func(r *ZoomRequest, errs map[string]string) {
		if r.MeetingID == "" && r.JoinURL == "" {
			errs["meeting_id"] = "Meeting id or join url is required!"
		}
	})
}
