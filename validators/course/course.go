package courseValidator

import (
	"strings"

	"lms/models/course"
	examModels "lms/models/exam"
	"lms/validators"

	"github.com/gofiber/fiber/v2"
)

// ============ Catalog ============

type CourseListQuery struct {
	Search     string `query:"search" validate:"omitempty,max=100"`
	CategoryID uint   `query:"category_id"`
	CourseType string `query:"course_type" validate:"omitempty,oneof=single bundle"`
	Page       int    `query:"page" validate:"omitempty,min=1"`
	Limit      int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"omitempty,max=2000"`
}

func CourseList() fiber.Handler {
	return validators.Query("validatedCourseList", func(r *CourseListQuery, _ map[string]string) {
		r.Search = strings.TrimSpace(r.Search)
	})
}

func CreateReview() fiber.Handler {
	return validators.Body[ReviewRequest]("validatedReview")
}

// ============ Orders & enrollment ============

type CouponCheckRequest struct {
	Code     string `json:"code" validate:"required,notblank,max=64"`
	CourseID uint   `json:"course_id" validate:"required"`
}

type CreateOrderRequest struct {
	CourseID   uint   `json:"course_id" validate:"required"`
	CouponCode string `json:"coupon_code" validate:"omitempty,max=64"`
}

type OrderListQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=pending paid cancelled"`
	Page   int    `query:"page" validate:"omitempty,min=1"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

type EnrollRequest struct {
	CourseID uint `json:"course_id" validate:"required"`
}

func CheckCoupon() fiber.Handler {
	return validators.Body[CouponCheckRequest]("validatedCouponCheck")
}

func CreateOrder() fiber.Handler {
	return validators.Body("validatedOrder", func(r *CreateOrderRequest, _ map[string]string) {
		r.CouponCode = strings.TrimSpace(r.CouponCode)
	})
}

func OrderList() fiber.Handler {
	return validators.Query[OrderListQuery]("validatedOrderList")
}

func Enroll() fiber.Handler {
	return validators.Body[EnrollRequest]("validatedEnroll")
}

// ============ Exams ============

type FinishExamRequest struct {
	Answers []examModels.Answer `json:"answers" validate:"dive"`
}

func FinishExam() fiber.Handler {
	return validators.Body("validatedExamFinish", func(r *FinishExamRequest, errs map[string]string) {
		for _, a := range r.Answers {
			if a.QuestionID < 0 {
				errs["answers"] = "Question ids cannot be negative!"
				return
			}
		}
	})
}

// ============ Lessons ============

// SubmitLessonRequest carries quiz answers or assignment content. Assignment files arrive as
// multipart parts named "files".
type SubmitLessonRequest struct {
	Answers []course.SubmittedAnswer `json:"answers" form:"answers"`
	Content string                   `json:"content" form:"content" validate:"omitempty,max=20000"`
}

func SubmitLesson() fiber.Handler {
	return validators.Body[SubmitLessonRequest]("validatedLessonSubmit")
}

// ============ Discussions ============

type DiscussionListQuery struct {
	TargetType string `query:"target_type" validate:"required,oneof=course lesson"`
	TargetID   uint   `query:"target_id" validate:"required"`
}

type CreateDiscussionRequest struct {
	TargetType string `json:"target_type" validate:"required,oneof=course lesson"`
	TargetID   uint   `json:"target_id" validate:"required"`
	Title      string `json:"title" validate:"required,notblank,max=200"`
	Body       string `json:"body" validate:"required,notblank,max=10000"`
	IsQuestion bool   `json:"is_question"`
}

type ReplyRequest struct {
	Body string `json:"body" validate:"required,notblank,max=10000"`
}

// UpdateDiscussionRequest replaces the post. Title and is_question only apply to root threads.
type UpdateDiscussionRequest struct {
	Title      string `json:"title" validate:"omitempty,max=200"`
	Body       string `json:"body" validate:"required,notblank,max=10000"`
	IsQuestion bool   `json:"is_question"`
}

func DiscussionList() fiber.Handler {
	return validators.Query[DiscussionListQuery]("validatedDiscussionList")
}

func CreateDiscussion() fiber.Handler {
	return validators.Body("validatedDiscussion", func(r *CreateDiscussionRequest, _ map[string]string) {
		r.Title = strings.TrimSpace(r.Title)
	})
}

func Reply() fiber.Handler {
	return validators.Body[ReplyRequest]("validatedReply")
}

func UpdateDiscussion() fiber.Handler {
	return validators.Body[UpdateDiscussionRequest]("validatedDiscussionUpdate")
}
