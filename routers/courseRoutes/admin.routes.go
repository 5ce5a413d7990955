package courseRoutes

import (
	controllers "lms/controllers/course"
	"lms/middleware"
	"lms/models"
	adminValidators "lms/validators/admin"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminRoutes sets up the admin surface. Grading is open to instructors as well.
func SetupAdminRoutes(app *fiber.App) {
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	grader := middleware.RequireRole(models.RoleAdmin, models.RoleInstructor)

	adminGroup := app.Group("/admin", middleware.JWTMiddleware)

	// Course CRUD
	adminGroup.Get("/courses", adminOnly, adminValidators.List(), controllers.AdminGetAllCourses)
	adminGroup.Post("/courses", adminOnly, adminValidators.CreateCourse(), controllers.AdminCreateCourse)
	adminGroup.Put("/courses/:id", adminOnly, adminValidators.UpdateCourse(), controllers.AdminUpdateCourse)
	adminGroup.Delete("/courses/:id", adminOnly, controllers.AdminDeleteCourse)
	adminGroup.Post("/courses/:id/publish", adminOnly, adminValidators.PublishCourse(), controllers.AdminPublishCourse)
	adminGroup.Post("/categories", adminOnly, adminValidators.CreateCategory(), controllers.AdminCreateCategory)

	// Modules, lessons & batches
	adminGroup.Post("/courses/:id/modules", adminOnly, adminValidators.CreateModule(), controllers.AdminCreateModule)
	adminGroup.Post("/modules/:id/lessons", adminOnly, adminValidators.CreateLesson(), controllers.AdminCreateLesson)
	adminGroup.Get("/courses/:id/batches", adminOnly, controllers.AdminGetBatches)
	adminGroup.Post("/courses/:id/batches", adminOnly, adminValidators.CreateBatch(), controllers.AdminCreateBatch)
	adminGroup.Post("/batches/:id/routines", adminOnly, adminValidators.Routine(), controllers.AdminCreateRoutine)
	adminGroup.Put("/batches/:id/zoom", adminOnly, adminValidators.Zoom(), controllers.AdminSetZoom)

	// Coupons
	adminGroup.Get("/coupons", adminOnly, controllers.AdminGetCoupons)
	adminGroup.Post("/coupons", adminOnly, adminValidators.Coupon(), controllers.AdminCreateCoupon)
	adminGroup.Put("/coupons/:id", adminOnly, adminValidators.Coupon(), controllers.AdminUpdateCoupon)

	// Orders & enrollments
	adminGroup.Get("/orders", adminOnly, adminValidators.OrderList(), controllers.AdminGetOrders)
	adminGroup.Post("/orders/:id/approve", adminOnly, adminValidators.ApprovePayment(), controllers.AdminApprovePayment)
	adminGroup.Post("/orders/:id/cancel", adminOnly, controllers.AdminCancelOrder)
	adminGroup.Get("/enrollments", adminOnly, adminValidators.EnrollmentList(), controllers.AdminGetEnrollments)
	adminGroup.Post("/enrollments/bulk", adminOnly, adminValidators.BulkAdmit(), controllers.AdminBulkAdmit)

	// Exams & certificates
	adminGroup.Post("/exams", adminOnly, adminValidators.CreateExam(), controllers.AdminCreateExam)
	adminGroup.Put("/exams/:id", adminOnly, adminValidators.UpdateExam(), controllers.AdminUpdateExam)
	adminGroup.Get("/exams/:id/responses", grader, controllers.AdminGetExamResponses)
	adminGroup.Put("/exam-responses/:id/score", grader, adminValidators.OverrideScore(), controllers.AdminOverrideScore)
	adminGroup.Post("/exam-responses/:id/certificate", adminOnly, controllers.AdminRegenerateCertificate)

	// Submissions
	adminGroup.Get("/submissions/pending", grader, adminValidators.SubmissionList(), controllers.AdminGetPendingSubmissions)
	adminGroup.Post("/submissions/bulk-grade", grader, adminValidators.BulkGrade(), controllers.AdminBulkGrade)
	adminGroup.Post("/submissions/:id/grade", grader, adminValidators.Grade(), controllers.AdminGradeSubmission)

	// Dashboard
	adminGroup.Get("/dashboard/stats", adminOnly, controllers.AdminDashboardStats)
}
