package courseRoutes

import (
	controllers "lms/controllers/course"
	"lms/middleware"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up all student facing routes
func SetupCourseRoutes(app *fiber.App) {
	// Catalog (public)
	app.Get("/courses", validators.CourseList(), controllers.GetAllCourses)
	app.Get("/courses/:slug", controllers.GetCourseDetails)
	app.Get("/categories", controllers.GetCategories)
	app.Get("/instructors", controllers.GetInstructors)
	app.Get("/courses/:id/reviews", controllers.GetReviews)
	app.Post("/courses/:id/reviews", middleware.JWTMiddleware, validators.CreateReview(), controllers.CreateReview)

	// Content (enrolled users)
	app.Get("/courses/:id/modules", middleware.JWTMiddleware, controllers.GetCourseContent)
	lessonGroup := app.Group("/lessons", middleware.JWTMiddleware)
	lessonGroup.Get("/:id", controllers.GetLesson)
	lessonGroup.Post("/:id/complete", controllers.MarkLessonComplete)
	lessonGroup.Post("/:id/submit", validators.SubmitLesson(), controllers.SubmitLesson)

	// Coupons, orders & enrollment
	app.Post("/coupons/check", middleware.JWTMiddleware, validators.CheckCoupon(), controllers.CheckCoupon)

	orderGroup := app.Group("/orders", middleware.JWTMiddleware)
	orderGroup.Post("/", validators.CreateOrder(), controllers.CreateOrder)
	orderGroup.Get("/", validators.OrderList(), controllers.GetMyOrders)
	orderGroup.Get("/stats", controllers.GetOrderStats)
	orderGroup.Get("/:id", controllers.GetOrder)
	orderGroup.Post("/:id/cancel", controllers.CancelOrder)

	app.Post("/payments/midtrans/notification", controllers.MidtransNotification)

	app.Post("/enrollments", middleware.JWTMiddleware, validators.Enroll(), controllers.EnrollInCourse)
	app.Get("/enrollments", middleware.JWTMiddleware, controllers.GetUserEnrollmentsList)

	// Exams
	examGroup := app.Group("/exams", middleware.JWTMiddleware)
	examGroup.Get("/", controllers.GetMyExams)
	examGroup.Post("/:id/start", controllers.StartExam)
	examGroup.Post("/:id/finish", validators.FinishExam(), controllers.FinishExam)
	examGroup.Get("/:id/result", controllers.GetExamResult)
	examGroup.Get("/:id/result/details", controllers.GetExamResultDetails)

	// Certificates
	app.Get("/certificates", middleware.JWTMiddleware, controllers.GetUserCertificates)
	app.Get("/certificates/:id", middleware.JWTMiddleware, controllers.GetCertificate)

	// Discussions
	discussionGroup := app.Group("/discussions", middleware.JWTMiddleware)
	discussionGroup.Get("/", validators.DiscussionList(), controllers.GetDiscussions)
	discussionGroup.Post("/", validators.CreateDiscussion(), controllers.CreateDiscussion)
	discussionGroup.Post("/:id/replies", validators.Reply(), controllers.ReplyDiscussion)
	discussionGroup.Put("/:id", validators.UpdateDiscussion(), controllers.UpdateDiscussion)
	discussionGroup.Delete("/:id", controllers.DeleteDiscussion)
	discussionGroup.Post("/:id/upvote", controllers.UpvoteDiscussion)
	discussionGroup.Post("/:id/answered", controllers.MarkDiscussionAnswered)

	// Live classes
	batchGroup := app.Group("/batches", middleware.JWTMiddleware)
	batchGroup.Get("/:id/routines", controllers.GetBatchRoutines)
	batchGroup.Get("/:id/zoom", controllers.GetBatchZoom)
}
