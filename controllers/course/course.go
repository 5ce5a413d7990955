package controllers

import (
	"lms/database"
	"lms/middleware"
	"lms/services/catalog"
	"lms/validators"
	courseValidator "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// GetAllCourses lists published courses
func GetAllCourses(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedCourseList").(*courseValidator.CourseListQuery)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	page, err := catalog.List(database.Database.Db, catalog.ListFilter{
		Search:     reqData.Search,
		CategoryID: reqData.CategoryID,
		CourseType: reqData.CourseType,
		Page:       reqData.Page,
		Limit:      reqData.Limit,
	})
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", page)
}

// GetCourseDetails returns the course page by slug
func GetCourseDetails(c *fiber.Ctx) error {
	detail, err := catalog.GetDetail(database.Database.Db, c.Params("slug"))
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course details fetched successfully!", detail)
}

func GetCategories(c *fiber.Ctx) error {
	categories, err := catalog.Categories(database.Database.Db)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Categories fetched successfully!", categories)
}

func GetInstructors(c *fiber.Ctx) error {
	instructors, err := catalog.Instructors(database.Database.Db)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Instructors fetched successfully!", instructors)
}

func GetReviews(c *fiber.Ctx) error {
	courseID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	reviews, err := catalog.Reviews(database.Database.Db, courseID)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Reviews fetched successfully!", reviews)
}

func CreateReview(c *fiber.Ctx) error {
	courseID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	reqData, ok := c.Locals("validatedReview").(*courseValidator.ReviewRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	review, err := catalog.CreateReview(database.Database.Db, user, courseID, reqData.Rating, reqData.Comment)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Review submitted successfully!", review)
}

// GetCourseContent returns the modules and lessons of a course the user can access
func GetCourseContent(c *fiber.Ctx) error {
	courseID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	modules, err := catalog.Modules(database.Database.Db, user, courseID)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course content fetched successfully!", modules)
}

func GetLesson(c *fiber.Ctx) error {
	lessonID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	lesson, err := catalog.Lesson(database.Database.Db, user, lessonID)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson fetched successfully!", lesson)
}
