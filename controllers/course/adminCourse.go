package controllers

import (
	"lms/database"
	"lms/middleware"
	"lms/models/course"
	"lms/services/catalog"
	"lms/services/schedule"
	"lms/validators"
	adminValidator "lms/validators/admin"

	"github.com/gofiber/fiber/v2"
)

func courseInput(r *adminValidator.CourseRequest) catalog.CourseInput {
	return catalog.CourseInput{
		Title:           r.Title,
		Description:     r.Description,
		InstructorID:    r.InstructorID,
		CategoryID:      r.CategoryID,
		Price:           r.Price,
		DiscountedPrice: r.DiscountedPrice,
		ClearDiscount:   r.ClearDiscount,
		CourseType:      r.CourseType,
		BundleCourses:   r.BundleCourses,
		ThumbnailURL:    r.ThumbnailURL,
		Duration:        r.Duration,
		Status:          r.Status,
	}
}

// AdminCreateCourse creates a new course
func AdminCreateCourse(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedCourse").(*adminValidator.CourseRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	crs, err := catalog.CreateCourse(database.Database.Db, courseInput(reqData))
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Course created successfully!", crs)
}

// AdminUpdateCourse updates an existing course
func AdminUpdateCourse(c *fiber.Ctx) error {
	courseID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	reqData, ok := c.Locals("validatedCourse").(*adminValidator.CourseRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	crs, err := catalog.UpdateCourse(database.Database.Db, courseID, courseInput(reqData))
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course updated successfully!", crs)
}

// AdminDeleteCourse soft deletes a course
func AdminDeleteCourse(c *fiber.Ctx) error {
	courseID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	if err := catalog.DeleteCourse(database.Database.Db, courseID); err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course deleted successfully!", nil)
}

func AdminPublishCourse(c *fiber.Ctx) error {
	courseID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	reqData, ok := c.Locals("validatedPublish").(*adminValidator.PublishRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	crs, err := catalog.SetPublished(database.Database.Db, courseID, reqData.Published)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	message := "Course unpublished successfully!"
	if reqData.Published {
		message = "Course published successfully!"
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, crs)
}

// AdminGetAllCourses lists all courses for admin
func AdminGetAllCourses(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedAdminList").(*adminValidator.PageQuery)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	courses, total, err := catalog.AdminCourses(database.Database.Db, reqData.Page, reqData.Limit)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", fiber.Map{
		"courses": courses,
		"pagination": fiber.Map{
			"total": total,
			"page":  reqData.Page,
			"limit": reqData.Limit,
		},
	})
}

func AdminCreateCategory(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedCategory").(*adminValidator.CategoryRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	cat, err := catalog.CreateCategory(database.Database.Db, reqData.Name)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Category created successfully!", cat)
}

// ============ Modules & lessons ============

func AdminCreateModule(c *fiber.Ctx) error {
	courseID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	reqData, ok := c.Locals("validatedModule").(*adminValidator.ModuleRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	module, err := catalog.CreateModule(database.Database.Db, courseID, reqData.Title, reqData.Description)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Module created successfully!", module)
}

func AdminCreateLesson(c *fiber.Ctx) error {
	moduleID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	reqData, ok := c.Locals("validatedLesson").(*adminValidator.LessonRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	lesson, err := catalog.CreateLesson(database.Database.Db, moduleID, course.Lesson{
		Title:      reqData.Title,
		Content:    reqData.Content,
		VideoURL:   reqData.VideoURL,
		LessonType: reqData.LessonType,
		Questions:  reqData.Questions,
	})
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Lesson created successfully!", lesson)
}

// ============ Batches & schedule ============

func AdminCreateBatch(c *fiber.Ctx) error {
	courseID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	reqData, ok := c.Locals("validatedBatch").(*adminValidator.BatchRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	batch, err := catalog.CreateBatch(database.Database.Db, courseID, catalog.BatchInput{
		Name:        reqData.Name,
		MaxStudents: reqData.MaxStudents,
		StartDate:   reqData.StartDate,
		EndDate:     reqData.EndDate,
	})
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Batch created successfully!", batch)
}

func AdminGetBatches(c *fiber.Ctx) error {
	courseID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	batches, err := catalog.Batches(database.Database.Db, courseID)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Batches fetched successfully!", batches)
}

func AdminCreateRoutine(c *fiber.Ctx) error {
	batchID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	reqData, ok := c.Locals("validatedRoutine").(*adminValidator.RoutineRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	routine, err := schedule.CreateRoutine(database.Database.Db, batchID, schedule.RoutineInput{
		Weekday:   reqData.Weekday,
		StartTime: reqData.StartTime,
		EndTime:   reqData.EndTime,
		OffDates:  reqData.OffDates,
	})
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Class routine created successfully!", routine)
}

func AdminSetZoom(c *fiber.Ctx) error {
	batchID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	reqData, ok := c.Locals("validatedZoom").(*adminValidator.ZoomRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	z, err := schedule.UpsertZoom(database.Database.Db, batchID, schedule.ZoomInput{
		Topic:     reqData.Topic,
		MeetingID: reqData.MeetingID,
		JoinURL:   reqData.JoinURL,
		Password:  reqData.Password,
	})
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Zoom link saved successfully!", z)
}
