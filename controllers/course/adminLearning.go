package controllers

import (
	"time"

	"lms/database"
	"lms/middleware"
	"lms/services/dashboard"
	"lms/services/exam"
	"lms/services/grading"
	"lms/validators"
	adminValidator "lms/validators/admin"

	"github.com/gofiber/fiber/v2"
)

func examInput(r *adminValidator.ExamRequest) exam.ExamInput {
	return exam.ExamInput{
		BatchID:   r.BatchID,
		Title:     r.Title,
		TotalTime: r.TotalTime,
		Content:   r.Content,
		IsActive:  r.IsActive,
	}
}

func AdminCreateExam(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedExam").(*adminValidator.ExamRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	e, err := exam.CreateExam(database.Database.Db, examInput(reqData))
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Exam created successfully!", e)
}

func AdminUpdateExam(c *fiber.Ctx) error {
	examID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	reqData, ok := c.Locals("validatedExam").(*adminValidator.ExamRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	e, err := exam.UpdateExam(database.Database.Db, examID, examInput(reqData))
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Exam updated successfully!", e)
}

func AdminGetExamResponses(c *fiber.Ctx) error {
	examID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	responses, err := dashboard.ExamResponses(database.Database.Db, examID)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Exam responses fetched successfully!", responses)
}

// AdminOverrideScore regrades a finished response by hand. A passing score issues the
// certificate the same way finishing the exam does.
func AdminOverrideScore(c *fiber.Ctx) error {
	responseID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	reqData, ok := c.Locals("validatedOverride").(*adminValidator.OverrideScoreRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	result, err := exam.OverrideScore(database.Database.Db, deps.Bus, responseID, reqData.Score)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Score updated successfully!", result)
}

func AdminRegenerateCertificate(c *fiber.Ctx) error {
	responseID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	if deps.Issuer == nil {
		return middleware.JsonResponse(c, fiber.StatusServiceUnavailable, false, "Certificate issuing is not configured!", nil)
	}

	cert, err := deps.Issuer.Regenerate(database.Database.Db, responseID)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate generated successfully!", cert)
}

// ============ Submissions ============

func AdminGetPendingSubmissions(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedSubmissionList").(*adminValidator.SubmissionListQuery)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	subs, err := dashboard.PendingSubmissions(database.Database.Db, reqData.Type, reqData.Limit)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Pending submissions fetched successfully!", subs)
}

func AdminGradeSubmission(c *fiber.Ctx) error {
	submissionID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	reqData, ok := c.Locals("validatedGrade").(*adminValidator.GradeRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	graderID, _ := c.Locals("userId").(uint)

	sub, err := grading.GradeAssignment(database.Database.Db, graderID, submissionID, reqData.Score, reqData.MaxScore, reqData.Feedback)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Submission graded successfully!", sub)
}

// AdminBulkGrade auto grades pending quiz submissions. An empty id list grades every one.
func AdminBulkGrade(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedBulkGrade").(*adminValidator.BulkGradeRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	graded, err := grading.BulkGradePending(database.Database.Db, reqData.SubmissionIDs)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Submissions graded successfully!", fiber.Map{"graded": graded})
}

func AdminDashboardStats(c *fiber.Ctx) error {
	stats, err := dashboard.GetStats(database.Database.Db, time.Now())
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Dashboard stats fetched successfully!", stats)
}
