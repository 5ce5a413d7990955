package controllers

import (
	"log"

	"lms/database"
	"lms/middleware"
	"lms/models/course"
	"lms/services/certificate"
	"lms/services/exam"
	"lms/services/grading"
	"lms/utils"
	"lms/validators"
	courseValidator "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

const maxAssignmentFiles = 5

// MarkLessonComplete records a lesson as done and returns the new course progress
func MarkLessonComplete(c *fiber.Ctx) error {
	lessonID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	progress, err := grading.CompleteLesson(database.Database.Db, user, lessonID)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson marked as complete!", fiber.Map{"progress": progress})
}

// SubmitLesson takes quiz answers (graded at once) or assignment work (graded later).
func SubmitLesson(c *fiber.Ctx) error {
	lessonID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	reqData, ok := c.Locals("validatedLessonSubmit").(*courseValidator.SubmitLessonRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	db := database.Database.Db
	lesson, err := grading.LoadLessonFor(db, user, lessonID)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	var sub course.Submission
	switch lesson.LessonType {
	case course.LessonQuiz:
		sub, err = grading.SubmitQuiz(db, user, lessonID, reqData.Answers)
	case course.LessonAssignment:
		var files []string
		if form, ferr := c.MultipartForm(); ferr == nil {
			uploads := form.File["files"]
			if len(uploads) > maxAssignmentFiles {
				return middleware.ValidationErrorResponse(c, map[string]string{"files": "At most 5 files can be attached!"})
			}
			for _, f := range uploads {
				url, uerr := utils.SaveUploadedFile(c.UserContext(), deps.Storage, f, "assignments")
				if uerr != nil {
					log.Printf("[LESSON] Error saving assignment file for user %d: %v", user.ID, uerr)
					return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Failed to upload file!", nil)
				}
				files = append(files, url)
			}
		}
		if reqData.Content == "" && len(files) == 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{"content": "Content or files are required!"})
		}
		sub, err = grading.SubmitAssignment(db, user, lessonID, reqData.Content, files)
	default:
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "This lesson does not accept submissions!", nil)
	}
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Submission received!", sub)
}

// ============ Exams ============

func GetMyExams(c *fiber.Ctx) error {
	userId, _ := c.Locals("userId").(uint)
	exams, err := exam.ListForUser(database.Database.Db, userId)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Exams fetched successfully!", exams)
}

func StartExam(c *fiber.Ctx) error {
	examID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	userId, _ := c.Locals("userId").(uint)

	result, err := exam.Start(database.Database.Db, userId, examID)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Exam started!", result)
}

func FinishExam(c *fiber.Ctx) error {
	examID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	reqData, ok := c.Locals("validatedExamFinish").(*courseValidator.FinishExamRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	userId, _ := c.Locals("userId").(uint)

	result, err := exam.Finish(database.Database.Db, deps.Bus, userId, examID, reqData.Answers)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Exam submitted!", result)
}

func GetExamResult(c *fiber.Ctx) error {
	examID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	userId, _ := c.Locals("userId").(uint)

	summary, err := exam.Result(database.Database.Db, userId, examID)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Exam result fetched!", summary)
}

func GetExamResultDetails(c *fiber.Ctx) error {
	examID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	userId, _ := c.Locals("userId").(uint)

	details, err := exam.ResultDetails(database.Database.Db, userId, examID)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Exam result details fetched!", details)
}

// ============ Certificates ============

// GetUserCertificates lists the certificates of the logged in user
func GetUserCertificates(c *fiber.Ctx) error {
	userId, _ := c.Locals("userId").(uint)
	certs, err := certificate.List(database.Database.Db, userId)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificates fetched successfully!", certs)
}

func GetCertificate(c *fiber.Ctx) error {
	certID, err := validators.ParamID(c, "id")
	if err != nil {
		return middleware.HandleError(c, err)
	}
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.HandleError(c, err)
	}

	cert, err := certificate.Get(database.Database.Db, user, certID)
	if err != nil {
		return middleware.HandleError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate fetched successfully!", cert)
}
