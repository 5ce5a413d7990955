package exam

import (
	"fmt"
	"time"

	"lms/apperror"
	"lms/database"
	"lms/models/course"
	examModels "lms/models/exam"
	"lms/services/events"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ExamInput is the editable part of an exam.
type ExamInput struct {
	BatchID   uint
	Title     string
	TotalTime int
	Content   []examModels.Question
	IsActive  bool
}

func validateContent(content []examModels.Question) map[string]string {
	errs := map[string]string{}
	if len(content) == 0 {
		errs["content"] = "At least one question is required!"
	}
	for i, q := range content {
		if len(q.Options) < 2 {
			errs[fmt.Sprintf("content.%d.options", i)] = "At least two options are required!"
		}
		if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
			errs[fmt.Sprintf("content.%d.answer_index", i)] = "Answer index is out of range!"
		}
	}
	return errs
}

// CreateExam adds an exam to a batch. The course is taken from the batch.
func CreateExam(db *gorm.DB, in ExamInput) (examModels.Exam, error) {
	if errs := validateContent(in.Content); len(errs) > 0 {
		return examModels.Exam{}, apperror.Validation(errs)
	}

	var batch course.Batch
	if err := db.Where("id = ? AND is_deleted = ?", in.BatchID, false).First(&batch).Error; err != nil {
		if database.IsNotFound(err) {
			return examModels.Exam{}, apperror.NotFound("Batch not found!")
		}
		return examModels.Exam{}, errors.Wrap(err, "load batch")
	}

	e := examModels.Exam{
		CourseID:  batch.CourseID,
		BatchID:   batch.ID,
		Title:     in.Title,
		TotalTime: in.TotalTime,
		Content:   in.Content,
		IsActive:  in.IsActive,
	}
	return e, errors.Wrap(db.Create(&e).Error, "create exam")
}

// UpdateExam edits an exam. Content and batch are frozen once anyone has responded.
func UpdateExam(db *gorm.DB, examID uint, in ExamInput) (examModels.Exam, error) {
	e, err := loadExam(db, examID)
	if err != nil {
		return e, err
	}

	var responded int64
	if err := db.Model(&examModels.Response{}).Where("exam_id = ?", e.ID).Count(&responded).Error; err != nil {
		return e, errors.Wrap(err, "count responses")
	}

	updates := map[string]interface{}{
		"title":      in.Title,
		"total_time": in.TotalTime,
		"is_active":  in.IsActive,
	}
	if in.Content != nil || (in.BatchID != 0 && in.BatchID != e.BatchID) {
		if responded > 0 {
			return e, apperror.Conflict("Exam content cannot change after students have responded!")
		}
		if in.Content != nil {
			if errs := validateContent(in.Content); len(errs) > 0 {
				return e, apperror.Validation(errs)
			}
			e.Content = in.Content
			updates["content"] = e.Content
		}
		if in.BatchID != 0 {
			updates["batch_id"] = in.BatchID
		}
	}

	if err := db.Model(&e).Updates(updates).Error; err != nil {
		return e, errors.Wrap(err, "update exam")
	}
	return loadExam(db, e.ID)
}

// OverrideScore sets a response's score by hand and marks it graded. Like Finish it commits
// before publishing ExamResponseGraded.
func OverrideScore(db *gorm.DB, bus *events.Bus, responseID uint, score int) (FinishResult, error) {
	var response examModels.Response
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&response, responseID).Error; err != nil {
			if database.IsNotFound(err) {
				return apperror.NotFound("Exam response not found!")
			}
			return errors.Wrap(err, "load response")
		}
		if response.Status == examModels.ResponseInProgress {
			return apperror.Conflict("The exam is still in progress!")
		}
		if score < 0 || score > response.MaxScore {
			return apperror.Validation(map[string]string{
				"score": fmt.Sprintf("Score must be between 0 and %d!", response.MaxScore),
			})
		}

		now := time.Now()
		return errors.Wrap(tx.Model(&response).Updates(map[string]interface{}{
			"score":      score,
			"percentage": Percentage(score, response.MaxScore),
			"status":     examModels.ResponseGraded,
			"graded_at":  now,
		}).Error, "override score")
	})
	if err != nil {
		return FinishResult{}, err
	}

	if err := db.First(&response, responseID).Error; err != nil {
		return FinishResult{}, errors.Wrap(err, "reload response")
	}
	result := FinishResult{Response: response}
	if err := bus.Publish(db, events.ExamResponseGraded{ResponseID: response.ID}); err != nil {
		result.CertificateError = err.Error()
	}
	return result, nil
}
