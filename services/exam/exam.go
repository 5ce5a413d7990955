// Package exam runs timed multiple choice exams: start, finish, auto-fail and results.
//
// Every question is worth one point whatever its Marks field says. Lesson quizzes are the
// weighted ones (see package grading).
package exam

import (
	"log"
	"math"
	"time"

	"lms/apperror"
	"lms/database"
	"lms/models/course"
	examModels "lms/models/exam"
	"lms/services/events"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StartResult is what a student sees when an attempt begins.
type StartResult struct {
	Response  examModels.Response      `json:"response"`
	ExamID    uint                     `json:"exam_id"`
	Title     string                   `json:"title"`
	TotalTime int                      `json:"total_time"`
	Deadline  time.Time                `json:"deadline"`
	Questions []map[string]interface{} `json:"questions"`
}

// FinishResult carries the graded response. CertificateError is set when grading succeeded
// but issuing the certificate did not.
type FinishResult struct {
	Response         examModels.Response `json:"response"`
	CertificateError string              `json:"certificate_error,omitempty"`
}

// SweepExpired flips the user's in-progress responses whose time ran out to auto_failed.
func SweepExpired(db *gorm.DB, userID uint, now time.Time) (int, error) {
	var open []examModels.Response
	if err := db.Preload("Exam").
		Where("user_id = ? AND status = ?", userID, examModels.ResponseInProgress).
		Find(&open).Error; err != nil {
		return 0, errors.Wrap(err, "load open responses")
	}

	flipped := 0
	for _, r := range open {
		if r.Exam == nil || !now.After(r.Exam.Deadline(r.StartedAt)) {
			continue
		}
		ok, err := autoFail(db, r.ID)
		if err != nil {
			return flipped, err
		}
		if ok {
			flipped++
		}
	}
	return flipped, nil
}

func autoFail(db *gorm.DB, responseID uint) (bool, error) {
	res := db.Model(&examModels.Response{}).
		Where("id = ? AND status = ?", responseID, examModels.ResponseInProgress).
		Updates(map[string]interface{}{"status": examModels.ResponseAutoFailed, "score": 0})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "auto-fail response")
	}
	if res.RowsAffected > 0 {
		log.Printf("[EXAM] response %d auto-failed, time exceeded", responseID)
	}
	return res.RowsAffected > 0, nil
}

func loadExam(db *gorm.DB, examID uint) (examModels.Exam, error) {
	var e examModels.Exam
	err := db.Where("id = ? AND is_deleted = ?", examID, false).First(&e).Error
	if database.IsNotFound(err) {
		return e, apperror.NotFound("Exam not found!")
	}
	return e, errors.Wrap(err, "load exam")
}

func loadResponse(db *gorm.DB, examID, userID uint) (examModels.Response, error) {
	var r examModels.Response
	err := db.Where("exam_id = ? AND user_id = ?", examID, userID).First(&r).Error
	if database.IsNotFound(err) {
		return r, apperror.NotFound("You have not started this exam!")
	}
	return r, errors.Wrap(err, "load response")
}

// Start opens an attempt. The caller must be actively enrolled in the exam's batch and may
// attempt each exam once.
func Start(db *gorm.DB, userID, examID uint) (StartResult, error) {
	now := time.Now()
	if _, err := SweepExpired(db, userID, now); err != nil {
		return StartResult{}, err
	}

	e, err := loadExam(db, examID)
	if err != nil {
		return StartResult{}, err
	}
	if !e.IsActive {
		return StartResult{}, apperror.Conflict("This exam is not open!")
	}

	var enrolled int64
	if err := db.Model(&course.Enrollment{}).
		Where("user_id = ? AND batch_id = ? AND status = ?", userID, e.BatchID, course.EnrollmentActive).
		Count(&enrolled).Error; err != nil {
		return StartResult{}, errors.Wrap(err, "check enrollment")
	}
	if enrolled == 0 {
		return StartResult{}, apperror.Forbidden("You are not enrolled in the batch of this exam!")
	}

	response := examModels.Response{
		ExamID:    e.ID,
		UserID:    userID,
		BatchID:   e.BatchID,
		Answers:   datatypes.JSONSlice[examModels.Answer]{},
		MaxScore:  len(e.Content),
		Status:    examModels.ResponseInProgress,
		StartedAt: now,
	}
	if err := db.Create(&response).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return StartResult{}, apperror.Conflict("You have already attempted this exam!")
		}
		return StartResult{}, errors.Wrap(err, "create response")
	}

	return StartResult{
		Response:  response,
		ExamID:    e.ID,
		Title:     e.Title,
		TotalTime: e.TotalTime,
		Deadline:  e.Deadline(now),
		Questions: e.PublicContent(),
	}, nil
}

// Score counts answers whose selected option equals the stored answer index. A question
// answered twice counts once with the last answer; ids outside the content score nothing.
func Score(content []examModels.Question, answers []examModels.Answer) int {
	last := make(map[int]int, len(answers))
	for _, a := range answers {
		last[a.QuestionID] = a.Selected
	}

	score := 0
	for qid, selected := range last {
		if qid < 0 || qid >= len(content) {
			continue
		}
		if content[qid].AnswerIndex == selected {
			score++
		}
	}
	return score
}

// Percentage is score/total*100 rounded to two decimals, 0 when total is 0.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(score)/float64(total)*100*100) / 100
}

// Finish grades an in-progress attempt. A late finish auto-fails the attempt and is rejected.
// Grading is committed before ExamResponseGraded is published, so a certificate failure
// never undoes the grade.
func Finish(db *gorm.DB, bus *events.Bus, userID, examID uint, answers []examModels.Answer) (FinishResult, error) {
	now := time.Now()
	if _, err := SweepExpired(db, userID, now); err != nil {
		return FinishResult{}, err
	}

	e, err := loadExam(db, examID)
	if err != nil {
		return FinishResult{}, err
	}
	response, err := loadResponse(db, examID, userID)
	if err != nil {
		return FinishResult{}, err
	}
	if response.BatchID != e.BatchID {
		return FinishResult{}, apperror.NotFound("You have not started this exam!")
	}

	switch response.Status {
	case examModels.ResponseInProgress:
	case examModels.ResponseAutoFailed:
		return FinishResult{}, apperror.Conflict("Exam time exceeded! Your attempt was marked as failed.")
	default:
		return FinishResult{}, apperror.Conflict("You have already submitted this exam!")
	}

	if now.After(e.Deadline(response.StartedAt)) {
		if _, err := autoFail(db, response.ID); err != nil {
			return FinishResult{}, err
		}
		return FinishResult{}, apperror.Conflict("Exam time exceeded! Your attempt was marked as failed.")
	}

	score := Score(e.Content, answers)
	total := len(e.Content)
	updates := map[string]interface{}{
		"answers":      datatypes.JSONSlice[examModels.Answer](answers),
		"score":        score,
		"max_score":    total,
		"percentage":   Percentage(score, total),
		"status":       examModels.ResponseGraded,
		"submitted_at": now,
		"graded_at":    now,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&examModels.Response{}).
			Where("id = ? AND status = ?", response.ID, examModels.ResponseInProgress).
			Updates(updates)
		if res.Error != nil {
			return errors.Wrap(res.Error, "grade response")
		}
		if res.RowsAffected == 0 {
			return apperror.Conflict("You have already submitted this exam!")
		}
		return nil
	})
	if err != nil {
		return FinishResult{}, err
	}

	if err := db.First(&response, response.ID).Error; err != nil {
		return FinishResult{}, errors.Wrap(err, "reload response")
	}

	result := FinishResult{Response: response}
	if err := bus.Publish(db, events.ExamResponseGraded{ResponseID: response.ID}); err != nil {
		result.CertificateError = err.Error()
	}
	return result, nil
}

// Summary is the headline result of an attempt.
type Summary struct {
	ExamID      uint       `json:"exam_id"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	Score       int        `json:"score"`
	MaxScore    int        `json:"max_score"`
	Percentage  float64    `json:"percentage"`
	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`
	GradedAt    *time.Time `json:"graded_at"`
}

// QuestionResult is the per question breakdown of a finished attempt.
type QuestionResult struct {
	QuestionID  int      `json:"question_id"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Selected    *int     `json:"selected"`
	AnswerIndex int      `json:"answer_index"`
	IsCorrect   bool     `json:"is_correct"`
}

type Details struct {
	Summary   Summary          `json:"summary"`
	Questions []QuestionResult `json:"questions"`
}

func summarize(e examModels.Exam, r examModels.Response) Summary {
	return Summary{
		ExamID:      e.ID,
		Title:       e.Title,
		Status:      r.Status,
		Score:       r.Score,
		MaxScore:    r.MaxScore,
		Percentage:  r.Percentage,
		StartedAt:   r.StartedAt,
		SubmittedAt: r.SubmittedAt,
		GradedAt:    r.GradedAt,
	}
}

// Result returns the caller's attempt summary.
func Result(db *gorm.DB, userID, examID uint) (Summary, error) {
	if _, err := SweepExpired(db, userID, time.Now()); err != nil {
		return Summary{}, err
	}
	e, err := loadExam(db, examID)
	if err != nil {
		return Summary{}, err
	}
	r, err := loadResponse(db, examID, userID)
	if err != nil {
		return Summary{}, err
	}
	return summarize(e, r), nil
}

// ResultDetails returns the per question breakdown once the attempt is over.
func ResultDetails(db *gorm.DB, userID, examID uint) (Details, error) {
	if _, err := SweepExpired(db, userID, time.Now()); err != nil {
		return Details{}, err
	}
	e, err := loadExam(db, examID)
	if err != nil {
		return Details{}, err
	}
	r, err := loadResponse(db, examID, userID)
	if err != nil {
		return Details{}, err
	}
	if r.Status == examModels.ResponseInProgress {
		return Details{}, apperror.Conflict("Finish the exam before viewing the answers!")
	}

	selected := make(map[int]int, len(r.Answers))
	for _, a := range r.Answers {
		selected[a.QuestionID] = a.Selected
	}

	questions := make([]QuestionResult, 0, len(e.Content))
	for i, q := range e.Content {
		qr := QuestionResult{QuestionID: i, Question: q.Question, Options: q.Options, AnswerIndex: q.AnswerIndex}
		if s, ok := selected[i]; ok {
			s := s
			qr.Selected = &s
			qr.IsCorrect = s == q.AnswerIndex
		}
		questions = append(questions, qr)
	}
	return Details{Summary: summarize(e, r), Questions: questions}, nil
}

// MyExam is an exam row in the student's list.
type MyExam struct {
	examModels.Exam
	Questions      int    `json:"questions"`
	ResponseStatus string `json:"response_status"`
}

// ListForUser lists active exams of every batch the user is actively enrolled in.
func ListForUser(db *gorm.DB, userID uint) ([]MyExam, error) {
	if _, err := SweepExpired(db, userID, time.Now()); err != nil {
		return nil, err
	}

	var exams []examModels.Exam
	if err := db.Where("is_deleted = ? AND is_active = ? AND batch_id IN (?)", false, true,
		db.Model(&course.Enrollment{}).Select("batch_id").
			Where("user_id = ? AND status = ?", userID, course.EnrollmentActive)).
		Order("id asc").Find(&exams).Error; err != nil {
		return nil, errors.Wrap(err, "list exams")
	}

	var responses []examModels.Response
	if err := db.Where("user_id = ?", userID).Find(&responses).Error; err != nil {
		return nil, errors.Wrap(err, "list responses")
	}
	status := make(map[uint]string, len(responses))
	for _, r := range responses {
		status[r.ExamID] = r.Status
	}

	out := make([]MyExam, 0, len(exams))
	for _, e := range exams {
		row := MyExam{Exam: e, Questions: len(e.Content), ResponseStatus: status[e.ID]}
		row.Content = nil
		out = append(out, row)
	}
	return out, nil
}
