package exam

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ResponseInProgress = "in_progress"
	ResponseSubmitted  = "submitted"
	ResponseGraded     = "graded"
	ResponseAutoFailed = "auto_failed"
)

// Question is one multiple choice question. Position in Exam.Content is its id.
type Question struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
	Marks       *int     `json:"marks,omitempty"` // stored for authoring only, exams are not weighted
}

// Answer is a submitted {question_id, selected} pair
type Answer struct {
	QuestionID int `json:"question_id"`
	Selected   int `json:"selected"`
}

// Exam is a timed multiple choice test for one batch of a course
type Exam struct {
	gorm.Model
	CourseID  uint                          `json:"course_id" gorm:"index;not null"`
	BatchID   uint                          `json:"batch_id" gorm:"index;not null"`
	Title     string                        `json:"title" gorm:"not null"`
	TotalTime int                           `json:"total_time"` // minutes
	Content   datatypes.JSONSlice[Question] `json:"content"`
	IsActive  bool                          `json:"is_active"`
	IsDeleted bool                          `json:"-" gorm:"default:false"`
}

// Deadline is the last instant a response started at startedAt may be finished.
func (e Exam) Deadline(startedAt time.Time) time.Time {
	return startedAt.Add(time.Duration(e.TotalTime) * time.Minute)
}

// PublicContent returns the questions with the answer indices stripped.
func (e Exam) PublicContent() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(e.Content))
	for i, q := range e.Content {
		out = append(out, map[string]interface{}{
			"question_id": i,
			"question":    q.Question,
			"options":     q.Options,
		})
	}
	return out
}

// Response is one user's attempt at an exam. Unique per (exam, user).
type Response struct {
	gorm.Model
	ExamID      uint                        `json:"exam_id" gorm:"not null;uniqueIndex:idx_response_exam_user"`
	UserID      uint                        `json:"user_id" gorm:"not null;uniqueIndex:idx_response_exam_user"`
	BatchID     uint                        `json:"batch_id" gorm:"index;not null"`
	Answers     datatypes.JSONSlice[Answer] `json:"answers"`
	Score       int                         `json:"score" gorm:"default:0"`
	MaxScore    int                         `json:"max_score" gorm:"default:0"`
	Percentage  float64                     `json:"percentage" gorm:"default:0"`
	Status      string                      `json:"status" gorm:"default:'in_progress';index"`
	StartedAt   time.Time                   `json:"started_at"`
	SubmittedAt *time.Time                  `json:"submitted_at"`
	GradedAt    *time.Time                  `json:"graded_at"`

	Exam *Exam `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
}

func (Response) TableName() string { return "exam_responses" }
