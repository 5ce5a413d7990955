package course

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Module represents a section/module within a course
type Module struct {
	gorm.Model
	CourseID    uint     `json:"course_id" gorm:"index;not null"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	OrderIndex  int      `json:"order_index" gorm:"default:0"` // Module order in course
	IsDeleted   bool     `json:"-" gorm:"default:false"`
	Lessons     []Lesson `json:"lessons,omitempty" gorm:"foreignKey:ModuleID"`
}

const (
	LessonText       = "text"
	LessonVideo      = "video"
	LessonQuiz       = "quiz"
	LessonAssignment = "assignment"
)

// LessonQuestion is one multiple choice question of a quiz lesson.
type LessonQuestion struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
	Marks         *int     `json:"marks,omitempty"`
}

// Weight is the configured marks of the question, 1 when unset.
func (q LessonQuestion) Weight() int {
	if q.Marks == nil {
		return 1
	}
	return *q.Marks
}

// Lesson is a unit of content inside a module
type Lesson struct {
	gorm.Model
	CourseID   uint                                `json:"course_id" gorm:"index;not null"`
	ModuleID   uint                                `json:"module_id" gorm:"index;not null"`
	Title      string                              `json:"title"`
	Content    string                              `json:"content" gorm:"type:text"`
	VideoURL   string                              `json:"video_url"`
	LessonType string                              `json:"lesson_type" gorm:"default:'text'"` // text, video, quiz, assignment
	Questions  datatypes.JSONSlice[LessonQuestion] `json:"questions"`
	OrderIndex int                                 `json:"order_index" gorm:"default:0"`
	IsDeleted  bool                                `json:"-" gorm:"default:false"`
}

// TotalMarks sums the weight of every configured question.
func (l Lesson) TotalMarks() int {
	total := 0
	for _, q := range l.Questions {
		total += q.Weight()
	}
	return total
}

// PublicQuestions returns the questions without their correct option.
func (l Lesson) PublicQuestions() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(l.Questions))
	for _, q := range l.Questions {
		out = append(out, map[string]interface{}{
			"id":       q.ID,
			"question": q.Question,
			"options":  q.Options,
			"marks":    q.Weight(),
		})
	}
	return out
}
