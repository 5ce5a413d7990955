package discussion

import (
	"gorm.io/gorm"
)

const (
	TargetCourse = "course"
	TargetLesson = "lesson"
)

// Discussion is a forum post. Roots have ParentID nil; replies point at a root.
type Discussion struct {
	gorm.Model
	UserID          uint   `json:"user_id" gorm:"index;not null"`
	ParentID        *uint  `json:"parent_id" gorm:"index"`
	DiscussableType string `json:"discussable_type" gorm:"index:idx_discussable;size:32;not null"`
	DiscussableID   uint   `json:"discussable_id" gorm:"index:idx_discussable;not null"`
	CourseID        uint   `json:"course_id" gorm:"index;not null"`
	Title           string `json:"title"`
	Body            string `json:"body" gorm:"type:text;not null"`
	IsQuestion      bool   `json:"is_question"`
	IsAnswered      bool   `json:"is_answered"`
	Upvotes         int    `json:"upvotes" gorm:"default:0"`

	Replies []Discussion `json:"replies,omitempty" gorm:"foreignKey:ParentID"`
}

func (d Discussion) IsRoot() bool {
	return d.ParentID == nil
}
