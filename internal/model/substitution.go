package model

import "time"

// Substitution temporarily reassigns one lesson's teacher. At most one
// substitution exists per lesson; deleting it reverts the lesson to its
// original teacher without touching the lesson record.
type Substitution struct {
	ID                  int64      `json:"id"`
	LessonID            int64      `json:"lesson_id"`
	OriginalTeacherID   int64      `json:"original_teacher_id"`
	SubstituteTeacherID int64      `json:"substitute_teacher_id"`
	Reason              string     `json:"reason"`
	Notes               string     `json:"notes"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at"`
}
