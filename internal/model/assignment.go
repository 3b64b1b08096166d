package model

import (
	"time"
)

type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
)

func (t QuestionType) Valid() bool {
	return t == QuestionSingle || t == QuestionMultiple
}

// swagger:model Assignment
type Assignment struct {
	BaseModel
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Thumbnail   *string    `gorm:"size:512" json:"thumbnail,omitempty"`
	TotalScore  float64    `gorm:"not null;default:0" json:"total_score"`
	CreatedBy   uint       `gorm:"index;not null" json:"created_by"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	TimeLimit   *int       `json:"time_limit,omitempty"` // Minutes
	MaxAttempts int        `gorm:"not null;default:1" json:"max_attempts"`

	Questions []Question `gorm:"foreignKey:AssignmentID" json:"-"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// QuestionScoreSum is the maximum score a student can reach.
func (a *Assignment) QuestionScoreSum() float64 {
	var total float64
	for _, q := range a.Questions {
		total += q.Score
	}
	return total
}

// swagger:model Question
type Question struct {
	BaseModel
	AssignmentID uint         `gorm:"index;not null" json:"assignment_id"`
	Content      string       `gorm:"type:text;not null" json:"content"`
	Type         QuestionType `gorm:"size:20;not null" json:"type"`
	Score        float64      `gorm:"not null;default:0" json:"score"`
	Position     int          `gorm:"not null;default:0" json:"position"`

	Answers []Answer `gorm:"foreignKey:QuestionID" json:"-"`
}

func (Question) TableName() string {
	return "assignment_questions"
}

// CorrectAnswerIDs lists the ids flagged as correct, in storage order.
func (q *Question) CorrectAnswerIDs() []uint {
	ids := make([]uint, 0, 1)
	for _, a := range q.Answers {
		if a.IsCorrect {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// swagger:model Answer
type Answer struct {
	BaseModel
	QuestionID uint   `gorm:"index;not null" json:"question_id"`
	Content    string `gorm:"type:text;not null" json:"content"`
	// Only the owner projection may expose this flag.
	IsCorrect bool `gorm:"not null;default:false" json:"-"`
}

func (Answer) TableName() string {
	return "assignment_answers"
}
