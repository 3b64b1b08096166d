package model

import "time"

// swagger:model Attempt
type Attempt struct {
	BaseModel
	AssignmentID  uint       `gorm:"uniqueIndex:idx_attempt_slot_number,priority:1;index;not null" json:"assignment_id"`
	StudentID     uint       `gorm:"uniqueIndex:idx_attempt_slot_number,priority:2;index;not null" json:"student_id"`
	AttemptNumber int        `gorm:"uniqueIndex:idx_attempt_slot_number,priority:3;not null" json:"attempt_number"`
	StartedAt     time.Time  `gorm:"not null" json:"started_at"`
	SubmittedAt   *time.Time `json:"submitted_at"`
	IsSubmitted   bool       `gorm:"not null;default:false" json:"is_submitted"`
	Score         *float64   `json:"score"`
}

func (Attempt) TableName() string {
	return "assignment_attempts"
}

// Elapsed reports whether more than limit minutes have passed since the attempt started.
func (a *Attempt) Elapsed(limitMinutes int, now time.Time) bool {
	return now.Sub(a.StartedAt).Minutes() > float64(limitMinutes)
}

// AttemptSlot is the per-(assignment, student) row that start and submit
// lock before touching the attempt ledger.
type AttemptSlot struct {
	AssignmentID uint      `gorm:"primaryKey;autoIncrement:false" json:"assignment_id"`
	StudentID    uint      `gorm:"primaryKey;autoIncrement:false" json:"student_id"`
	AttemptsUsed int       `gorm:"not null;default:0" json:"attempts_used"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (AttemptSlot) TableName() string {
	return "assignment_attempt_slots"
}

// StudentAnswer is one selected option of a submitted attempt.
type StudentAnswer struct {
	ID         uint `gorm:"primaryKey;autoIncrement" json:"id"`
	AttemptID  uint `gorm:"index;not null" json:"attempt_id"`
	QuestionID uint `gorm:"index;not null" json:"question_id"`
	AnswerID   uint `gorm:"not null" json:"answer_id"`
}

func (StudentAnswer) TableName() string {
	return "assignment_student_answers"
}
