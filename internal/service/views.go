package service

import (
	"time"

	"quiz_engine_backend/internal/model"
)

// AssignmentHeader is shared by both read projections.
type AssignmentHeader struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Thumbnail   *string    `json:"thumbnail,omitempty"`
	TotalScore  float64    `json:"total_score"`
	CreatedBy   uint       `json:"created_by"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	TimeLimit   *int       `json:"time_limit,omitempty"`
	MaxAttempts int        `json:"max_attempts"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newAssignmentHeader(a *model.Assignment) AssignmentHeader {
	return AssignmentHeader{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Thumbnail:   a.Thumbnail,
		TotalScore:  a.TotalScore,
		CreatedBy:   a.CreatedBy,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		TimeLimit:   a.TimeLimit,
		MaxAttempts: a.MaxAttempts,
		CreatedAt:   a.CreatedAt,
	}
}

// Student projection. Answer options carry no correctness.

type StudentOption struct {
	ID      uint   `json:"id"`
	Content string `json:"content"`
}

type StudentQuestion struct {
	ID      uint               `json:"id"`
	Content string             `json:"content"`
	Type    model.QuestionType `json:"type"`
	Score   float64            `json:"score"`
	Answers []StudentOption    `json:"answers"`
}

type StudentAssignment struct {
	AssignmentHeader
	Questions []StudentQuestion `json:"questions"`
}

func NewStudentAssignment(a *model.Assignment) StudentAssignment {
	view := StudentAssignment{
		AssignmentHeader: newAssignmentHeader(a),
		Questions:        make([]StudentQuestion, 0, len(a.Questions)),
	}
	for _, q := range a.Questions {
		sq := StudentQuestion{
			ID:      q.ID,
			Content: q.Content,
			Type:    q.Type,
			Score:   q.Score,
			Answers: make([]StudentOption, 0, len(q.Answers)),
		}
		for _, ans := range q.Answers {
			sq.Answers = append(sq.Answers, StudentOption{ID: ans.ID, Content: ans.Content})
		}
		view.Questions = append(view.Questions, sq)
	}
	return view
}

func NewStudentAssignments(list []model.Assignment) []StudentAssignment {
	out := make([]StudentAssignment, 0, len(list))
	for i := range list {
		out = append(out, NewStudentAssignment(&list[i]))
	}
	return out
}

// Owner projection, for the creator and admins.

type OwnerOption struct {
	ID        uint   `json:"id"`
	Content   string `json:"content"`
	IsCorrect bool   `json:"is_correct"`
}

type OwnerQuestion struct {
	ID      uint               `json:"id"`
	Content string             `json:"content"`
	Type    model.QuestionType `json:"type"`
	Score   float64            `json:"score"`
	Answers []OwnerOption      `json:"answers"`
}

type OwnerAssignment struct {
	AssignmentHeader
	Questions []OwnerQuestion `json:"questions"`
}

func NewOwnerAssignment(a *model.Assignment) OwnerAssignment {
	view := OwnerAssignment{
		AssignmentHeader: newAssignmentHeader(a),
		Questions:        make([]OwnerQuestion, 0, len(a.Questions)),
	}
	for _, q := range a.Questions {
		view.Questions = append(view.Questions, newOwnerQuestion(&q))
	}
	return view
}

func newOwnerQuestion(q *model.Question) OwnerQuestion {
	oq := OwnerQuestion{
		ID:      q.ID,
		Content: q.Content,
		Type:    q.Type,
		Score:   q.Score,
		Answers: make([]OwnerOption, 0, len(q.Answers)),
	}
	for _, ans := range q.Answers {
		oq.Answers = append(oq.Answers, OwnerOption{ID: ans.ID, Content: ans.Content, IsCorrect: ans.IsCorrect})
	}
	return oq
}

func NewOwnerAssignments(list []model.Assignment) []OwnerAssignment {
	out := make([]OwnerAssignment, 0, len(list))
	for i := range list {
		out = append(out, NewOwnerAssignment(&list[i]))
	}
	return out
}

// GradedQuestion is one question of a submitted attempt with the student's
// selection and the verdict.
type GradedQuestion struct {
	OwnerQuestion
	SelectedAnswerIDs []uint `json:"selected_answer_ids"`
	IsCorrect         bool   `json:"is_correct"`
}

// AttemptResult is the graded review of a submitted attempt.
type AttemptResult struct {
	Attempt    model.Attempt    `json:"attempt"`
	Assignment AssignmentHeader `json:"assignment"`
	Questions  []GradedQuestion `json:"questions"`
}

// SubmissionResult is returned by a successful submit.
type SubmissionResult struct {
	Submission     model.Attempt `json:"submission"`
	Score          float64       `json:"score"`
	TotalScore     float64       `json:"total_score"`
	TotalQuestions int           `json:"total_questions"`
}
