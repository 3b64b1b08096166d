package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type CreateAnswerRequest struct {
	Content   string `json:"content" form:"content" validate:"required"`
	IsCorrect bool   `json:"is_correct" form:"is_correct"`
}

type CreateQuestionRequest struct {
	Content string                `json:"content" validate:"required"`
	Type    string                `json:"type" validate:"required,oneof=single multiple"`
	Score   float64               `json:"score" validate:"gte=0"`
	Answers []CreateAnswerRequest `json:"answers" validate:"required,min=1,dive"`
}

// CreateAssignmentRequest is accepted as JSON, or as a multipart form whose
// questions field holds the JSON-encoded question list.
type CreateAssignmentRequest struct {
	Title       string                  `json:"title" form:"title" validate:"required,max=255"`
	Description string                  `json:"description" form:"description"`
	TotalScore  float64                 `json:"total_score" form:"total_score" validate:"gte=0"`
	StartTime   *time.Time              `json:"start_time" form:"start_time" time_format:"2006-01-02T15:04:05Z07:00"`
	EndTime     *time.Time              `json:"end_time" form:"end_time" time_format:"2006-01-02T15:04:05Z07:00"`
	TimeLimit   *int                    `json:"time_limit" form:"time_limit" validate:"omitempty,min=1"`
	MaxAttempts *int                    `json:"max_attempts" form:"max_attempts" validate:"omitempty,min=1"`
	Questions   []CreateQuestionRequest `json:"questions" form:"-" validate:"required,min=1,dive"`

	// Optional cover image, raw bytes as uploaded.
	Thumbnail []byte `json:"-" form:"-"`
}

type StartAttemptRequest struct {
	AssignmentID uint `json:"assignment_id" binding:"required"`
}

type SubmitAnswer struct {
	QuestionID uint      `json:"question_id" binding:"required"`
	AnswerID   AnswerIDs `json:"answer_id"`
}

type SubmitAssignmentRequest struct {
	AssignmentID uint           `json:"assignment_id" binding:"required"`
	Answers      []SubmitAnswer `json:"answers"`
}

// Selections folds the submitted answers into one id list per question.
// Repeated question entries are merged and duplicate ids dropped.
func (r *SubmitAssignmentRequest) Selections() map[uint][]uint {
	out := make(map[uint][]uint, len(r.Answers))
	for _, a := range r.Answers {
		out[a.QuestionID] = dedupIDs(append(out[a.QuestionID], a.AnswerID...))
	}
	return out
}

// AnswerIDs accepts a single id or an array of ids. Ids may be numbers or
// numeric strings; null means nothing was selected.
type AnswerIDs []uint

func (ids *AnswerIDs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*ids = nil
		return nil
	}

	if len(data) > 0 && data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make(AnswerIDs, 0, len(raw))
		for _, item := range raw {
			id, err := parseAnswerID(item)
			if err != nil {
				return err
			}
			out = append(out, id)
		}
		*ids = out
		return nil
	}

	id, err := parseAnswerID(data)
	if err != nil {
		return err
	}
	*ids = AnswerIDs{id}
	return nil
}

func parseAnswerID(data json.RawMessage) (uint, error) {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return 0, err
	}

	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, fmt.Errorf("answer_id: unsupported value %s", string(data))
	}

	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("answer_id: invalid id %q", s)
	}
	return uint(id), nil
}
