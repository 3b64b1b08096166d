package service

import (
	"quiz_engine_backend/internal/model"
)

// GradeResult is the verdict for one question.
type GradeResult struct {
	IsCorrect    bool    `json:"is_correct"`
	Contribution float64 `json:"contribution"`
}

// Grade compares the selected ids with the correct ids of a question.
//
// A single question is correct only when exactly one id is selected and the
// question has exactly one correct id equal to it. A multiple question is
// correct when both sets are equal. Empty selections are never correct and
// there is no partial credit.
func Grade(qType model.QuestionType, score float64, correct, selected []uint) GradeResult {
	sel := idSet(selected)
	if len(sel) == 0 {
		return GradeResult{}
	}

	var ok bool
	switch qType {
	case model.QuestionSingle:
		want := idSet(correct)
		if len(sel) == 1 && len(want) == 1 {
			for id := range sel {
				_, ok = want[id]
			}
		}
	case model.QuestionMultiple:
		want := idSet(correct)
		ok = len(sel) == len(want)
		for id := range sel {
			if _, hit := want[id]; !hit {
				ok = false
				break
			}
		}
	}

	if !ok {
		return GradeResult{}
	}
	return GradeResult{IsCorrect: true, Contribution: score}
}

// GradeQuestion grades q against the selected answer ids.
func GradeQuestion(q *model.Question, selected []uint) GradeResult {
	return Grade(q.Type, q.Score, q.CorrectAnswerIDs(), selected)
}

func idSet(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// dedupIDs keeps the first occurrence of every id, preserving order.
func dedupIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
