package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/repository"
	"quiz_engine_backend/internal/util"
	"quiz_engine_backend/pkg/events"
	"quiz_engine_backend/pkg/logger"
	"quiz_engine_backend/pkg/monitoring"
	"quiz_engine_backend/pkg/tracing"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AttemptService drives the attempt lifecycle of a (assignment, student)
// pair: no attempt, open, submitted. Start and submit run in one transaction
// that holds the pair's slot row lock.
type AttemptService struct {
	DB          *gorm.DB
	Assignments *repository.AssignmentRepository
	Attempts    *repository.AttemptRepository
	Events      events.Publisher

	// Now is the clock used for every time rule. Defaults to time.Now.
	Now func() time.Time
}

func NewAttemptService(
	db *gorm.DB,
	assignments *repository.AssignmentRepository,
	attempts *repository.AttemptRepository,
	publisher events.Publisher,
) *AttemptService {
	return &AttemptService{
		DB:          db,
		Assignments: assignments,
		Attempts:    attempts,
		Events:      publisher,
		Now:         time.Now,
	}
}

func (s *AttemptService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// transact runs fn in a transaction and runs it once more if it failed on a
// concurrency conflict.
func (s *AttemptService) transact(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	err := s.DB.WithContext(ctx).Transaction(fn)
	if err == nil || !repository.IsRetryable(err) {
		return err
	}

	monitoring.LifecycleRetries.WithLabelValues(op).Inc()
	logger.Log.Warn("Retrying attempt transaction after conflict", zap.String("operation", op), zap.Error(err))
	return s.DB.WithContext(ctx).Transaction(fn)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, util.ErrAssignmentNotYetOpen):
		return "not_yet_open"
	case errors.Is(err, util.ErrAssignmentExpired):
		return "expired"
	case errors.Is(err, util.ErrAttemptQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, util.ErrAttemptInProgress):
		return "in_progress"
	case errors.Is(err, util.ErrNoOpenAttempt):
		return "no_open_attempt"
	case errors.Is(err, util.ErrAttemptAlreadySubmitted):
		return "already_submitted"
	case errors.Is(err, util.ErrTimeLimitExceeded):
		return "time_limit_exceeded"
	default:
		return "other"
	}
}

func (s *AttemptService) reject(op string, assignmentID, studentID uint, err error) {
	if !util.IsBusinessError(err) {
		return
	}
	monitoring.LifecycleRejections.WithLabelValues(rejectionReason(err)).Inc()
	logger.Log.Info("Attempt request rejected",
		zap.String("operation", op),
		zap.Uint("assignment_id", assignmentID),
		zap.Uint("student_id", studentID),
		zap.String("reason", err.Error()),
	)
}

// checkWindow applies the start and end time of an assignment.
func checkWindow(a *model.Assignment, now time.Time) error {
	if a.StartTime != nil && now.Before(*a.StartTime) {
		return util.ErrAssignmentNotYetOpen
	}
	if a.EndTime != nil && now.After(*a.EndTime) {
		return util.ErrAssignmentExpired
	}
	return nil
}

// StartAttempt opens a new attempt for the student.
//
// An open attempt whose time limit has run out is closed with score 0 before
// the new one is created; any other open attempt blocks the start.
func (s *AttemptService) StartAttempt(ctx context.Context, assignmentID, studentID uint) (attempt *model.Attempt, err error) {
	ctx, span := tracing.StartSpan(ctx, "AttemptService.StartAttempt")
	defer func() { tracing.EndSpan(span, err) }()

	err = s.transact(ctx, "start", func(tx *gorm.DB) error {
		assignments := s.Assignments.WithTx(tx)
		attempts := s.Attempts.WithTx(tx)

		a, err := assignments.FindHeader(ctx, assignmentID)
		if repository.IsNotFound(err) {
			return util.ErrAssignmentNotFound
		}
		if err != nil {
			return err
		}

		now := s.now()
		if err := checkWindow(a, now); err != nil {
			return err
		}

		slot, err := attempts.LockSlot(ctx, assignmentID, studentID)
		if err != nil {
			return err
		}

		// Quota comes from the locked slot row, never from a plain COUNT.
		if slot.AttemptsUsed >= a.MaxAttempts {
			return util.ErrAttemptQuotaExceeded
		}

		latest, err := attempts.Latest(ctx, assignmentID, studentID)
		if err != nil && !repository.IsNotFound(err) {
			return err
		}
		if latest != nil && !latest.IsSubmitted {
			if a.TimeLimit == nil || !latest.Elapsed(*a.TimeLimit, now) {
				return util.ErrAttemptInProgress
			}
			if err := attempts.MarkSubmitted(ctx, latest, 0, now); err != nil {
				return err
			}
			logger.Log.Info("Closed abandoned attempt",
				zap.Uint("attempt_id", latest.ID),
				zap.Uint("assignment_id", assignmentID),
				zap.Uint("student_id", studentID),
			)
		}

		next := &model.Attempt{
			AssignmentID:  assignmentID,
			StudentID:     studentID,
			AttemptNumber: slot.AttemptsUsed + 1,
			StartedAt:     now,
		}
		if err := attempts.Create(ctx, next); err != nil {
			return err
		}
		if err := attempts.SetAttemptsUsed(ctx, slot, next.AttemptNumber); err != nil {
			return err
		}

		attempt = next
		return nil
	})
	if err != nil {
		s.reject("start", assignmentID, studentID, err)
		return nil, err
	}

	monitoring.AttemptsStarted.Inc()
	publish(ctx, s.Events, events.AttemptStarted, map[string]interface{}{
		"assignment_id":  assignmentID,
		"student_id":     studentID,
		"attempt_id":     attempt.ID,
		"attempt_number": attempt.AttemptNumber,
	})
	return attempt, nil
}

// SubmitAssignment grades the student's open attempt and closes it.
func (s *AttemptService) SubmitAssignment(ctx context.Context, studentID uint, req *SubmitAssignmentRequest) (res *SubmissionResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "AttemptService.SubmitAssignment")
	defer func() { tracing.EndSpan(span, err) }()

	assignmentID := req.AssignmentID
	selections := req.Selections()

	err = s.transact(ctx, "submit", func(tx *gorm.DB) error {
		assignments := s.Assignments.WithTx(tx)
		attempts := s.Attempts.WithTx(tx)

		a, err := assignments.FindByID(ctx, assignmentID)
		if repository.IsNotFound(err) {
			return util.ErrAssignmentNotFound
		}
		if err != nil {
			return err
		}

		now := s.now()
		if a.EndTime != nil && now.After(*a.EndTime) {
			return util.ErrAssignmentExpired
		}

		if _, err := attempts.LockSlot(ctx, assignmentID, studentID); err != nil {
			return err
		}

		latest, err := attempts.Latest(ctx, assignmentID, studentID)
		if repository.IsNotFound(err) {
			return util.ErrNoOpenAttempt
		}
		if err != nil {
			return err
		}
		if latest.IsSubmitted {
			return util.ErrAttemptAlreadySubmitted
		}
		if a.TimeLimit != nil && latest.Elapsed(*a.TimeLimit, now) {
			return util.ErrTimeLimitExceeded
		}

		var score float64
		var rows []model.StudentAnswer
		for i := range a.Questions {
			q := &a.Questions[i]
			selected := selections[q.ID]
			score += GradeQuestion(q, selected).Contribution
			for _, answerID := range selected {
				rows = append(rows, model.StudentAnswer{
					AttemptID:  latest.ID,
					QuestionID: q.ID,
					AnswerID:   answerID,
				})
			}
		}

		if err := attempts.MarkSubmitted(ctx, latest, score, now); err != nil {
			return err
		}
		if err := attempts.CreateStudentAnswers(ctx, rows); err != nil {
			return fmt.Errorf("store student answers: %w", err)
		}

		res = &SubmissionResult{
			Submission:     *latest,
			Score:          score,
			TotalScore:     a.QuestionScoreSum(),
			TotalQuestions: len(a.Questions),
		}
		return nil
	})
	if err != nil {
		s.reject("submit", assignmentID, studentID, err)
		return nil, err
	}

	monitoring.Submissions.Inc()
	if res.TotalScore > 0 {
		monitoring.ScoreRatio.Observe(res.Score / res.TotalScore)
	}
	logger.Log.Info("Attempt submitted",
		zap.Uint("attempt_id", res.Submission.ID),
		zap.Uint("assignment_id", assignmentID),
		zap.Uint("student_id", studentID),
		zap.Float64("score", res.Score),
	)
	publish(ctx, s.Events, events.AttemptSubmitted, map[string]interface{}{
		"assignment_id": assignmentID,
		"student_id":    studentID,
		"attempt_id":    res.Submission.ID,
		"score":         res.Score,
		"total_score":   res.TotalScore,
	})
	return res, nil
}

// GetSingleUserAttempt returns the graded review of one of the student's own
// submitted attempts. An attempt of another student or another assignment is
// reported as not found.
func (s *AttemptService) GetSingleUserAttempt(ctx context.Context, assignmentID, studentID, attemptID uint) (*AttemptResult, error) {
	attempt, err := s.Attempts.FindForStudent(ctx, attemptID, assignmentID, studentID)
	if repository.IsNotFound(err) {
		return nil, util.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load attempt %d: %w", attemptID, err)
	}
	if !attempt.IsSubmitted {
		return nil, util.ErrAttemptNotSubmitted
	}

	a, err := s.Assignments.FindByID(ctx, assignmentID)
	if repository.IsNotFound(err) {
		return nil, util.ErrAssignmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load assignment %d: %w", assignmentID, err)
	}

	answers, err := s.Attempts.ListStudentAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("load student answers: %w", err)
	}
	selected := make(map[uint][]uint, len(a.Questions))
	for _, sa := range answers {
		selected[sa.QuestionID] = append(selected[sa.QuestionID], sa.AnswerID)
	}

	result := &AttemptResult{
		Attempt:    *attempt,
		Assignment: newAssignmentHeader(a),
		Questions:  make([]GradedQuestion, 0, len(a.Questions)),
	}
	for i := range a.Questions {
		q := &a.Questions[i]
		ids := selected[q.ID]
		if ids == nil {
			ids = []uint{}
		}
		result.Questions = append(result.Questions, GradedQuestion{
			OwnerQuestion:     newOwnerQuestion(q),
			SelectedAnswerIDs: ids,
			IsCorrect:         GradeQuestion(q, ids).IsCorrect,
		})
	}
	return result, nil
}
