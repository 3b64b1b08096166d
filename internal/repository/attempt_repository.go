package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AttemptRepository is the attempt ledger: one row per attempt and one row
// per selected option of a submitted attempt.
type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) WithTx(tx *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: tx}
}

// LockSlot upserts the (assignment, student) slot row and locks it FOR UPDATE.
// Must run inside a transaction; the lock is held until commit. The returned
// AttemptsUsed is the committed count of attempts started for the pair.
func (r *AttemptRepository) LockSlot(ctx context.Context, assignmentID, studentID uint) (*model.AttemptSlot, error) {
	db := r.DB.WithContext(ctx)

	slot := model.AttemptSlot{AssignmentID: assignmentID, StudentID: studentID}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "assignment_id"}, {Name: "student_id"}},
		DoNothing: true,
	}).Create(&slot).Error
	if err != nil {
		return nil, fmt.Errorf("upsert attempt slot: %w", err)
	}

	var locked model.AttemptSlot
	err = db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		First(&locked).Error
	if err != nil {
		return nil, fmt.Errorf("lock attempt slot: %w", err)
	}
	return &locked, nil
}

func (r *AttemptRepository) SetAttemptsUsed(ctx context.Context, slot *model.AttemptSlot, used int) error {
	err := r.DB.WithContext(ctx).Model(&model.AttemptSlot{}).
		Where("assignment_id = ? AND student_id = ?", slot.AssignmentID, slot.StudentID).
		Update("attempts_used", used).Error
	if err != nil {
		return err
	}
	slot.AttemptsUsed = used
	return nil
}

// Latest returns the attempt with the highest attempt number, or
// gorm.ErrRecordNotFound. The row is read FOR UPDATE so that a transaction
// holding the slot lock sees the latest committed attempt, not its snapshot.
func (r *AttemptRepository) Latest(ctx context.Context, assignmentID, studentID uint) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Order("attempt_number DESC").
		Take(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new attempt. A duplicate (assignment, student, number)
// means another request won the slot and is reported as ErrAttemptConflict.
func (r *AttemptRepository) Create(ctx context.Context, attempt *model.Attempt) error {
	err := r.DB.WithContext(ctx).Create(attempt).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("attempt %d: %w", attempt.AttemptNumber, util.ErrAttemptConflict)
	}
	return err
}

// MarkSubmitted performs the single open → submitted transition. The update is
// conditional on the attempt still being open.
func (r *AttemptRepository) MarkSubmitted(ctx context.Context, attempt *model.Attempt, score float64, at time.Time) error {
	res := r.DB.WithContext(ctx).Model(&model.Attempt{}).
		Where("id = ? AND is_submitted = ?", attempt.ID, false).
		Updates(map[string]interface{}{
			"score":        score,
			"submitted_at": at,
			"is_submitted": true,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrAttemptAlreadySubmitted
	}

	attempt.Score = &score
	attempt.SubmittedAt = &at
	attempt.IsSubmitted = true
	return nil
}

func (r *AttemptRepository) CreateStudentAnswers(ctx context.Context, rows []model.StudentAnswer) error {
	if len(rows) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).CreateInBatches(&rows, 200).Error
}

// FindForStudent loads an attempt only if it belongs to the given assignment
// and student.
func (r *AttemptRepository) FindForStudent(ctx context.Context, attemptID, assignmentID, studentID uint) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.WithContext(ctx).
		Where("id = ? AND assignment_id = ? AND student_id = ?", attemptID, assignmentID, studentID).
		Take(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) ListStudentAnswers(ctx context.Context, attemptID uint) ([]model.StudentAnswer, error) {
	var rows []model.StudentAnswer
	err := r.DB.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *AttemptRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]model.Attempt, error) {
	var list []model.Attempt
	err := r.DB.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

// StudentSubmissionRow is an attempt joined with its assignment header.
type StudentSubmissionRow struct {
	model.Attempt
	Title       string  `gorm:"column:title" json:"title"`
	Description string  `gorm:"column:description" json:"description"`
	TotalScore  float64 `gorm:"column:total_score" json:"total_score"`
	Thumbnail   *string `gorm:"column:thumbnail" json:"thumbnail,omitempty"`
}

func (r *AttemptRepository) ListByStudent(ctx context.Context, studentID uint) ([]StudentSubmissionRow, error) {
	var rows []StudentSubmissionRow
	err := r.DB.WithContext(ctx).
		Table("assignment_attempts aa").
		Select("aa.*, a.title, a.description, a.total_score, a.thumbnail").
		Joins("JOIN assignments a ON a.id = aa.assignment_id").
		Where("aa.student_id = ?", studentID).
		Order("aa.created_at DESC, aa.id DESC").
		Scan(&rows).Error
	return rows, err
}
