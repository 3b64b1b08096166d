package repository

import (
	"context"
	"fmt"

	"quiz_engine_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssignmentRepository is the catalog store: assignments, their questions and
// answer options.
type AssignmentRepository struct {
	DB *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

// WithTx returns a repository bound to an open transaction.
func (r *AssignmentRepository) WithTx(tx *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: tx}
}

func preloadQuestions(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
}

// Create inserts the assignment, then each question, then each question's
// answers. Any failure rolls the whole unit back.
func (r *AssignmentRepository) Create(ctx context.Context, a *model.Assignment) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(a).Error; err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}

		for i := range a.Questions {
			q := &a.Questions[i]
			q.AssignmentID = a.ID
			if err := tx.Omit(clause.Associations).Create(q).Error; err != nil {
				return fmt.Errorf("insert question %d: %w", i, err)
			}

			for j := range q.Answers {
				q.Answers[j].QuestionID = q.ID
			}
			if len(q.Answers) == 0 {
				continue
			}
			if err := tx.Create(&q.Answers).Error; err != nil {
				return fmt.Errorf("insert answers of question %d: %w", i, err)
			}
		}
		return nil
	})
}

// FindByID loads an assignment with questions and answers (correctness included).
func (r *AssignmentRepository) FindByID(ctx context.Context, id uint) (*model.Assignment, error) {
	var a model.Assignment
	if err := preloadQuestions(r.DB.WithContext(ctx)).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// FindHeader loads only the assignment row: schedule, limits and owner.
func (r *AssignmentRepository) FindHeader(ctx context.Context, id uint) (*model.Assignment, error) {
	var a model.Assignment
	if err := r.DB.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AssignmentRepository) ListAll(ctx context.Context) ([]model.Assignment, error) {
	var list []model.Assignment
	err := preloadQuestions(r.DB.WithContext(ctx)).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

func (r *AssignmentRepository) ListByCreator(ctx context.Context, userID uint) ([]model.Assignment, error) {
	var list []model.Assignment
	err := preloadQuestions(r.DB.WithContext(ctx)).
		Where("created_by = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

// ListQuestions returns the questions of an assignment with their answers.
func (r *AssignmentRepository) ListQuestions(ctx context.Context, assignmentID uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("assignment_id = ?", assignmentID).
		Order("position ASC, id ASC").
		Find(&qs).Error
	return qs, err
}

// CascadeResult counts the rows removed per table by DeleteCascade.
type CascadeResult struct {
	StudentAnswers int64 `json:"student_answers"`
	Attempts       int64 `json:"attempts"`
	AttemptSlots   int64 `json:"attempt_slots"`
	Answers        int64 `json:"answers"`
	Questions      int64 `json:"questions"`
	Assignments    int64 `json:"assignments"`
}

func (c CascadeResult) Total() int64 {
	return c.StudentAnswers + c.Attempts + c.AttemptSlots + c.Answers + c.Questions + c.Assignments
}

// DeleteCascade removes an assignment and every row that depends on it in one
// transaction. A missing assignment deletes nothing and is not an error.
func (r *AssignmentRepository) DeleteCascade(ctx context.Context, id uint) (CascadeResult, error) {
	var result CascadeResult

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attemptIDs := tx.Model(&model.Attempt{}).Select("id").Where("assignment_id = ?", id)
		res := tx.Where("attempt_id IN (?)", attemptIDs).Delete(&model.StudentAnswer{})
		if res.Error != nil {
			return fmt.Errorf("delete student answers: %w", res.Error)
		}
		result.StudentAnswers = res.RowsAffected

		res = tx.Where("assignment_id = ?", id).Delete(&model.Attempt{})
		if res.Error != nil {
			return fmt.Errorf("delete attempts: %w", res.Error)
		}
		result.Attempts = res.RowsAffected

		res = tx.Where("assignment_id = ?", id).Delete(&model.AttemptSlot{})
		if res.Error != nil {
			return fmt.Errorf("delete attempt slots: %w", res.Error)
		}
		result.AttemptSlots = res.RowsAffected

		questionIDs := tx.Model(&model.Question{}).Select("id").Where("assignment_id = ?", id)
		res = tx.Where("question_id IN (?)", questionIDs).Delete(&model.Answer{})
		if res.Error != nil {
			return fmt.Errorf("delete answers: %w", res.Error)
		}
		result.Answers = res.RowsAffected

		res = tx.Where("assignment_id = ?", id).Delete(&model.Question{})
		if res.Error != nil {
			return fmt.Errorf("delete questions: %w", res.Error)
		}
		result.Questions = res.RowsAffected

		res = tx.Delete(&model.Assignment{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete assignment: %w", res.Error)
		}
		result.Assignments = res.RowsAffected
		return nil
	})
	if err != nil {
		return CascadeResult{}, err
	}
	return result, nil
}
