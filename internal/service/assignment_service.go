package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/repository"
	"quiz_engine_backend/internal/util"
	"quiz_engine_backend/pkg/events"
	"quiz_engine_backend/pkg/logger"
	"quiz_engine_backend/pkg/tracing"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type AssignmentService struct {
	Repo        *repository.AssignmentRepository
	AttemptRepo *repository.AttemptRepository
	Blobs       BlobStore
	Thumbnails  *ThumbnailProcessor
	Cache       *AssignmentCache
	Events      events.Publisher
	validate    *validator.Validate
}

func NewAssignmentService(
	repo *repository.AssignmentRepository,
	attemptRepo *repository.AttemptRepository,
	blobs BlobStore,
	thumbnails *ThumbnailProcessor,
	cache *AssignmentCache,
	publisher events.Publisher,
) *AssignmentService {
	return &AssignmentService{
		Repo:        repo,
		AttemptRepo: attemptRepo,
		Blobs:       blobs,
		Thumbnails:  thumbnails,
		Cache:       cache,
		Events:      publisher,
		validate:    newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationFailure turns the first validator failure into a ValidationError.
func validationFailure(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return util.NewValidationError("", err.Error())
	}
	fe := verrs[0]
	field := strings.SplitN(fe.Namespace(), ".", 2)
	name := fe.Field()
	if len(field) == 2 {
		name = field[1]
	}
	switch fe.Tag() {
	case "required":
		return util.NewValidationError(name, "is required")
	case "min":
		return util.NewValidationError(name, "must be at least "+fe.Param())
	case "max":
		return util.NewValidationError(name, "must be at most "+fe.Param())
	case "gte":
		return util.NewValidationError(name, "must not be negative")
	case "oneof":
		return util.NewValidationError(name, "must be one of: "+fe.Param())
	default:
		return util.NewValidationError(name, "is invalid")
	}
}

func (s *AssignmentService) validateCreate(req *CreateAssignmentRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return validationFailure(err)
	}
	if strings.TrimSpace(req.Title) == "" {
		return util.NewValidationError("title", "is required")
	}
	if req.StartTime != nil && req.EndTime != nil && !req.EndTime.After(*req.StartTime) {
		return util.NewValidationError("end_time", "must be after start_time")
	}
	for i, q := range req.Questions {
		if strings.TrimSpace(q.Content) == "" {
			return util.NewValidationError(fmt.Sprintf("questions[%d].content", i), "is required")
		}
		for j, a := range q.Answers {
			if strings.TrimSpace(a.Content) == "" {
				return util.NewValidationError(fmt.Sprintf("questions[%d].answers[%d].content", i, j), "is required")
			}
		}
	}
	return nil
}

func buildAssignment(creatorID uint, req *CreateAssignmentRequest) *model.Assignment {
	a := &model.Assignment{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		TotalScore:  req.TotalScore,
		CreatedBy:   creatorID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		TimeLimit:   req.TimeLimit,
		MaxAttempts: 1,
		Questions:   make([]model.Question, 0, len(req.Questions)),
	}
	if req.MaxAttempts != nil {
		a.MaxAttempts = *req.MaxAttempts
	}

	for i, qr := range req.Questions {
		q := model.Question{
			Content:  qr.Content,
			Type:     model.QuestionType(qr.Type),
			Score:    qr.Score,
			Position: i,
			Answers:  make([]model.Answer, 0, len(qr.Answers)),
		}
		for _, ar := range qr.Answers {
			q.Answers = append(q.Answers, model.Answer{Content: ar.Content, IsCorrect: ar.IsCorrect})
		}
		a.Questions = append(a.Questions, q)
	}

	if a.TotalScore == 0 {
		a.TotalScore = a.QuestionScoreSum()
	}
	return a
}

// CreateAssignment validates the request, stores the optional thumbnail and
// persists the assignment with its questions and answers in one transaction.
func (s *AssignmentService) CreateAssignment(ctx context.Context, creatorID uint, req *CreateAssignmentRequest) (res *OwnerAssignment, err error) {
	ctx, span := tracing.StartSpan(ctx, "AssignmentService.CreateAssignment")
	defer func() { tracing.EndSpan(span, err) }()

	if err := s.validateCreate(req); err != nil {
		return nil, err
	}
	a := buildAssignment(creatorID, req)

	var blobKey string
	if len(req.Thumbnail) > 0 {
		data, err := s.Thumbnails.Process(req.Thumbnail)
		if err != nil {
			return nil, err
		}
		blobKey = s.Thumbnails.ObjectKey(time.Now())
		url, err := s.Blobs.Put(ctx, blobKey, data, util.MimeWebP)
		if err != nil {
			return nil, fmt.Errorf("store thumbnail: %w", err)
		}
		a.Thumbnail = &url
	}

	if err := s.Repo.Create(ctx, a); err != nil {
		if blobKey != "" {
			if rmErr := s.Blobs.Remove(context.WithoutCancel(ctx), blobKey); rmErr != nil {
				logger.Log.Warn("Failed to remove orphaned thumbnail", zap.String("key", blobKey), zap.Error(rmErr))
			}
		}
		return nil, fmt.Errorf("create assignment: %w", err)
	}

	logger.Log.Info("Assignment created",
		zap.Uint("assignment_id", a.ID),
		zap.Uint("created_by", creatorID),
		zap.Int("questions", len(a.Questions)),
	)
	publish(ctx, s.Events, events.AssignmentCreated, map[string]interface{}{
		"assignment_id": a.ID,
		"created_by":    creatorID,
	})

	view := NewOwnerAssignment(a)
	return &view, nil
}

func (s *AssignmentService) findHeader(ctx context.Context, id uint) (*model.Assignment, error) {
	a, err := s.Repo.FindHeader(ctx, id)
	if repository.IsNotFound(err) {
		return nil, util.ErrAssignmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load assignment %d: %w", id, err)
	}
	return a, nil
}

// GetAssignment returns the student projection of one assignment.
func (s *AssignmentService) GetAssignment(ctx context.Context, id uint) (*StudentAssignment, error) {
	if view, ok := s.Cache.Get(ctx, id); ok {
		return view, nil
	}

	a, err := s.Repo.FindByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, util.ErrAssignmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load assignment %d: %w", id, err)
	}

	view := NewStudentAssignment(a)
	s.Cache.Set(ctx, &view)
	return &view, nil
}

func (s *AssignmentService) ListAll(ctx context.Context) ([]OwnerAssignment, error) {
	list, err := s.Repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return NewOwnerAssignments(list), nil
}

func (s *AssignmentService) ListForStudents(ctx context.Context) ([]StudentAssignment, error) {
	list, err := s.Repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return NewStudentAssignments(list), nil
}

func (s *AssignmentService) ListByCreator(ctx context.Context, userID uint) ([]OwnerAssignment, error) {
	list, err := s.Repo.ListByCreator(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewOwnerAssignments(list), nil
}

func canManage(a *model.Assignment, user *util.Claims) bool {
	return user != nil && (user.IsAdmin() || a.CreatedBy == user.UserID)
}

// DeleteAssignment removes an assignment with every dependent row. Only the
// creator or an admin may delete.
func (s *AssignmentService) DeleteAssignment(ctx context.Context, id uint, user *util.Claims) (res repository.CascadeResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "AssignmentService.DeleteAssignment")
	defer func() { tracing.EndSpan(span, err) }()

	a, err := s.findHeader(ctx, id)
	if err != nil {
		return res, err
	}
	if !canManage(a, user) {
		return res, util.ErrPermissionDenied
	}

	res, err = s.Repo.DeleteCascade(ctx, id)
	if err != nil {
		return res, fmt.Errorf("delete assignment %d: %w", id, err)
	}

	s.Cache.Invalidate(ctx, id)
	if a.Thumbnail != nil {
		if key, ok := s.Blobs.KeyFromURL(*a.Thumbnail); ok {
			if rmErr := s.Blobs.Remove(ctx, key); rmErr != nil {
				logger.Log.Warn("Failed to remove thumbnail", zap.Uint("assignment_id", id), zap.Error(rmErr))
			}
		}
	}

	logger.Log.Info("Assignment deleted",
		zap.Uint("assignment_id", id),
		zap.Uint("deleted_by", user.UserID),
		zap.Int64("rows", res.Total()),
	)
	publish(ctx, s.Events, events.AssignmentDeleted, map[string]interface{}{
		"assignment_id": id,
		"deleted_by":    user.UserID,
		"rows":          res,
	})
	return res, nil
}

// ListSubmissions returns every attempt of an assignment for its creator.
func (s *AssignmentService) ListSubmissions(ctx context.Context, id uint, user *util.Claims) ([]model.Attempt, error) {
	a, err := s.findHeader(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(a, user) {
		return nil, util.ErrPermissionDenied
	}
	return s.AttemptRepo.ListByAssignment(ctx, id)
}

func (s *AssignmentService) ListMySubmissions(ctx context.Context, studentID uint) ([]repository.StudentSubmissionRow, error) {
	return s.AttemptRepo.ListByStudent(ctx, studentID)
}

// publish sends a domain event after commit. Failures are only logged.
func publish(ctx context.Context, p events.Publisher, routingKey string, payload interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(context.WithoutCancel(ctx), routingKey, payload); err != nil {
		logger.Log.Warn("Failed to publish event", zap.String("routing_key", routingKey), zap.Error(err))
	}
}
