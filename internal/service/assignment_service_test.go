package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/util"
	"quiz_engine_backend/pkg/events"

	"gorm.io/gorm"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestCreateAssignment_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		mutate func(*CreateAssignmentRequest)
		field  string
	}{
		{"missing title", func(r *CreateAssignmentRequest) { r.Title = "" }, "title"},
		{"blank title", func(r *CreateAssignmentRequest) { r.Title = "   " }, "title"},
		{"no questions", func(r *CreateAssignmentRequest) { r.Questions = nil }, "questions"},
		{"no answers", func(r *CreateAssignmentRequest) { r.Questions[0].Answers = nil }, "questions[0].answers"},
		{"bad type", func(r *CreateAssignmentRequest) { r.Questions[1].Type = "essay" }, "questions[1].type"},
		{"negative score", func(r *CreateAssignmentRequest) { r.Questions[0].Score = -1 }, "questions[0].score"},
		{"blank answer", func(r *CreateAssignmentRequest) { r.Questions[1].Answers[2].Content = " " }, "questions[1].answers[2].content"},
		{"zero attempts", func(r *CreateAssignmentRequest) { r.MaxAttempts = intPtr(0) }, "max_attempts"},
		{"zero time limit", func(r *CreateAssignmentRequest) { r.TimeLimit = intPtr(0) }, "time_limit"},
		{"end before start", func(r *CreateAssignmentRequest) {
			now := env.clock.Now()
			r.StartTime = timePtr(now)
			r.EndTime = timePtr(now.Add(-1))
		}, "end_time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := quizRequest()
			tt.mutate(req)

			_, err := env.assignments.CreateAssignment(context.Background(), 1, req)
			var verr *util.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
			if util.StatusFor(err) != 400 {
				t.Errorf("status = %d, want 400", util.StatusFor(err))
			}
		})
	}

	var n int64
	env.db.Model(&model.Assignment{}).Count(&n)
	if n != 0 {
		t.Errorf("assignments = %d after failed creates, want 0", n)
	}
}

func TestCreateAssignment_Defaults(t *testing.T) {
	env := newTestEnv(t)

	a := env.createQuiz(t, 7, nil)
	if a.TotalScore != 10 {
		t.Errorf("total_score = %v, want sum of question scores 10", a.TotalScore)
	}
	if a.MaxAttempts != 1 {
		t.Errorf("max_attempts = %d, want 1", a.MaxAttempts)
	}
	if a.CreatedBy != 7 {
		t.Errorf("created_by = %d, want 7", a.CreatedBy)
	}
	if len(a.Questions) != 2 || !a.Questions[0].Answers[0].IsCorrect {
		t.Errorf("owner view = %+v", a.Questions)
	}

	declared := env.createQuiz(t, 7, func(r *CreateAssignmentRequest) { r.TotalScore = 100 })
	if declared.TotalScore != 100 {
		t.Errorf("declared total_score = %v, want 100", declared.TotalScore)
	}

	if keys := env.events.keys(); len(keys) != 2 || keys[0] != events.AssignmentCreated {
		t.Errorf("events = %v", keys)
	}
}

func TestCreateAssignment_Thumbnail(t *testing.T) {
	env := newTestEnv(t)

	a := env.createQuiz(t, 1, func(r *CreateAssignmentRequest) { r.Thumbnail = pngBytes(t, 200, 100) })
	if a.Thumbnail == nil || !strings.HasSuffix(*a.Thumbnail, ".webp") {
		t.Fatalf("thumbnail = %v, want webp url", a.Thumbnail)
	}
	if env.blobs.len() != 1 {
		t.Fatalf("stored blobs = %d, want 1", env.blobs.len())
	}

	_, err := env.assignments.CreateAssignment(context.Background(), 1, func() *CreateAssignmentRequest {
		r := quizRequest()
		r.Thumbnail = []byte("not an image")
		return r
	}())
	if !errors.Is(err, util.ErrValidation) {
		t.Errorf("bad thumbnail err = %v, want validation error", err)
	}
}

func TestCreateAssignment_RemovesThumbnailOnFailure(t *testing.T) {
	env := newTestEnv(t)
	err := env.db.Callback().Create().Before("gorm:create").Register("test:fail_questions", func(tx *gorm.DB) {
		if tx.Statement.Table == "assignment_questions" {
			tx.AddError(errors.New("connection reset"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	req := quizRequest()
	req.Thumbnail = pngBytes(t, 10, 10)
	_, err = env.assignments.CreateAssignment(context.Background(), 1, req)
	if err == nil {
		t.Fatal("CreateAssignment succeeded, want error")
	}
	if util.StatusFor(err) != 500 {
		t.Errorf("status = %d, want 500", util.StatusFor(err))
	}
	if env.blobs.len() != 0 {
		t.Errorf("orphaned blobs = %d, want 0", env.blobs.len())
	}
}

func TestGetAssignment_StudentViewHidesCorrectness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.createQuiz(t, 1, nil)

	view, err := env.assignments.GetAssignment(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAssignment: %v", err)
	}
	data, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if bytes.Contains(data, []byte("is_correct")) {
		t.Errorf("student view leaks correctness: %s", data)
	}
	if len(view.Questions) != 2 || len(view.Questions[1].Answers) != 3 {
		t.Errorf("student view = %+v", view.Questions)
	}

	list, err := env.assignments.ListForStudents(ctx)
	if err != nil {
		t.Fatalf("ListForStudents: %v", err)
	}
	data, _ = json.Marshal(list)
	if bytes.Contains(data, []byte("is_correct")) {
		t.Errorf("student list leaks correctness: %s", data)
	}

	owner, err := env.assignments.ListByCreator(ctx, 1)
	if err != nil {
		t.Fatalf("ListByCreator: %v", err)
	}
	data, _ = json.Marshal(owner)
	if !bytes.Contains(data, []byte(`"is_correct":true`)) {
		t.Errorf("owner view lacks correctness: %s", data)
	}

	if _, err := env.assignments.GetAssignment(ctx, a.ID+1); !errors.Is(err, util.ErrAssignmentNotFound) {
		t.Errorf("missing assignment err = %v", err)
	}
}

func TestDeleteAssignment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := &util.Claims{UserID: 1, Role: model.Teacher}
	otherTeacher := &util.Claims{UserID: 2, Role: model.Teacher}
	admin := &util.Claims{UserID: 3, Role: model.Admin}

	a := env.createQuiz(t, owner.UserID, func(r *CreateAssignmentRequest) { r.Thumbnail = pngBytes(t, 8, 8) })
	if _, err := env.attempts.StartAttempt(ctx, a.ID, student); err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	req := &SubmitAssignmentRequest{AssignmentID: a.ID, Answers: correctAnswers(a)}
	if _, err := env.attempts.SubmitAssignment(ctx, student, req); err != nil {
		t.Fatalf("SubmitAssignment: %v", err)
	}

	if _, err := env.assignments.DeleteAssignment(ctx, a.ID, otherTeacher); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("delete by other teacher err = %v, want ErrPermissionDenied", err)
	}
	if _, err := env.assignments.DeleteAssignment(ctx, a.ID+100, owner); !errors.Is(err, util.ErrAssignmentNotFound) {
		t.Fatalf("delete missing err = %v, want ErrAssignmentNotFound", err)
	}

	res, err := env.assignments.DeleteAssignment(ctx, a.ID, owner)
	if err != nil {
		t.Fatalf("DeleteAssignment: %v", err)
	}
	if res.Assignments != 1 || res.Questions != 2 || res.Answers != 6 || res.Attempts != 1 || res.StudentAnswers != 3 {
		t.Errorf("cascade = %+v", res)
	}
	if env.blobs.len() != 0 {
		t.Errorf("thumbnail not removed, blobs = %d", env.blobs.len())
	}

	b := env.createQuiz(t, owner.UserID, nil)
	if _, err := env.assignments.DeleteAssignment(ctx, b.ID, admin); err != nil {
		t.Fatalf("delete by admin: %v", err)
	}

	keys := env.events.keys()
	if keys[len(keys)-1] != events.AssignmentDeleted {
		t.Errorf("last event = %q, want %q", keys[len(keys)-1], events.AssignmentDeleted)
	}
}

func TestListSubmissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := &util.Claims{UserID: 1, Role: model.Teacher}
	a := env.createQuiz(t, owner.UserID, nil)
	for _, s := range []uint{10, 11} {
		if _, err := env.attempts.StartAttempt(ctx, a.ID, s); err != nil {
			t.Fatalf("StartAttempt: %v", err)
		}
	}

	list, err := env.assignments.ListSubmissions(ctx, a.ID, owner)
	if err != nil {
		t.Fatalf("ListSubmissions: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("submissions = %d, want 2", len(list))
	}

	studentClaims := &util.Claims{UserID: 10, Role: model.Student}
	if _, err := env.assignments.ListSubmissions(ctx, a.ID, studentClaims); !errors.Is(err, util.ErrPermissionDenied) {
		t.Errorf("student err = %v, want ErrPermissionDenied", err)
	}

	mine, err := env.assignments.ListMySubmissions(ctx, 10)
	if err != nil {
		t.Fatalf("ListMySubmissions: %v", err)
	}
	if len(mine) != 1 || mine[0].Title != "Loops" || mine[0].AssignmentID != a.ID {
		t.Errorf("my submissions = %+v", mine)
	}
}

func TestThumbnailProcessor_Downscale(t *testing.T) {
	p := &ThumbnailProcessor{MaxWidth: 50, MaxHeight: 50, Quality: 70}

	out, err := p.Process(pngBytes(t, 200, 100))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	img, err := decodeImage(out)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 50 || b.Dy() != 25 {
		t.Errorf("size = %dx%d, want 50x25", b.Dx(), b.Dy())
	}

	small := &ThumbnailProcessor{MaxBytes: 10}
	if _, err := small.Process(pngBytes(t, 20, 20)); !errors.Is(err, util.ErrValidation) {
		t.Errorf("oversized err = %v, want validation error", err)
	}
}
