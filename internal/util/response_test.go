package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz_engine_backend/internal/model"

	"github.com/gin-gonic/gin"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewValidationError("title", "is required"), http.StatusBadRequest},
		{fmt.Errorf("start: %w", ErrAttemptQuotaExceeded), http.StatusBadRequest},
		{ErrAttemptInProgress, http.StatusBadRequest},
		{ErrTimeLimitExceeded, http.StatusBadRequest},
		{ErrAttemptNotSubmitted, http.StatusBadRequest},
		{fmt.Errorf("load: %w", ErrAssignmentNotFound), http.StatusNotFound},
		{ErrAttemptNotFound, http.StatusNotFound},
		{ErrPermissionDenied, http.StatusForbidden},
		{ErrAttemptConflict, http.StatusInternalServerError},
		{errors.New("driver: bad connection"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err     error
		status  int
		message string
	}{
		{fmt.Errorf("submit: %w", ErrAttemptAlreadySubmitted), 400, ErrAttemptAlreadySubmitted.Error()},
		{NewValidationError("answers", "must be a list"), 400, "answers: must be a list"},
		{ErrAssignmentNotFound, 404, ErrAssignmentNotFound.Error()},
		{ErrPermissionDenied, 403, "Forbidden"},
		{errors.New("dial tcp: refused"), 500, "Internal server error"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		RespondError(c, tt.err)

		var body Response
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if w.Code != tt.status || body.Code != tt.status || body.Message != tt.message {
			t.Errorf("RespondError(%v) = %d %+v, want %d %q", tt.err, w.Code, body, tt.status, tt.message)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := ParseID("id", "42"); err != nil || id != 42 {
		t.Errorf("ParseID(42) = %d, %v", id, err)
	}
	for _, in := range []string{"", "0", "-3", "abc", "1.5"} {
		if _, err := ParseID("id", in); !errors.Is(err, ErrValidation) {
			t.Errorf("ParseID(%q) err = %v, want validation error", in, err)
		}
	}
}

func TestSniffMimeType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if ct, err := SniffMimeType(png, MimeImage); err != nil || ct != "image/png" {
		t.Errorf("png = %q, %v", ct, err)
	}
	if _, err := SniffMimeType([]byte("hello world"), MimeImage); !errors.Is(err, ErrValidation) {
		t.Errorf("text err = %v, want validation error", err)
	}
	if ct, err := SniffMimeType([]byte("hello world")); err != nil || ct == "" {
		t.Errorf("unrestricted = %q, %v", ct, err)
	}
}

func TestJWT(t *testing.T) {
	const secret = "unit-test-secret"

	tok, err := GenerateJWT(7, model.Teacher, secret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	claims, err := ParseJWT(tok, secret)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != 7 || claims.Role != model.Teacher || claims.IsAdmin() {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := ParseJWT(tok, "other-secret"); err == nil {
		t.Error("ParseJWT accepted a token signed with another secret")
	}
	expired, _ := GenerateJWT(7, model.Teacher, secret, -time.Minute)
	if _, err := ParseJWT(expired, secret); err == nil {
		t.Error("ParseJWT accepted an expired token")
	}
	unknownRole, _ := GenerateJWT(7, model.UserRole("guest"), secret, time.Minute)
	if _, err := ParseJWT(unknownRole, secret); err == nil {
		t.Error("ParseJWT accepted an unknown role")
	}

	var nilClaims *Claims
	if nilClaims.IsAdmin() {
		t.Error("nil claims reported admin")
	}
}
