package util

import (
	"errors"
	"net/http"

	"quiz_engine_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	InternalServerError(c)
}

// StatusFor maps an error of the domain taxonomy to its HTTP status.
func StatusFor(err error) int {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case IsBusinessError(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err using the domain taxonomy. Unknown errors are
// logged and hidden behind a generic 500.
func RespondError(c *gin.Context, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusInternalServerError:
		LogInternalError(c, err)
	case http.StatusForbidden:
		Forbidden(c)
	default:
		Error(c, status, messageFor(err))
	}
}

func messageFor(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	if errors.Is(err, ErrAttemptNotFound) {
		return ErrAttemptNotFound.Error()
	}
	if errors.Is(err, ErrAssignmentNotFound) {
		return ErrAssignmentNotFound.Error()
	}
	return err.Error()
}
