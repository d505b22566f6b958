package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learnhub/internal/completion"
	"github.com/pot-code/learnhub/internal/course"
	"github.com/pot-code/learnhub/internal/imagegen"
	"github.com/pot-code/learnhub/internal/infrastructure/validate"
	"github.com/pot-code/learnhub/internal/media"
	"github.com/pot-code/learnhub/internal/notification"
	"github.com/pot-code/learnhub/internal/questionnaire"
	"github.com/pot-code/learnhub/internal/user"
)

// RESTStandardError response error
type RESTStandardError struct {
	Type    string `json:"type,omitempty"`
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Detail  string `json:"detail,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func NewRESTStandardError(code int, detail string) *RESTStandardError {
	return &RESTStandardError{
		Code:   code,
		Title:  http.StatusText(code),
		Detail: detail,
	}
}

func (re RESTStandardError) Error() string {
	return re.Detail
}

func (re RESTStandardError) SetTraceID(traceID string) RESTStandardError {
	re.TraceID = traceID
	return re
}

// RESTValidationError standard validation error
type RESTValidationError struct {
	RESTStandardError
	InvalidParams []*validate.FieldError `json:"invalid_params"`
}

func NewRESTValidationError(code int, detail string, internal []*validate.FieldError) *RESTValidationError {
	return &RESTValidationError{
		RESTStandardError: RESTStandardError{
			Code:   code,
			Title:  http.StatusText(code),
			Detail: detail,
		},
		InvalidParams: internal,
	}
}

func (rve RESTValidationError) Error() string {
	return rve.Detail
}

func (rve RESTValidationError) SetTraceID(traceID string) RESTValidationError {
	rve.RESTStandardError.TraceID = traceID
	return rve
}

// domain errors returned as is by handlers
var errorStatus = []struct {
	err  error
	code int
}{
	{user.ErrNoSuchUser, http.StatusUnauthorized},
	{user.ErrUserTooManyRetry, http.StatusForbidden},
	{user.ErrDuplicatedUser, http.StatusConflict},
	{user.ErrInvalidRole, http.StatusBadRequest},
	{course.ErrCourseNotFound, http.StatusNotFound},
	{course.ErrModuleNotFound, http.StatusNotFound},
	{course.ErrLessonNotFound, http.StatusNotFound},
	{course.ErrNotCourseOwner, http.StatusForbidden},
	{course.ErrUnknownLessonType, http.StatusBadRequest},
	{course.ErrInvalidContent, http.StatusBadRequest},
	{course.ErrEmptyEntry, http.StatusBadRequest},
	{completion.ErrUnknownLesson, http.StatusNotFound},
	{questionnaire.ErrQuestionnaireNotFound, http.StatusNotFound},
	{questionnaire.ErrGradingPending, http.StatusNotFound},
	{questionnaire.ErrUnknownQuestion, http.StatusBadRequest},
	{questionnaire.ErrSubmissionNotFound, http.StatusNotFound},
	{notification.ErrNotificationNotFound, http.StatusNotFound},
	{media.ErrUnknownBucket, http.StatusBadRequest},
	{media.ErrUnknownKind, http.StatusBadRequest},
	{media.ErrTooLarge, http.StatusRequestEntityTooLarge},
	{media.ErrObjectMissing, http.StatusNotFound},
	{imagegen.ErrEmptyPrompt, http.StatusBadRequest},
	{imagegen.ErrNotConfigured, http.StatusInternalServerError},
	{imagegen.ErrTooLarge, http.StatusBadGateway},
}

// statusOf response code for err, 500 for anything unknown
func statusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	var ue *imagegen.UpstreamError
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	for _, item := range errorStatus {
		if errors.Is(err, item.err) {
			return item.code
		}
	}
	return http.StatusInternalServerError
}

// errorDetail message exposed to clients
func errorDetail(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return msg
		}
		return http.StatusText(he.Code)
	}
	return err.Error()
}
