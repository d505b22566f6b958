package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learnhub/internal/completion"
	"github.com/pot-code/learnhub/internal/infrastructure/auth"
	"github.com/pot-code/learnhub/internal/infrastructure/validate"
)

type CompletionHandler struct {
	JWTUtil           *auth.JWTUtil
	CompletionUseCase completion.CompletionUseCase
	Validator         validate.Validator
}

func NewCompletionHandler(JWTUtil *auth.JWTUtil, CompletionUseCase completion.CompletionUseCase, Validator validate.Validator) *CompletionHandler {
	return &CompletionHandler{JWTUtil, CompletionUseCase, Validator}
}

// HandleLoad progress of the caller in a course, cleanup=true drops rows of removed lessons
func (ch *CompletionHandler) HandleLoad(c echo.Context) error {
	claims := mustClaims(ch.JWTUtil, c)
	progress, err := ch.CompletionUseCase.Load(c.Request().Context(), claims.UID, c.Param("courseId"), c.QueryParam("cleanup") == "true")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, progress)
}

type lessonCompletion struct {
	LessonID  string `json:"lesson_id"`
	Completed bool   `json:"completed"`
}

func (ch *CompletionHandler) HandleGetLesson(c echo.Context) error {
	claims := mustClaims(ch.JWTUtil, c)
	lessonID := c.Param("lessonId")
	completed, err := ch.CompletionUseCase.IsLessonCompleted(c.Request().Context(), claims.UID, c.Param("courseId"), lessonID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &lessonCompletion{LessonID: lessonID, Completed: completed})
}

type completionPost struct {
	Completed *bool `json:"completed" validate:"required"`
}

func (ch *CompletionHandler) HandleSetLesson(c echo.Context) error {
	post := new(completionPost)
	if err := bindBody(c, ch.Validator, post); err != nil {
		return err
	}
	claims := mustClaims(ch.JWTUtil, c)
	lessonID := c.Param("lessonId")
	if err := ch.CompletionUseCase.SetLessonCompletion(c.Request().Context(), claims.UID, c.Param("courseId"), lessonID, *post.Completed); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &lessonCompletion{LessonID: lessonID, Completed: *post.Completed})
}

// HandleLoading reports whether a load of the course is in flight for the caller
func (ch *CompletionHandler) HandleLoading(c echo.Context) error {
	claims := mustClaims(ch.JWTUtil, c)
	return c.JSON(http.StatusOK, map[string]bool{"loading": ch.CompletionUseCase.IsLoading(claims.UID, c.Param("courseId"))})
}
