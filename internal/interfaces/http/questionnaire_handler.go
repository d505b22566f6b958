package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learnhub/internal/infrastructure/auth"
	"github.com/pot-code/learnhub/internal/infrastructure/validate"
	"github.com/pot-code/learnhub/internal/interfaces/http/middleware"
	"github.com/pot-code/learnhub/internal/questionnaire"
)

type QuestionnaireHandler struct {
	JWTUtil              *auth.JWTUtil
	QuestionnaireUseCase questionnaire.QuestionnaireUseCase
	Roles                middleware.RoleResolver
	Validator            validate.Validator
}

func NewQuestionnaireHandler(
	JWTUtil *auth.JWTUtil,
	QuestionnaireUseCase questionnaire.QuestionnaireUseCase,
	Roles middleware.RoleResolver,
	Validator validate.Validator,
) *QuestionnaireHandler {
	return &QuestionnaireHandler{JWTUtil, QuestionnaireUseCase, Roles, Validator}
}

// HandleList ?course_id=&page=&size=&search=
func (qh *QuestionnaireHandler) HandleList(c echo.Context) error {
	courseID := c.QueryParam("course_id")
	if errs := qh.Validator.Empty("course_id", courseID); errs != nil {
		return NewRESTValidationError(http.StatusBadRequest, "Failed to validate params", errs)
	}
	page, err := intQuery(c, "page", 1)
	if err != nil {
		return err
	}
	size, err := intQuery(c, "size", questionnaire.DefaultPageSize)
	if err != nil {
		return err
	}

	result, err := qh.QuestionnaireUseCase.List(c.Request().Context(), courseID, page, size, optionalQuery(c, "search"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (qh *QuestionnaireHandler) HandleGet(c echo.Context) error {
	q, err := qh.QuestionnaireUseCase.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, q)
}

func (qh *QuestionnaireHandler) HandleCreate(c echo.Context) error {
	post := new(questionnaire.Questionnaire)
	if err := bindBody(c, qh.Validator, post); err != nil {
		return err
	}
	claims := mustClaims(qh.JWTUtil, c)
	created, err := qh.QuestionnaireUseCase.Create(c.Request().Context(), claims.UID, post)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (qh *QuestionnaireHandler) HandleDelete(c echo.Context) error {
	if err := qh.QuestionnaireUseCase.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleSubmissions authors may read every submission or filter by ?user_id=, learners only see their own
func (qh *QuestionnaireHandler) HandleSubmissions(c echo.Context) error {
	claims := mustClaims(qh.JWTUtil, c)
	ctx := c.Request().Context()
	role, err := qh.Roles.ResolveRole(ctx, claims.SessionID(), claims.UID)
	if err != nil {
		return err
	}

	userID := optionalQuery(c, "user_id")
	if !role.CanAuthor() {
		userID = &claims.UID
	}
	result, err := qh.QuestionnaireUseCase.Submissions(ctx, c.Param("id"), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

type submissionPost struct {
	Answers map[string]string `json:"answers" validate:"required"`
}

func (qh *QuestionnaireHandler) HandleSubmit(c echo.Context) error {
	post := new(submissionPost)
	if err := bindBody(c, qh.Validator, post); err != nil {
		return err
	}
	claims := mustClaims(qh.JWTUtil, c)
	s, err := qh.QuestionnaireUseCase.Submit(c.Request().Context(), claims.UID, c.Param("id"), post.Answers)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, s)
}

// HandleGrading authors may read every grading, learners only those of their own submissions
func (qh *QuestionnaireHandler) HandleGrading(c echo.Context) error {
	claims := mustClaims(qh.JWTUtil, c)
	ctx := c.Request().Context()
	role, err := qh.Roles.ResolveRole(ctx, claims.SessionID(), claims.UID)
	if err != nil {
		return err
	}

	var userID *string
	if !role.CanAuthor() {
		userID = &claims.UID
	}
	g, err := qh.QuestionnaireUseCase.Grading(ctx, c.Param("id"), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}
