package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learnhub/internal/course"
	"github.com/pot-code/learnhub/internal/infrastructure/auth"
	"github.com/pot-code/learnhub/internal/infrastructure/validate"
	"github.com/pot-code/learnhub/internal/interfaces/http/middleware"
	"github.com/pot-code/learnhub/internal/user"
)

type CourseHandler struct {
	JWTUtil       *auth.JWTUtil
	CourseUseCase course.CourseUseCase
	Roles         middleware.RoleResolver
	Validator     validate.Validator
}

func NewCourseHandler(JWTUtil *auth.JWTUtil, CourseUseCase course.CourseUseCase, Roles middleware.RoleResolver, Validator validate.Validator) *CourseHandler {
	return &CourseHandler{JWTUtil, CourseUseCase, Roles, Validator}
}

// editor identity of the caller, the role is resolved when RequireRole has not run
func (ch *CourseHandler) editor(c echo.Context) (course.Editor, error) {
	claims := mustClaims(ch.JWTUtil, c)
	role := middleware.GetContextRole(c)
	if role == "" {
		var err error
		role, err = ch.Roles.ResolveRole(c.Request().Context(), claims.SessionID(), claims.UID)
		if err != nil {
			return course.Editor{}, err
		}
	}
	return course.Editor{UserID: claims.UID, Admin: role == user.RoleAdmin}, nil
}

// structureFailure body of a partially saved structure
type structureFailure struct {
	RESTStandardError
	Written int    `json:"written"`
	Module  string `json:"module_id,omitempty"`
	Lesson  string `json:"lesson_id,omitempty"`
}

func (ch *CourseHandler) HandleList(c echo.Context) error {
	uid := mustClaims(ch.JWTUtil, c).UID
	filter := &course.ListFilter{
		AuthorID: optionalQuery(c, "author_id"),
		Search:   c.QueryParam("search"),
	}
	if c.QueryParam("mine") == "true" {
		filter.AuthorID = &uid
	}
	// drafts are only listed to their author
	filter.PublishedOnly = filter.AuthorID == nil || *filter.AuthorID != uid

	courses, err := ch.CourseUseCase.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	if courses == nil {
		courses = []*course.Course{}
	}
	return c.JSON(http.StatusOK, courses)
}

func (ch *CourseHandler) HandleGet(c echo.Context) error {
	result, err := ch.CourseUseCase.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if !result.Published {
		editor, err := ch.editor(c)
		if err != nil {
			return err
		}
		if !editor.CanEdit(result) {
			return course.ErrCourseNotFound
		}
	}
	return c.JSON(http.StatusOK, result)
}

func (ch *CourseHandler) HandleCreate(c echo.Context) error {
	post := new(course.Course)
	if err := bindBody(c, ch.Validator, post); err != nil {
		return err
	}
	editor, err := ch.editor(c)
	if err != nil {
		return err
	}
	created, err := ch.CourseUseCase.Create(c.Request().Context(), editor, post)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (ch *CourseHandler) HandleSaveInfo(c echo.Context) error {
	post := new(course.Course)
	if err := bindBody(c, ch.Validator, post); err != nil {
		return err
	}
	post.ID = c.Param("id")
	editor, err := ch.editor(c)
	if err != nil {
		return err
	}
	if err := ch.CourseUseCase.SaveCourseInfo(c.Request().Context(), editor, post); err != nil {
		return err
	}
	report, err := ch.CourseUseCase.SaveStatus(c.Request().Context(), editor, post.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func (ch *CourseHandler) HandleSaveLesson(c echo.Context) error {
	post := new(course.Lesson)
	if err := bindBody(c, ch.Validator, post); err != nil {
		return err
	}
	post.ID = c.Param("lessonId")
	courseID := c.Param("id")
	editor, err := ch.editor(c)
	if err != nil {
		return err
	}
	if err := ch.CourseUseCase.SaveLesson(c.Request().Context(), editor, courseID, post); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

type structurePost struct {
	Modules []*course.Module `json:"modules" validate:"dive,required"`
}

func (ch *CourseHandler) HandleSaveStructure(c echo.Context) error {
	post := new(structurePost)
	if err := bindBody(c, ch.Validator, post); err != nil {
		return err
	}
	courseID := c.Param("id")
	editor, err := ch.editor(c)
	if err != nil {
		return err
	}

	err = ch.CourseUseCase.SaveCourseStructure(c.Request().Context(), editor, courseID, post.Modules)
	var se *course.StructureError
	if errors.As(err, &se) {
		code := statusOf(se.Err)
		detail := se.Error()
		if code >= http.StatusInternalServerError {
			detail = "Failed to save course structure"
		}
		return c.JSON(code, &structureFailure{
			RESTStandardError: *NewRESTStandardError(code, detail),
			Written:           se.Written,
			Module:            se.Module,
			Lesson:            se.Lesson,
		})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post.Modules)
}

func (ch *CourseHandler) HandleSaveStatus(c echo.Context) error {
	editor, err := ch.editor(c)
	if err != nil {
		return err
	}
	report, err := ch.CourseUseCase.SaveStatus(c.Request().Context(), editor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func (ch *CourseHandler) HandleDeleteCourse(c echo.Context) error {
	editor, err := ch.editor(c)
	if err != nil {
		return err
	}
	if err := ch.CourseUseCase.DeleteCourse(c.Request().Context(), editor, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (ch *CourseHandler) HandleDeleteModule(c echo.Context) error {
	editor, err := ch.editor(c)
	if err != nil {
		return err
	}
	if err := ch.CourseUseCase.DeleteModule(c.Request().Context(), editor, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (ch *CourseHandler) HandleDeleteLesson(c echo.Context) error {
	editor, err := ch.editor(c)
	if err != nil {
		return err
	}
	if err := ch.CourseUseCase.DeleteLesson(c.Request().Context(), editor, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
