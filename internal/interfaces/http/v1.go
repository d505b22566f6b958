package http

import (
	"github.com/labstack/echo/v4"
)

type v1Handlers struct {
	User          *UserHandler
	Course        *CourseHandler
	Completion    *CompletionHandler
	Questionnaire *QuestionnaireHandler
	Notification  *NotificationHandler
	Achievement   *AchievementHandler
	Media         *MediaHandler
	Function      *FunctionHandler
	Cache         *CacheHandler
}

type v1Middlewares struct {
	jwt        []echo.MiddlewareFunc // verify, refresh and track the session
	traceLog   echo.MiddlewareFunc
	authorOnly echo.MiddlewareFunc
	adminOnly  echo.MiddlewareFunc
}

func v1Endpoint(h *v1Handlers, m *v1Middlewares) *endpoint {
	authorOnly := []echo.MiddlewareFunc{m.authorOnly}
	adminOnly := []echo.MiddlewareFunc{m.adminOnly}

	return &endpoint{
		apiVersion:  "api/v1",
		middlewares: []echo.MiddlewareFunc{m.traceLog},
		groups: []*apiGroup{
			{
				prefix: "/user",
				routes: []*route{
					{"POST", "/login", h.User.HandleSignIn, nil},
					{"PUT", "/sign-out", h.User.HandleSignOut, nil},
					{"POST", "/sign-up", h.User.HandleSignUp, nil},
					{"GET", "/exists", h.User.HandleUserExists, nil},
					{"GET", "/me", h.User.HandleMe, m.jwt},
					{"POST", "/refresh-role", h.User.HandleRefreshRole, m.jwt},
					{"PUT", "/:id/role", h.User.HandleUpdateRole, append(m.jwt, m.adminOnly)},
				},
			},
			{
				prefix:      "/courses",
				middlewares: m.jwt,
				routes: []*route{
					{"GET", "", h.Course.HandleList, nil},
					{"POST", "", h.Course.HandleCreate, authorOnly},
					{"GET", "/:id", h.Course.HandleGet, nil},
					{"PUT", "/:id", h.Course.HandleSaveInfo, authorOnly},
					{"DELETE", "/:id", h.Course.HandleDeleteCourse, authorOnly},
					{"PUT", "/:id/structure", h.Course.HandleSaveStructure, authorOnly},
					{"PUT", "/:id/lessons/:lessonId", h.Course.HandleSaveLesson, authorOnly},
					{"GET", "/:id/save-status", h.Course.HandleSaveStatus, authorOnly},
				},
			},
			{
				prefix:      "/modules",
				middlewares: m.jwt,
				routes: []*route{
					{"DELETE", "/:id", h.Course.HandleDeleteModule, authorOnly},
				},
			},
			{
				prefix:      "/lessons",
				middlewares: m.jwt,
				routes: []*route{
					{"DELETE", "/:id", h.Course.HandleDeleteLesson, authorOnly},
				},
			},
			{
				prefix:      "/completions",
				middlewares: m.jwt,
				routes: []*route{
					{"GET", "/:courseId", h.Completion.HandleLoad, nil},
					{"GET", "/:courseId/loading", h.Completion.HandleLoading, nil},
					{"GET", "/:courseId/lessons/:lessonId", h.Completion.HandleGetLesson, nil},
					{"PUT", "/:courseId/lessons/:lessonId", h.Completion.HandleSetLesson, nil},
				},
			},
			{
				prefix:      "/questionnaires",
				middlewares: m.jwt,
				routes: []*route{
					{"GET", "", h.Questionnaire.HandleList, nil},
					{"POST", "", h.Questionnaire.HandleCreate, authorOnly},
					{"GET", "/:id", h.Questionnaire.HandleGet, nil},
					{"DELETE", "/:id", h.Questionnaire.HandleDelete, authorOnly},
					{"GET", "/:id/submissions", h.Questionnaire.HandleSubmissions, nil},
					{"POST", "/:id/submissions", h.Questionnaire.HandleSubmit, nil},
				},
			},
			{
				prefix:      "/submissions",
				middlewares: m.jwt,
				routes: []*route{
					{"GET", "/:id/grading", h.Questionnaire.HandleGrading, nil},
				},
			},
			{
				prefix:      "/notifications",
				middlewares: m.jwt,
				routes: []*route{
					{"GET", "", h.Notification.HandleList, nil},
					{"PUT", "/read-all", h.Notification.HandleMarkAllRead, nil},
					{"PUT", "/:id/read", h.Notification.HandleMarkRead, nil},
				},
			},
			{
				prefix:      "/achievements",
				middlewares: m.jwt,
				routes: []*route{
					{"GET", "", h.Achievement.HandleList, nil},
				},
			},
			{
				prefix:      "/media",
				middlewares: m.jwt,
				routes: []*route{
					{"POST", "/upload", h.Media.HandleUpload, authorOnly},
					{"DELETE", "", h.Media.HandleDelete, authorOnly},
				},
			},
			{
				prefix:      "/functions",
				middlewares: m.jwt,
				routes: []*route{
					{"POST", "/generate-card-image", h.Function.HandleGenerateCardImage, authorOnly},
				},
			},
			{
				prefix:      "/cache",
				middlewares: m.jwt,
				routes: []*route{
					{"POST", "/clear", h.Cache.HandleClear, adminOnly},
				},
			},
			{
				prefix:      "/ws",
				middlewares: m.jwt,
				routes: []*route{
					{"GET", "", h.Cache.HandleWebsocket(), nil},
				},
			},
		},
	}
}
