package http

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/labstack/echo/v4"
	echo_middleware "github.com/labstack/echo/v4/middleware"
	"github.com/pot-code/learnhub/internal/achievement"
	"github.com/pot-code/learnhub/internal/cache"
	"github.com/pot-code/learnhub/internal/completion"
	"github.com/pot-code/learnhub/internal/course"
	"github.com/pot-code/learnhub/internal/imagegen"
	infra "github.com/pot-code/learnhub/internal/infrastructure"
	"github.com/pot-code/learnhub/internal/infrastructure/auth"
	"github.com/pot-code/learnhub/internal/infrastructure/driver"
	"github.com/pot-code/learnhub/internal/infrastructure/uuid"
	"github.com/pot-code/learnhub/internal/infrastructure/validate"
	"github.com/pot-code/learnhub/internal/interfaces/http/middleware"
	"github.com/pot-code/learnhub/internal/media"
	"github.com/pot-code/learnhub/internal/notification"
	"github.com/pot-code/learnhub/internal/questionnaire"
	"github.com/pot-code/learnhub/internal/realtime"
	"github.com/pot-code/learnhub/internal/session"
	"github.com/pot-code/learnhub/internal/user"
	"go.elastic.co/apm/module/apmechov4"
	"go.uber.org/zap"
)

type endpoint struct {
	apiVersion  string
	middlewares []echo.MiddlewareFunc
	groups      []*apiGroup
}

type apiGroup struct {
	prefix      string
	middlewares []echo.MiddlewareFunc
	routes      []*route
}

type route struct {
	method      string
	path        string
	handler     echo.HandlerFunc
	middlewares []echo.MiddlewareFunc
}

// Dependencies everything the transport layer talks to, Media and ImageGen may be nil
type Dependencies struct {
	Config *infra.AppConfig
	Logger *zap.Logger
	DB     driver.ITransactionalDB
	KV     driver.KeyValueDB

	Cache     *cache.Manager
	Sessions  *session.Directory
	Hub       *realtime.Hub
	SessionID uuid.Generator

	UserUseCase          user.UserUseCase
	CourseUseCase        course.CourseUseCase
	CompletionUseCase    completion.CompletionUseCase
	QuestionnaireUseCase questionnaire.QuestionnaireUseCase
	NotificationUseCase  notification.NotificationUseCase
	AchievementUseCase   achievement.AchievementUseCase
	Media                *media.Service
	ImageGen             *imagegen.Client
}

// NewServer build the echo app with every route registered
func NewServer(deps *Dependencies) *echo.Echo {
	option := deps.Config
	logger := deps.Logger

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true

	jwtUtil := auth.NewJWTUtil(option.Security.JWTMethod,
		option.Security.JWTSecret,
		option.Security.TokenName,
		option.SessionTimeout)
	validator := validate.NewValidator()
	kv := deps.KV

	registerLivenessProbe(app, deps.DB, kv)
	if option.Env == infra.EnvDevelopment {
		registerProfileEndpoints(app)
	}
	if option.DevOP.APM {
		app.Use(apmechov4.Middleware())
	}
	app.Use(echo_middleware.RequestID())
	app.Use(middleware.Logging(logger, &middleware.LoggingConfig{
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().RequestURI, "/healthz")
		},
	}))
	app.Use(middleware.PanicHandling(&middleware.PanicHandlingOption{
		Logger: logger,
		Handler: func(c echo.Context, err error) {
			traceID := c.Response().Header().Get(echo.HeaderXRequestID)
			c.JSON(http.StatusInternalServerError,
				NewRESTStandardError(http.StatusInternalServerError, "Internal server error").SetTraceID(traceID))
		},
	}))
	app.Use(middleware.NoRouteMatched(func(c echo.Context) bool {
		return strings.HasPrefix(c.Request().URL.Path, "/api/")
	}))
	app.Use(middleware.ErrorHandling(&middleware.ErrorHandlingOption{
		Handler: func(c echo.Context, traceID string, err error) {
			handleError(c, logger, traceID, err)
		},
	}))
	app.Use(echo_middleware.Secure())
	app.Use(echo_middleware.CORSWithConfig(echo_middleware.CORSConfig{
		AllowOrigins:     option.Security.AllowOrigins,
		AllowCredentials: true,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
			echo.HeaderAuthorization, echo.HeaderXRequestedWith, echo.HeaderXCSRFToken},
		ExposeHeaders: []string{echo.HeaderXRequestID, middleware.HeaderRefreshedToken},
	}))
	app.Use(middleware.AbortRequest(&middleware.AbortRequestOption{
		Timeout: option.RequestTimeout,
		Skipper: func(c echo.Context) bool {
			return strings.HasSuffix(c.Request().URL.Path, "/ws")
		},
	}))

	jwtMiddleware := middleware.VerifyToken(jwtUtil, &middleware.ValidateTokenOption{
		InBlackList: func(ctx context.Context, token string) (bool, error) {
			return kv.Exists(ctx, blacklistKey(token))
		},
	})
	refreshMiddleware := middleware.RefreshToken(jwtUtil, &middleware.RefreshTokenOption{
		Threshold: option.SessionRefresh,
	})
	sessionMiddleware := middleware.TrackSession(jwtUtil, deps.Sessions)
	authorOnly := middleware.RequireRole(jwtUtil, deps.UserUseCase, user.RoleTeacher, user.RoleAdmin)
	adminOnly := middleware.RequireRole(jwtUtil, deps.UserUseCase, user.RoleAdmin)

	handlers := &v1Handlers{
		User:          NewUserHandler(jwtUtil, kv, deps.UserUseCase, deps.Sessions, deps.SessionID, validator),
		Course:        NewCourseHandler(jwtUtil, deps.CourseUseCase, deps.UserUseCase, validator),
		Completion:    NewCompletionHandler(jwtUtil, deps.CompletionUseCase, validator),
		Questionnaire: NewQuestionnaireHandler(jwtUtil, deps.QuestionnaireUseCase, deps.UserUseCase, validator),
		Notification:  NewNotificationHandler(jwtUtil, deps.NotificationUseCase),
		Achievement:   NewAchievementHandler(jwtUtil, deps.AchievementUseCase),
		Media:         NewMediaHandler(deps.Media),
		Function:      NewFunctionHandler(deps.ImageGen, validator),
		Cache:         NewCacheHandler(jwtUtil, deps.Cache, deps.Hub),
	}
	createEndpoint(app, v1Endpoint(handlers, &v1Middlewares{
		jwt:        []echo.MiddlewareFunc{jwtMiddleware, refreshMiddleware, sessionMiddleware},
		traceLog:   middleware.SetTraceLogger(logger),
		authorOnly: authorOnly,
		adminOnly:  adminOnly,
	}))

	printRoutes(app, logger)
	return app
}

// Serve block until the server stops
func Serve(app *echo.Echo, option *infra.AppConfig) error {
	err := app.Start(fmt.Sprintf("%s:%d", option.Host, option.Port))
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func blacklistKey(token string) string {
	return "blacklist:" + token
}

func handleError(c echo.Context, logger *zap.Logger, traceID string, err error) {
	var (
		rve *RESTValidationError
		rse *RESTStandardError
	)
	switch {
	case errors.As(err, &rve):
		c.JSON(rve.Code, rve.SetTraceID(traceID))
		return
	case errors.As(err, &rse):
		c.JSON(rse.Code, rse.SetTraceID(traceID))
		return
	}

	code := statusOf(err)
	detail := errorDetail(err)
	if code >= http.StatusInternalServerError {
		logger.Error(err.Error(), zap.String("trace.id", traceID), zap.String("url.path", c.Request().URL.Path))
		var ue *imagegen.UpstreamError
		if !errors.As(err, &ue) && !errors.Is(err, imagegen.ErrNotConfigured) {
			detail = "Internal server error"
		}
	}
	c.JSON(code, NewRESTStandardError(code, detail).SetTraceID(traceID))
}

func printRoutes(app *echo.Echo, logger *zap.Logger) {
	for _, route := range app.Routes() {
		if !strings.HasPrefix(route.Name, "github.com/labstack/echo") {
			name := route.Name
			trimIndex := strings.LastIndexByte(name, '/')
			logger.Debug("Registered route", zap.String("method", route.Method), zap.String("path", route.Path), zap.String("name", string(name[trimIndex+1:])))
		}
	}
}

func registerLivenessProbe(app *echo.Echo, db driver.ITransactionalDB, kv driver.KeyValueDB) {
	app.GET("/healthz", func(c echo.Context) error {
		ctx := c.Request().Context()
		if db.Ping(ctx) == nil && kv.Ping(ctx) == nil {
			return c.NoContent(http.StatusOK)
		}
		return c.NoContent(http.StatusServiceUnavailable)
	})
}

func registerProfileEndpoints(app *echo.Echo) {
	expvarHandler := expvar.Handler()
	app.GET("/debug/vars", func(c echo.Context) error {
		expvarHandler.ServeHTTP(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/", func(c echo.Context) error {
		pprof.Index(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/:name", func(c echo.Context) error {
		switch c.Param("name") {
		case "cmdline":
			pprof.Cmdline(c.Response().Writer, c.Request())
		case "profile":
			pprof.Profile(c.Response().Writer, c.Request())
		case "symbol":
			pprof.Symbol(c.Response().Writer, c.Request())
		case "trace":
			pprof.Trace(c.Response().Writer, c.Request())
		default:
			pprof.Handler(c.Param("name")).ServeHTTP(c.Response().Writer, c.Request())
		}
		return nil
	})
}

func createEndpoint(app *echo.Echo, def *endpoint) {
	type RESTMethod func(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route

	var root *echo.Group
	if strings.HasPrefix(def.apiVersion, "/") {
		root = app.Group(def.apiVersion, def.middlewares...)
	} else {
		root = app.Group("/"+def.apiVersion, def.middlewares...)
	}

	for _, group := range def.groups {
		echoGroup := root.Group(group.prefix, group.middlewares...)
		for _, api := range group.routes {
			var method RESTMethod
			switch api.method {
			case "GET":
				method = echoGroup.GET
			case "POST":
				method = echoGroup.POST
			case "PUT":
				method = echoGroup.PUT
			case "PATCH":
				method = echoGroup.PATCH
			case "DELETE":
				method = echoGroup.DELETE
			case "HEAD":
				method = echoGroup.HEAD
			default:
				panic(fmt.Errorf("createEndpoint: unknown method %s", api.method))
			}
			method(api.path, api.handler, api.middlewares...)
		}
	}
}
