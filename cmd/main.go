package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pot-code/learnhub/internal/achievement"
	"github.com/pot-code/learnhub/internal/cache"
	"github.com/pot-code/learnhub/internal/completion"
	"github.com/pot-code/learnhub/internal/course"
	"github.com/pot-code/learnhub/internal/imagegen"
	infra "github.com/pot-code/learnhub/internal/infrastructure"
	"github.com/pot-code/learnhub/internal/infrastructure/driver"
	"github.com/pot-code/learnhub/internal/infrastructure/logging"
	"github.com/pot-code/learnhub/internal/infrastructure/uuid"
	ihttp "github.com/pot-code/learnhub/internal/interfaces/http"
	"github.com/pot-code/learnhub/internal/media"
	"github.com/pot-code/learnhub/internal/notification"
	"github.com/pot-code/learnhub/internal/questionnaire"
	"github.com/pot-code/learnhub/internal/realtime"
	"github.com/pot-code/learnhub/internal/session"
	"github.com/pot-code/learnhub/internal/user"
	"go.uber.org/zap"
)

func main() {
	log.SetFlags(log.Lshortfile | log.Ldate | log.Ltime)
	option, err := infra.InitConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(&logging.Config{
		FilePath: option.Logging.FilePath,
		Level:    option.Logging.Level,
		AppID:    option.AppID,
		Env:      option.Env,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %s\n", err)
	}
	logger = logger.With(
		zap.String("service.id", option.AppID),
	)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn, err := driver.GetDBConnection(ctx, &driver.DBConfig{
		User:     option.Database.User,
		Password: option.Database.Password,
		MaxConn:  option.Database.MaxConn,
		Driver:   option.Database.Driver,
		Host:     option.Database.Host,
		Port:     option.Database.Port,
		Query:    option.Database.Query,
		Schema:   option.Database.Schema,
	})
	if err != nil {
		logger.Fatal("Failed to create DB connection", zap.Error(err))
	}
	logger.Debug("Create DB connection instance", zap.String("db.driver", option.Database.Driver),
		zap.String("db.schema", option.Database.Schema),
		zap.String("db.host", option.Database.Host),
	)
	rdb := driver.NewRedisClient(option.KVStore.Host, option.KVStore.Port, option.KVStore.Password, option.KVStore.DB)

	IDGenerator := uuid.NewNanoIDGenerator(option.Security.IDLength)
	queryCache := cache.NewManager(cache.WithTTL(option.Cache.TTL))
	sessions := session.NewDirectory(option.SessionTimeout)
	hub := realtime.NewHub(logger)

	UserRepo := user.NewUserRepository(dbConn, uuid.V4Generator{})
	UserUseCase := user.NewUserUseCase(UserRepo,
		&session.KVProvider{KV: rdb, TTL: option.SessionTimeout},
		option.Security.MaxLoginAttempts,
		option.Security.RetryTimeout,
		option.Cache.RoleTTL)

	CourseRepo := course.NewCourseRepository(dbConn)
	CourseUseCase := course.NewCourseUseCase(CourseRepo, uuid.V4Generator{}, option.Cache.StoreIdle)

	var mailer notification.Mailer
	if option.Mail.SendGridKey != "" {
		mailer = notification.NewSendGridMailer(option.Mail.SendGridKey, option.Mail.FromName, option.Mail.FromEmail, option.Mail.LinkBase)
	}
	NotificationRepo := notification.NewNotificationRepository(dbConn)
	NotificationUseCase := notification.NewNotificationUseCase(NotificationRepo, uuid.V4Generator{}, hub, mailer)

	AchievementRepo := achievement.NewAchievementRepository(dbConn)
	AchievementUseCase := achievement.NewAchievementUseCase(AchievementRepo, NotificationUseCase)

	CompletionRepo := completion.NewCompletionRepository(dbConn)
	CompletionUseCase := completion.NewCompletionUseCase(CompletionRepo, AchievementUseCase, option.Cache.StoreIdle)

	QuestionnaireRepo := questionnaire.NewQuestionnaireRepository(dbConn)
	QuestionnaireUseCase := questionnaire.NewQuestionnaireUseCase(QuestionnaireRepo, uuid.V4Generator{}, queryCache)

	var store media.Store
	if option.Storage.Enabled {
		gcs, err := media.NewGCSStore(ctx, option.Storage.CredentialsFile, option.Storage.CDNDomain)
		if err != nil {
			logger.Fatal("Failed to create GCS client", zap.Error(err))
		}
		defer gcs.Close()
		store = gcs
	} else {
		logger.Warn("Media storage is disabled, uploads are kept in memory")
		store = media.NewMemoryStore(option.Storage.CDNDomain)
	}

	app := ihttp.NewServer(&ihttp.Dependencies{
		Config:               option,
		Logger:               logger,
		DB:                   dbConn,
		KV:                   rdb,
		Cache:                queryCache,
		Sessions:             sessions,
		Hub:                  hub,
		SessionID:            IDGenerator,
		UserUseCase:          UserUseCase,
		CourseUseCase:        CourseUseCase,
		CompletionUseCase:    CompletionUseCase,
		QuestionnaireUseCase: QuestionnaireUseCase,
		NotificationUseCase:  NotificationUseCase,
		AchievementUseCase:   AchievementUseCase,
		Media:                media.NewService(store, IDGenerator, option.Storage.MaxUploadBytes),
		ImageGen:             imagegen.NewClient(option.ImageGen.BaseURL, option.ImageGen.APIKey, option.ImageGen.Model, option.ImageGen.Timeout),
	})

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		hub.Close()
		if err := app.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shutdown server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("host", option.Host), zap.Int("port", option.Port))
	if err := ihttp.Serve(app, option); err != nil {
		logger.Error("Server stopped", zap.Error(err))
	}
	if err := dbConn.Close(context.Background()); err != nil {
		logger.Error("Failed to close DB connection", zap.Error(err))
	}
	if err := rdb.Close(); err != nil {
		logger.Error("Failed to close KV connection", zap.Error(err))
	}
}
