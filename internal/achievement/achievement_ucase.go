package achievement

import (
	"context"

	"github.com/pot-code/learnhub/internal/infrastructure/logging"
	"github.com/pot-code/learnhub/internal/notification"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// Notifier announces new unlocks
type Notifier interface {
	Notify(ctx context.Context, n *notification.Notification) error
}

// AchievementUseCaseImpl ...
type AchievementUseCaseImpl struct {
	AchievementRepository AchievementRepository
	Notifier              Notifier
}

var _ AchievementUseCase = &AchievementUseCaseImpl{}

func NewAchievementUseCase(AchievementRepository AchievementRepository, Notifier Notifier) *AchievementUseCaseImpl {
	return &AchievementUseCaseImpl{AchievementRepository, Notifier}
}

// Evaluate unlock achievements earned by a completion, each new unlock is notified once
func (au *AchievementUseCaseImpl) Evaluate(ctx context.Context, userID, courseID string, completedInCourse, totalLessons int) error {
	apmSpan, ctx := apm.StartSpan(ctx, "AchievementUseCaseImpl.Evaluate", "service")
	defer apmSpan.End()

	if completedInCourse > 0 {
		if err := au.unlock(ctx, userID, CodeFirstLesson, "", ""); err != nil {
			return err
		}
	}
	if totalLessons > 0 && completedInCourse >= totalLessons {
		if err := au.unlock(ctx, userID, CodeCourseComplete, courseID, "/courses/"+courseID); err != nil {
			return err
		}
	}
	return nil
}

func (au *AchievementUseCaseImpl) unlock(ctx context.Context, userID, code, scope, link string) error {
	unlocked, err := au.AchievementRepository.Unlock(ctx, userID, code, scope)
	if err != nil || !unlocked {
		return err
	}

	def := Definitions[code]
	logging.ExtractLoggerFromContext(ctx).Info("Achievement unlocked",
		zap.String("user.id", userID),
		zap.String("achievement.code", code),
		zap.String("achievement.scope", scope))
	if au.Notifier == nil {
		return nil
	}
	return au.Notifier.Notify(ctx, &notification.Notification{
		UserID:  userID,
		Title:   "Achievement unlocked: " + def.Title,
		Message: def.Description,
		Kind:    notification.KindAchievement,
		Link:    link,
	})
}

func (au *AchievementUseCaseImpl) List(ctx context.Context, userID string) ([]*UserAchievement, error) {
	apmSpan, _ := apm.StartSpan(ctx, "AchievementUseCaseImpl.List", "service")
	defer apmSpan.End()

	return au.AchievementRepository.List(ctx, userID)
}
