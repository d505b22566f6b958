package completion

import (
	"context"
	"sync"
	"time"

	"github.com/pot-code/learnhub/internal/cache"
	"github.com/pot-code/learnhub/internal/infrastructure/logging"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// CompletionUseCaseImpl ...
type CompletionUseCaseImpl struct {
	CompletionRepository CompletionRepository
	Achievements         AchievementEvaluator

	mu     sync.Mutex
	stores *cache.Manager
}

var _ CompletionUseCase = &CompletionUseCaseImpl{}

// NewCompletionUseCase stores of learners idle for longer than idle are dropped,
// Achievements may be nil
func NewCompletionUseCase(
	CompletionRepository CompletionRepository,
	Achievements AchievementEvaluator,
	idle time.Duration,
	options ...cache.Option,
) *CompletionUseCaseImpl {
	options = append([]cache.Option{cache.WithTTL(idle)}, options...)
	return &CompletionUseCaseImpl{
		CompletionRepository: CompletionRepository,
		Achievements:         Achievements,
		stores:               cache.NewManager(options...),
	}
}

// StoreFor get or create the store of userID
func (cu *CompletionUseCaseImpl) StoreFor(userID string) *Store {
	cu.mu.Lock()
	defer cu.mu.Unlock()

	key := cache.Key("completion", userID)
	v, ok := cu.stores.Get(key)
	if !ok {
		v = NewStore(userID, cu.CompletionRepository)
	}
	cu.stores.Set(key, v)
	return v.(*Store)
}

func (cu *CompletionUseCaseImpl) progress(ctx context.Context, store *Store, courseID string) (*Progress, error) {
	lessonIDs, err := cu.CompletionRepository.CourseLessonIDs(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return newProgress(store, courseID, lessonIDs), nil
}

func newProgress(store *Store, courseID string, lessonIDs []string) *Progress {
	return &Progress{
		CourseID:  courseID,
		Completed: store.CompletedCount(courseID, lessonIDs),
		Total:     len(lessonIDs),
		Lessons:   store.Snapshot(courseID),
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Load (re)load the completion state of a course
func (cu *CompletionUseCaseImpl) Load(ctx context.Context, userID, courseID string, forceCleanup bool) (*Progress, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "CompletionUseCaseImpl.Load", "service")
	defer apmSpan.End()

	store := cu.StoreFor(userID)
	if err := store.Load(ctx, courseID, forceCleanup); err != nil {
		return nil, err
	}
	return cu.progress(ctx, store, courseID)
}

// IsLessonCompleted the course is loaded on first access
func (cu *CompletionUseCaseImpl) IsLessonCompleted(ctx context.Context, userID, courseID, lessonID string) (bool, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "CompletionUseCaseImpl.IsLessonCompleted", "service")
	defer apmSpan.End()

	store := cu.StoreFor(userID)
	if !store.Loaded(courseID) {
		if err := store.Load(ctx, courseID, false); err != nil {
			return false, err
		}
	}
	return store.IsLessonCompleted(courseID, lessonID), nil
}

// SetLessonCompletion apply the change locally, then persist it. A failed write
// reverts the local change unless another update replaced it meanwhile.
// lessonID must be a current lesson of courseID.
func (cu *CompletionUseCaseImpl) SetLessonCompletion(ctx context.Context, userID, courseID, lessonID string, completed bool) error {
	apmSpan, ctx := apm.StartSpan(ctx, "CompletionUseCaseImpl.SetLessonCompletion", "service")
	defer apmSpan.End()

	logger := logging.ExtractLoggerFromContext(ctx)
	lessonIDs, err := cu.CompletionRepository.CourseLessonIDs(ctx, courseID)
	if err != nil {
		return err
	}
	if !contains(lessonIDs, lessonID) {
		return ErrUnknownLesson
	}

	store := cu.StoreFor(userID)
	if !store.Loaded(courseID) {
		if err := store.Load(ctx, courseID, false); err != nil {
			return err
		}
	}

	prev, existed := store.UpdateLessonCompletion(courseID, lessonID, completed)
	if err := cu.CompletionRepository.SetCompletion(ctx, userID, courseID, lessonID, completed); err != nil {
		store.revert(courseID, lessonID, completed, prev, existed)
		logger.Warn("Lesson completion reverted", zap.Error(err),
			zap.String("user.id", userID),
			zap.String("course.id", courseID),
			zap.String("lesson.id", lessonID))
		return err
	}

	if completed && !prev && cu.Achievements != nil {
		p := newProgress(store, courseID, lessonIDs)
		if err := cu.Achievements.Evaluate(ctx, userID, courseID, p.Completed, p.Total); err != nil {
			logger.Error("Failed to evaluate achievements", zap.Error(err), zap.String("user.id", userID))
		}
	}
	return nil
}

func (cu *CompletionUseCaseImpl) IsLoading(userID, courseID string) bool {
	return cu.StoreFor(userID).IsLoading(courseID)
}

// Forget drop the store of userID
func (cu *CompletionUseCaseImpl) Forget(userID string) {
	cu.stores.Delete(cache.Key("completion", userID))
}

// Reset drop every store
func (cu *CompletionUseCaseImpl) Reset() {
	cu.stores.ClearAll()
}
