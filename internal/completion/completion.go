package completion

import (
	"context"
	"errors"
	"time"
)

var ErrUnknownLesson = errors.New("Lesson does not belong to the course")

// Record one completion row of a learner
type Record struct {
	LessonID    string     `json:"lesson_id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Progress completion summary of a course
type Progress struct {
	CourseID  string          `json:"course_id"`
	Completed int             `json:"completed"`
	Total     int             `json:"total"`
	Lessons   map[string]bool `json:"lessons"`
}

type CompletionRepository interface {
	ListCompletions(ctx context.Context, userID, courseID string) ([]*Record, error)
	CourseLessonIDs(ctx context.Context, courseID string) ([]string, error)
	DeleteCompletions(ctx context.Context, userID, courseID string, lessonIDs []string) error
	SetCompletion(ctx context.Context, userID, courseID, lessonID string, completed bool) error
}

// AchievementEvaluator unlocks achievements after a lesson is completed
type AchievementEvaluator interface {
	Evaluate(ctx context.Context, userID, courseID string, completedInCourse, totalLessons int) error
}

type CompletionUseCase interface {
	Load(ctx context.Context, userID, courseID string, forceCleanup bool) (*Progress, error)
	IsLessonCompleted(ctx context.Context, userID, courseID, lessonID string) (bool, error)
	SetLessonCompletion(ctx context.Context, userID, courseID, lessonID string, completed bool) error
	IsLoading(userID, courseID string) bool
	Forget(userID string)
}
