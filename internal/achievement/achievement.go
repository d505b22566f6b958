package achievement

import (
	"context"
	"time"
)

// achievement codes
const (
	CodeFirstLesson    = "first_lesson"
	CodeCourseComplete = "course_complete"
)

type Achievement struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Definitions known achievements, mirrored by rows of the achievements table
var Definitions = map[string]Achievement{
	CodeFirstLesson: {
		Code:        CodeFirstLesson,
		Title:       "First steps",
		Description: "Completed your first lesson",
	},
	CodeCourseComplete: {
		Code:        CodeCourseComplete,
		Title:       "Course finished",
		Description: "Completed every lesson of a course",
	},
}

type UserAchievement struct {
	Achievement
	Scope      string    `json:"scope,omitempty"` // course id for per course achievements
	UnlockedAt time.Time `json:"unlocked_at"`
}

type AchievementRepository interface {
	// Unlock returns false when the achievement was already unlocked for scope
	Unlock(ctx context.Context, userID, code, scope string) (bool, error)
	List(ctx context.Context, userID string) ([]*UserAchievement, error)
}

type AchievementUseCase interface {
	Evaluate(ctx context.Context, userID, courseID string, completedInCourse, totalLessons int) error
	List(ctx context.Context, userID string) ([]*UserAchievement, error)
}
