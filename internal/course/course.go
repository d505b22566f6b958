package course

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	ImageURL    string    `json:"image_url,omitempty" validate:"omitempty,url"`
	AuthorID    string    `json:"author_id"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Modules     []*Module `json:"modules,omitempty"`
}

type Module struct {
	ID       string    `json:"id"`
	CourseID string    `json:"course_id"`
	Title    string    `json:"title" validate:"required,max=200"`
	Position int       `json:"position"`
	Lessons  []*Lesson `json:"lessons" validate:"dive,required"`
}

type Lesson struct {
	ID       string          `json:"id"`
	ModuleID string          `json:"module_id"`
	Title    string          `json:"title" validate:"required,max=200"`
	Type     LessonType      `json:"type" validate:"required"`
	Position int             `json:"position"`
	Content  json.RawMessage `json:"content"`
}

// Normalize decode and validate the content, then re-encode it so derived fields are persisted
func (l *Lesson) Normalize() (LessonContent, error) {
	content, err := DecodeContent(l.Type, l.Content)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	l.Content = raw
	return content, nil
}

// Editor the user performing a change
type Editor struct {
	UserID string
	Admin  bool
}

// CanEdit authors and admins may change a course
func (e Editor) CanEdit(c *Course) bool {
	return e.Admin || c.AuthorID == e.UserID
}

// ListFilter course list query
type ListFilter struct {
	AuthorID      *string
	PublishedOnly bool
	Search        string
}

var (
	ErrCourseNotFound = errors.New("Course not found")
	ErrModuleNotFound = errors.New("Module not found")
	ErrLessonNotFound = errors.New("Lesson not found")
	ErrNotCourseOwner = errors.New("Only the author of the course may change it")
	ErrEmptyEntry     = errors.New("Course structure contains an empty entry")
)

type CourseRepository interface {
	FindCourse(ctx context.Context, id string) (*Course, error)
	ListCourses(ctx context.Context, filter *ListFilter) ([]*Course, error)
	FindModules(ctx context.Context, courseID string) ([]*Module, error)
	FindModule(ctx context.Context, id string) (*Module, error)
	FindLesson(ctx context.Context, id string) (*Lesson, string, error)
	UpsertCourse(ctx context.Context, c *Course) error
	UpsertModule(ctx context.Context, m *Module) error
	UpsertLesson(ctx context.Context, l *Lesson) error
	DeleteCourse(ctx context.Context, courseID, userID string) (bool, error)
	DeleteModule(ctx context.Context, moduleID, userID string) (bool, error)
	DeleteLesson(ctx context.Context, lessonID, userID string) (bool, error)
}

type CourseUseCase interface {
	Create(ctx context.Context, editor Editor, c *Course) (*Course, error)
	Get(ctx context.Context, id string) (*Course, error)
	List(ctx context.Context, filter *ListFilter) ([]*Course, error)
	SaveCourseInfo(ctx context.Context, editor Editor, c *Course) error
	SaveLesson(ctx context.Context, editor Editor, courseID string, l *Lesson) error
	SaveCourseStructure(ctx context.Context, editor Editor, courseID string, modules []*Module) error
	SaveStatus(ctx context.Context, editor Editor, courseID string) (*StatusReport, error)
	DeleteCourse(ctx context.Context, editor Editor, id string) error
	DeleteModule(ctx context.Context, editor Editor, id string) error
	DeleteLesson(ctx context.Context, editor Editor, id string) error
}
