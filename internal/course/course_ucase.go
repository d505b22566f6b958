package course

import (
	"context"
	"sync"
	"time"

	"github.com/pot-code/learnhub/internal/cache"
	"github.com/pot-code/learnhub/internal/infrastructure/uuid"
	"go.elastic.co/apm"
)

// CourseUseCaseImpl ...
type CourseUseCaseImpl struct {
	CourseRepository CourseRepository
	UUIDGenerator    uuid.Generator

	mu     sync.Mutex
	savers *cache.Manager
	now    func() time.Time
}

var _ CourseUseCase = &CourseUseCaseImpl{}

// NewCourseUseCase savers of courses not edited within idle are dropped
func NewCourseUseCase(CourseRepository CourseRepository, UUIDGenerator uuid.Generator, idle time.Duration) *CourseUseCaseImpl {
	return &CourseUseCaseImpl{
		CourseRepository: CourseRepository,
		UUIDGenerator:    UUIDGenerator,
		savers:           cache.NewManager(cache.WithTTL(idle)),
		now:              time.Now,
	}
}

func (cu *CourseUseCaseImpl) saver(courseID string) *Saver {
	cu.mu.Lock()
	defer cu.mu.Unlock()

	key := cache.Key("saver", courseID)
	v, ok := cu.savers.Get(key)
	if !ok {
		s := NewSaver(cu.CourseRepository)
		s.now = cu.now
		v = s
	}
	cu.savers.Set(key, v)
	return v.(*Saver)
}

// peek returns the cached saver of courseID without creating one
func (cu *CourseUseCaseImpl) peek(courseID string) (*Saver, bool) {
	cu.mu.Lock()
	defer cu.mu.Unlock()

	v, ok := cu.savers.Get(cache.Key("saver", courseID))
	if !ok {
		return nil, false
	}
	return v.(*Saver), true
}

func (cu *CourseUseCaseImpl) ensureID(id *string) error {
	if *id != "" {
		return nil
	}
	v, err := cu.UUIDGenerator.Generate()
	if err != nil {
		return err
	}
	*id = v
	return nil
}

func (cu *CourseUseCaseImpl) authorize(ctx context.Context, editor Editor, courseID string) (*Course, error) {
	c, err := cu.CourseRepository.FindCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCourseNotFound
	}
	if !editor.CanEdit(c) {
		return nil, ErrNotCourseOwner
	}
	return c, nil
}

// checkForeign rejects ids already stored under another course
func (cu *CourseUseCaseImpl) checkForeign(ctx context.Context, courseID string, modules []*Module) error {
	for _, m := range modules {
		if m == nil {
			return ErrEmptyEntry
		}
		if m.ID != "" {
			existing, err := cu.CourseRepository.FindModule(ctx, m.ID)
			if err != nil {
				return err
			}
			if existing != nil && existing.CourseID != courseID {
				return ErrModuleNotFound
			}
		}
		for _, l := range m.Lessons {
			if l == nil {
				return ErrEmptyEntry
			}
			if err := cu.checkForeignLesson(ctx, courseID, l.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (cu *CourseUseCaseImpl) checkForeignLesson(ctx context.Context, courseID, lessonID string) error {
	if lessonID == "" {
		return nil
	}
	existing, owner, err := cu.CourseRepository.FindLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	if existing != nil && owner != courseID {
		return ErrLessonNotFound
	}
	return nil
}

// Create a draft course owned by editor
func (cu *CourseUseCaseImpl) Create(ctx context.Context, editor Editor, c *Course) (*Course, error) {
	apmSpan, _ := apm.StartSpan(ctx, "CourseUseCaseImpl.Create", "service")
	defer apmSpan.End()

	c.ID = ""
	if err := cu.ensureID(&c.ID); err != nil {
		return nil, err
	}
	now := cu.now()
	c.AuthorID = editor.UserID
	c.Published = false
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := cu.CourseRepository.UpsertCourse(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get course with modules and lessons
func (cu *CourseUseCaseImpl) Get(ctx context.Context, id string) (*Course, error) {
	apmSpan, _ := apm.StartSpan(ctx, "CourseUseCaseImpl.Get", "service")
	defer apmSpan.End()

	c, err := cu.CourseRepository.FindCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCourseNotFound
	}
	modules, err := cu.CourseRepository.FindModules(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Modules = modules
	return c, nil
}

func (cu *CourseUseCaseImpl) List(ctx context.Context, filter *ListFilter) ([]*Course, error) {
	apmSpan, _ := apm.StartSpan(ctx, "CourseUseCaseImpl.List", "service")
	defer apmSpan.End()

	return cu.CourseRepository.ListCourses(ctx, filter)
}

// SaveCourseInfo ownership and creation time can not be changed
func (cu *CourseUseCaseImpl) SaveCourseInfo(ctx context.Context, editor Editor, c *Course) error {
	apmSpan, ctx := apm.StartSpan(ctx, "CourseUseCaseImpl.SaveCourseInfo", "service")
	defer apmSpan.End()

	existing, err := cu.authorize(ctx, editor, c.ID)
	if err != nil {
		return err
	}
	c.AuthorID = existing.AuthorID
	c.CreatedAt = existing.CreatedAt
	return cu.saver(c.ID).SaveCourseInfo(ctx, c)
}

// SaveLesson the lesson must belong to a module of courseID
func (cu *CourseUseCaseImpl) SaveLesson(ctx context.Context, editor Editor, courseID string, l *Lesson) error {
	apmSpan, ctx := apm.StartSpan(ctx, "CourseUseCaseImpl.SaveLesson", "service")
	defer apmSpan.End()

	if _, err := cu.authorize(ctx, editor, courseID); err != nil {
		return err
	}
	modules, err := cu.CourseRepository.FindModules(ctx, courseID)
	if err != nil {
		return err
	}
	var found bool
	for _, m := range modules {
		if m.ID == l.ModuleID {
			found = true
			break
		}
	}
	if !found {
		return ErrModuleNotFound
	}
	if err := cu.checkForeignLesson(ctx, courseID, l.ID); err != nil {
		return err
	}
	if err := cu.ensureID(&l.ID); err != nil {
		return err
	}
	return cu.saver(courseID).SaveLesson(ctx, l)
}

// SaveCourseStructure entities without an id are created
func (cu *CourseUseCaseImpl) SaveCourseStructure(ctx context.Context, editor Editor, courseID string, modules []*Module) error {
	apmSpan, ctx := apm.StartSpan(ctx, "CourseUseCaseImpl.SaveCourseStructure", "service")
	defer apmSpan.End()

	if _, err := cu.authorize(ctx, editor, courseID); err != nil {
		return err
	}
	if err := cu.checkForeign(ctx, courseID, modules); err != nil {
		return err
	}
	for _, m := range modules {
		if err := cu.ensureID(&m.ID); err != nil {
			return err
		}
		for _, l := range m.Lessons {
			if err := cu.ensureID(&l.ID); err != nil {
				return err
			}
		}
	}
	return cu.saver(courseID).SaveCourseStructure(ctx, courseID, modules)
}

// SaveStatus save state of the editor of courseID, idle when nothing was saved recently
func (cu *CourseUseCaseImpl) SaveStatus(ctx context.Context, editor Editor, courseID string) (*StatusReport, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "CourseUseCaseImpl.SaveStatus", "service")
	defer apmSpan.End()

	if _, err := cu.authorize(ctx, editor, courseID); err != nil {
		return nil, err
	}
	if s, ok := cu.peek(courseID); ok {
		return s.Report(), nil
	}
	return NewSaver(cu.CourseRepository).Report(), nil
}

func (cu *CourseUseCaseImpl) DeleteCourse(ctx context.Context, editor Editor, id string) error {
	apmSpan, _ := apm.StartSpan(ctx, "CourseUseCaseImpl.DeleteCourse", "service")
	defer apmSpan.End()

	ok, err := cu.CourseRepository.DeleteCourse(ctx, id, editor.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCourseNotFound
	}
	cu.savers.Delete(cache.Key("saver", id))
	return nil
}

func (cu *CourseUseCaseImpl) DeleteModule(ctx context.Context, editor Editor, id string) error {
	apmSpan, _ := apm.StartSpan(ctx, "CourseUseCaseImpl.DeleteModule", "service")
	defer apmSpan.End()

	ok, err := cu.CourseRepository.DeleteModule(ctx, id, editor.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrModuleNotFound
	}
	return nil
}

func (cu *CourseUseCaseImpl) DeleteLesson(ctx context.Context, editor Editor, id string) error {
	apmSpan, _ := apm.StartSpan(ctx, "CourseUseCaseImpl.DeleteLesson", "service")
	defer apmSpan.End()

	ok, err := cu.CourseRepository.DeleteLesson(ctx, id, editor.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLessonNotFound
	}
	return nil
}
