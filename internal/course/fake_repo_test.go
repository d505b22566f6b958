package course

import (
	"context"
	"errors"
	"sync"
)

type memoryRepo struct {
	mu      sync.Mutex
	courses map[string]*Course
	modules map[string]*Module
	lessons map[string]*Lesson
	writes  []string

	failModule string
	failLesson string
}

var errWrite = errors.New("write failed")

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		courses: make(map[string]*Course),
		modules: make(map[string]*Module),
		lessons: make(map[string]*Lesson),
	}
}

func (r *memoryRepo) FindCourse(ctx context.Context, id string) (*Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.courses[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryRepo) ListCourses(ctx context.Context, filter *ListFilter) ([]*Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*Course
	for _, c := range r.courses {
		if filter.AuthorID != nil && c.AuthorID != *filter.AuthorID {
			continue
		}
		if filter.PublishedOnly && !c.Published {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

func (r *memoryRepo) FindModules(ctx context.Context, courseID string) ([]*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*Module
	for _, m := range r.modules {
		if m.CourseID == courseID {
			cp := *m
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *memoryRepo) FindModule(ctx context.Context, id string) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.modules[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryRepo) FindLesson(ctx context.Context, id string) (*Lesson, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lessons[id]
	if !ok {
		return nil, "", nil
	}
	return l, r.modules[l.ModuleID].CourseID, nil
}

func (r *memoryRepo) UpsertCourse(ctx context.Context, c *Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.courses[c.ID] = &cp
	r.writes = append(r.writes, "course:"+c.ID)
	return nil
}

func (r *memoryRepo) UpsertModule(ctx context.Context, m *Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == r.failModule {
		return errWrite
	}
	cp := *m
	cp.Lessons = nil
	r.modules[m.ID] = &cp
	r.writes = append(r.writes, "module:"+m.ID)
	return nil
}

func (r *memoryRepo) UpsertLesson(ctx context.Context, l *Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.ID == r.failLesson {
		return errWrite
	}
	cp := *l
	r.lessons[l.ID] = &cp
	r.writes = append(r.writes, "lesson:"+l.ID)
	return nil
}

func (r *memoryRepo) DeleteCourse(ctx context.Context, courseID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[courseID]
	if !ok || c.AuthorID != userID {
		return false, nil
	}
	delete(r.courses, courseID)
	return true, nil
}

func (r *memoryRepo) DeleteModule(ctx context.Context, moduleID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[moduleID]
	if !ok || r.courses[m.CourseID].AuthorID != userID {
		return false, nil
	}
	delete(r.modules, moduleID)
	return true, nil
}

func (r *memoryRepo) DeleteLesson(ctx context.Context, lessonID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lessons[lessonID]; !ok {
		return false, nil
	}
	delete(r.lessons, lessonID)
	return true, nil
}
