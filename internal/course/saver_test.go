package course

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textLesson(id string) *Lesson {
	return &Lesson{ID: id, Title: id, Type: LessonText, Content: json.RawMessage(`{"body":"hello"}`)}
}

func testStructure() []*Module {
	return []*Module{
		{ID: "m1", Title: "one", Lessons: []*Lesson{textLesson("l1"), textLesson("l2")}},
		{ID: "m2", Title: "two", Lessons: []*Lesson{textLesson("l3")}},
	}
}

type tick struct{ now time.Time }

func (t *tick) Now() time.Time {
	t.now = t.now.Add(time.Second)
	return t.now
}

func newTestSaver(repo CourseRepository) *Saver {
	s := NewSaver(repo)
	s.now = (&tick{now: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}).Now
	return s
}

func TestSaveCourseStructure(t *testing.T) {
	repo := newMemoryRepo()
	s := newTestSaver(repo)

	require.NoError(t, s.SaveCourseStructure(context.Background(), "c1", testStructure()))
	assert.Equal(t, []string{"module:m1", "lesson:l1", "lesson:l2", "module:m2", "lesson:l3"}, repo.writes)
	assert.Equal(t, 1, repo.modules["m2"].Position)
	assert.Equal(t, "c1", repo.modules["m2"].CourseID)
	assert.Equal(t, 1, repo.lessons["l2"].Position)
	assert.Equal(t, "m2", repo.lessons["l3"].ModuleID)
	assert.Equal(t, StatusSuccess, s.OpStatus(OpStructure))
	assert.Equal(t, StatusSuccess, s.Status())
}

func TestSaveCourseStructurePartialFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.failLesson = "l2"
	s := newTestSaver(repo)

	err := s.SaveCourseStructure(context.Background(), "c1", testStructure())
	var se *StructureError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 2, se.Written)
	assert.Equal(t, "m1", se.Module)
	assert.Equal(t, "l2", se.Lesson)
	assert.True(t, errors.Is(err, errWrite))

	// prior writes stay, later ones are never attempted
	assert.Equal(t, []string{"module:m1", "lesson:l1"}, repo.writes)
	assert.NotContains(t, repo.modules, "m2")
	assert.Equal(t, StatusError, s.OpStatus(OpStructure))
}

func TestSaveCourseStructureModuleFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.failModule = "m2"
	s := newTestSaver(repo)

	err := s.SaveCourseStructure(context.Background(), "c1", testStructure())
	var se *StructureError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 3, se.Written)
	assert.Equal(t, "m2", se.Module)
	assert.Empty(t, se.Lesson)
	assert.Contains(t, se.Error(), "module m2")
}

func TestSaveCourseStructureInvalidLesson(t *testing.T) {
	repo := newMemoryRepo()
	s := newTestSaver(repo)
	modules := testStructure()
	modules[0].Lessons[0].Type = "slideshow"

	err := s.SaveCourseStructure(context.Background(), "c1", modules)
	assert.True(t, errors.Is(err, ErrUnknownLessonType))
	assert.Equal(t, []string{"module:m1"}, repo.writes)
}

func TestPerOperationStatus(t *testing.T) {
	repo := newMemoryRepo()
	s := newTestSaver(repo)
	assert.Equal(t, StatusIdle, s.Status())

	require.NoError(t, s.SaveCourseInfo(context.Background(), &Course{ID: "c1", Title: "t"}))
	bad := textLesson("l1")
	bad.Type = "slideshow"
	require.Error(t, s.SaveLesson(context.Background(), bad))

	assert.Equal(t, StatusSuccess, s.OpStatus(OpCourseInfo))
	assert.Equal(t, StatusError, s.OpStatus(OpLesson))
	assert.Equal(t, StatusIdle, s.OpStatus(OpStructure))
	assert.Equal(t, StatusError, s.Status(), "the lesson save finished last")

	require.NoError(t, s.SaveCourseInfo(context.Background(), &Course{ID: "c1", Title: "t2"}))
	assert.Equal(t, StatusSuccess, s.Status())
	assert.Equal(t, StatusError, s.OpStatus(OpLesson), "other operations keep their own state")

	report := s.Report()
	assert.Equal(t, StatusSuccess, report.Status)
	assert.Contains(t, report.Operations[OpLesson].Error, "unknown lesson type")
	assert.NotNil(t, report.Operations[OpCourseInfo].FinishedAt)
	assert.Nil(t, report.Operations[OpStructure].FinishedAt)
}

type blockingRepo struct {
	*memoryRepo
	entered chan struct{}
	release chan struct{}
}

func (r *blockingRepo) UpsertModule(ctx context.Context, m *Module) error {
	r.entered <- struct{}{}
	<-r.release
	return r.memoryRepo.UpsertModule(ctx, m)
}

func TestConcurrentSavesDoNotClobberStatus(t *testing.T) {
	repo := &blockingRepo{newMemoryRepo(), make(chan struct{}), make(chan struct{})}
	s := newTestSaver(repo)

	done := make(chan error)
	go func() {
		done <- s.SaveCourseStructure(context.Background(), "c1", testStructure()[:1])
	}()
	<-repo.entered

	// a fast save finishing while the structure save is in flight
	require.NoError(t, s.SaveCourseInfo(context.Background(), &Course{ID: "c1", Title: "t"}))
	assert.Equal(t, StatusSuccess, s.OpStatus(OpCourseInfo))
	assert.Equal(t, StatusSaving, s.OpStatus(OpStructure))
	assert.Equal(t, StatusSaving, s.Status())

	close(repo.release)
	require.NoError(t, <-done)
	assert.Equal(t, StatusSuccess, s.Status())
}
