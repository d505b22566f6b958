package completion

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu        sync.Mutex
	rows      map[string]map[string]bool // courseID -> lessonID
	lessons   map[string][]string
	deleted   []string
	listCalls int32
	block     chan struct{}
	failSet   error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		rows:    make(map[string]map[string]bool),
		lessons: make(map[string][]string),
	}
}

func (r *memoryRepo) ListCompletions(ctx context.Context, userID, courseID string) ([]*Record, error) {
	atomic.AddInt32(&r.listCalls, 1)
	if r.block != nil {
		<-r.block
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*Record
	for id, done := range r.rows[courseID] {
		result = append(result, &Record{LessonID: id, Completed: done})
	}
	return result, nil
}

func (r *memoryRepo) CourseLessonIDs(ctx context.Context, courseID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lessons[courseID], nil
}

func (r *memoryRepo) DeleteCompletions(ctx context.Context, userID, courseID string, lessonIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range lessonIDs {
		delete(r.rows[courseID], id)
		r.deleted = append(r.deleted, id)
	}
	return nil
}

func (r *memoryRepo) SetCompletion(ctx context.Context, userID, courseID, lessonID string, completed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSet != nil {
		return r.failSet
	}
	if r.rows[courseID] == nil {
		r.rows[courseID] = make(map[string]bool)
	}
	r.rows[courseID][lessonID] = completed
	return nil
}

type evaluation struct {
	userID, courseID string
	completed, total int
}

type recordingEvaluator struct {
	calls []evaluation
}

func (re *recordingEvaluator) Evaluate(ctx context.Context, userID, courseID string, completed, total int) error {
	re.calls = append(re.calls, evaluation{userID, courseID, completed, total})
	return nil
}

func TestStoreLookupAndUpdate(t *testing.T) {
	s := NewStore("u1", newMemoryRepo())
	assert.False(t, s.IsLessonCompleted("c1", "l1"))

	s.UpdateLessonCompletion("c1", "l1", true)
	assert.True(t, s.IsLessonCompleted("c1", "l1"))
	assert.False(t, s.IsLessonCompleted("c1", "l2"))
	assert.False(t, s.IsLessonCompleted("c2", "l1"))
}

func TestStoreLoadReplaces(t *testing.T) {
	repo := newMemoryRepo()
	repo.rows["c1"] = map[string]bool{"l1": true, "l2": false}
	s := NewStore("u1", repo)
	s.UpdateLessonCompletion("c1", "l9", true)

	require.NoError(t, s.Load(context.Background(), "c1", false))
	assert.True(t, s.IsLessonCompleted("c1", "l1"))
	assert.False(t, s.IsLessonCompleted("c1", "l2"))
	assert.False(t, s.IsLessonCompleted("c1", "l9"), "local state is replaced")
	assert.Equal(t, 1, s.CompletedCount("c1", []string{"l1", "l2"}))
	assert.Equal(t, 0, s.CompletedCount("c1", []string{"l2"}), "rows of other lessons are not counted")
}

func TestStoreLoadForceCleanup(t *testing.T) {
	repo := newMemoryRepo()
	repo.rows["c1"] = map[string]bool{"l1": true, "gone": true}
	repo.lessons["c1"] = []string{"l1", "l2"}
	s := NewStore("u1", repo)

	require.NoError(t, s.Load(context.Background(), "c1", false))
	assert.True(t, s.IsLessonCompleted("c1", "gone"))

	require.NoError(t, s.Load(context.Background(), "c1", true))
	assert.False(t, s.IsLessonCompleted("c1", "gone"))
	assert.True(t, s.IsLessonCompleted("c1", "l1"))
	assert.Equal(t, []string{"gone"}, repo.deleted)
	assert.NotContains(t, repo.rows["c1"], "gone")
}

func TestConcurrentLoadsAreMerged(t *testing.T) {
	repo := newMemoryRepo()
	repo.block = make(chan struct{})
	s := NewStore("u1", repo)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Load(context.Background(), "c1", false))
		}()
	}
	require.Eventually(t, func() bool { return s.IsLoading("c1") }, time.Second, time.Millisecond)
	// give the remaining callers time to join the in-flight load
	time.Sleep(20 * time.Millisecond)
	close(repo.block)
	wg.Wait()

	assert.False(t, s.IsLoading("c1"))
	assert.True(t, s.Loaded("c1"))
	assert.LessOrEqual(t, atomic.LoadInt32(&repo.listCalls), int32(5))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&repo.listCalls), int32(1))
}

func TestCancelledLoadKeepsSharedFetch(t *testing.T) {
	repo := newMemoryRepo()
	repo.rows["c1"] = map[string]bool{"l1": true}
	repo.block = make(chan struct{})
	s := NewStore("u1", repo)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() { firstErr <- s.Load(first, "c1", false) }()
	require.Eventually(t, func() bool { return s.IsLoading("c1") }, time.Second, time.Millisecond)

	secondErr := make(chan error, 1)
	go func() { secondErr <- s.Load(context.Background(), "c1", false) }()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller still waiting")
	}

	close(repo.block)
	select {
	case err := <-secondErr:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("load did not finish")
	}
	assert.True(t, s.Loaded("c1"))
	assert.True(t, s.IsLessonCompleted("c1", "l1"))
}

func TestSetLessonCompletionUnknownLesson(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	repo.lessons["c1"] = []string{"l1", "l2"}
	ev := &recordingEvaluator{}
	cu := NewCompletionUseCase(repo, ev, time.Hour)

	assert.Equal(t, ErrUnknownLesson, cu.SetLessonCompletion(ctx, "u1", "c1", "bogus-1", true))
	assert.Equal(t, ErrUnknownLesson, cu.SetLessonCompletion(ctx, "u1", "c1", "bogus-2", true))
	assert.Empty(t, ev.calls)
	assert.Empty(t, repo.rows["c1"], "nothing is persisted")
	assert.NotContains(t, cu.StoreFor("u1").Snapshot("c1"), "bogus-1")

	require.NoError(t, cu.SetLessonCompletion(ctx, "u1", "c1", "l1", true))
	assert.Equal(t, []evaluation{{"u1", "c1", 1, 2}}, ev.calls)
}

func TestSetLessonCompletionRollback(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	repo.lessons["c1"] = []string{"l1"}
	cu := NewCompletionUseCase(repo, nil, time.Hour)

	repo.failSet = errors.New("db down")
	err := cu.SetLessonCompletion(ctx, "u1", "c1", "l1", true)
	assert.Error(t, err)
	done, err := cu.IsLessonCompleted(ctx, "u1", "c1", "l1")
	require.NoError(t, err)
	assert.False(t, done, "optimistic update is reverted")

	repo.failSet = nil
	require.NoError(t, cu.SetLessonCompletion(ctx, "u1", "c1", "l1", true))
	repo.failSet = errors.New("db down")
	assert.Error(t, cu.SetLessonCompletion(ctx, "u1", "c1", "l1", false))
	done, _ = cu.IsLessonCompleted(ctx, "u1", "c1", "l1")
	assert.True(t, done, "previous value is restored")
}

func TestRevertSkipsNewerWrite(t *testing.T) {
	s := NewStore("u1", newMemoryRepo())
	prev, existed := s.UpdateLessonCompletion("c1", "l1", true)
	s.UpdateLessonCompletion("c1", "l1", false)

	s.revert("c1", "l1", true, prev, existed)
	assert.False(t, s.IsLessonCompleted("c1", "l1"))
	assert.Contains(t, s.Snapshot("c1"), "l1")
}

func TestSetLessonCompletionEvaluatesAchievements(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	repo.lessons["c1"] = []string{"l1", "l2"}
	ev := &recordingEvaluator{}
	cu := NewCompletionUseCase(repo, ev, time.Hour)

	require.NoError(t, cu.SetLessonCompletion(ctx, "u1", "c1", "l1", true))
	require.NoError(t, cu.SetLessonCompletion(ctx, "u1", "c1", "l1", true))
	require.NoError(t, cu.SetLessonCompletion(ctx, "u1", "c1", "l2", true))
	require.NoError(t, cu.SetLessonCompletion(ctx, "u1", "c1", "l2", false))

	assert.Equal(t, []evaluation{
		{"u1", "c1", 1, 2},
		{"u1", "c1", 2, 2},
	}, ev.calls)

	p, err := cu.Load(ctx, "u1", "c1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Completed)
	assert.Equal(t, 2, p.Total)
	assert.Equal(t, map[string]bool{"l1": true, "l2": false}, p.Lessons)
}

func TestStoresArePerLearner(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	cu := NewCompletionUseCase(repo, nil, time.Hour)

	assert.Same(t, cu.StoreFor("u1"), cu.StoreFor("u1"))
	assert.NotSame(t, cu.StoreFor("u1"), cu.StoreFor("u2"))

	cu.StoreFor("u1").UpdateLessonCompletion("c1", "l1", true)
	done, err := cu.IsLessonCompleted(ctx, "u2", "c1", "l1")
	require.NoError(t, err)
	assert.False(t, done)

	s := cu.StoreFor("u1")
	cu.Forget("u1")
	assert.NotSame(t, s, cu.StoreFor("u1"))
}
