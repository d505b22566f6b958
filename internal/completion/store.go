package completion

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Store completion state of one learner, courseID -> lessonID -> completed
type Store struct {
	userID string
	repo   CompletionRepository
	group  singleflight.Group

	mu      sync.RWMutex
	courses map[string]map[string]bool
	loading map[string]int
}

func NewStore(userID string, repo CompletionRepository) *Store {
	return &Store{
		userID:  userID,
		repo:    repo,
		courses: make(map[string]map[string]bool),
		loading: make(map[string]int),
	}
}

func (s *Store) setLoading(courseID string, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading[courseID] += delta
	if s.loading[courseID] <= 0 {
		delete(s.loading, courseID)
	}
}

// Load fetch every completion row of the course and replace the local state.
// With forceCleanup rows pointing at lessons that left the course are deleted.
// Concurrent loads with the same arguments share one fetch, which outlives the
// caller that started it; each caller stops waiting when its own ctx is done.
func (s *Store) Load(ctx context.Context, courseID string, forceCleanup bool) error {
	key := fmt.Sprintf("%s:%t", courseID, forceCleanup)
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		s.setLoading(courseID, 1)
		defer s.setLoading(courseID, -1)
		return nil, s.load(fetchCtx, courseID, forceCleanup)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) load(ctx context.Context, courseID string, forceCleanup bool) error {
	records, err := s.repo.ListCompletions(ctx, s.userID, courseID)
	if err != nil {
		return err
	}

	if forceCleanup {
		lessonIDs, err := s.repo.CourseLessonIDs(ctx, courseID)
		if err != nil {
			return err
		}
		exists := make(map[string]bool, len(lessonIDs))
		for _, id := range lessonIDs {
			exists[id] = true
		}
		var (
			kept  []*Record
			stale []string
		)
		for _, r := range records {
			if exists[r.LessonID] {
				kept = append(kept, r)
			} else {
				stale = append(stale, r.LessonID)
			}
		}
		if len(stale) > 0 {
			if err := s.repo.DeleteCompletions(ctx, s.userID, courseID, stale); err != nil {
				return err
			}
		}
		records = kept
	}

	lessons := make(map[string]bool, len(records))
	for _, r := range records {
		lessons[r.LessonID] = r.Completed
	}
	s.mu.Lock()
	s.courses[courseID] = lessons
	s.mu.Unlock()
	return nil
}

// Loaded reports whether courseID was loaded into the store
func (s *Store) Loaded(courseID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.courses[courseID]
	return ok
}

// IsLessonCompleted false when either the course or the lesson is unknown
func (s *Store) IsLessonCompleted(courseID, lessonID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.courses[courseID][lessonID]
}

// UpdateLessonCompletion local mutation only, returns the previous value and whether there was one
func (s *Store) UpdateLessonCompletion(courseID, lessonID string, completed bool) (prev bool, existed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lessons, ok := s.courses[courseID]
	if !ok {
		lessons = make(map[string]bool)
		s.courses[courseID] = lessons
	}
	prev, existed = lessons[lessonID]
	lessons[lessonID] = completed
	return
}

// revert restore prev unless the lesson was changed again after wrote was applied
func (s *Store) revert(courseID, lessonID string, wrote, prev, existed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lessons, ok := s.courses[courseID]
	if !ok || lessons[lessonID] != wrote {
		return
	}
	if existed {
		lessons[lessonID] = prev
	} else {
		delete(lessons, lessonID)
	}
}

// IsLoading reports whether a load of courseID is in flight
func (s *Store) IsLoading(courseID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading[courseID] > 0
}

// Snapshot copy of the lessons of courseID
func (s *Store) Snapshot(courseID string) map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lessons := make(map[string]bool, len(s.courses[courseID]))
	for k, v := range s.courses[courseID] {
		lessons[k] = v
	}
	return lessons
}

// CompletedCount completed lessons of courseID among lessonIDs
func (s *Store) CompletedCount(courseID string, lessonIDs []string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	lessons := s.courses[courseID]
	for _, id := range lessonIDs {
		if lessons[id] {
			n++
		}
	}
	return n
}
