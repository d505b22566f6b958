package course

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SaveStatus state of a save operation
type SaveStatus string

const (
	StatusIdle    SaveStatus = "idle"
	StatusSaving  SaveStatus = "saving"
	StatusSuccess SaveStatus = "success"
	StatusError   SaveStatus = "error"
)

// SaveOp kind of save operation
type SaveOp string

const (
	OpCourseInfo SaveOp = "course_info"
	OpLesson     SaveOp = "lesson"
	OpStructure  SaveOp = "structure"
)

var saveOps = []SaveOp{OpCourseInfo, OpLesson, OpStructure}

// StructureError a structure save stopped partway, writes before the failing one stay committed
type StructureError struct {
	Written int    // upserts that succeeded
	Module  string // module being written, or owning the failed lesson
	Lesson  string // failed lesson, empty when the module upsert failed
	Err     error
}

func (se *StructureError) Error() string {
	if se.Lesson != "" {
		return fmt.Sprintf("save lesson %s of module %s after %d writes: %s", se.Lesson, se.Module, se.Written, se.Err)
	}
	return fmt.Sprintf("save module %s after %d writes: %s", se.Module, se.Written, se.Err)
}

func (se *StructureError) Unwrap() error {
	return se.Err
}

type opState struct {
	status   SaveStatus
	inflight int
	err      error
	finished time.Time
}

// OpReport snapshot of one operation
type OpReport struct {
	Status     SaveStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// StatusReport snapshot of a Saver
type StatusReport struct {
	Status     SaveStatus          `json:"status"`
	Operations map[SaveOp]OpReport `json:"operations"`
}

// Saver issues course info, lesson and structure saves independently.
// Each operation kind keeps its own status.
type Saver struct {
	repo CourseRepository
	now  func() time.Time

	mu     sync.Mutex
	states map[SaveOp]*opState
}

func NewSaver(repo CourseRepository) *Saver {
	states := make(map[SaveOp]*opState, len(saveOps))
	for _, op := range saveOps {
		states[op] = &opState{status: StatusIdle}
	}
	return &Saver{repo: repo, now: time.Now, states: states}
}

func (s *Saver) begin(op SaveOp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[op]
	st.inflight++
	st.status = StatusSaving
}

func (s *Saver) end(op SaveOp, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[op]
	st.inflight--
	st.err = err
	st.finished = s.now()
	if st.inflight > 0 {
		return
	}
	if err != nil {
		st.status = StatusError
	} else {
		st.status = StatusSuccess
	}
}

// OpStatus status of one operation kind
func (s *Saver) OpStatus(op SaveOp) SaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[op]; ok {
		return st.status
	}
	return StatusIdle
}

// Status saving while any operation is in flight, otherwise the result of the
// operation that finished last
func (s *Saver) Status() SaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregate()
}

// caller must hold mu
func (s *Saver) aggregate() SaveStatus {
	var latest *opState
	for _, op := range saveOps {
		st := s.states[op]
		if st.inflight > 0 {
			return StatusSaving
		}
		if st.status != StatusIdle && (latest == nil || st.finished.After(latest.finished)) {
			latest = st
		}
	}
	if latest == nil {
		return StatusIdle
	}
	return latest.status
}

// Report snapshot of every operation
func (s *Saver) Report() *StatusReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &StatusReport{
		Status:     s.aggregate(),
		Operations: make(map[SaveOp]OpReport, len(saveOps)),
	}
	for _, op := range saveOps {
		st := s.states[op]
		r := OpReport{Status: st.status}
		if st.err != nil {
			r.Error = st.err.Error()
		}
		if !st.finished.IsZero() {
			finished := st.finished
			r.FinishedAt = &finished
		}
		report.Operations[op] = r
	}
	return report
}

// SaveCourseInfo write course metadata only
func (s *Saver) SaveCourseInfo(ctx context.Context, c *Course) (err error) {
	s.begin(OpCourseInfo)
	defer func() { s.end(OpCourseInfo, err) }()

	c.UpdatedAt = s.now()
	return s.repo.UpsertCourse(ctx, c)
}

// SaveLesson write a single lesson, its content is validated first
func (s *Saver) SaveLesson(ctx context.Context, l *Lesson) (err error) {
	s.begin(OpLesson)
	defer func() { s.end(OpLesson, err) }()

	if _, err = l.Normalize(); err != nil {
		return err
	}
	return s.repo.UpsertLesson(ctx, l)
}

// SaveCourseStructure write modules in order, each followed by its lessons.
// Positions follow slice order. The walk stops at the first failure and
// returns a *StructureError, nothing written before is undone.
func (s *Saver) SaveCourseStructure(ctx context.Context, courseID string, modules []*Module) (err error) {
	s.begin(OpStructure)
	defer func() { s.end(OpStructure, err) }()

	var written int
	for mi, m := range modules {
		m.CourseID = courseID
		m.Position = mi
		if err := s.repo.UpsertModule(ctx, m); err != nil {
			return &StructureError{Written: written, Module: m.ID, Err: err}
		}
		written++

		for li, l := range m.Lessons {
			l.ModuleID = m.ID
			l.Position = li
			if _, err := l.Normalize(); err != nil {
				return &StructureError{Written: written, Module: m.ID, Lesson: l.ID, Err: err}
			}
			if err := s.repo.UpsertLesson(ctx, l); err != nil {
				return &StructureError{Written: written, Module: m.ID, Lesson: l.ID, Err: err}
			}
			written++
		}
	}
	return nil
}
