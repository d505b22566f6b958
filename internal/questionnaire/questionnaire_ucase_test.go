package questionnaire

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/pot-code/learnhub/internal/cache"
	"github.com/pot-code/learnhub/internal/infrastructure/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	mu          sync.Mutex
	items       map[string]*Questionnaire
	submissions []*Submission
	gradings    map[string]*AIGrading
	listCalls   int
	subCalls    int
}

func newCountingRepo() *countingRepo {
	return &countingRepo{items: make(map[string]*Questionnaire), gradings: make(map[string]*AIGrading)}
}

func (r *countingRepo) List(ctx context.Context, courseID string, offset, limit int, search *string) ([]*Questionnaire, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	var all []*Questionnaire
	for _, q := range r.items {
		if q.CourseID != courseID {
			continue
		}
		if search != nil && !strings.Contains(q.Title, *search) {
			continue
		}
		all = append(all, q)
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *countingRepo) Find(ctx context.Context, id string) (*Questionnaire, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id], nil
}

func (r *countingRepo) Insert(ctx context.Context, q *Questionnaire) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[q.ID] = q
	return nil
}

func (r *countingRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *countingRepo) ListSubmissions(ctx context.Context, questionnaireID string, userID *string) ([]*Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subCalls++
	var result []*Submission
	for _, s := range r.submissions {
		if s.QuestionnaireID == questionnaireID && (userID == nil || s.UserID == *userID) {
			result = append(result, s)
		}
	}
	return result, nil
}

func (r *countingRepo) InsertSubmission(ctx context.Context, s *Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissions = append(r.submissions, s)
	return nil
}

func (r *countingRepo) FindSubmission(ctx context.Context, id string) (*Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.submissions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (r *countingRepo) FindGrading(ctx context.Context, submissionID string) (*AIGrading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gradings[submissionID], nil
}

func newTestUseCase() (*QuestionnaireUseCaseImpl, *countingRepo) {
	repo := newCountingRepo()
	return NewQuestionnaireUseCase(repo, uuid.V4Generator{}, cache.NewManager()), repo
}

func sample(courseID, title string) *Questionnaire {
	return &Questionnaire{
		CourseID:  courseID,
		Title:     title,
		Questions: []*Question{{ID: "q1", Prompt: "why?", Kind: "open"}},
	}
}

func TestListIsCachedAndInvalidatedOnCreate(t *testing.T) {
	ctx := context.Background()
	qu, repo := newTestUseCase()

	_, err := qu.Create(ctx, "teacher", sample("c1", "week 1"))
	require.NoError(t, err)

	page, err := qu.List(ctx, "c1", 1, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	_, err = qu.List(ctx, "c1", 1, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls, "second read served from cache")

	_, err = qu.List(ctx, "c2", 1, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)

	_, err = qu.Create(ctx, "teacher", sample("c1", "week 2"))
	require.NoError(t, err)
	page, err = qu.List(ctx, "c1", 1, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 3, repo.listCalls)

	// other course untouched by invalidation
	_, err = qu.List(ctx, "c2", 1, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, repo.listCalls)
}

func TestListSearchAndPaging(t *testing.T) {
	ctx := context.Background()
	qu, _ := newTestUseCase()
	for _, title := range []string{"alpha", "beta", "alphabet"} {
		_, err := qu.Create(ctx, "teacher", sample("c1", title))
		require.NoError(t, err)
	}

	search := "alpha"
	page, err := qu.List(ctx, "c1", 1, 10, &search)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = qu.List(ctx, "c1", 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultPageSize, page.Size)

	page, err = qu.List(ctx, "c1", 5, 1000, nil)
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.Size)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
}

func TestSubmitInvalidatesSubmissions(t *testing.T) {
	ctx := context.Background()
	qu, repo := newTestUseCase()
	q, err := qu.Create(ctx, "teacher", sample("c1", "week 1"))
	require.NoError(t, err)

	subs, err := qu.Submissions(ctx, q.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, subs)
	_, err = qu.Submissions(ctx, q.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.subCalls)

	_, err = qu.Submit(ctx, "learner", q.ID, map[string]string{"q1": "because"})
	require.NoError(t, err)

	subs, err = qu.Submissions(ctx, q.ID, nil)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
	assert.Equal(t, 2, repo.subCalls)

	other := "someone"
	subs, err = qu.Submissions(ctx, q.ID, &other)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestSubmitErrors(t *testing.T) {
	ctx := context.Background()
	qu, _ := newTestUseCase()

	_, err := qu.Submit(ctx, "learner", "missing", nil)
	assert.Equal(t, ErrQuestionnaireNotFound, err)

	q, err := qu.Create(ctx, "teacher", sample("c1", "week 1"))
	require.NoError(t, err)
	_, err = qu.Submit(ctx, "learner", q.ID, map[string]string{"q9": "?"})
	assert.Equal(t, ErrUnknownQuestion, err)
}

func TestDeleteInvalidates(t *testing.T) {
	ctx := context.Background()
	qu, _ := newTestUseCase()
	q, err := qu.Create(ctx, "teacher", sample("c1", "week 1"))
	require.NoError(t, err)
	_, err = qu.List(ctx, "c1", 1, 10, nil)
	require.NoError(t, err)
	_, err = qu.Submissions(ctx, q.ID, nil)
	require.NoError(t, err)

	require.NoError(t, qu.Delete(ctx, q.ID))
	assert.Equal(t, 0, qu.Cache.Len())
	assert.Equal(t, ErrQuestionnaireNotFound, qu.Delete(ctx, q.ID))
}

func TestGrading(t *testing.T) {
	ctx := context.Background()
	qu, repo := newTestUseCase()
	q, err := qu.Create(ctx, "teacher", sample("c1", "week 1"))
	require.NoError(t, err)
	s, err := qu.Submit(ctx, "learner", q.ID, map[string]string{"q1": "because"})
	require.NoError(t, err)
	owner, stranger := "learner", "someone"

	_, err = qu.Grading(ctx, "missing", nil)
	assert.Equal(t, ErrSubmissionNotFound, err)
	_, err = qu.Grading(ctx, s.ID, &owner)
	assert.Equal(t, ErrGradingPending, err)

	repo.gradings[s.ID] = &AIGrading{SubmissionID: s.ID, Score: 0.8}
	g, err := qu.Grading(ctx, s.ID, &owner)
	require.NoError(t, err)
	assert.Equal(t, 0.8, g.Score)

	g, err = qu.Grading(ctx, s.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.8, g.Score)

	_, err = qu.Grading(ctx, s.ID, &stranger)
	assert.Equal(t, ErrSubmissionNotFound, err)
}
