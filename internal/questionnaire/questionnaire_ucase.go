package questionnaire

import (
	"context"
	"time"

	"github.com/pot-code/learnhub/internal/cache"
	"github.com/pot-code/learnhub/internal/infrastructure/uuid"
	"go.elastic.co/apm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	listPrefix       = "questionnaires"
	submissionPrefix = "questionnaire_submissions"
)

// QuestionnaireUseCaseImpl reads go through cache, writes invalidate the affected keys
type QuestionnaireUseCaseImpl struct {
	QuestionnaireRepository QuestionnaireRepository
	UUIDGenerator           uuid.Generator
	Cache                   *cache.Manager

	now func() time.Time
}

var _ QuestionnaireUseCase = &QuestionnaireUseCaseImpl{}

func NewQuestionnaireUseCase(QuestionnaireRepository QuestionnaireRepository, UUIDGenerator uuid.Generator, Cache *cache.Manager) *QuestionnaireUseCaseImpl {
	return &QuestionnaireUseCaseImpl{
		QuestionnaireRepository: QuestionnaireRepository,
		UUIDGenerator:           UUIDGenerator,
		Cache:                   Cache,
		now:                     time.Now,
	}
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// List one page of questionnaires of courseID, page starts at 1
func (qu *QuestionnaireUseCaseImpl) List(ctx context.Context, courseID string, page, size int, search *string) (*Page, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "QuestionnaireUseCaseImpl.List", "service")
	defer apmSpan.End()

	page, size = normalizePage(page, size)
	key := cache.Key(listPrefix, courseID, page, size, search)
	if v, ok := qu.Cache.Get(key); ok {
		return v.(*Page), nil
	}

	items, total, err := qu.QuestionnaireRepository.List(ctx, courseID, (page-1)*size, size, search)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Questionnaire{}
	}
	result := &Page{Items: items, Total: total, Page: page, Size: size}
	qu.Cache.Set(key, result)
	return result, nil
}

func (qu *QuestionnaireUseCaseImpl) Get(ctx context.Context, id string) (*Questionnaire, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "QuestionnaireUseCaseImpl.Get", "service")
	defer apmSpan.End()

	q, err := qu.QuestionnaireRepository.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, ErrQuestionnaireNotFound
	}
	return q, nil
}

func (qu *QuestionnaireUseCaseImpl) Create(ctx context.Context, authorID string, q *Questionnaire) (*Questionnaire, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "QuestionnaireUseCaseImpl.Create", "service")
	defer apmSpan.End()

	id, err := qu.UUIDGenerator.Generate()
	if err != nil {
		return nil, err
	}
	q.ID = id
	q.CreatedBy = authorID
	q.CreatedAt = qu.now()
	if err := qu.QuestionnaireRepository.Insert(ctx, q); err != nil {
		return nil, err
	}
	qu.Cache.ClearPattern(listPrefix + "_" + q.CourseID)
	return q, nil
}

func (qu *QuestionnaireUseCaseImpl) Delete(ctx context.Context, id string) error {
	apmSpan, ctx := apm.StartSpan(ctx, "QuestionnaireUseCaseImpl.Delete", "service")
	defer apmSpan.End()

	q, err := qu.QuestionnaireRepository.Find(ctx, id)
	if err != nil {
		return err
	}
	if q == nil {
		return ErrQuestionnaireNotFound
	}
	if err := qu.QuestionnaireRepository.Delete(ctx, id); err != nil {
		return err
	}
	qu.Cache.ClearPattern(listPrefix + "_" + q.CourseID)
	qu.Cache.ClearPattern(submissionPrefix + "_" + id)
	return nil
}

// Submissions of a questionnaire, restricted to userID when it is not nil
func (qu *QuestionnaireUseCaseImpl) Submissions(ctx context.Context, questionnaireID string, userID *string) ([]*Submission, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "QuestionnaireUseCaseImpl.Submissions", "service")
	defer apmSpan.End()

	key := cache.Key(submissionPrefix, questionnaireID, userID)
	if v, ok := qu.Cache.Get(key); ok {
		return v.([]*Submission), nil
	}

	result, err := qu.QuestionnaireRepository.ListSubmissions(ctx, questionnaireID, userID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = []*Submission{}
	}
	qu.Cache.Set(key, result)
	return result, nil
}

// Submit answers keyed by question id, unanswered questions are allowed
func (qu *QuestionnaireUseCaseImpl) Submit(ctx context.Context, userID, questionnaireID string, answers map[string]string) (*Submission, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "QuestionnaireUseCaseImpl.Submit", "service")
	defer apmSpan.End()

	q, err := qu.QuestionnaireRepository.Find(ctx, questionnaireID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, ErrQuestionnaireNotFound
	}
	known := make(map[string]bool, len(q.Questions))
	for _, question := range q.Questions {
		known[question.ID] = true
	}
	for k := range answers {
		if !known[k] {
			return nil, ErrUnknownQuestion
		}
	}

	id, err := qu.UUIDGenerator.Generate()
	if err != nil {
		return nil, err
	}
	s := &Submission{
		ID:              id,
		QuestionnaireID: questionnaireID,
		UserID:          userID,
		Answers:         answers,
		SubmittedAt:     qu.now(),
	}
	if err := qu.QuestionnaireRepository.InsertSubmission(ctx, s); err != nil {
		return nil, err
	}
	qu.Cache.ClearPattern(submissionPrefix + "_" + questionnaireID)
	return s, nil
}

// Grading is never cached, the grading worker writes it asynchronously.
// When userID is not nil the submission must belong to that user.
func (qu *QuestionnaireUseCaseImpl) Grading(ctx context.Context, submissionID string, userID *string) (*AIGrading, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "QuestionnaireUseCaseImpl.Grading", "service")
	defer apmSpan.End()

	s, err := qu.QuestionnaireRepository.FindSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if s == nil || (userID != nil && s.UserID != *userID) {
		return nil, ErrSubmissionNotFound
	}

	g, err := qu.QuestionnaireRepository.FindGrading(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGradingPending
	}
	return g, nil
}
