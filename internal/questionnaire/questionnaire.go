package questionnaire

import (
	"context"
	"errors"
	"time"
)

type Question struct {
	ID      string   `json:"id" validate:"required"`
	Prompt  string   `json:"prompt" validate:"required"`
	Kind    string   `json:"kind" validate:"oneof=open scale choice"`
	Options []string `json:"options,omitempty"`
}

type Questionnaire struct {
	ID          string      `json:"id"`
	CourseID    string      `json:"course_id" validate:"required"`
	Title       string      `json:"title" validate:"required,max=200"`
	Description string      `json:"description"`
	Questions   []*Question `json:"questions" validate:"required,min=1,dive"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
}

type Submission struct {
	ID              string            `json:"id"`
	QuestionnaireID string            `json:"questionnaire_id"`
	UserID          string            `json:"user_id"`
	Answers         map[string]string `json:"answers" validate:"required"`
	SubmittedAt     time.Time         `json:"submitted_at"`
}

// AIGrading machine grading of a submission, written by the grading worker
type AIGrading struct {
	SubmissionID string    `json:"submission_id"`
	Score        float64   `json:"score"`
	Feedback     string    `json:"feedback"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
}

type Page struct {
	Items []*Questionnaire `json:"items"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
}

var (
	ErrQuestionnaireNotFound = errors.New("Questionnaire not found")
	ErrGradingPending        = errors.New("Submission has not been graded yet")
	ErrUnknownQuestion       = errors.New("Answer refers to an unknown question")
	ErrSubmissionNotFound    = errors.New("Submission not found")
)

type QuestionnaireRepository interface {
	List(ctx context.Context, courseID string, offset, limit int, search *string) ([]*Questionnaire, int, error)
	Find(ctx context.Context, id string) (*Questionnaire, error)
	Insert(ctx context.Context, q *Questionnaire) error
	Delete(ctx context.Context, id string) error
	ListSubmissions(ctx context.Context, questionnaireID string, userID *string) ([]*Submission, error)
	InsertSubmission(ctx context.Context, s *Submission) error
	FindSubmission(ctx context.Context, id string) (*Submission, error)
	FindGrading(ctx context.Context, submissionID string) (*AIGrading, error)
}

type QuestionnaireUseCase interface {
	List(ctx context.Context, courseID string, page, size int, search *string) (*Page, error)
	Get(ctx context.Context, id string) (*Questionnaire, error)
	Create(ctx context.Context, authorID string, q *Questionnaire) (*Questionnaire, error)
	Delete(ctx context.Context, id string) error
	Submissions(ctx context.Context, questionnaireID string, userID *string) ([]*Submission, error)
	Submit(ctx context.Context, userID, questionnaireID string, answers map[string]string) (*Submission, error)
	Grading(ctx context.Context, submissionID string, userID *string) (*AIGrading, error)
}
