package questionnaire

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/pot-code/learnhub/internal/infrastructure/driver"
)

type QuestionnaireRepositoryImpl struct {
	Conn driver.ITransactionalDB
}

var _ QuestionnaireRepository = &QuestionnaireRepositoryImpl{}

func NewQuestionnaireRepository(Conn driver.ITransactionalDB) *QuestionnaireRepositoryImpl {
	return &QuestionnaireRepositoryImpl{Conn}
}

func scanQuestionnaire(rows driver.ISQLRows, extra ...interface{}) (*Questionnaire, error) {
	q := new(Questionnaire)
	var questions []byte
	dest := append([]interface{}{&q.ID, &q.CourseID, &q.Title, &q.Description, &questions, &q.CreatedBy, &q.CreatedAt}, extra...)
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &q.Questions); err != nil {
		return nil, errors.Wrap(err, "decode questions")
	}
	return q, nil
}

const questionnaireColumns = `id, course_id, title, description, questions, created_by, created_at`

// List one page of the questionnaires of a course with the total match count
func (repo *QuestionnaireRepositoryImpl) List(ctx context.Context, courseID string, offset, limit int, search *string) ([]*Questionnaire, int, error) {
	query := `SELECT ` + questionnaireColumns + `, COUNT(*) OVER()
	FROM series_questionnaires WHERE course_id=$1`
	args := []interface{}{courseID}
	if search != nil && *search != "" {
		args = append(args, "%"+*search+"%")
		query += ` AND title ILIKE $` + strconv.Itoa(len(args))
	}
	args = append(args, limit, offset)
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := repo.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "query questionnaires")
	}
	defer rows.Close()

	var (
		result []*Questionnaire
		total  int
	)
	for rows.Next() {
		q, err := scanQuestionnaire(rows, &total)
		if err != nil {
			return nil, 0, errors.Wrap(err, "scan questionnaire")
		}
		result = append(result, q)
	}
	return result, total, errors.Wrap(rows.Err(), "query questionnaires")
}

func (repo *QuestionnaireRepositoryImpl) Find(ctx context.Context, id string) (*Questionnaire, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT `+questionnaireColumns+` FROM series_questionnaires WHERE id=$1`, id)
	if err != nil {
		return nil, errors.Wrap(err, "query questionnaire")
	}
	defer rows.Close()

	if rows.Next() {
		q, err := scanQuestionnaire(rows)
		return q, errors.Wrap(err, "scan questionnaire")
	}
	return nil, errors.Wrap(rows.Err(), "query questionnaire")
}

func (repo *QuestionnaireRepositoryImpl) Insert(ctx context.Context, q *Questionnaire) error {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return errors.Wrap(err, "encode questions")
	}
	_, err = repo.Conn.ExecContext(ctx, `INSERT INTO series_questionnaires(`+questionnaireColumns+`)
	VALUES($1,$2,$3,$4,$5,$6,$7)`, q.ID, q.CourseID, q.Title, q.Description, questions, q.CreatedBy, q.CreatedAt)
	return errors.Wrap(err, "insert questionnaire")
}

func (repo *QuestionnaireRepositoryImpl) Delete(ctx context.Context, id string) error {
	_, err := repo.Conn.ExecContext(ctx, `DELETE FROM series_questionnaires WHERE id=$1`, id)
	return errors.Wrap(err, "delete questionnaire")
}

func (repo *QuestionnaireRepositoryImpl) ListSubmissions(ctx context.Context, questionnaireID string, userID *string) ([]*Submission, error) {
	query := `SELECT id, questionnaire_id, user_id, answers, submitted_at
	FROM series_submissions WHERE questionnaire_id=$1`
	args := []interface{}{questionnaireID}
	if userID != nil {
		args = append(args, *userID)
		query += ` AND user_id=$2`
	}
	query += ` ORDER BY submitted_at DESC`

	rows, err := repo.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query submissions")
	}
	defer rows.Close()

	var result []*Submission
	for rows.Next() {
		var (
			s       Submission
			answers []byte
		)
		if err := rows.Scan(&s.ID, &s.QuestionnaireID, &s.UserID, &answers, &s.SubmittedAt); err != nil {
			return nil, errors.Wrap(err, "scan submission")
		}
		if err := json.Unmarshal(answers, &s.Answers); err != nil {
			return nil, errors.Wrap(err, "decode answers")
		}
		result = append(result, &s)
	}
	return result, errors.Wrap(rows.Err(), "query submissions")
}

func (repo *QuestionnaireRepositoryImpl) InsertSubmission(ctx context.Context, s *Submission) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return errors.Wrap(err, "encode answers")
	}
	_, err = repo.Conn.ExecContext(ctx, `INSERT INTO series_submissions(id, questionnaire_id, user_id, answers, submitted_at)
	VALUES($1,$2,$3,$4,$5)`, s.ID, s.QuestionnaireID, s.UserID, answers, s.SubmittedAt)
	return errors.Wrap(err, "insert submission")
}

func (repo *QuestionnaireRepositoryImpl) FindSubmission(ctx context.Context, id string) (*Submission, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT id, questionnaire_id, user_id, answers, submitted_at
	FROM series_submissions WHERE id=$1`, id)
	if err != nil {
		return nil, errors.Wrap(err, "query submission")
	}
	defer rows.Close()

	if rows.Next() {
		var (
			s       Submission
			answers []byte
		)
		if err := rows.Scan(&s.ID, &s.QuestionnaireID, &s.UserID, &answers, &s.SubmittedAt); err != nil {
			return nil, errors.Wrap(err, "scan submission")
		}
		if err := json.Unmarshal(answers, &s.Answers); err != nil {
			return nil, errors.Wrap(err, "decode answers")
		}
		return &s, nil
	}
	return nil, errors.Wrap(rows.Err(), "query submission")
}

func (repo *QuestionnaireRepositoryImpl) FindGrading(ctx context.Context, submissionID string) (*AIGrading, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT submission_id, score, feedback, model, created_at
	FROM series_ai_gradings WHERE submission_id=$1
	ORDER BY created_at DESC LIMIT 1`, submissionID)
	if err != nil {
		return nil, errors.Wrap(err, "query grading")
	}
	defer rows.Close()

	if rows.Next() {
		g := new(AIGrading)
		if err := rows.Scan(&g.SubmissionID, &g.Score, &g.Feedback, &g.Model, &g.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan grading")
		}
		return g, nil
	}
	return nil, errors.Wrap(rows.Err(), "query grading")
}
