package completion

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/pot-code/learnhub/internal/infrastructure/driver"
)

type CompletionRepositoryImpl struct {
	Conn driver.ITransactionalDB
}

var _ CompletionRepository = &CompletionRepositoryImpl{}

func NewCompletionRepository(Conn driver.ITransactionalDB) *CompletionRepositoryImpl {
	return &CompletionRepositoryImpl{Conn}
}

func (repo *CompletionRepositoryImpl) ListCompletions(ctx context.Context, userID, courseID string) ([]*Record, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT lesson_id, completed, completed_at
	FROM lesson_completions
	WHERE user_id=$1 AND course_id=$2`, userID, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "query completions")
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		r := new(Record)
		if err := rows.Scan(&r.LessonID, &r.Completed, &r.CompletedAt); err != nil {
			return nil, errors.Wrap(err, "scan completion")
		}
		result = append(result, r)
	}
	return result, errors.Wrap(rows.Err(), "query completions")
}

func (repo *CompletionRepositoryImpl) CourseLessonIDs(ctx context.Context, courseID string) ([]string, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT l.id
	FROM lessons l JOIN course_modules m ON m.id = l.module_id
	WHERE m.course_id=$1`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "query course lessons")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan lesson id")
		}
		ids = append(ids, id)
	}
	return ids, errors.Wrap(rows.Err(), "query course lessons")
}

func (repo *CompletionRepositoryImpl) DeleteCompletions(ctx context.Context, userID, courseID string, lessonIDs []string) error {
	if len(lessonIDs) == 0 {
		return nil
	}
	args := []interface{}{userID, courseID}
	placeholders := make([]string, len(lessonIDs))
	for i, id := range lessonIDs {
		args = append(args, id)
		placeholders[i] = "$" + strconv.Itoa(len(args))
	}
	_, err := repo.Conn.ExecContext(ctx, `DELETE FROM lesson_completions
	WHERE user_id=$1 AND course_id=$2 AND lesson_id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	return errors.Wrap(err, "delete completions")
}

func (repo *CompletionRepositoryImpl) SetCompletion(ctx context.Context, userID, courseID, lessonID string, completed bool) error {
	_, err := repo.Conn.ExecContext(ctx, `INSERT INTO lesson_completions(user_id, course_id, lesson_id, completed, completed_at)
	VALUES($1,$2,$3,$4,CASE WHEN $4 THEN NOW() END)
	ON CONFLICT (user_id, lesson_id) DO UPDATE SET
		completed=EXCLUDED.completed,
		completed_at=EXCLUDED.completed_at`,
		userID, courseID, lessonID, completed)
	return errors.Wrap(err, "upsert completion")
}
