package course

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/pot-code/learnhub/internal/infrastructure/driver"
)

type CourseRepositoryImpl struct {
	Conn driver.ITransactionalDB
}

var _ CourseRepository = &CourseRepositoryImpl{}

func NewCourseRepository(Conn driver.ITransactionalDB) *CourseRepositoryImpl {
	return &CourseRepositoryImpl{Conn}
}

const courseColumns = `id, title, description, image_url, author_id, published, created_at, updated_at`

func scanCourse(rows driver.ISQLRows) (*Course, error) {
	c := new(Course)
	err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.ImageURL, &c.AuthorID, &c.Published, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (repo *CourseRepositoryImpl) FindCourse(ctx context.Context, id string) (*Course, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id=$1`, id)
	if err != nil {
		return nil, errors.Wrap(err, "query course")
	}
	defer rows.Close()

	if rows.Next() {
		c, err := scanCourse(rows)
		return c, errors.Wrap(err, "scan course")
	}
	return nil, errors.Wrap(rows.Err(), "query course")
}

func (repo *CourseRepositoryImpl) ListCourses(ctx context.Context, filter *ListFilter) ([]*Course, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.AuthorID != nil {
		args = append(args, *filter.AuthorID)
		where = append(where, "author_id=$1")
	}
	if filter.PublishedOnly {
		where = append(where, "published=TRUE")
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, "title ILIKE $"+strconv.Itoa(len(args)))
	}
	query := `SELECT ` + courseColumns + ` FROM courses`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := repo.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query courses")
	}
	defer rows.Close()

	var result []*Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan course")
		}
		result = append(result, c)
	}
	return result, errors.Wrap(rows.Err(), "query courses")
}

// FindModules modules of a course with their lessons, both ordered by position
func (repo *CourseRepositoryImpl) FindModules(ctx context.Context, courseID string) ([]*Module, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT m.id, m.title, m.position,
	l.id, l.title, l.type, l.position, l.content
	FROM course_modules m
	LEFT JOIN lessons l ON l.module_id = m.id
	WHERE m.course_id=$1
	ORDER BY m.position, l.position`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "query modules")
	}
	defer rows.Close()

	var (
		modules []*Module
		current *Module
	)
	for rows.Next() {
		var (
			m                                 Module
			lessonID, lessonTitle, lessonType *string
			lessonPosition                    *int
			content                           []byte
		)
		if err := rows.Scan(&m.ID, &m.Title, &m.Position,
			&lessonID, &lessonTitle, &lessonType, &lessonPosition, &content); err != nil {
			return nil, errors.Wrap(err, "scan module")
		}
		if current == nil || current.ID != m.ID {
			m.CourseID = courseID
			m.Lessons = []*Lesson{}
			current = &m
			modules = append(modules, current)
		}
		if lessonID != nil {
			current.Lessons = append(current.Lessons, &Lesson{
				ID:       *lessonID,
				ModuleID: current.ID,
				Title:    *lessonTitle,
				Type:     LessonType(*lessonType),
				Position: *lessonPosition,
				Content:  json.RawMessage(content),
			})
		}
	}
	return modules, errors.Wrap(rows.Err(), "query modules")
}

// FindLesson returns the lesson and the id of the course it belongs to
func (repo *CourseRepositoryImpl) FindModule(ctx context.Context, id string) (*Module, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT id, course_id, title, position FROM course_modules WHERE id=$1`, id)
	if err != nil {
		return nil, errors.Wrap(err, "query module")
	}
	defer rows.Close()

	if rows.Next() {
		m := new(Module)
		if err := rows.Scan(&m.ID, &m.CourseID, &m.Title, &m.Position); err != nil {
			return nil, errors.Wrap(err, "scan module")
		}
		return m, nil
	}
	return nil, errors.Wrap(rows.Err(), "query module")
}

func (repo *CourseRepositoryImpl) FindLesson(ctx context.Context, id string) (*Lesson, string, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT l.id, l.module_id, l.title, l.type, l.position, l.content, m.course_id
	FROM lessons l JOIN course_modules m ON m.id = l.module_id
	WHERE l.id=$1`, id)
	if err != nil {
		return nil, "", errors.Wrap(err, "query lesson")
	}
	defer rows.Close()

	if rows.Next() {
		var (
			l          Lesson
			lessonType string
			content    []byte
			courseID   string
		)
		if err := rows.Scan(&l.ID, &l.ModuleID, &l.Title, &lessonType, &l.Position, &content, &courseID); err != nil {
			return nil, "", errors.Wrap(err, "scan lesson")
		}
		l.Type = LessonType(lessonType)
		l.Content = content
		return &l, courseID, nil
	}
	return nil, "", errors.Wrap(rows.Err(), "query lesson")
}

func (repo *CourseRepositoryImpl) UpsertCourse(ctx context.Context, c *Course) error {
	_, err := repo.Conn.ExecContext(ctx, `INSERT INTO courses(id, title, description, image_url, author_id, published, created_at, updated_at)
	VALUES($1,$2,$3,$4,$5,$6,$7,$8)
	ON CONFLICT (id) DO UPDATE SET
		title=EXCLUDED.title,
		description=EXCLUDED.description,
		image_url=EXCLUDED.image_url,
		published=EXCLUDED.published,
		updated_at=EXCLUDED.updated_at`,
		c.ID, c.Title, c.Description, c.ImageURL, c.AuthorID, c.Published, c.CreatedAt, c.UpdatedAt)
	return errors.Wrap(err, "upsert course")
}

func (repo *CourseRepositoryImpl) UpsertModule(ctx context.Context, m *Module) error {
	_, err := repo.Conn.ExecContext(ctx, `INSERT INTO course_modules(id, course_id, title, position)
	VALUES($1,$2,$3,$4)
	ON CONFLICT (id) DO UPDATE SET
		title=EXCLUDED.title,
		position=EXCLUDED.position`,
		m.ID, m.CourseID, m.Title, m.Position)
	return errors.Wrap(err, "upsert module")
}

func (repo *CourseRepositoryImpl) UpsertLesson(ctx context.Context, l *Lesson) error {
	_, err := repo.Conn.ExecContext(ctx, `INSERT INTO lessons(id, module_id, title, type, position, content)
	VALUES($1,$2,$3,$4,$5,$6)
	ON CONFLICT (id) DO UPDATE SET
		module_id=EXCLUDED.module_id,
		title=EXCLUDED.title,
		type=EXCLUDED.type,
		position=EXCLUDED.position,
		content=EXCLUDED.content`,
		l.ID, l.ModuleID, l.Title, string(l.Type), l.Position, []byte(l.Content))
	return errors.Wrap(err, "upsert lesson")
}

// callDelete invokes one of the delete_* database functions, which check ownership
// and cascade to children, they return false when nothing was deleted
func (repo *CourseRepositoryImpl) callDelete(ctx context.Context, fn, id, userID string) (bool, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT `+fn+`($1, $2)`, id, userID)
	if err != nil {
		return false, errors.Wrap(err, fn)
	}
	defer rows.Close()

	var deleted bool
	if rows.Next() {
		if err := rows.Scan(&deleted); err != nil {
			return false, errors.Wrap(err, fn)
		}
	}
	return deleted, errors.Wrap(rows.Err(), fn)
}

func (repo *CourseRepositoryImpl) DeleteCourse(ctx context.Context, courseID, userID string) (bool, error) {
	return repo.callDelete(ctx, "delete_course", courseID, userID)
}

func (repo *CourseRepositoryImpl) DeleteModule(ctx context.Context, moduleID, userID string) (bool, error) {
	return repo.callDelete(ctx, "delete_module", moduleID, userID)
}

func (repo *CourseRepositoryImpl) DeleteLesson(ctx context.Context, lessonID, userID string) (bool, error) {
	return repo.callDelete(ctx, "delete_lesson", lessonID, userID)
}
