package sqlxrepos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mwalimu/core"
	"github.com/trezcool/mwalimu/core/course"
)

const (
	courseColumns = `id, instructor_id, title, slug, small_description, description, file_key,
		price, duration, level, status, created_at, updated_at`
	chapterColumns = `id, course_id, title, position, created_at, updated_at`
	lessonColumns  = `id, chapter_id, title, description, thumbnail_key, video_key, position, created_at, updated_at`
)

type courseRepository struct {
	db   *sqlx.DB
	exec sqlx.ExtContext // db, or the transaction of WithinTx
	inTx bool
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db, exec: db}
}

func (repo *courseRepository) WithinTx(ctx context.Context, fn func(repo course.Repository) error) error {
	if repo.inTx { // already within a transaction
		return fn(repo)
	}
	return Transaction(ctx, repo.db, func(tx *sqlx.Tx) error {
		return fn(&courseRepository{db: repo.db, exec: tx, inTx: true})
	})
}

func (repo *courseRepository) LockCourse(ctx context.Context, id string) error {
	if !isUUID(id) {
		return course.ErrNotFound
	}
	var locked string
	if err := sqlx.GetContext(ctx, repo.exec, &locked, `SELECT id FROM courses WHERE id = $1 FOR UPDATE`, id); err != nil {
		return trapNoRowsErr(err, course.ErrNotFound, "locking course")
	}
	return nil
}

// Courses

func (repo *courseRepository) trapSlugErr(err error, msg string) error {
	if uniqueConstraint(err) == "courses_slug_key" {
		return course.ErrSlugExists
	}
	return errors.Wrap(err, msg)
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	crs.CreatedAt = crs.CreatedAt.UTC()
	crs.UpdatedAt = crs.UpdatedAt.UTC()

	q := `INSERT INTO courses (` + courseColumns + `)
		VALUES (:id, :instructor_id, :title, :slug, :small_description, :description, :file_key,
			:price, :duration, :level, :status, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, crs); err != nil {
		return course.Course{}, repo.trapSlugErr(err, "inserting course")
	}
	return crs, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if !isUUID(id) {
		return course.Course{}, course.ErrNotFound
	}
	var crs course.Course
	if err := sqlx.GetContext(ctx, repo.exec, &crs, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "getting course")
	}
	return crs, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.InstructorID != "" {
		if !isUUID(filter.InstructorID) {
			return []course.Course{}, nil
		}
		where = append(where, "instructor_id = ?")
		args = append(args, filter.InstructorID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	// courses with Title or SmallDescription matching the search keyword
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		where = append(where, "(title ILIKE ? OR small_description ILIKE ?)")
		args = append(args, val, val)
	}

	q := `SELECT ` + courseColumns + ` FROM courses`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY ` + orderBy(filter.Ordering, course.OrderingFields)

	courses := make([]course.Course, 0)
	if err := sqlx.SelectContext(ctx, repo.exec, &courses, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

// orderBy renders the allowed orderings, always ending on id for a stable order.
func orderBy(ords []core.DBOrdering, allowed []string) string {
	ok := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		ok[f] = true
	}
	clauses := make([]string, 0, len(ords)+1)
	for _, ord := range ords {
		if ok[ord.Field] {
			clauses = append(clauses, ord.String())
		}
	}
	return strings.Join(append(clauses, "id ASC"), ", ")
}

func (repo *courseRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM courses WHERE slug = $1 AND id::text <> $2)`
	if err := sqlx.GetContext(ctx, repo.exec, &exists, q, slug, excludeID); err != nil {
		return false, errors.Wrap(err, "checking slug")
	}
	return exists, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	if !isUUID(crs.ID) {
		return course.Course{}, course.ErrNotFound
	}
	crs.UpdatedAt = crs.UpdatedAt.UTC()

	q := `UPDATE courses SET title = :title, slug = :slug, small_description = :small_description,
			description = :description, file_key = :file_key, price = :price, duration = :duration,
			level = :level, status = :status, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.exec, q, crs)
	if err != nil {
		return course.Course{}, repo.trapSlugErr(err, "updating course")
	}
	if err = checkRowsAffected(res, course.ErrNotFound, "updating course"); err != nil {
		return course.Course{}, err
	}
	return repo.GetCourse(ctx, crs.ID)
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	if !isUUID(id) {
		return course.ErrNotFound
	}
	res, err := repo.exec.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return checkRowsAffected(res, course.ErrNotFound, "deleting course")
}

// Chapters

func (repo *courseRepository) CreateChapter(ctx context.Context, ch course.Chapter) (course.Chapter, error) {
	ch.ID = uuid.New().String()
	ch.CreatedAt = ch.CreatedAt.UTC()
	ch.UpdatedAt = ch.UpdatedAt.UTC()

	q := `INSERT INTO chapters (` + chapterColumns + `)
		VALUES (:id, :course_id, :title, :position, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, ch); err != nil {
		return course.Chapter{}, errors.Wrap(err, "inserting chapter")
	}
	return ch, nil
}

func (repo *courseRepository) GetChapter(ctx context.Context, id string) (course.Chapter, error) {
	if !isUUID(id) {
		return course.Chapter{}, course.ErrChapterNotFound
	}
	var ch course.Chapter
	if err := sqlx.GetContext(ctx, repo.exec, &ch, `SELECT `+chapterColumns+` FROM chapters WHERE id = $1`, id); err != nil {
		return course.Chapter{}, trapNoRowsErr(err, course.ErrChapterNotFound, "getting chapter")
	}
	return ch, nil
}

func (repo *courseRepository) ListChapters(ctx context.Context, courseID string) ([]course.Chapter, error) {
	chapters := make([]course.Chapter, 0)
	if !isUUID(courseID) {
		return chapters, nil
	}
	q := `SELECT ` + chapterColumns + ` FROM chapters WHERE course_id = $1 ORDER BY position ASC, created_at ASC`
	if err := sqlx.SelectContext(ctx, repo.exec, &chapters, q, courseID); err != nil {
		return nil, errors.Wrap(err, "listing chapters")
	}
	return chapters, nil
}

func (repo *courseRepository) MaxChapterPosition(ctx context.Context, courseID string) (int, error) {
	var last int
	q := `SELECT COALESCE(MAX(position), 0) FROM chapters WHERE course_id = $1`
	if err := sqlx.GetContext(ctx, repo.exec, &last, q, courseID); err != nil {
		return 0, errors.Wrap(err, "getting max chapter position")
	}
	return last, nil
}

func (repo *courseRepository) UpdateChapter(ctx context.Context, ch course.Chapter) (course.Chapter, error) {
	if !isUUID(ch.ID) {
		return course.Chapter{}, course.ErrChapterNotFound
	}
	res, err := repo.exec.ExecContext(ctx,
		`UPDATE chapters SET title = $1, updated_at = $2 WHERE id = $3`, ch.Title, ch.UpdatedAt.UTC(), ch.ID)
	if err != nil {
		return course.Chapter{}, errors.Wrap(err, "updating chapter")
	}
	if err = checkRowsAffected(res, course.ErrChapterNotFound, "updating chapter"); err != nil {
		return course.Chapter{}, err
	}
	return repo.GetChapter(ctx, ch.ID)
}

func (repo *courseRepository) SetChapterPosition(ctx context.Context, courseID, id string, pos int) error {
	if !isUUID(id) || !isUUID(courseID) {
		return course.ErrChapterNotFound
	}
	res, err := repo.exec.ExecContext(ctx,
		`UPDATE chapters SET position = $1 WHERE id = $2 AND course_id = $3`, pos, id, courseID)
	if err != nil {
		return errors.Wrap(err, "setting chapter position")
	}
	return checkRowsAffected(res, course.ErrChapterNotFound, "setting chapter position")
}

func (repo *courseRepository) DeleteChapter(ctx context.Context, id string) error {
	if !isUUID(id) {
		return course.ErrChapterNotFound
	}
	res, err := repo.exec.ExecContext(ctx, `DELETE FROM chapters WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting chapter")
	}
	return checkRowsAffected(res, course.ErrChapterNotFound, "deleting chapter")
}

// Lessons

func (repo *courseRepository) CreateLesson(ctx context.Context, ls course.Lesson) (course.Lesson, error) {
	ls.ID = uuid.New().String()
	ls.CreatedAt = ls.CreatedAt.UTC()
	ls.UpdatedAt = ls.UpdatedAt.UTC()

	q := `INSERT INTO lessons (` + lessonColumns + `)
		VALUES (:id, :chapter_id, :title, :description, :thumbnail_key, :video_key, :position, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, ls); err != nil {
		return course.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return ls, nil
}

func (repo *courseRepository) GetLesson(ctx context.Context, id string) (course.Lesson, error) {
	if !isUUID(id) {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	var ls course.Lesson
	if err := sqlx.GetContext(ctx, repo.exec, &ls, `SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id); err != nil {
		return course.Lesson{}, trapNoRowsErr(err, course.ErrLessonNotFound, "getting lesson")
	}
	return ls, nil
}

func (repo *courseRepository) ListLessons(ctx context.Context, chapterIDs ...string) ([]course.Lesson, error) {
	lessons := make([]course.Lesson, 0)
	ids := validUUIDs(chapterIDs)
	if len(ids) == 0 {
		return lessons, nil
	}

	q, args, err := sqlx.In(
		`SELECT `+lessonColumns+` FROM lessons WHERE chapter_id IN (?) ORDER BY chapter_id, position ASC, created_at ASC`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "building lessons query")
	}
	if err = sqlx.SelectContext(ctx, repo.exec, &lessons, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "listing lessons")
	}
	return lessons, nil
}

func (repo *courseRepository) MaxLessonPosition(ctx context.Context, chapterID string) (int, error) {
	var last int
	q := `SELECT COALESCE(MAX(position), 0) FROM lessons WHERE chapter_id = $1`
	if err := sqlx.GetContext(ctx, repo.exec, &last, q, chapterID); err != nil {
		return 0, errors.Wrap(err, "getting max lesson position")
	}
	return last, nil
}

func (repo *courseRepository) UpdateLesson(ctx context.Context, ls course.Lesson) (course.Lesson, error) {
	if !isUUID(ls.ID) {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	ls.UpdatedAt = ls.UpdatedAt.UTC()

	q := `UPDATE lessons SET title = :title, description = :description, thumbnail_key = :thumbnail_key,
			video_key = :video_key, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.exec, q, ls)
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	if err = checkRowsAffected(res, course.ErrLessonNotFound, "updating lesson"); err != nil {
		return course.Lesson{}, err
	}
	return repo.GetLesson(ctx, ls.ID)
}

func (repo *courseRepository) SetLessonPosition(ctx context.Context, chapterID, id string, pos int) error {
	if !isUUID(id) || !isUUID(chapterID) {
		return course.ErrLessonNotFound
	}
	res, err := repo.exec.ExecContext(ctx,
		`UPDATE lessons SET position = $1 WHERE id = $2 AND chapter_id = $3`, pos, id, chapterID)
	if err != nil {
		return errors.Wrap(err, "setting lesson position")
	}
	return checkRowsAffected(res, course.ErrLessonNotFound, "setting lesson position")
}

func (repo *courseRepository) DeleteLesson(ctx context.Context, id string) error {
	if !isUUID(id) {
		return course.ErrLessonNotFound
	}
	res, err := repo.exec.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return checkRowsAffected(res, course.ErrLessonNotFound, "deleting lesson")
}
