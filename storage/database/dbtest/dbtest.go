// Package dbtest holds fixtures and the behaviour every repository implementation must honour.
package dbtest

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mwalimu/core"
	"github.com/trezcool/mwalimu/core/course"
	"github.com/trezcool/mwalimu/core/instructor"
	"github.com/trezcool/mwalimu/storage/database"
)

const DatabaseURLEnv = "TEST_DATABASE_URL"

var migrateOnce sync.Once

// Repos are fresh, empty repositories.
type Repos struct {
	Courses     course.Repository
	Instructors instructor.Repository
}

// OpenDB connects to TEST_DATABASE_URL, migrates it once and empties it.
// The test is skipped when the variable is unset.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv(DatabaseURLEnv)
	if dsn == "" {
		t.Skipf("%s not set", DatabaseURLEnv)
	}
	ctx := context.Background()
	db, err := database.OpenURL(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrateOnce.Do(func() {
		require.NoError(t, database.Migrate(ctx, db.DB))
	})
	require.NoError(t, database.Truncate(ctx, db.DB))
	return db
}

// Now is a timestamp at the database precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func CreateInstructor(t *testing.T, repo instructor.Repository, email, userID string, createdAt ...time.Time) instructor.Instructor {
	t.Helper()

	tstamp := Now()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	ins, err := repo.CreateInstructor(context.Background(), instructor.Instructor{
		UserID:    userID,
		Email:     email,
		Bio:       "bio",
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	require.NoError(t, err, "CreateInstructor()")
	return ins
}

func CreateCourse(t *testing.T, repo course.Repository, instructorID, title string, createdAt ...time.Time) course.Course {
	t.Helper()

	tstamp := Now()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Title:            title,
		Slug:             core.Slugify(title),
		SmallDescription: title + " in a nutshell",
		Description:      "All about " + title,
		FileKey:          "courses/" + core.Slugify(title) + ".png",
		Price:            10,
		Duration:         2,
		Level:            course.LevelBeginner,
		Status:           course.StatusDraft,
		InstructorID:     instructorID,
		CreatedAt:        tstamp,
		UpdatedAt:        tstamp,
	})
	require.NoError(t, err, "CreateCourse()")
	return crs
}

func CreateChapter(t *testing.T, repo course.Repository, courseID, title string, pos int) course.Chapter {
	t.Helper()

	now := Now()
	ch, err := repo.CreateChapter(context.Background(), course.Chapter{
		CourseID:  courseID,
		Title:     title,
		Position:  pos,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err, "CreateChapter()")
	return ch
}

func CreateLesson(t *testing.T, repo course.Repository, chapterID, title string, pos int) course.Lesson {
	t.Helper()

	now := Now()
	ls, err := repo.CreateLesson(context.Background(), course.Lesson{
		ChapterID: chapterID,
		Title:     title,
		VideoKey:  "videos/" + core.Slugify(title) + ".mp4",
		Position:  pos,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err, "CreateLesson()")
	return ls
}

// ChapterIDs lists the ids of the course chapters in position order.
func ChapterIDs(t *testing.T, repo course.Repository, courseID string) []string {
	t.Helper()

	chapters, err := repo.ListChapters(context.Background(), courseID)
	require.NoError(t, err)
	ids := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		ids = append(ids, ch.ID)
	}
	return ids
}

// LessonIDs lists the ids of the chapter lessons in position order.
func LessonIDs(t *testing.T, repo course.Repository, chapterID string) []string {
	t.Helper()

	lessons, err := repo.ListLessons(context.Background(), chapterID)
	require.NoError(t, err)
	ids := make([]string, 0, len(lessons))
	for _, ls := range lessons {
		ids = append(ids, ls.ID)
	}
	return ids
}
