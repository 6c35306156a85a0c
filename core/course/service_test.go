package course_test

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mwalimu/core"
	"github.com/trezcool/mwalimu/core/course"
	"github.com/trezcool/mwalimu/core/instructor"
	"github.com/trezcool/mwalimu/core/position"
	"github.com/trezcool/mwalimu/services/email"
	"github.com/trezcool/mwalimu/services/logger"
	"github.com/trezcool/mwalimu/services/pagecache"
	"github.com/trezcool/mwalimu/storage/database/inmem"
)

var (
	teacher = core.Session{UserID: "u-teacher", Email: "teacher@example.com", Name: "Teacher", Role: core.RoleInstructor}
	other   = core.Session{UserID: "u-other", Email: "other@example.com", Name: "Other", Role: core.RoleInstructor}
	admin   = core.Session{UserID: "u-admin", Email: "admin@example.com", Name: "Admin", Role: core.RoleAdmin}
)

type fixture struct {
	svc    *course.Service
	insSvc *instructor.Service
	pages  *pagecache.Recorder
	repo   course.Repository
}

func setup(t *testing.T) fixture {
	t.Helper()

	db := inmemdb.NewDB()
	conf := &core.Config{AppName: "Mwalimu", TestMode: true}
	appLogger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	insSvc := instructor.NewService(inmemdb.NewInstructorRepository(db), emailsvc.NewConsoleServiceMock(conf, appLogger), appLogger)

	for _, sess := range []core.Session{teacher, other} {
		_, err := insSvc.EnsureForSession(context.Background(), sess)
		require.NoError(t, err)
	}

	repo := inmemdb.NewCourseRepository(db)
	pages := pagecache.NewRecorder()
	return fixture{svc: course.NewService(repo, insSvc, pages), insSvc: insSvc, pages: pages, repo: repo}
}

func newCourse(title, slug string) course.NewCourse {
	return course.NewCourse{
		Title:            title,
		Slug:             slug,
		SmallDescription: "short",
		Description:      "long",
		FileKey:          "uploads/cover.png",
		Price:            20,
		Duration:         5,
		Level:            "BEGINNER",
		Status:           "DRAFT",
	}
}

// seed creates a course with `lessons[i]` lessons in chapter i.
func (f fixture) seed(t *testing.T, sess core.Session, slug string, lessons ...int) course.Course {
	t.Helper()
	ctx := context.Background()

	crs, err := f.svc.CreateCourse(ctx, sess, newCourse("Course "+slug, slug))
	require.NoError(t, err)
	for i, n := range lessons {
		ch, err := f.svc.CreateChapter(ctx, sess, crs.ID, course.NewChapter{Title: "Chapter " + string(rune('A'+i))})
		require.NoError(t, err)
		for j := 0; j < n; j++ {
			_, err = f.svc.CreateLesson(ctx, sess, crs.ID, ch.ID, course.NewLesson{Title: "Lesson " + string(rune('a'+j))})
			require.NoError(t, err)
		}
	}

	crs, err = f.svc.GetCourse(ctx, sess, crs.ID)
	require.NoError(t, err)
	f.pages.Reset()
	return crs
}

func (f fixture) structure(t *testing.T, courseID string) course.Course {
	t.Helper()
	crs, err := f.svc.GetCourse(context.Background(), admin, courseID)
	require.NoError(t, err)
	return crs
}

func chapterPositions(crs course.Course) map[string]int {
	out := make(map[string]int)
	for _, ch := range crs.Chapters {
		out[ch.ID] = ch.Position
	}
	return out
}

func assertContiguous(t *testing.T, crs course.Course) {
	t.Helper()
	for i, ch := range crs.Chapters {
		assert.Equal(t, i+1, ch.Position, "chapter %s", ch.ID)
		for j, ls := range ch.Lessons {
			assert.Equal(t, j+1, ls.Position, "lesson %s", ls.ID)
		}
	}
}

func TestService_CreateCourse(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	crs, err := f.svc.CreateCourse(ctx, teacher, newCourse("Go", "go"))
	require.NoError(t, err)
	assert.NotEmpty(t, crs.ID)
	assert.NotEmpty(t, crs.InstructorID)
	assert.Equal(t, []string{core.CourseListPath}, f.pages.Paths())

	_, err = f.svc.CreateCourse(ctx, other, newCourse("Go again", "go"))
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, course.ErrSlugExists, vErr.Err)
	assert.Equal(t, "slug", vErr.Fields[0].Field)
}

func TestService_QueryCourses(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	mine := f.seed(t, teacher, "mine")
	f.seed(t, other, "theirs")

	got, err := f.svc.QueryCourses(ctx, teacher, course.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mine.ID, got[0].ID)

	got, err = f.svc.QueryCourses(ctx, admin, course.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	stranger := core.Session{UserID: "u-new", Email: "new@example.com", Role: core.RoleInstructor}
	got, err = f.svc.QueryCourses(ctx, stranger, course.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_GetCourse(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	crs := f.seed(t, teacher, "go", 2, 0)

	require.Len(t, crs.Chapters, 2)
	assert.Len(t, crs.Chapters[0].Lessons, 2)
	assert.NotNil(t, crs.Chapters[1].Lessons)
	assertContiguous(t, crs)

	// cached: ownership is still checked
	_, err := f.svc.GetCourse(ctx, other, crs.ID)
	assert.Equal(t, course.ErrNotFound, err)

	stranger := core.Session{UserID: "u-new", Role: core.RoleInstructor}
	_, err = f.svc.GetCourse(ctx, stranger, crs.ID)
	assert.Equal(t, course.ErrInstructorNotFound, err)

	_, err = f.svc.GetCourse(ctx, teacher, "missing")
	assert.Equal(t, course.ErrNotFound, errors.Cause(err))
}

// racingRepository runs `mutate` once, in the middle of the first structure read.
type racingRepository struct {
	course.Repository
	once   sync.Once
	mutate func()
}

func (repo *racingRepository) ListLessons(ctx context.Context, chapterIDs ...string) ([]course.Lesson, error) {
	repo.once.Do(repo.mutate)
	return repo.Repository.ListLessons(ctx, chapterIDs...)
}

func TestService_GetCourse_concurrentMutation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	crs := f.seed(t, teacher, "go", 1)
	f.pages.Revalidate(core.CourseEditPath(crs.ID)) // drop the seeded page

	repo := &racingRepository{Repository: f.repo}
	svc := course.NewService(repo, f.insSvc, f.pages)
	repo.mutate = func() {
		_, err := svc.CreateChapter(ctx, teacher, crs.ID, course.NewChapter{Title: "Added meanwhile"})
		require.NoError(t, err)
	}

	got, err := svc.GetCourse(ctx, teacher, crs.ID)
	require.NoError(t, err)
	assert.Len(t, got.Chapters, 1, "read started before the mutation")

	got, err = svc.GetCourse(ctx, teacher, crs.ID)
	require.NoError(t, err)
	assert.Len(t, got.Chapters, 2, "stale read must not be cached")
}

func TestService_UpdateCourse(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	crs := f.seed(t, teacher, "go")
	f.seed(t, teacher, "rust")

	uc := course.UpdateCourse(newCourse("Go 2", "go-2"))
	got, err := f.svc.UpdateCourse(ctx, teacher, crs.ID, uc)
	require.NoError(t, err)
	assert.Equal(t, "Go 2", got.Title)
	assert.Equal(t, "go-2", got.Slug)
	assert.ElementsMatch(t, []string{core.CourseEditPath(crs.ID), core.CourseListPath}, f.pages.Paths())

	uc.Slug = "rust"
	_, err = f.svc.UpdateCourse(ctx, teacher, crs.ID, uc)
	var vErr *core.ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, err = f.svc.UpdateCourse(ctx, other, crs.ID, course.UpdateCourse(newCourse("Hijack", "hijack")))
	assert.Equal(t, course.ErrNotFound, err)
}

func TestService_DeleteCourse(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	crs := f.seed(t, teacher, "go", 1)

	assert.Equal(t, course.ErrNotFound, f.svc.DeleteCourse(ctx, other, crs.ID))
	require.NoError(t, f.svc.DeleteCourse(ctx, teacher, crs.ID))

	_, err := f.svc.GetCourse(ctx, teacher, crs.ID)
	assert.Equal(t, course.ErrNotFound, errors.Cause(err))
}

func TestService_CreateChapter_appends(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	crs := f.seed(t, teacher, "go", 0, 0)

	ch, err := f.svc.CreateChapter(ctx, teacher, crs.ID, course.NewChapter{Title: "Third"})
	require.NoError(t, err)
	assert.Equal(t, 3, ch.Position)
	assert.NotNil(t, ch.Lessons)
	assert.Equal(t, []string{core.CourseEditPath(crs.ID)}, f.pages.Paths())

	_, err = f.svc.CreateChapter(ctx, other, crs.ID, course.NewChapter{Title: "Nope"})
	assert.Equal(t, course.ErrNotFound, err)
}

func TestService_UpdateChapter(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	crs := f.seed(t, teacher, "go", 0)
	foreign := f.seed(t, teacher, "rust", 0)

	ch, err := f.svc.UpdateChapter(ctx, teacher, crs.ID, crs.Chapters[0].ID, course.UpdateChapter{Title: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", ch.Title)
	assert.Equal(t, 1, ch.Position)

	_, err = f.svc.UpdateChapter(ctx, teacher, crs.ID, foreign.Chapters[0].ID, course.UpdateChapter{Title: "Renamed"})
	assert.Equal(t, course.ErrChapterNotFound, err)
}

func TestService_DeleteChapter_closesGap(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	crs := f.seed(t, teacher, "go", 1, 2, 0)

	require.NoError(t, f.svc.DeleteChapter(ctx, teacher, crs.ID, crs.Chapters[1].ID))

	got := f.structure(t, crs.ID)
	require.Len(t, got.Chapters, 2)
	assert.Equal(t, crs.Chapters[0].ID, got.Chapters[0].ID)
	assert.Equal(t, crs.Chapters[2].ID, got.Chapters[1].ID)
	assertContiguous(t, got)

	assert.Equal(t, course.ErrChapterNotFound, f.svc.DeleteChapter(ctx, teacher, crs.ID, "missing"))
}

func TestService_ReorderChapters(t *testing.T) {
	f := setup(t)
	crs := f.seed(t, teacher, "go", 0, 0, 0)
	a, b, c := crs.Chapters[0].ID, crs.Chapters[1].ID, crs.Chapters[2].ID

	tests := []struct {
		name    string
		sess    core.Session
		as      []position.Assignment
		wantErr error
		want    map[string]int
	}{
		{
			name:    "empty",
			sess:    teacher,
			wantErr: course.ErrNoChapters,
			want:    map[string]int{a: 1, b: 2, c: 3},
		},
		{
			name:    "foreign course",
			sess:    other,
			as:      []position.Assignment{{ID: a, Position: 1}, {ID: b, Position: 2}, {ID: c, Position: 3}},
			wantErr: course.ErrNotFound,
			want:    map[string]int{a: 1, b: 2, c: 3},
		},
		{
			name:    "partial",
			sess:    teacher,
			as:      []position.Assignment{{ID: c, Position: 1}, {ID: a, Position: 2}},
			wantErr: position.ErrMissingID,
			want:    map[string]int{a: 1, b: 2, c: 3},
		},
		{
			name:    "unknown chapter",
			sess:    teacher,
			as:      []position.Assignment{{ID: a, Position: 1}, {ID: b, Position: 2}, {ID: "x", Position: 3}},
			wantErr: position.ErrUnknownID,
			want:    map[string]int{a: 1, b: 2, c: 3},
		},
		{
			name:    "gap",
			sess:    teacher,
			as:      []position.Assignment{{ID: a, Position: 1}, {ID: b, Position: 2}, {ID: c, Position: 5}},
			wantErr: position.ErrBadPosition,
			want:    map[string]int{a: 1, b: 2, c: 3},
		},
		{
			name: "permutation",
			sess: teacher,
			as:   []position.Assignment{{ID: c, Position: 1}, {ID: a, Position: 2}, {ID: b, Position: 3}},
			want: map[string]int{c: 1, a: 2, b: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.ReorderChapters(context.Background(), tt.sess, crs.ID, tt.as)
			assert.Equal(t, tt.wantErr, errors.Cause(err))
			got := f.structure(t, crs.ID)
			assert.Equal(t, tt.want, chapterPositions(got))
			assertContiguous(t, got)
		})
	}
}

func TestService_CreateLesson_appends(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	crs := f.seed(t, teacher, "go", 2, 0)

	ls, err := f.svc.CreateLesson(ctx, teacher, crs.ID, crs.Chapters[0].ID, course.NewLesson{Title: "Third"})
	require.NoError(t, err)
	assert.Equal(t, 3, ls.Position)

	ls, err = f.svc.CreateLesson(ctx, teacher, crs.ID, crs.Chapters[1].ID, course.NewLesson{Title: "First"})
	require.NoError(t, err)
	assert.Equal(t, 1, ls.Position)

	_, err = f.svc.CreateLesson(ctx, teacher, crs.ID, "missing", course.NewLesson{Title: "Lost"})
	assert.Equal(t, course.ErrChapterNotFound, err)
}

func TestService_GetLesson(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	crs := f.seed(t, teacher, "go", 1, 1)
	first, second := crs.Chapters[0], crs.Chapters[1]

	ls, err := f.svc.GetLesson(ctx, teacher, crs.ID, first.ID, first.Lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, first.Lessons[0].Title, ls.Title)

	_, err = f.svc.GetLesson(ctx, teacher, crs.ID, first.ID, second.Lessons[0].ID)
	assert.Equal(t, course.ErrLessonNotFound, err)

	_, err = f.svc.GetLesson(ctx, other, crs.ID, first.ID, first.Lessons[0].ID)
	assert.Equal(t, course.ErrNotFound, err)
}

func TestService_UpdateLesson(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	crs := f.seed(t, teacher, "go", 1)
	ch := crs.Chapters[0]

	ls, err := f.svc.UpdateLesson(ctx, teacher, crs.ID, ch.ID, ch.Lessons[0].ID, course.UpdateLesson{
		Title:    "Edited",
		VideoKey: "uploads/video.mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, "Edited", ls.Title)
	assert.Equal(t, "uploads/video.mp4", ls.VideoKey)
	assert.Equal(t, 1, ls.Position)
}

func TestService_DeleteLesson_closesGap(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	crs := f.seed(t, teacher, "go", 3)
	ch := crs.Chapters[0]

	require.NoError(t, f.svc.DeleteLesson(ctx, teacher, ch.Lessons[0].ID, crs.ID, ch.ID))

	got := f.structure(t, crs.ID)
	require.Len(t, got.Chapters[0].Lessons, 2)
	assert.Equal(t, ch.Lessons[1].ID, got.Chapters[0].Lessons[0].ID)
	assertContiguous(t, got)

	assert.Equal(t, course.ErrLessonNotFound, f.svc.DeleteLesson(ctx, teacher, "missing", crs.ID, ch.ID))
}

func TestService_ReorderLessons(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	crs := f.seed(t, teacher, "go", 3, 1)
	ch := crs.Chapters[0]
	a, b, c := ch.Lessons[0].ID, ch.Lessons[1].ID, ch.Lessons[2].ID

	assert.Equal(t, course.ErrNoLessons, f.svc.ReorderLessons(ctx, teacher, ch.ID, nil, crs.ID))

	// a lesson of another chapter
	as := []position.Assignment{{ID: a, Position: 1}, {ID: b, Position: 2}, {ID: crs.Chapters[1].Lessons[0].ID, Position: 3}}
	assert.Equal(t, position.ErrUnknownID, errors.Cause(f.svc.ReorderLessons(ctx, teacher, ch.ID, as, crs.ID)))

	as = []position.Assignment{{ID: b, Position: 1}, {ID: c, Position: 2}, {ID: a, Position: 3}}
	require.NoError(t, f.svc.ReorderLessons(ctx, teacher, ch.ID, as, crs.ID))
	assert.Equal(t, []string{core.CourseEditPath(crs.ID)}, f.pages.Paths())

	got := f.structure(t, crs.ID)
	var ids []string
	for _, ls := range got.Chapters[0].Lessons {
		ids = append(ids, ls.ID)
	}
	assert.Equal(t, []string{b, c, a}, ids)
	assertContiguous(t, got)
}

func TestService_ResequenceCourse(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	crs := f.seed(t, teacher, "go", 2, 0)

	require.NoError(t, f.repo.SetChapterPosition(ctx, crs.ID, crs.Chapters[1].ID, 7))
	require.NoError(t, f.repo.SetLessonPosition(ctx, crs.Chapters[0].ID, crs.Chapters[0].Lessons[1].ID, 4))

	moved, err := f.svc.ResequenceCourse(ctx, admin, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)
	assertContiguous(t, f.structure(t, crs.ID))

	moved, err = f.svc.ResequenceCourse(ctx, admin, crs.ID)
	require.NoError(t, err)
	assert.Zero(t, moved)
}
