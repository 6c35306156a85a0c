package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mwalimu/core"
	"github.com/trezcool/mwalimu/core/course"
	"github.com/trezcool/mwalimu/core/instructor"
)

var errAbort = errors.New("abort")

// RunInstructorRepositoryTests checks an instructor.Repository implementation.
func RunInstructorRepositoryTests(t *testing.T, newRepos func(t *testing.T) Repos) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		repo := newRepos(t).Instructors
		ins := CreateInstructor(t, repo, "teach@test.cd", "user-1")
		require.NotEmpty(t, ins.ID)

		got, err := repo.GetInstructorByID(ctx, ins.ID)
		require.NoError(t, err)
		assert.Equal(t, "teach@test.cd", got.Email)
		assert.Equal(t, "user-1", got.UserID)

		got, err = repo.GetInstructorByUserID(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, ins.ID, got.ID)

		got, err = repo.GetInstructorByEmail(ctx, "TEACH@test.cd")
		require.NoError(t, err)
		assert.Equal(t, ins.ID, got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		repo := newRepos(t).Instructors
		_, err := repo.GetInstructorByID(ctx, "c5a2a3b8-3b3e-4a43-9c55-7f5f0e1f9a11")
		assert.Equal(t, instructor.ErrNotFound, err)
		_, err = repo.GetInstructorByID(ctx, "not-a-uuid")
		assert.Equal(t, instructor.ErrNotFound, err)
		_, err = repo.GetInstructorByUserID(ctx, "")
		assert.Equal(t, instructor.ErrNotFound, err)
		_, err = repo.GetInstructorByEmail(ctx, "nobody@test.cd")
		assert.Equal(t, instructor.ErrNotFound, err)
	})

	t.Run("uniqueness", func(t *testing.T) {
		repo := newRepos(t).Instructors
		CreateInstructor(t, repo, "teach@test.cd", "user-1")
		CreateInstructor(t, repo, "pending1@test.cd", "")
		CreateInstructor(t, repo, "pending2@test.cd", "") // many pending invitations have no user

		_, err := repo.CreateInstructor(ctx, instructor.Instructor{Email: "Teach@test.cd", CreatedAt: Now(), UpdatedAt: Now()})
		assert.Equal(t, instructor.ErrEmailExists, errors.Cause(err))
		_, err = repo.CreateInstructor(ctx, instructor.Instructor{Email: "other@test.cd", UserID: "user-1", CreatedAt: Now(), UpdatedAt: Now()})
		assert.Equal(t, instructor.ErrUserExists, errors.Cause(err))
	})

	t.Run("claim invitation", func(t *testing.T) {
		repo := newRepos(t).Instructors
		pending := CreateInstructor(t, repo, "invited@test.cd", "")
		assert.True(t, pending.IsPending())

		pending.UserID = "user-9"
		pending.UpdatedAt = Now()
		claimed, err := repo.UpdateInstructor(ctx, pending)
		require.NoError(t, err)
		assert.Equal(t, "user-9", claimed.UserID)
		assert.False(t, claimed.IsPending())

		got, err := repo.GetInstructorByUserID(ctx, "user-9")
		require.NoError(t, err)
		assert.Equal(t, pending.ID, got.ID)
	})

	t.Run("query ordered by creation", func(t *testing.T) {
		repo := newRepos(t).Instructors
		now := Now()
		second := CreateInstructor(t, repo, "b@test.cd", "u2", now.Add(time.Minute))
		first := CreateInstructor(t, repo, "a@test.cd", "u1", now)
		third := CreateInstructor(t, repo, "c@test.cd", "", now.Add(2*time.Minute))

		list, err := repo.QueryInstructors(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
	})
}

// RunCourseRepositoryTests checks a course.Repository implementation.
func RunCourseRepositoryTests(t *testing.T, newRepos func(t *testing.T) Repos) {
	ctx := context.Background()

	setup := func(t *testing.T) (course.Repository, instructor.Instructor) {
		repos := newRepos(t)
		return repos.Courses, CreateInstructor(t, repos.Instructors, "teach@test.cd", "user-1")
	}

	t.Run("course crud", func(t *testing.T) {
		repo, ins := setup(t)
		crs := CreateCourse(t, repo, ins.ID, "Go Basics")

		got, err := repo.GetCourse(ctx, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, "Go Basics", got.Title)
		assert.Equal(t, "go-basics", got.Slug)
		assert.Equal(t, ins.ID, got.InstructorID)

		got.Title = "Go Fundamentals"
		got.Status = course.StatusPublished
		got.UpdatedAt = Now()
		updated, err := repo.UpdateCourse(ctx, got)
		require.NoError(t, err)
		assert.Equal(t, "Go Fundamentals", updated.Title)
		assert.Equal(t, course.StatusPublished, updated.Status)

		require.NoError(t, repo.DeleteCourse(ctx, crs.ID))
		_, err = repo.GetCourse(ctx, crs.ID)
		assert.Equal(t, course.ErrNotFound, err)
		assert.Equal(t, course.ErrNotFound, repo.DeleteCourse(ctx, crs.ID))
		_, err = repo.GetCourse(ctx, "lol")
		assert.Equal(t, course.ErrNotFound, err)
	})

	t.Run("slug uniqueness", func(t *testing.T) {
		repo, ins := setup(t)
		crs := CreateCourse(t, repo, ins.ID, "Go Basics")
		other := CreateCourse(t, repo, ins.ID, "Rust Basics")

		exists, err := repo.SlugExists(ctx, "go-basics", "")
		require.NoError(t, err)
		assert.True(t, exists)
		exists, err = repo.SlugExists(ctx, "go-basics", crs.ID)
		require.NoError(t, err)
		assert.False(t, exists)

		dup := crs
		dup.Title = "Go Basics again"
		_, err = repo.CreateCourse(ctx, dup)
		assert.Equal(t, course.ErrSlugExists, errors.Cause(err))

		other.Slug = "go-basics"
		_, err = repo.UpdateCourse(ctx, other)
		assert.Equal(t, course.ErrSlugExists, errors.Cause(err))
	})

	t.Run("query courses", func(t *testing.T) {
		repos := newRepos(t)
		repo := repos.Courses
		ins1 := CreateInstructor(t, repos.Instructors, "one@test.cd", "user-1")
		ins2 := CreateInstructor(t, repos.Instructors, "two@test.cd", "user-2")

		now := Now()
		c2 := CreateCourse(t, repo, ins1.ID, "Beta", now.Add(time.Minute))
		c1 := CreateCourse(t, repo, ins1.ID, "Alpha", now)
		c3 := CreateCourse(t, repo, ins2.ID, "Gamma", now.Add(2*time.Minute))

		ids := func(courses []course.Course) []string {
			out := make([]string, 0, len(courses))
			for _, c := range courses {
				out = append(out, c.ID)
			}
			return out
		}

		tests := []struct {
			name   string
			filter course.QueryFilter
			want   []string
		}{
			{name: "all, oldest first", want: []string{c1.ID, c2.ID, c3.ID}},
			{name: "instructor", filter: course.QueryFilter{InstructorID: ins1.ID}, want: []string{c1.ID, c2.ID}},
			{name: "search", filter: course.QueryFilter{Search: "amm"}, want: []string{c3.ID}},
			{name: "status", filter: course.QueryFilter{Status: course.StatusPublished}, want: []string{}},
			{
				name:   "title desc",
				filter: course.QueryFilter{Ordering: []core.DBOrdering{{Field: "title"}}},
				want:   []string{c3.ID, c2.ID, c1.ID},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.filter.Clean()
				got, err := repo.QueryCourses(ctx, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, tt.want, ids(got))
			})
		}
	})

	t.Run("chapters", func(t *testing.T) {
		repo, ins := setup(t)
		crs := CreateCourse(t, repo, ins.ID, "Go Basics")
		other := CreateCourse(t, repo, ins.ID, "Rust Basics")

		last, err := repo.MaxChapterPosition(ctx, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, last)

		ch2 := CreateChapter(t, repo, crs.ID, "Two", 2)
		ch1 := CreateChapter(t, repo, crs.ID, "One", 1)
		CreateChapter(t, repo, other.ID, "Elsewhere", 1)

		last, err = repo.MaxChapterPosition(ctx, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, last)
		assert.Equal(t, []string{ch1.ID, ch2.ID}, ChapterIDs(t, repo, crs.ID))

		ch1.Title = "First"
		ch1.UpdatedAt = Now()
		renamed, err := repo.UpdateChapter(ctx, ch1)
		require.NoError(t, err)
		assert.Equal(t, "First", renamed.Title)
		assert.Equal(t, 1, renamed.Position)

		assert.Equal(t, course.ErrChapterNotFound, repo.SetChapterPosition(ctx, other.ID, ch1.ID, 3), "scoped by course")

		require.NoError(t, repo.DeleteChapter(ctx, ch2.ID))
		_, err = repo.GetChapter(ctx, ch2.ID)
		assert.Equal(t, course.ErrChapterNotFound, err)
	})

	t.Run("lessons", func(t *testing.T) {
		repo, ins := setup(t)
		crs := CreateCourse(t, repo, ins.ID, "Go Basics")
		chA := CreateChapter(t, repo, crs.ID, "A", 1)
		chB := CreateChapter(t, repo, crs.ID, "B", 2)

		a2 := CreateLesson(t, repo, chA.ID, "A two", 2)
		a1 := CreateLesson(t, repo, chA.ID, "A one", 1)
		b1 := CreateLesson(t, repo, chB.ID, "B one", 1)

		last, err := repo.MaxLessonPosition(ctx, chA.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, last)
		assert.Equal(t, []string{a1.ID, a2.ID}, LessonIDs(t, repo, chA.ID))

		both, err := repo.ListLessons(ctx, chA.ID, chB.ID)
		require.NoError(t, err)
		assert.Len(t, both, 3)
		none, err := repo.ListLessons(ctx)
		require.NoError(t, err)
		assert.Empty(t, none)

		a1.Title = "Intro"
		a1.Description = "Say hello"
		a1.UpdatedAt = Now()
		updated, err := repo.UpdateLesson(ctx, a1)
		require.NoError(t, err)
		assert.Equal(t, "Intro", updated.Title)
		assert.Equal(t, "Say hello", updated.Description)
		assert.Equal(t, 1, updated.Position)

		assert.Equal(t, course.ErrLessonNotFound, repo.SetLessonPosition(ctx, chA.ID, b1.ID, 3), "scoped by chapter")

		require.NoError(t, repo.DeleteLesson(ctx, a2.ID))
		_, err = repo.GetLesson(ctx, a2.ID)
		assert.Equal(t, course.ErrLessonNotFound, err)
	})

	t.Run("delete cascades", func(t *testing.T) {
		repo, ins := setup(t)
		crs := CreateCourse(t, repo, ins.ID, "Go Basics")
		ch := CreateChapter(t, repo, crs.ID, "One", 1)
		ls := CreateLesson(t, repo, ch.ID, "Lesson", 1)

		require.NoError(t, repo.DeleteCourse(ctx, crs.ID))
		_, err := repo.GetChapter(ctx, ch.ID)
		assert.Equal(t, course.ErrChapterNotFound, err)
		_, err = repo.GetLesson(ctx, ls.ID)
		assert.Equal(t, course.ErrLessonNotFound, err)
	})

	t.Run("transaction commit allows transient duplicates", func(t *testing.T) {
		repo, ins := setup(t)
		crs := CreateCourse(t, repo, ins.ID, "Go Basics")
		ch1 := CreateChapter(t, repo, crs.ID, "One", 1)
		ch2 := CreateChapter(t, repo, crs.ID, "Two", 2)

		err := repo.WithinTx(ctx, func(tx course.Repository) error {
			if err := tx.LockCourse(ctx, crs.ID); err != nil {
				return err
			}
			if err := tx.SetChapterPosition(ctx, crs.ID, ch1.ID, 2); err != nil {
				return err
			}
			return tx.SetChapterPosition(ctx, crs.ID, ch2.ID, 1)
		})
		require.NoError(t, err)
		assert.Equal(t, []string{ch2.ID, ch1.ID}, ChapterIDs(t, repo, crs.ID))
	})

	t.Run("transaction rollback", func(t *testing.T) {
		repo, ins := setup(t)
		crs := CreateCourse(t, repo, ins.ID, "Go Basics")
		ch1 := CreateChapter(t, repo, crs.ID, "One", 1)
		ch2 := CreateChapter(t, repo, crs.ID, "Two", 2)

		err := repo.WithinTx(ctx, func(tx course.Repository) error {
			if err := tx.SetChapterPosition(ctx, crs.ID, ch1.ID, 2); err != nil {
				return err
			}
			if err := tx.SetChapterPosition(ctx, crs.ID, ch2.ID, 1); err != nil {
				return err
			}
			CreateChapter(t, tx, crs.ID, "Three", 3)
			return errAbort
		})
		assert.Equal(t, errAbort, errors.Cause(err))
		assert.Equal(t, []string{ch1.ID, ch2.ID}, ChapterIDs(t, repo, crs.ID))
	})

	t.Run("lock missing course", func(t *testing.T) {
		repo, _ := setup(t)
		err := repo.WithinTx(ctx, func(tx course.Repository) error {
			return tx.LockCourse(ctx, "c5a2a3b8-3b3e-4a43-9c55-7f5f0e1f9a11")
		})
		assert.Equal(t, course.ErrNotFound, errors.Cause(err))
	})
}
