package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/mwalimu/core/course"
)

type courseRepository struct {
	db   *DB
	inTx bool // the store lock is held by WithinTx
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) rlock() func() {
	if repo.inTx {
		return func() {}
	}
	repo.db.mu.RLock()
	return repo.db.mu.RUnlock
}

func (repo *courseRepository) lock() func() {
	if repo.inTx {
		return func() {}
	}
	repo.db.mu.Lock()
	return repo.db.mu.Unlock
}

func (repo *courseRepository) WithinTx(ctx context.Context, fn func(repo course.Repository) error) error {
	if repo.inTx { // already within a transaction
		return fn(repo)
	}

	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	snap := repo.db.snapshot()
	if err := fn(&courseRepository{db: repo.db, inTx: true}); err != nil {
		repo.db.restore(snap)
		return err
	}
	if err := ctx.Err(); err != nil {
		repo.db.restore(snap)
		return err
	}
	return nil
}

func (repo *courseRepository) LockCourse(_ context.Context, id string) error {
	defer repo.rlock()()
	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	return nil
}

// Courses

func (repo *courseRepository) slugTaken(slug, excludeID string) bool {
	for _, crs := range repo.db.courses {
		if crs.Slug == slug && crs.ID != excludeID {
			return true
		}
	}
	return false
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	defer repo.lock()()

	if repo.slugTaken(crs.Slug, "") {
		return course.Course{}, course.ErrSlugExists
	}
	crs.ID = uuid.New().String()
	crs.Chapters = nil
	repo.db.courses[crs.ID] = crs
	return crs, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	defer repo.rlock()()

	if crs, ok := repo.db.courses[id]; ok {
		return crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter) ([]course.Course, error) {
	defer repo.rlock()()

	search := strings.ToLower(filter.Search)
	courses := make([]course.Course, 0)
	for _, crs := range repo.db.courses {
		if filter.InstructorID != "" && crs.InstructorID != filter.InstructorID {
			continue
		}
		if filter.Status != "" && crs.Status != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(crs.Title), search) &&
			!strings.Contains(strings.ToLower(crs.SmallDescription), search) {
			continue
		}
		courses = append(courses, crs)
	}

	sort.Slice(courses, func(i, j int) bool {
		for _, ord := range filter.Ordering {
			c := compareCourses(courses[i], courses[j], ord.Field)
			if c == 0 {
				continue
			}
			return (c < 0) == ord.Ascending
		}
		return courses[i].ID < courses[j].ID
	})
	return courses, nil
}

func compareCourses(a, b course.Course, field string) int {
	switch field {
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "title":
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case "price":
		return a.Price - b.Price
	}
	return 0
}

func (repo *courseRepository) SlugExists(_ context.Context, slug, excludeID string) (bool, error) {
	defer repo.rlock()()
	return repo.slugTaken(slug, excludeID), nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	defer repo.lock()()

	orig, ok := repo.db.courses[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	if repo.slugTaken(crs.Slug, crs.ID) {
		return course.Course{}, course.ErrSlugExists
	}
	crs.CreatedAt = orig.CreatedAt
	crs.InstructorID = orig.InstructorID
	crs.Chapters = nil
	repo.db.courses[crs.ID] = crs
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	defer repo.lock()()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.courses, id)
	for chID, ch := range repo.db.chapters {
		if ch.CourseID == id {
			repo.deleteChapter(chID)
		}
	}
	return nil
}

// Chapters

func (repo *courseRepository) CreateChapter(_ context.Context, ch course.Chapter) (course.Chapter, error) {
	defer repo.lock()()

	if _, ok := repo.db.courses[ch.CourseID]; !ok {
		return course.Chapter{}, course.ErrNotFound
	}
	ch.ID = uuid.New().String()
	ch.Lessons = nil
	repo.db.chapters[ch.ID] = ch
	return ch, nil
}

func (repo *courseRepository) GetChapter(_ context.Context, id string) (course.Chapter, error) {
	defer repo.rlock()()

	if ch, ok := repo.db.chapters[id]; ok {
		return ch, nil
	}
	return course.Chapter{}, course.ErrChapterNotFound
}

func (repo *courseRepository) ListChapters(_ context.Context, courseID string) ([]course.Chapter, error) {
	defer repo.rlock()()

	chapters := make([]course.Chapter, 0)
	for _, ch := range repo.db.chapters {
		if ch.CourseID == courseID {
			chapters = append(chapters, ch)
		}
	}
	sort.Slice(chapters, func(i, j int) bool {
		if chapters[i].Position == chapters[j].Position {
			return chapters[i].CreatedAt.Before(chapters[j].CreatedAt)
		}
		return chapters[i].Position < chapters[j].Position
	})
	return chapters, nil
}

func (repo *courseRepository) MaxChapterPosition(_ context.Context, courseID string) (int, error) {
	defer repo.rlock()()

	var last int
	for _, ch := range repo.db.chapters {
		if ch.CourseID == courseID && ch.Position > last {
			last = ch.Position
		}
	}
	return last, nil
}

func (repo *courseRepository) UpdateChapter(_ context.Context, ch course.Chapter) (course.Chapter, error) {
	defer repo.lock()()

	orig, ok := repo.db.chapters[ch.ID]
	if !ok {
		return course.Chapter{}, course.ErrChapterNotFound
	}
	orig.Title = ch.Title
	orig.UpdatedAt = ch.UpdatedAt
	repo.db.chapters[ch.ID] = orig
	return orig, nil
}

func (repo *courseRepository) SetChapterPosition(_ context.Context, courseID, id string, pos int) error {
	defer repo.lock()()

	ch, ok := repo.db.chapters[id]
	if !ok || ch.CourseID != courseID {
		return course.ErrChapterNotFound
	}
	ch.Position = pos
	repo.db.chapters[id] = ch
	return nil
}

func (repo *courseRepository) deleteChapter(id string) {
	delete(repo.db.chapters, id)
	for lsID, ls := range repo.db.lessons {
		if ls.ChapterID == id {
			delete(repo.db.lessons, lsID)
		}
	}
}

func (repo *courseRepository) DeleteChapter(_ context.Context, id string) error {
	defer repo.lock()()

	if _, ok := repo.db.chapters[id]; !ok {
		return course.ErrChapterNotFound
	}
	repo.deleteChapter(id)
	return nil
}

// Lessons

func (repo *courseRepository) CreateLesson(_ context.Context, ls course.Lesson) (course.Lesson, error) {
	defer repo.lock()()

	if _, ok := repo.db.chapters[ls.ChapterID]; !ok {
		return course.Lesson{}, course.ErrChapterNotFound
	}
	ls.ID = uuid.New().String()
	repo.db.lessons[ls.ID] = ls
	return ls, nil
}

func (repo *courseRepository) GetLesson(_ context.Context, id string) (course.Lesson, error) {
	defer repo.rlock()()

	if ls, ok := repo.db.lessons[id]; ok {
		return ls, nil
	}
	return course.Lesson{}, course.ErrLessonNotFound
}

func (repo *courseRepository) ListLessons(_ context.Context, chapterIDs ...string) ([]course.Lesson, error) {
	defer repo.rlock()()

	wanted := make(map[string]bool, len(chapterIDs))
	for _, id := range chapterIDs {
		wanted[id] = true
	}
	lessons := make([]course.Lesson, 0)
	for _, ls := range repo.db.lessons {
		if wanted[ls.ChapterID] {
			lessons = append(lessons, ls)
		}
	}
	sort.Slice(lessons, func(i, j int) bool {
		a, b := lessons[i], lessons[j]
		if a.ChapterID != b.ChapterID {
			return a.ChapterID < b.ChapterID
		}
		if a.Position == b.Position {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Position < b.Position
	})
	return lessons, nil
}

func (repo *courseRepository) MaxLessonPosition(_ context.Context, chapterID string) (int, error) {
	defer repo.rlock()()

	var last int
	for _, ls := range repo.db.lessons {
		if ls.ChapterID == chapterID && ls.Position > last {
			last = ls.Position
		}
	}
	return last, nil
}

func (repo *courseRepository) UpdateLesson(_ context.Context, ls course.Lesson) (course.Lesson, error) {
	defer repo.lock()()

	orig, ok := repo.db.lessons[ls.ID]
	if !ok {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	ls.ChapterID = orig.ChapterID
	ls.Position = orig.Position
	ls.CreatedAt = orig.CreatedAt
	repo.db.lessons[ls.ID] = ls
	return ls, nil
}

func (repo *courseRepository) SetLessonPosition(_ context.Context, chapterID, id string, pos int) error {
	defer repo.lock()()

	ls, ok := repo.db.lessons[id]
	if !ok || ls.ChapterID != chapterID {
		return course.ErrLessonNotFound
	}
	ls.Position = pos
	repo.db.lessons[id] = ls
	return nil
}

func (repo *courseRepository) DeleteLesson(_ context.Context, id string) error {
	defer repo.lock()()

	if _, ok := repo.db.lessons[id]; !ok {
		return course.ErrLessonNotFound
	}
	delete(repo.db.lessons, id)
	return nil
}
