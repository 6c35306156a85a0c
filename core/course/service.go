package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mwalimu/core"
	"github.com/trezcool/mwalimu/core/instructor"
	"github.com/trezcool/mwalimu/core/position"
)

var (
	// errors
	ErrNotFound           = errors.New("course not found")
	ErrChapterNotFound    = errors.New("chapter not found in course")
	ErrLessonNotFound     = errors.New("lesson not found in chapter")
	ErrSlugExists         = errors.New("a course with this slug already exists")
	ErrNoChapters         = errors.New("no chapters provided for reordering")
	ErrNoLessons          = errors.New("no lessons provided for reordering")
	ErrInstructorNotFound = instructor.ErrNotFound
)

type (
	Repository interface {
		// WithinTx runs fn against a Repository bound to a single transaction.
		// The transaction is committed when fn returns nil and rolled back otherwise.
		WithinTx(ctx context.Context, fn func(repo Repository) error) error
		// LockCourse serializes the sibling mutations of a course until the end of the transaction.
		LockCourse(ctx context.Context, id string) error

		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		QueryCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
		SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		CreateChapter(ctx context.Context, ch Chapter) (Chapter, error)
		GetChapter(ctx context.Context, id string) (Chapter, error)
		// ListChapters returns the chapters of a course ordered by position (lessons are not loaded).
		ListChapters(ctx context.Context, courseID string) ([]Chapter, error)
		MaxChapterPosition(ctx context.Context, courseID string) (int, error)
		UpdateChapter(ctx context.Context, ch Chapter) (Chapter, error)
		SetChapterPosition(ctx context.Context, courseID, id string, pos int) error
		DeleteChapter(ctx context.Context, id string) error

		CreateLesson(ctx context.Context, ls Lesson) (Lesson, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)
		// ListLessons returns the lessons of the given chapters ordered by position.
		ListLessons(ctx context.Context, chapterIDs ...string) ([]Lesson, error)
		MaxLessonPosition(ctx context.Context, chapterID string) (int, error)
		UpdateLesson(ctx context.Context, ls Lesson) (Lesson, error)
		SetLessonPosition(ctx context.Context, chapterID, id string, pos int) error
		DeleteLesson(ctx context.Context, id string) error
	}

	InstructorService interface {
		EnsureForSession(ctx context.Context, sess core.Session) (instructor.Instructor, error)
		GetBySession(ctx context.Context, sess core.Session) (instructor.Instructor, error)
	}

	Service struct {
		repo        Repository
		instructors InstructorService
		pages       core.PageCache
	}
)

func NewService(repo Repository, instructors InstructorService, pages core.PageCache) *Service {
	return &Service{repo: repo, instructors: instructors, pages: pages}
}

// authorize checks that the session may edit crs: admins edit any course, instructors their own.
func (svc *Service) authorize(ctx context.Context, sess core.Session, crs Course) error {
	if sess.IsAdmin() {
		return nil
	}
	ins, err := svc.instructors.GetBySession(ctx, sess)
	if err != nil {
		if errors.Cause(err) == instructor.ErrNotFound {
			return ErrInstructorNotFound
		}
		return errors.Wrap(err, "getting instructor")
	}
	if crs.InstructorID != ins.ID {
		return ErrNotFound // do not leak other instructors' courses
	}
	return nil
}

func (svc *Service) ownedCourse(ctx context.Context, repo Repository, sess core.Session, id string) (Course, error) {
	crs, err := repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err = svc.authorize(ctx, sess, crs); err != nil {
		return Course{}, err
	}
	return crs, nil
}

// courseChapter loads the chapter and checks it belongs to the course.
func courseChapter(ctx context.Context, repo Repository, courseID, chapterID string) (Chapter, error) {
	ch, err := repo.GetChapter(ctx, chapterID)
	if err != nil {
		if errors.Cause(err) == ErrChapterNotFound {
			return Chapter{}, ErrChapterNotFound
		}
		return Chapter{}, errors.Wrap(err, "getting chapter")
	}
	if ch.CourseID != courseID {
		return Chapter{}, ErrChapterNotFound
	}
	return ch, nil
}

// chapterLesson loads the lesson and checks it belongs to the chapter.
func chapterLesson(ctx context.Context, repo Repository, chapterID, lessonID string) (Lesson, error) {
	ls, err := repo.GetLesson(ctx, lessonID)
	if err != nil {
		if errors.Cause(err) == ErrLessonNotFound {
			return Lesson{}, ErrLessonNotFound
		}
		return Lesson{}, errors.Wrap(err, "getting lesson")
	}
	if ls.ChapterID != chapterID {
		return Lesson{}, ErrLessonNotFound
	}
	return ls, nil
}

func (svc *Service) checkSlug(ctx context.Context, slug, excludeID string) error {
	exists, err := svc.repo.SlugExists(ctx, slug, excludeID)
	if err != nil {
		return errors.Wrap(err, "checking slug uniqueness")
	}
	if exists {
		return slugTakenErr()
	}
	return nil
}

func slugTakenErr() error {
	return core.NewValidationError(ErrSlugExists, core.FieldError{Field: "slug", Error: ErrSlugExists.Error()})
}

// inPositionOrder returns a sorted copy of `as`, so that concurrent reorders update rows in the same order.
func inPositionOrder(as []position.Assignment) []position.Assignment {
	ordered := append([]position.Assignment(nil), as...)
	position.Sort(ordered)
	return ordered
}

func (svc *Service) revalidate(courseID string) {
	svc.pages.Revalidate(core.CourseEditPath(courseID))
}

// Courses

func (svc *Service) CreateCourse(ctx context.Context, sess core.Session, nc NewCourse) (Course, error) {
	ins, err := svc.instructors.EnsureForSession(ctx, sess)
	if err != nil {
		return Course{}, errors.Wrap(err, "ensuring instructor")
	}
	if err = svc.checkSlug(ctx, nc.Slug, ""); err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	crs, err := svc.repo.CreateCourse(ctx, Course{
		Title:            nc.Title,
		Slug:             nc.Slug,
		SmallDescription: nc.SmallDescription,
		Description:      nc.Description,
		FileKey:          nc.FileKey,
		Price:            nc.Price,
		Duration:         nc.Duration,
		Level:            nc.Level,
		Status:           nc.Status,
		InstructorID:     ins.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		if errors.Cause(err) == ErrSlugExists {
			return Course{}, slugTakenErr()
		}
		return Course{}, errors.Wrap(err, "creating course")
	}
	svc.pages.Revalidate(core.CourseListPath)
	return crs, nil
}

func (svc *Service) UpdateCourse(ctx context.Context, sess core.Session, id string, uc UpdateCourse) (Course, error) {
	crs, err := svc.ownedCourse(ctx, svc.repo, sess, id)
	if err != nil {
		return Course{}, err
	}
	if err = svc.checkSlug(ctx, uc.Slug, crs.ID); err != nil {
		return Course{}, err
	}

	crs = uc.apply(crs)
	crs.UpdatedAt = time.Now().UTC()
	if crs, err = svc.repo.UpdateCourse(ctx, crs); err != nil {
		if errors.Cause(err) == ErrSlugExists {
			return Course{}, slugTakenErr()
		}
		return Course{}, errors.Wrap(err, "updating course")
	}
	svc.revalidate(crs.ID)
	svc.pages.Revalidate(core.CourseListPath)
	return crs, nil
}

// QueryCourses lists the session instructor's courses; admins see every course.
func (svc *Service) QueryCourses(ctx context.Context, sess core.Session, filter QueryFilter) ([]Course, error) {
	filter.Clean()
	if !sess.IsAdmin() {
		ins, err := svc.instructors.GetBySession(ctx, sess)
		if err != nil {
			if errors.Cause(err) == instructor.ErrNotFound {
				return []Course{}, nil // no course created yet
			}
			return nil, errors.Wrap(err, "getting instructor")
		}
		filter.InstructorID = ins.ID
	}
	return svc.repo.QueryCourses(ctx, filter)
}

// GetCourse returns the course with its chapters and lessons ordered by position.
// The structure is served from the page cache until a mutation revalidates it.
func (svc *Service) GetCourse(ctx context.Context, sess core.Session, id string) (Course, error) {
	path := core.CourseEditPath(id)
	if cached, ok := svc.pages.Get(path); ok {
		if crs, ok := cached.(Course); ok {
			if err := svc.authorize(ctx, sess, crs); err != nil {
				return Course{}, err
			}
			return crs, nil
		}
	}

	gen := svc.pages.Generation(path)
	crs, err := svc.ownedCourse(ctx, svc.repo, sess, id)
	if err != nil {
		return Course{}, err
	}
	if crs.Chapters, err = loadStructure(ctx, svc.repo, crs.ID); err != nil {
		return Course{}, err
	}
	svc.pages.SetIfCurrent(path, gen, crs) // skipped when a mutation raced the read
	return crs, nil
}

func loadStructure(ctx context.Context, repo Repository, courseID string) ([]Chapter, error) {
	chapters, err := repo.ListChapters(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "listing chapters")
	}
	if len(chapters) == 0 {
		return []Chapter{}, nil
	}

	ids := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		ids = append(ids, ch.ID)
	}
	lessons, err := repo.ListLessons(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "listing lessons")
	}

	byChapter := make(map[string][]Lesson, len(chapters))
	for _, ls := range lessons {
		byChapter[ls.ChapterID] = append(byChapter[ls.ChapterID], ls)
	}
	for i := range chapters {
		chapters[i].Lessons = byChapter[chapters[i].ID]
		if chapters[i].Lessons == nil {
			chapters[i].Lessons = []Lesson{}
		}
	}
	return chapters, nil
}

func (svc *Service) DeleteCourse(ctx context.Context, sess core.Session, id string) error {
	crs, err := svc.ownedCourse(ctx, svc.repo, sess, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteCourse(ctx, crs.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	svc.revalidate(crs.ID)
	svc.pages.Revalidate(core.CourseListPath)
	return nil
}

// ResequenceCourse renumbers the chapters of a course and the lessons of each chapter 1..N,
// keeping their current order. It returns the number of repositioned items.
func (svc *Service) ResequenceCourse(ctx context.Context, sess core.Session, courseID string) (int, error) {
	var moved int
	err := svc.repo.WithinTx(ctx, func(repo Repository) error {
		crs, err := svc.ownedCourse(ctx, repo, sess, courseID)
		if err != nil {
			return err
		}
		if err = repo.LockCourse(ctx, crs.ID); err != nil {
			return errors.Wrap(err, "locking course")
		}

		chapters, err := loadStructure(ctx, repo, crs.ID)
		if err != nil {
			return err
		}
		for i, ch := range chapters {
			if ch.Position != i+1 {
				if err = repo.SetChapterPosition(ctx, crs.ID, ch.ID, i+1); err != nil {
					return errors.Wrap(err, "setting chapter position")
				}
				moved++
			}
			for j, ls := range ch.Lessons {
				if ls.Position != j+1 {
					if err = repo.SetLessonPosition(ctx, ch.ID, ls.ID, j+1); err != nil {
						return errors.Wrap(err, "setting lesson position")
					}
					moved++
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	svc.revalidate(courseID)
	return moved, nil
}

// Chapters

// CreateChapter appends a chapter after the current last one.
func (svc *Service) CreateChapter(ctx context.Context, sess core.Session, courseID string, nc NewChapter) (Chapter, error) {
	var ch Chapter
	err := svc.repo.WithinTx(ctx, func(repo Repository) error {
		crs, err := svc.ownedCourse(ctx, repo, sess, courseID)
		if err != nil {
			return err
		}
		if err = repo.LockCourse(ctx, crs.ID); err != nil {
			return errors.Wrap(err, "locking course")
		}

		last, err := repo.MaxChapterPosition(ctx, crs.ID)
		if err != nil {
			return errors.Wrap(err, "getting max chapter position")
		}
		now := time.Now().UTC()
		ch, err = repo.CreateChapter(ctx, Chapter{
			CourseID:  crs.ID,
			Title:     nc.Title,
			Position:  position.Next(last),
			CreatedAt: now,
			UpdatedAt: now,
		})
		return errors.Wrap(err, "creating chapter")
	})
	if err != nil {
		return Chapter{}, err
	}
	ch.Lessons = []Lesson{}
	svc.revalidate(courseID)
	return ch, nil
}

func (svc *Service) UpdateChapter(ctx context.Context, sess core.Session, courseID, chapterID string, uc UpdateChapter) (Chapter, error) {
	crs, err := svc.ownedCourse(ctx, svc.repo, sess, courseID)
	if err != nil {
		return Chapter{}, err
	}
	ch, err := courseChapter(ctx, svc.repo, crs.ID, chapterID)
	if err != nil {
		return Chapter{}, err
	}

	ch.Title = uc.Title
	ch.UpdatedAt = time.Now().UTC()
	if ch, err = svc.repo.UpdateChapter(ctx, ch); err != nil {
		return Chapter{}, errors.Wrap(err, "updating chapter")
	}
	svc.revalidate(courseID)
	return ch, nil
}

// DeleteChapter removes the chapter (and its lessons) then closes the gap it leaves.
func (svc *Service) DeleteChapter(ctx context.Context, sess core.Session, courseID, chapterID string) error {
	err := svc.repo.WithinTx(ctx, func(repo Repository) error {
		crs, err := svc.ownedCourse(ctx, repo, sess, courseID)
		if err != nil {
			return err
		}
		if err = repo.LockCourse(ctx, crs.ID); err != nil {
			return errors.Wrap(err, "locking course")
		}
		ch, err := courseChapter(ctx, repo, crs.ID, chapterID)
		if err != nil {
			return err
		}
		if err = repo.DeleteChapter(ctx, ch.ID); err != nil {
			return errors.Wrap(err, "deleting chapter")
		}

		remaining, err := repo.ListChapters(ctx, crs.ID)
		if err != nil {
			return errors.Wrap(err, "listing chapters")
		}
		for i, c := range remaining {
			if c.Position == i+1 {
				continue
			}
			if err = repo.SetChapterPosition(ctx, crs.ID, c.ID, i+1); err != nil {
				return errors.Wrap(err, "resequencing chapters")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	svc.revalidate(courseID)
	return nil
}

// ReorderChapters persists a full permutation of the course chapters.
func (svc *Service) ReorderChapters(ctx context.Context, sess core.Session, courseID string, as []position.Assignment) error {
	if len(as) == 0 {
		return ErrNoChapters
	}
	err := svc.repo.WithinTx(ctx, func(repo Repository) error {
		crs, err := svc.ownedCourse(ctx, repo, sess, courseID)
		if err != nil {
			return err
		}
		if err = repo.LockCourse(ctx, crs.ID); err != nil {
			return errors.Wrap(err, "locking course")
		}

		chapters, err := repo.ListChapters(ctx, crs.ID)
		if err != nil {
			return errors.Wrap(err, "listing chapters")
		}
		siblings := make([]string, 0, len(chapters))
		for _, ch := range chapters {
			siblings = append(siblings, ch.ID)
		}
		if err = position.Validate(as, siblings); err != nil {
			return err
		}

		for _, a := range inPositionOrder(as) {
			if err = repo.SetChapterPosition(ctx, crs.ID, a.ID, a.Position); err != nil {
				return errors.Wrap(err, "setting chapter position")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	svc.revalidate(courseID)
	return nil
}

// Lessons

// CreateLesson appends a lesson after the current last one of the chapter.
func (svc *Service) CreateLesson(ctx context.Context, sess core.Session, courseID, chapterID string, nl NewLesson) (Lesson, error) {
	var ls Lesson
	err := svc.repo.WithinTx(ctx, func(repo Repository) error {
		crs, err := svc.ownedCourse(ctx, repo, sess, courseID)
		if err != nil {
			return err
		}
		if err = repo.LockCourse(ctx, crs.ID); err != nil {
			return errors.Wrap(err, "locking course")
		}
		ch, err := courseChapter(ctx, repo, crs.ID, chapterID)
		if err != nil {
			return err
		}

		last, err := repo.MaxLessonPosition(ctx, ch.ID)
		if err != nil {
			return errors.Wrap(err, "getting max lesson position")
		}
		now := time.Now().UTC()
		ls, err = repo.CreateLesson(ctx, Lesson{
			ChapterID:    ch.ID,
			Title:        nl.Title,
			Description:  nl.Description,
			ThumbnailKey: nl.ThumbnailKey,
			VideoKey:     nl.VideoKey,
			Position:     position.Next(last),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		return errors.Wrap(err, "creating lesson")
	})
	if err != nil {
		return Lesson{}, err
	}
	svc.revalidate(courseID)
	return ls, nil
}

func (svc *Service) GetLesson(ctx context.Context, sess core.Session, courseID, chapterID, lessonID string) (Lesson, error) {
	crs, err := svc.ownedCourse(ctx, svc.repo, sess, courseID)
	if err != nil {
		return Lesson{}, err
	}
	ch, err := courseChapter(ctx, svc.repo, crs.ID, chapterID)
	if err != nil {
		return Lesson{}, err
	}
	return chapterLesson(ctx, svc.repo, ch.ID, lessonID)
}

func (svc *Service) UpdateLesson(ctx context.Context, sess core.Session, courseID, chapterID, lessonID string, ul UpdateLesson) (Lesson, error) {
	ls, err := svc.GetLesson(ctx, sess, courseID, chapterID, lessonID)
	if err != nil {
		return Lesson{}, err
	}

	ls.Title = ul.Title
	ls.Description = ul.Description
	ls.ThumbnailKey = ul.ThumbnailKey
	ls.VideoKey = ul.VideoKey
	ls.UpdatedAt = time.Now().UTC()
	if ls, err = svc.repo.UpdateLesson(ctx, ls); err != nil {
		return Lesson{}, errors.Wrap(err, "updating lesson")
	}
	svc.revalidate(courseID)
	return ls, nil
}

// DeleteLesson removes the lesson then closes the gap it leaves in its chapter.
func (svc *Service) DeleteLesson(ctx context.Context, sess core.Session, lessonID, courseID, chapterID string) error {
	err := svc.repo.WithinTx(ctx, func(repo Repository) error {
		crs, err := svc.ownedCourse(ctx, repo, sess, courseID)
		if err != nil {
			return err
		}
		if err = repo.LockCourse(ctx, crs.ID); err != nil {
			return errors.Wrap(err, "locking course")
		}
		ch, err := courseChapter(ctx, repo, crs.ID, chapterID)
		if err != nil {
			return err
		}
		ls, err := chapterLesson(ctx, repo, ch.ID, lessonID)
		if err != nil {
			return err
		}
		if err = repo.DeleteLesson(ctx, ls.ID); err != nil {
			return errors.Wrap(err, "deleting lesson")
		}

		remaining, err := repo.ListLessons(ctx, ch.ID)
		if err != nil {
			return errors.Wrap(err, "listing lessons")
		}
		for i, l := range remaining {
			if l.Position == i+1 {
				continue
			}
			if err = repo.SetLessonPosition(ctx, ch.ID, l.ID, i+1); err != nil {
				return errors.Wrap(err, "resequencing lessons")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	svc.revalidate(courseID)
	return nil
}

// ReorderLessons persists a full permutation of the chapter lessons.
func (svc *Service) ReorderLessons(ctx context.Context, sess core.Session, chapterID string, as []position.Assignment, courseID string) error {
	if len(as) == 0 {
		return ErrNoLessons
	}
	err := svc.repo.WithinTx(ctx, func(repo Repository) error {
		crs, err := svc.ownedCourse(ctx, repo, sess, courseID)
		if err != nil {
			return err
		}
		if err = repo.LockCourse(ctx, crs.ID); err != nil {
			return errors.Wrap(err, "locking course")
		}
		ch, err := courseChapter(ctx, repo, crs.ID, chapterID)
		if err != nil {
			return err
		}

		lessons, err := repo.ListLessons(ctx, ch.ID)
		if err != nil {
			return errors.Wrap(err, "listing lessons")
		}
		siblings := make([]string, 0, len(lessons))
		for _, ls := range lessons {
			siblings = append(siblings, ls.ID)
		}
		if err = position.Validate(as, siblings); err != nil {
			return err
		}

		for _, a := range inPositionOrder(as) {
			if err = repo.SetLessonPosition(ctx, ch.ID, a.ID, a.Position); err != nil {
				return errors.Wrap(err, "setting lesson position")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	svc.revalidate(courseID)
	return nil
}
