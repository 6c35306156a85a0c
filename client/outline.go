package client

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/mwalimu/core/course"
	"github.com/trezcool/mwalimu/core/position"
)

const (
	ChapterItem ItemType = "chapter"
	LessonItem  ItemType = "lesson"
)

var (
	ErrChapterTarget       = errors.New("Cannot move chapter here.")
	ErrLessonOtherChapter  = errors.New("Cannot move lesson to another chapter.")
	ErrLessonChapterAbsent = errors.New("Could not find chapter for lesson")
	ErrLessonAbsent        = errors.New("Could not find lesson for reordering")
)

type (
	ItemType string

	// Item is a draggable row. Lessons carry the id of their chapter.
	Item struct {
		ID        string
		Type      ItemType
		ChapterID string
	}

	// DragEvent is the end of a drag: Active was dropped over Over (nil when dropped outside any row).
	DragEvent struct {
		Active Item
		Over   *Item
	}

	OutlineLesson struct {
		ID    string
		Title string
		Order int
	}

	OutlineChapter struct {
		ID      string
		Title   string
		Order   int
		IsOpen  bool
		Lessons []OutlineLesson
	}

	// Persister saves reorders (implemented by Client).
	Persister interface {
		ReorderChapters(ctx context.Context, courseID string, as []position.Assignment) error
		ReorderLessons(ctx context.Context, courseID, chapterID string, as []position.Assignment) error
	}
)

// Outline is the client-side state of a course structure editor.
// Reorders are applied optimistically and rolled back when they cannot be saved.
type Outline struct {
	mu       sync.Mutex
	courseID string
	chapters []OutlineChapter
	api      Persister
}

func NewOutline(api Persister, crs course.Course) *Outline {
	o := &Outline{api: api}
	o.Sync(crs)
	return o
}

// Sync rebuilds the state from server data. Chapters keep their open/closed state, new ones are open.
func (o *Outline) Sync(crs course.Course) {
	o.mu.Lock()
	defer o.mu.Unlock()

	wasOpen := make(map[string]bool, len(o.chapters))
	for _, ch := range o.chapters {
		wasOpen[ch.ID] = ch.IsOpen
	}

	o.courseID = crs.ID
	o.chapters = make([]OutlineChapter, 0, len(crs.Chapters))
	for _, ch := range crs.Chapters {
		isOpen, ok := wasOpen[ch.ID]
		if !ok {
			isOpen = true
		}
		oc := OutlineChapter{ID: ch.ID, Title: ch.Title, Order: ch.Position, IsOpen: isOpen}
		oc.Lessons = make([]OutlineLesson, 0, len(ch.Lessons))
		for _, ls := range ch.Lessons {
			oc.Lessons = append(oc.Lessons, OutlineLesson{ID: ls.ID, Title: ls.Title, Order: ls.Position})
		}
		o.chapters = append(o.chapters, oc)
	}
}

func (o *Outline) ToggleOpen(chapterID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i := o.chapterIndex(chapterID); i >= 0 {
		o.chapters[i].IsOpen = !o.chapters[i].IsOpen
	}
}

// Chapters returns a copy of the current state.
func (o *Outline) Chapters() []OutlineChapter {
	o.mu.Lock()
	defer o.mu.Unlock()
	return cloneChapters(o.chapters)
}

// DragEnd moves the dragged row, then persists the new order of its siblings.
// On failure the previous order is restored and the error returned.
// Concurrent drags of the same outline are serialized.
func (o *Outline) DragEnd(ctx context.Context, ev DragEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if ev.Over == nil || ev.Over.ID == ev.Active.ID {
		return nil
	}
	switch {
	case ev.Active.Type == ChapterItem:
		return o.moveChapter(ctx, ev.Active, *ev.Over)
	case ev.Active.Type == LessonItem && ev.Over.Type == LessonItem:
		return o.moveLesson(ctx, ev.Active, *ev.Over)
	}
	return nil // a lesson dropped over a chapter row
}

func (o *Outline) moveChapter(ctx context.Context, active, over Item) error {
	var targetID string
	switch over.Type {
	case ChapterItem:
		targetID = over.ID
	case LessonItem:
		targetID = over.ChapterID
	}
	if targetID == "" {
		return ErrChapterTarget
	}

	from, to := o.chapterIndex(active.ID), o.chapterIndex(targetID)
	if from < 0 || to < 0 {
		return ErrChapterTarget
	}
	if from == to { // over one of its own lessons
		return nil
	}

	ids := make([]string, len(o.chapters))
	for i, ch := range o.chapters {
		ids[i] = ch.ID
	}
	as := position.Resequence(position.Move(ids, from, to))

	previous := cloneChapters(o.chapters)
	byID := make(map[string]OutlineChapter, len(o.chapters))
	for _, ch := range o.chapters {
		byID[ch.ID] = ch
	}
	for i, a := range as {
		ch := byID[a.ID]
		ch.Order = a.Position
		o.chapters[i] = ch
	}

	if err := o.api.ReorderChapters(ctx, o.courseID, as); err != nil {
		o.chapters = previous
		return errors.Wrap(err, "failed to persist changes")
	}
	return nil
}

func (o *Outline) moveLesson(ctx context.Context, active, over Item) error {
	if active.ChapterID == "" || active.ChapterID != over.ChapterID {
		return ErrLessonOtherChapter
	}
	ci := o.chapterIndex(active.ChapterID)
	if ci < 0 {
		return ErrLessonChapterAbsent
	}

	chapter := o.chapters[ci]
	from, to := -1, -1
	ids := make([]string, len(chapter.Lessons))
	for i, ls := range chapter.Lessons {
		ids[i] = ls.ID
		switch ls.ID {
		case active.ID:
			from = i
		case over.ID:
			to = i
		}
	}
	if from < 0 || to < 0 {
		return ErrLessonAbsent
	}
	as := position.Resequence(position.Move(ids, from, to))

	previous := cloneChapters(o.chapters)
	byID := make(map[string]OutlineLesson, len(chapter.Lessons))
	for _, ls := range chapter.Lessons {
		byID[ls.ID] = ls
	}
	lessons := make([]OutlineLesson, len(as))
	for i, a := range as {
		ls := byID[a.ID]
		ls.Order = a.Position
		lessons[i] = ls
	}
	o.chapters[ci].Lessons = lessons

	if err := o.api.ReorderLessons(ctx, o.courseID, chapter.ID, as); err != nil {
		o.chapters = previous
		return errors.Wrap(err, "failed to persist changes")
	}
	return nil
}

func (o *Outline) chapterIndex(id string) int {
	for i, ch := range o.chapters {
		if ch.ID == id {
			return i
		}
	}
	return -1
}

func cloneChapters(chapters []OutlineChapter) []OutlineChapter {
	out := make([]OutlineChapter, len(chapters))
	for i, ch := range chapters {
		out[i] = ch
		out[i].Lessons = append([]OutlineLesson(nil), ch.Lessons...)
	}
	return out
}
