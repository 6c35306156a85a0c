package inmemdb

import (
	"sync"

	"github.com/trezcool/mwalimu/core/course"
	"github.com/trezcool/mwalimu/core/instructor"
)

// DB holds the in-memory tables. Course tables share one lock so that a transaction
// can snapshot and restore them together.
type DB struct {
	mu       sync.RWMutex
	courses  map[string]course.Course
	chapters map[string]course.Chapter
	lessons  map[string]course.Lesson

	insMu       sync.RWMutex
	instructors map[string]instructor.Instructor
}

type snapshot struct {
	courses  map[string]course.Course
	chapters map[string]course.Chapter
	lessons  map[string]course.Lesson
}

func NewDB() *DB {
	db := new(DB)
	db.Reset()
	return db
}

// Reset drops every row.
func (db *DB) Reset() {
	db.mu.Lock()
	db.courses = make(map[string]course.Course)
	db.chapters = make(map[string]course.Chapter)
	db.lessons = make(map[string]course.Lesson)
	db.mu.Unlock()

	db.insMu.Lock()
	db.instructors = make(map[string]instructor.Instructor)
	db.insMu.Unlock()
}

func (db *DB) snapshot() snapshot {
	snap := snapshot{
		courses:  make(map[string]course.Course, len(db.courses)),
		chapters: make(map[string]course.Chapter, len(db.chapters)),
		lessons:  make(map[string]course.Lesson, len(db.lessons)),
	}
	for k, v := range db.courses {
		snap.courses[k] = v
	}
	for k, v := range db.chapters {
		snap.chapters[k] = v
	}
	for k, v := range db.lessons {
		snap.lessons[k] = v
	}
	return snap
}

func (db *DB) restore(snap snapshot) {
	db.courses = snap.courses
	db.chapters = snap.chapters
	db.lessons = snap.lessons
}
