package course

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mwalimu/core"
	"github.com/trezcool/mwalimu/core/position"
)

// Levels
const (
	LevelBeginner     = "BEGINNER"
	LevelIntermediate = "INTERMEDIATE"
	LevelAdvanced     = "ADVANCED"
)

// Statuses
const (
	StatusDraft     = "DRAFT"
	StatusPublished = "PUBLISHED"
	StatusArchived  = "ARCHIVED"
)

var (
	Levels   = []string{LevelBeginner, LevelIntermediate, LevelAdvanced}
	Statuses = []string{StatusDraft, StatusPublished, StatusArchived}

	// OrderingFields are the fields courses may be ordered by.
	OrderingFields = []string{"created_at", "updated_at", "title", "price"}
)

type Course struct {
	ID               string    `json:"id" db:"id"`
	Title            string    `json:"title" db:"title"`
	Slug             string    `json:"slug" db:"slug"`
	SmallDescription string    `json:"small_description" db:"small_description"`
	Description      string    `json:"description" db:"description"`
	FileKey          string    `json:"file_key" db:"file_key"`
	Price            int       `json:"price" db:"price"`
	Duration         int       `json:"duration" db:"duration"` // hours
	Level            string    `json:"level" db:"level"`
	Status           string    `json:"status" db:"status"`
	InstructorID     string    `json:"instructor_id" db:"instructor_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"` // UTC

	Chapters []Chapter `json:"chapters,omitempty" db:"-"`
}

type Chapter struct {
	ID        string    `json:"id" db:"id"`
	CourseID  string    `json:"course_id" db:"course_id"`
	Title     string    `json:"title" db:"title"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC

	Lessons []Lesson `json:"lessons" db:"-"`
}

type Lesson struct {
	ID           string    `json:"id" db:"id"`
	ChapterID    string    `json:"chapter_id" db:"chapter_id"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	ThumbnailKey string    `json:"thumbnail_key" db:"thumbnail_key"`
	VideoKey     string    `json:"video_key" db:"video_key"`
	Position     int       `json:"position" db:"position"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title            string `json:"title" validate:"required,notblank,min=3,max=100"`
	Slug             string `json:"slug" validate:"required,slug,min=3,max=120"`
	SmallDescription string `json:"small_description" validate:"required,notblank,max=200"`
	Description      string `json:"description" validate:"required,notblank"`
	FileKey          string `json:"file_key" validate:"required,notblank"`
	Price            int    `json:"price" validate:"min=1"`
	Duration         int    `json:"duration" validate:"min=1,max=500"`
	Level            string `json:"level" validate:"required,oneof=BEGINNER INTERMEDIATE ADVANCED"`
	Status           string `json:"status" validate:"required,oneof=DRAFT PUBLISHED ARCHIVED"`
}

// Validate cleans the input (enums upper-cased, slug derived from the title when empty) then validates it.
func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Slug = core.CleanString(nc.Slug, true /* lower */)
	if nc.Slug == "" {
		nc.Slug = core.Slugify(nc.Title)
	}
	nc.SmallDescription = core.CleanString(nc.SmallDescription)
	nc.Description = core.CleanString(nc.Description)
	nc.FileKey = core.CleanString(nc.FileKey)
	nc.Level = strings.ToUpper(core.CleanString(nc.Level))
	nc.Status = strings.ToUpper(core.CleanString(nc.Status))
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// Every field is required as the edit form submits the whole course.
type UpdateCourse NewCourse

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	return (*NewCourse)(uc).Validate(validate)
}

func (uc UpdateCourse) apply(crs Course) Course {
	crs.Title = uc.Title
	crs.Slug = uc.Slug
	crs.SmallDescription = uc.SmallDescription
	crs.Description = uc.Description
	crs.FileKey = uc.FileKey
	crs.Price = uc.Price
	crs.Duration = uc.Duration
	crs.Level = uc.Level
	crs.Status = uc.Status
	return crs
}

type NewChapter struct {
	Title string `json:"title" validate:"required,notblank,min=3,max=100"`
}

func (nc *NewChapter) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	return validate.Struct(nc)
}

type UpdateChapter NewChapter

func (uc *UpdateChapter) Validate(validate *validator.Validate) error {
	return (*NewChapter)(uc).Validate(validate)
}

type NewLesson struct {
	Title        string `json:"title" validate:"required,notblank,min=3,max=100"`
	Description  string `json:"description" validate:"max=5000"`
	ThumbnailKey string `json:"thumbnail_key"`
	VideoKey     string `json:"video_key"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.Description = core.CleanString(nl.Description)
	nl.ThumbnailKey = core.CleanString(nl.ThumbnailKey)
	nl.VideoKey = core.CleanString(nl.VideoKey)
	return validate.Struct(nl)
}

type UpdateLesson NewLesson

func (ul *UpdateLesson) Validate(validate *validator.Validate) error {
	return (*NewLesson)(ul).Validate(validate)
}

// Reorder is a full set of sibling positions.
type Reorder struct {
	Chapters []position.Assignment `json:"chapters,omitempty" validate:"dive"`
	Lessons  []position.Assignment `json:"lessons,omitempty" validate:"dive"`
}

type QueryFilter struct {
	InstructorID string            `query:"-"`
	Search       string            `query:"search"`
	Status       string            `query:"status"`
	Ordering     []core.DBOrdering `query:"-"`
}

// Clean normalizes the filter and defaults to the oldest courses first.
func (f *QueryFilter) Clean() {
	f.Search = core.CleanString(f.Search)
	f.Status = strings.ToUpper(core.CleanString(f.Status))
	if len(f.Ordering) == 0 {
		f.Ordering = []core.DBOrdering{{Field: "created_at", Ascending: true}}
	}
}
