package core

import "fmt"

// Revalidator invalidates any cached rendition of a page.
type Revalidator interface {
	Revalidate(path string)
}

// PageCache is a read-through cache of page data keyed by path.
// Every Revalidate of a path bumps its generation: data read from the database before a
// revalidation is stale, and SetIfCurrent refuses to store it.
type PageCache interface {
	Revalidator
	Get(path string) (interface{}, bool)
	Generation(path string) uint64
	SetIfCurrent(path string, gen uint64, data interface{}) bool
}

// CourseEditPath is the path of the course edit page.
func CourseEditPath(courseID string) string {
	return fmt.Sprintf("/instructor/courses/%s/edit", courseID)
}

const CourseListPath = "/instructor/courses"
