package inmemdb

import (
	"testing"

	"github.com/trezcool/mwalimu/storage/database/dbtest"
)

func newRepos(t *testing.T) dbtest.Repos {
	db := NewDB()
	return dbtest.Repos{
		Courses:     NewCourseRepository(db),
		Instructors: NewInstructorRepository(db),
	}
}

func TestInstructorRepository(t *testing.T) {
	dbtest.RunInstructorRepositoryTests(t, newRepos)
}

func TestCourseRepository(t *testing.T) {
	dbtest.RunCourseRepositoryTests(t, newRepos)
}
