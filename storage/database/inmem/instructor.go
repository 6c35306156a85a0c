package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/mwalimu/core/instructor"
)

type instructorRepository struct {
	db *DB
}

var _ instructor.Repository = (*instructorRepository)(nil) // interface compliance check

func NewInstructorRepository(db *DB) *instructorRepository {
	return &instructorRepository{db: db}
}

func (repo *instructorRepository) checkUniqueness(ins instructor.Instructor) error {
	for _, i := range repo.db.instructors {
		if i.ID == ins.ID {
			continue
		}
		if strings.EqualFold(i.Email, ins.Email) {
			return instructor.ErrEmailExists
		}
		if ins.UserID != "" && i.UserID == ins.UserID {
			return instructor.ErrUserExists
		}
	}
	return nil
}

func (repo *instructorRepository) CreateInstructor(_ context.Context, ins instructor.Instructor) (instructor.Instructor, error) {
	repo.db.insMu.Lock()
	defer repo.db.insMu.Unlock()

	if err := repo.checkUniqueness(ins); err != nil {
		return instructor.Instructor{}, err
	}
	ins.ID = uuid.New().String()
	repo.db.instructors[ins.ID] = ins
	return ins, nil
}

func (repo *instructorRepository) find(match func(instructor.Instructor) bool) (instructor.Instructor, error) {
	repo.db.insMu.RLock()
	defer repo.db.insMu.RUnlock()

	for _, ins := range repo.db.instructors {
		if match(ins) {
			return ins, nil
		}
	}
	return instructor.Instructor{}, instructor.ErrNotFound
}

func (repo *instructorRepository) GetInstructorByID(_ context.Context, id string) (instructor.Instructor, error) {
	return repo.find(func(ins instructor.Instructor) bool { return ins.ID == id })
}

func (repo *instructorRepository) GetInstructorByUserID(_ context.Context, userID string) (instructor.Instructor, error) {
	if userID == "" {
		return instructor.Instructor{}, instructor.ErrNotFound
	}
	return repo.find(func(ins instructor.Instructor) bool { return ins.UserID == userID })
}

func (repo *instructorRepository) GetInstructorByEmail(_ context.Context, email string) (instructor.Instructor, error) {
	return repo.find(func(ins instructor.Instructor) bool { return strings.EqualFold(ins.Email, email) })
}

func (repo *instructorRepository) UpdateInstructor(_ context.Context, ins instructor.Instructor) (instructor.Instructor, error) {
	repo.db.insMu.Lock()
	defer repo.db.insMu.Unlock()

	orig, ok := repo.db.instructors[ins.ID]
	if !ok {
		return instructor.Instructor{}, instructor.ErrNotFound
	}
	if err := repo.checkUniqueness(ins); err != nil {
		return instructor.Instructor{}, err
	}
	ins.CreatedAt = orig.CreatedAt
	repo.db.instructors[ins.ID] = ins
	return ins, nil
}

func (repo *instructorRepository) QueryInstructors(_ context.Context) ([]instructor.Instructor, error) {
	repo.db.insMu.RLock()
	defer repo.db.insMu.RUnlock()

	list := make([]instructor.Instructor, 0, len(repo.db.instructors))
	for _, ins := range repo.db.instructors {
		list = append(list, ins)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].Email < list[j].Email
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}
