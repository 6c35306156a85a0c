package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mwalimu/core/instructor"
)

const instructorColumns = `id, COALESCE(user_id, '') AS user_id, email, bio, invited_by, created_at, updated_at`

type instructorRepository struct {
	db *sqlx.DB
}

var _ instructor.Repository = (*instructorRepository)(nil) // interface compliance check

func NewInstructorRepository(db *sqlx.DB) *instructorRepository {
	return &instructorRepository{db: db}
}

func (repo *instructorRepository) trapUniqueErr(err error, msg string) error {
	switch uniqueConstraint(err) {
	case "instructors_email_key":
		return instructor.ErrEmailExists
	case "instructors_user_id_key":
		return instructor.ErrUserExists
	}
	return errors.Wrap(err, msg)
}

func (repo *instructorRepository) CreateInstructor(ctx context.Context, ins instructor.Instructor) (instructor.Instructor, error) {
	ins.ID = uuid.New().String()
	ins.CreatedAt = ins.CreatedAt.UTC()
	ins.UpdatedAt = ins.UpdatedAt.UTC()

	q := `INSERT INTO instructors (id, user_id, email, bio, invited_by, created_at, updated_at)
		VALUES (:id, NULLIF(:user_id, ''), :email, :bio, :invited_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, ins); err != nil {
		return instructor.Instructor{}, repo.trapUniqueErr(err, "inserting instructor")
	}
	return ins, nil
}

func (repo *instructorRepository) get(ctx context.Context, where string, arg interface{}) (instructor.Instructor, error) {
	var ins instructor.Instructor
	q := `SELECT ` + instructorColumns + ` FROM instructors WHERE ` + where
	if err := repo.db.GetContext(ctx, &ins, q, arg); err != nil {
		return instructor.Instructor{}, trapNoRowsErr(err, instructor.ErrNotFound, "getting instructor")
	}
	return ins, nil
}

func (repo *instructorRepository) GetInstructorByID(ctx context.Context, id string) (instructor.Instructor, error) {
	if !isUUID(id) {
		return instructor.Instructor{}, instructor.ErrNotFound
	}
	return repo.get(ctx, "id = $1", id)
}

func (repo *instructorRepository) GetInstructorByUserID(ctx context.Context, userID string) (instructor.Instructor, error) {
	if userID == "" {
		return instructor.Instructor{}, instructor.ErrNotFound
	}
	return repo.get(ctx, "user_id = $1", userID)
}

func (repo *instructorRepository) GetInstructorByEmail(ctx context.Context, email string) (instructor.Instructor, error) {
	return repo.get(ctx, "lower(email) = lower($1)", email)
}

func (repo *instructorRepository) UpdateInstructor(ctx context.Context, ins instructor.Instructor) (instructor.Instructor, error) {
	ins.UpdatedAt = ins.UpdatedAt.UTC()
	q := `UPDATE instructors
		SET user_id = NULLIF(:user_id, ''), email = :email, bio = :bio, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.db, q, ins)
	if err != nil {
		return instructor.Instructor{}, repo.trapUniqueErr(err, "updating instructor")
	}
	if err = checkRowsAffected(res, instructor.ErrNotFound, "updating instructor"); err != nil {
		return instructor.Instructor{}, err
	}
	return repo.GetInstructorByID(ctx, ins.ID)
}

func (repo *instructorRepository) QueryInstructors(ctx context.Context) ([]instructor.Instructor, error) {
	list := make([]instructor.Instructor, 0)
	q := `SELECT ` + instructorColumns + ` FROM instructors ORDER BY created_at ASC, email ASC`
	if err := repo.db.SelectContext(ctx, &list, q); err != nil {
		return nil, errors.Wrap(err, "querying instructors")
	}
	return list, nil
}
