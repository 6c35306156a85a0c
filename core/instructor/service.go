package instructor

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mwalimu/core"
)

var (
	// errors
	ErrNotFound    = errors.New("instructor record not found")
	ErrEmailExists = errors.New("email already exists or invalid")
	ErrUserExists  = errors.New("an instructor record already exists for this user")
)

type (
	Repository interface {
		CreateInstructor(ctx context.Context, ins Instructor) (Instructor, error)
		GetInstructorByID(ctx context.Context, id string) (Instructor, error)
		GetInstructorByUserID(ctx context.Context, userID string) (Instructor, error)
		GetInstructorByEmail(ctx context.Context, email string) (Instructor, error)
		UpdateInstructor(ctx context.Context, ins Instructor) (Instructor, error)
		// QueryInstructors returns every instructor record ordered by creation date.
		QueryInstructors(ctx context.Context) ([]Instructor, error)
	}

	Service struct {
		repo   Repository
		mail   core.EmailService
		logger core.Logger
	}
)

func NewService(repo Repository, mail core.EmailService, logger core.Logger) *Service {
	return &Service{repo: repo, mail: mail, logger: logger}
}

// Invite creates a pending instructor record for inv.Email and emails the invitation.
func (svc *Service) Invite(ctx context.Context, sess core.Session, inv Invitation) (Instructor, error) {
	if !sess.IsAdmin() {
		return Instructor{}, core.ErrPermissionDenied
	}

	now := time.Now().UTC()
	ins, err := svc.repo.CreateInstructor(ctx, Instructor{
		Email:     core.CleanString(inv.Email, true /* lower */),
		InvitedBy: sess.Email,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return Instructor{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return Instructor{}, errors.Wrap(err, "creating instructor")
	}

	invitedBy := sess.Name
	if invitedBy == "" {
		invitedBy = sess.Email
	}
	svc.mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: ins.Email}},
		Subject:      "You are invited to teach",
		TemplateName: "instructor_invite",
		TemplateData: inviteData{Email: ins.Email, InvitedBy: invitedBy},
	})
	svc.logger.Info("instructor invited", map[string]interface{}{"email": ins.Email}, sess)
	return ins, nil
}

// EnsureForSession returns the instructor record of the session user, claiming a pending
// invitation with the same email or creating a new record when none exists.
func (svc *Service) EnsureForSession(ctx context.Context, sess core.Session) (Instructor, error) {
	ins, err := svc.repo.GetInstructorByUserID(ctx, sess.UserID)
	if err == nil {
		return ins, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Instructor{}, errors.Wrap(err, "getting instructor by user id")
	}

	now := time.Now().UTC()
	email := core.CleanString(sess.Email, true /* lower */)

	pending, err := svc.repo.GetInstructorByEmail(ctx, email)
	switch errors.Cause(err) {
	case nil:
		if !pending.IsPending() {
			return Instructor{}, ErrEmailExists
		}
		pending.UserID = sess.UserID
		pending.UpdatedAt = now
		return svc.repo.UpdateInstructor(ctx, pending)
	case ErrNotFound: // pass
	default:
		return Instructor{}, errors.Wrap(err, "getting instructor by email")
	}

	ins, err = svc.repo.CreateInstructor(ctx, Instructor{
		UserID:    sess.UserID,
		Email:     email,
		Bio:       defaultBio,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Cause(err) == ErrUserExists { // created by a concurrent request
		return svc.repo.GetInstructorByUserID(ctx, sess.UserID)
	}
	if err != nil {
		return Instructor{}, errors.Wrap(err, "creating instructor")
	}
	return ins, nil
}

func (svc *Service) GetBySession(ctx context.Context, sess core.Session) (Instructor, error) {
	if sess.UserID == "" {
		return Instructor{}, ErrNotFound
	}
	return svc.repo.GetInstructorByUserID(ctx, sess.UserID)
}

func (svc *Service) Query(ctx context.Context) ([]Instructor, error) {
	return svc.repo.QueryInstructors(ctx)
}
