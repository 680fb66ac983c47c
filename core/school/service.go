package school

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/surgepay/core"
	"github.com/trezcool/surgepay/core/user"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrNotFound         = errors.New("school not found")
	ErrAlreadyOnboarded = errors.New("school setup has already been completed for this account")
)

type (
	Repository interface {
		CreateSchool(ctx context.Context, sch School) (School, error)
		// DeleteSchool removes a school along with its students.
		DeleteSchool(ctx context.Context, id string) error
		GetSchoolByOwner(ctx context.Context, ownerID string) (School, error)
		AddStudents(ctx context.Context, schoolID string, names ...string) ([]Student, error)
		ListStudents(ctx context.Context, schoolID string) ([]Student, error)
	}

	Service interface {
		// CompleteOnboarding redeems the owner's verification token and sets their school up.
		// The token is restored if anything fails after it was redeemed.
		CompleteOnboarding(ctx context.Context, data CompleteOnboarding) (School, error)
		GetByOwner(ctx context.Context, ownerID string) (School, error)
		ListStudents(ctx context.Context, schoolID string) ([]Student, error)
	}

	service struct {
		repo    Repository
		userSvc user.Service
		logger  core.Logger
	}
)

func NewService(repo Repository, userSvc user.Service, logger core.Logger) Service {
	return &service{repo: repo, userSvc: userSvc, logger: logger}
}

func (svc *service) CompleteOnboarding(ctx context.Context, data CompleteOnboarding) (School, error) {
	owner, err := svc.userSvc.ConsumeVerificationToken(ctx, data.VerificationToken)
	if err != nil {
		if errors.Cause(err) == user.ErrInvalidToken {
			return School{}, core.NewValidationError(err)
		}
		return School{}, errors.Wrap(err, "consuming verification token")
	}

	sch, err := svc.onboard(ctx, owner, data)
	if err != nil {
		if rerr := svc.userSvc.RestoreVerificationToken(ctx, data.VerificationToken, owner); rerr != nil {
			svc.logger.Error("restoring verification token", errors.WithStack(rerr), owner)
		}
		return School{}, err
	}
	return sch, nil
}

func (svc *service) onboard(ctx context.Context, owner user.User, data CompleteOnboarding) (School, error) {
	if !owner.IsAdmin() {
		return School{}, core.NewValidationError(user.ErrInvalidToken)
	}
	if owner.SchoolID != "" {
		return School{}, core.NewValidationError(ErrAlreadyOnboarded)
	}
	if _, err := svc.repo.GetSchoolByOwner(ctx, owner.ID); err == nil {
		return School{}, core.NewValidationError(ErrAlreadyOnboarded)
	} else if errors.Cause(err) != ErrNotFound {
		return School{}, errors.Wrap(err, "finding school by owner")
	}
	if err := svc.checkTeachers(ctx, data.Teachers); err != nil {
		return School{}, err
	}

	sch, err := svc.repo.CreateSchool(ctx, School{
		Name:      data.SchoolName,
		Motto:     data.Motto,
		Address:   data.Address,
		Logo:      data.Logo,
		OwnerID:   owner.ID,
		CreatedAt: nowFunc().UTC(),
	})
	if err != nil {
		return School{}, errors.Wrap(err, "creating school")
	}
	if err := svc.populate(ctx, owner, &sch, data); err != nil {
		svc.rollback(ctx, owner, sch)
		return School{}, err
	}

	svc.logger.Info("school onboarded", map[string]interface{}{
		"school_id": sch.ID,
		"teachers":  len(sch.Teachers),
		"students":  len(sch.Students),
	}, owner)
	return sch, nil
}

// populate fills a freshly created school. Teachers come last since inviting them sends emails.
func (svc *service) populate(ctx context.Context, owner user.User, sch *School, data CompleteOnboarding) error {
	students, err := svc.repo.AddStudents(ctx, sch.ID, data.Students...)
	if err != nil {
		return errors.Wrap(err, "adding students")
	}
	sch.Students = make([]string, 0, len(students))
	for _, st := range students {
		sch.Students = append(sch.Students, st.FullName)
	}

	if _, err := svc.userSvc.JoinSchool(ctx, owner, sch.ID); err != nil {
		return errors.Wrap(err, "joining school")
	}

	invitees, err := svc.userSvc.InviteTeachers(ctx, sch.ID, sch.Name, data.Teachers)
	if err != nil {
		return errors.Wrap(err, "inviting teachers")
	}
	sch.Teachers = make([]string, 0, len(invitees))
	for _, inv := range invitees {
		sch.Teachers = append(sch.Teachers, inv.Email)
	}
	return nil
}

// rollback undoes a partial onboarding so the owner can submit again.
func (svc *service) rollback(ctx context.Context, owner user.User, sch School) {
	if _, err := svc.userSvc.LeaveSchool(ctx, owner); err != nil && errors.Cause(err) != user.ErrNotFound {
		svc.logger.Error("detaching owner from school", errors.WithStack(err), owner)
	}
	if err := svc.repo.DeleteSchool(ctx, sch.ID); err != nil && errors.Cause(err) != ErrNotFound {
		svc.logger.Error("deleting school", errors.WithStack(err), map[string]interface{}{"school_id": sch.ID})
	}
}

// checkTeachers rejects teacher emails that already belong to an account.
func (svc *service) checkTeachers(ctx context.Context, emails []string) error {
	var taken []string
	for _, email := range emails {
		_, err := svc.userSvc.GetByEmail(ctx, email)
		switch {
		case err == nil:
			taken = append(taken, email)
		case errors.Cause(err) != user.ErrNotFound:
			return errors.Wrap(err, "finding teacher by email")
		}
	}
	if len(taken) > 0 {
		return core.NewValidationError(user.ErrEmailExists, core.FieldError{
			Field: "teachers",
			Error: strings.Join(taken, ", ") + ": " + user.ErrEmailExists.Error(),
		})
	}
	return nil
}

func (svc *service) GetByOwner(ctx context.Context, ownerID string) (School, error) {
	return svc.repo.GetSchoolByOwner(ctx, ownerID)
}

func (svc *service) ListStudents(ctx context.Context, schoolID string) ([]Student, error) {
	return svc.repo.ListStudents(ctx, schoolID)
}
