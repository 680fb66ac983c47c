package user

import (
	"context"
	"net/mail"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/surgepay/core"
)

var (
	// errors
	ErrNotFound         = errors.New("user not found")
	ErrEmailExists      = errors.New("a user with this email already exists")
	ErrInvalidToken     = errors.New("invalid or expired verification token")
	ErrInvalidResetLink = errors.New("invalid password reset link")
	ErrAlreadyInSchool  = errors.New("user already belongs to a school")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUser(ctx context.Context, id string) error
	}

	Service interface {
		CheckUniqueness(ctx context.Context, email string, exclUsers ...User) error
		// SignUp creates a school owner account and emails them their onboarding link.
		SignUp(ctx context.Context, nu NewUser) (User, error)
		// Create creates an active, verified account with the given roles.
		Create(ctx context.Context, nu NewUser) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		SetPassword(ctx context.Context, usr User, pwd string) (User, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
		ResendVerification(ctx context.Context, email string) error
		VerifyEmail(ctx context.Context, token string) (User, error)
		// ConsumeVerificationToken redeems a verification token once and returns its owner.
		ConsumeVerificationToken(ctx context.Context, token string) (User, error)
		// RestoreVerificationToken makes a consumed token usable again.
		RestoreVerificationToken(ctx context.Context, token string, usr User) error
		JoinSchool(ctx context.Context, usr User, schoolID string) (User, error)
		// LeaveSchool detaches usr from their school.
		LeaveSchool(ctx context.Context, usr User) (User, error)
		// InviteTeachers creates accounts for new teacher emails and mails every new teacher an invitation.
		// Either every account is created or none is.
		InviteTeachers(ctx context.Context, schoolID, schoolName string, emails []string) ([]Invitee, error)
	}

	service struct {
		repo     Repository
		tokens   TokenStore
		mailSvc  core.EmailService
		conf     *core.Config
		logger   core.Logger
		tokenGen tokenGenerator
	}
)

func NewService(
	repo Repository,
	tokens TokenStore,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) Service {
	return newService(repo, tokens, mailSvc, conf, logger)
}

func newService(
	repo Repository,
	tokens TokenStore,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) *service {
	return &service{
		repo:     repo,
		tokens:   tokens,
		mailSvc:  mailSvc,
		conf:     conf,
		logger:   logger,
		tokenGen: newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) newUser(nu NewUser, roles []string) (User, error) {
	now := nowFunc().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if nu.Password != "" {
		if err := usr.SetPassword(nu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	return usr, nil
}

func (svc *service) SignUp(ctx context.Context, nu NewUser) (User, error) {
	usr, err := svc.newUser(nu, []string{RoleAdminOwner})
	if err != nil {
		return User{}, err
	}
	if usr, err = svc.repo.CreateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}
	if err := svc.issueVerification(ctx, usr); err != nil {
		return User{}, err
	}
	return usr, nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	roles := nu.Roles
	if len(roles) == 0 {
		roles = []string{RoleAdminOwner}
	}
	usr, err := svc.newUser(nu, roles)
	if err != nil {
		return User{}, err
	}
	usr.EmailVerified = true
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = nowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	svc.mailSvc.SendMessages(svc.passwordResetMessage(usr))
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	uid, err := decodeUID(data.UID)
	if err != nil {
		return core.NewValidationError(ErrInvalidResetLink)
	}
	usr, err := svc.GetByID(ctx, uid)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(ErrInvalidResetLink)
		}
		return err
	}
	if err := svc.tokenGen.verifyToken(usr, data.Token); err != nil {
		return core.NewValidationError(ErrInvalidResetLink)
	}

	if _, err := svc.SetPassword(ctx, usr, data.Password); err != nil {
		return errors.Wrap(err, "updating password")
	}
	return nil
}

func (svc *service) ResendVerification(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive || usr.SchoolID != "" {
		return ErrNotFound
	}
	return svc.issueVerification(ctx, usr)
}

func (svc *service) VerifyEmail(ctx context.Context, token string) (User, error) {
	usr, err := svc.tokenOwner(ctx, token, svc.tokens.GetToken)
	if err != nil {
		return User{}, err
	}
	if usr.EmailVerified {
		return usr, nil
	}
	usr.EmailVerified = true
	usr.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) ConsumeVerificationToken(ctx context.Context, token string) (User, error) {
	usr, err := svc.tokenOwner(ctx, token, svc.tokens.ConsumeToken)
	if err != nil {
		return User{}, err
	}
	if !usr.IsActive {
		return User{}, ErrInvalidToken
	}
	return usr, nil
}

func (svc *service) RestoreVerificationToken(ctx context.Context, token string, usr User) error {
	return svc.tokens.SaveToken(ctx, token, usr.ID, svc.conf.VerificationTokenTTL)
}

func (svc *service) JoinSchool(ctx context.Context, usr User, schoolID string) (User, error) {
	if usr.SchoolID != "" && usr.SchoolID != schoolID {
		return User{}, ErrAlreadyInSchool
	}
	usr.SchoolID = schoolID
	usr.EmailVerified = true
	usr.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) LeaveSchool(ctx context.Context, usr User) (User, error) {
	usr.SchoolID = ""
	usr.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) InviteTeachers(ctx context.Context, schoolID, schoolName string, emails []string) (_ []Invitee, err error) {
	invitees := make([]Invitee, 0, len(emails))
	msgs := make([]*core.EmailMessage, 0, len(emails))

	var created []User
	defer func() {
		if err != nil {
			svc.deleteUsers(ctx, created)
		}
	}()

	for _, email := range emails {
		email = core.CleanString(email, true /* lower */)

		usr, err := svc.repo.GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			if usr.SchoolID == schoolID && usr.IsTeacher() {
				invitees = append(invitees, Invitee{Email: email})
				continue
			}
			return nil, core.NewValidationError(
				ErrEmailExists,
				core.FieldError{Field: "teachers", Error: email + ": " + ErrEmailExists.Error()},
			)
		case errors.Cause(err) != ErrNotFound:
			return nil, errors.Wrap(err, "finding teacher by email")
		}

		now := nowFunc().UTC()
		usr, err = svc.repo.CreateUser(ctx, User{
			Name:      email,
			Email:     email,
			SchoolID:  schoolID,
			IsActive:  true,
			Roles:     []string{RoleTeacher},
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return nil, errors.Wrap(err, "creating teacher")
		}
		created = append(created, usr)
		invitees = append(invitees, Invitee{Email: email, New: true})
		msgs = append(msgs, svc.teacherInviteMessage(usr, schoolName))
	}

	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
	return invitees, nil
}

func (svc *service) deleteUsers(ctx context.Context, users []User) {
	for _, usr := range users {
		if err := svc.repo.DeleteUser(ctx, usr.ID); err != nil {
			svc.logger.Error("deleting user", errors.WithStack(err), usr)
		}
	}
}

// tokenOwner resolves the user a verification token was issued to.
func (svc *service) tokenOwner(
	ctx context.Context,
	token string,
	lookup func(ctx context.Context, token string) (string, error),
) (User, error) {
	token = core.CleanString(token)
	if token == "" {
		return User{}, ErrInvalidToken
	}
	uid, err := lookup(ctx, token)
	if err != nil {
		if errors.Cause(err) == ErrTokenNotFound {
			return User{}, ErrInvalidToken
		}
		return User{}, errors.Wrap(err, "looking up verification token")
	}
	usr, err := svc.GetByID(ctx, uid)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidToken
		}
		return User{}, errors.Wrap(err, "finding token owner")
	}
	return usr, nil
}

func (svc *service) issueVerification(ctx context.Context, usr User) error {
	token := uuid.New().String()
	if err := svc.tokens.SaveToken(ctx, token, usr.ID, svc.conf.VerificationTokenTTL); err != nil {
		return errors.Wrap(err, "saving verification token")
	}
	svc.mailSvc.SendMessages(svc.verificationMessage(usr, token))
	return nil
}

func (svc *service) frontendLink(path string, query url.Values) string {
	return core.JoinURL(svc.conf.FrontendBaseURL, path) + "?" + query.Encode()
}

func (svc *service) verificationMessage(usr User, token string) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Confirm your email and set up your school",
		TemplateName: "verify_email",
		TemplateData: map[string]interface{}{
			"Name":     usr.Name,
			"Link":     svc.frontendLink("/onboarding", url.Values{"token": {token}}),
			"ValidFor": humanDuration(svc.conf.VerificationTokenTTL),
		},
	}
}

func (svc *service) passwordResetMessage(usr User) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name": usr.Name,
			"Link": svc.resetLink("/password-reset", usr),
		},
	}
}

func (svc *service) teacherInviteMessage(usr User, schoolName string) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Address: usr.Email}},
		Subject:      "You have been invited to join " + schoolName,
		TemplateName: "teacher_invite",
		TemplateData: map[string]interface{}{
			"SchoolName": schoolName,
			"Link":       svc.resetLink("/set-password", usr),
		},
	}
}

func (svc *service) resetLink(path string, usr User) string {
	return svc.frontendLink(path, url.Values{
		"uid":   {EncodeUID(usr)},
		"token": {svc.tokenGen.makeToken(usr)},
	})
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= 48*time.Hour && d%(24*time.Hour) == 0:
		return strconv.Itoa(int(d/(24*time.Hour))) + " days"
	case d >= time.Hour && d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return strconv.Itoa(int(d/time.Hour)) + " hours"
	default:
		return d.String()
	}
}
