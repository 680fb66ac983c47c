package user_test

import (
	"context"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/surgepay/core"
	"github.com/trezcool/surgepay/core/user"
	appfs "github.com/trezcool/surgepay/fs"
	emailsvc "github.com/trezcool/surgepay/services/email"
	inmemdb "github.com/trezcool/surgepay/storage/database/inmem"
	testutil "github.com/trezcool/surgepay/tests"
)

func TestMain(m *testing.M) {
	if err := core.ParseEmailTemplates(appfs.FS, testutil.NewConfig()); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type testEnv struct {
	svc    user.Service
	repo   user.Repository
	tokens user.TokenStore
}

func newTestEnv() testEnv {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger()
	db := inmemdb.Open()
	repo := inmemdb.NewUserRepository(db)
	tokens := inmemdb.NewTokenStore(db, "verify")
	svc := user.NewService(repo, tokens, emailsvc.NewConsoleServiceMock(conf, logger), conf, logger)
	emailsvc.ResetSentMessages()
	return testEnv{svc: svc, repo: repo, tokens: tokens}
}

// linkParams extracts the query of the first link found in the text body of msg.
func linkParams(t *testing.T, msg core.EmailMessage) (string, url.Values) {
	for _, line := range strings.Split(msg.TextContent, "\n") {
		if strings.HasPrefix(line, "http") {
			u, err := url.Parse(strings.TrimSpace(line))
			require.NoError(t, err)
			return u.Path, u.Query()
		}
	}
	t.Fatalf("no link in %q", msg.TextContent)
	return "", nil
}

func TestService_SignUpAndVerify(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	usr, err := env.svc.SignUp(ctx, user.NewUser{Name: "Jane", Email: "jane@test.com", Password: "Str0ng!Pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.False(t, usr.EmailVerified)
	assert.True(t, usr.IsAdmin())
	assert.Equal(t, []string{user.RoleAdminOwner}, usr.Roles)
	require.NoError(t, usr.CheckPassword("Str0ng!Pass"))

	sent := emailsvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "jane@test.com", sent[0].To[0].Address)
	path, q := linkParams(t, sent[0])
	assert.Equal(t, "/onboarding", path)
	token := q.Get("token")
	require.NotEmpty(t, token)
	assert.Contains(t, sent[0].TextContent, "2 days")

	// verify-email peeks at the token without consuming it
	verified, err := env.svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)

	owner, err := env.svc.ConsumeVerificationToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, owner.ID)

	_, err = env.svc.ConsumeVerificationToken(ctx, token)
	assert.Equal(t, user.ErrInvalidToken, err, "tokens are single-use")

	require.NoError(t, env.svc.RestoreVerificationToken(ctx, token, owner))
	_, err = env.svc.ConsumeVerificationToken(ctx, token)
	assert.NoError(t, err, "restored tokens can be redeemed again")
}

func TestService_InvalidTokens(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	for _, token := range []string{"", "   ", "unknown"} {
		_, err := env.svc.VerifyEmail(ctx, token)
		assert.Equal(t, user.ErrInvalidToken, err)
		_, err = env.svc.ConsumeVerificationToken(ctx, token)
		assert.Equal(t, user.ErrInvalidToken, err)
	}

	// token of a deleted / unknown user
	require.NoError(t, env.tokens.SaveToken(ctx, "orphan", "no-such-user", testutil.NewConfig().VerificationTokenTTL))
	_, err := env.svc.ConsumeVerificationToken(ctx, "orphan")
	assert.Equal(t, user.ErrInvalidToken, err)
}

func TestService_CheckUniqueness(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	usr := testutil.CreateUser(t, env.repo, "Jane", "jane@test.com", "", []string{user.RoleAdminOwner}, true)

	err := env.svc.CheckUniqueness(ctx, "jane@test.com")
	require.True(t, core.IsValidationError(err))
	verr := errors.Cause(err).(*core.ValidationError)
	assert.Equal(t, []core.FieldError{{Field: "email", Error: user.ErrEmailExists.Error()}}, verr.Fields)

	assert.NoError(t, env.svc.CheckUniqueness(ctx, "jane@test.com", usr))
	assert.NoError(t, env.svc.CheckUniqueness(ctx, "john@test.com"))
}

func TestService_PasswordReset(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	usr := testutil.CreateUser(t, env.repo, "Jane", "jane@test.com", "Old!Passw0rd", []string{user.RoleAdminOwner}, true)

	assert.Equal(t, user.ErrNotFound, errors.Cause(env.svc.RequestPasswordReset(ctx, "nobody@test.com")))
	require.NoError(t, env.svc.RequestPasswordReset(ctx, " Jane@Test.com "))

	sent := emailsvc.SentMessages()
	require.Len(t, sent, 1)
	path, q := linkParams(t, sent[0])
	assert.Equal(t, "/password-reset", path)

	tests := []struct {
		name    string
		data    user.ResetUserPassword
		wantErr bool
	}{
		{name: "bad uid", data: user.ResetUserPassword{UID: "%%", Token: q.Get("token"), Password: "New!Passw0rd"}, wantErr: true},
		{name: "unknown uid", data: user.ResetUserPassword{UID: user.EncodeUID(user.User{ID: "x"}), Token: q.Get("token"), Password: "New!Passw0rd"}, wantErr: true},
		{name: "bad token", data: user.ResetUserPassword{UID: q.Get("uid"), Token: "HE4TS-sig", Password: "New!Passw0rd"}, wantErr: true},
		{name: "valid", data: user.ResetUserPassword{UID: q.Get("uid"), Token: q.Get("token"), Password: "New!Passw0rd"}},
		{name: "token used", data: user.ResetUserPassword{UID: q.Get("uid"), Token: q.Get("token"), Password: "Other!Passw0rd"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.svc.ResetPassword(ctx, tt.data)
			if tt.wantErr {
				assert.True(t, core.IsValidationError(err), "got %v", err)
				return
			}
			require.NoError(t, err)
		})
	}

	updated, err := env.svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, updated.CheckPassword("New!Passw0rd"))
}

func TestService_ResendVerification(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	usr := testutil.CreateUser(t, env.repo, "Jane", "jane@test.com", "", []string{user.RoleAdminOwner}, true)

	require.NoError(t, env.svc.ResendVerification(ctx, "jane@test.com"))
	require.Len(t, emailsvc.SentMessages(), 1)
	_, q := linkParams(t, emailsvc.SentMessages()[0])
	owner, err := env.svc.ConsumeVerificationToken(ctx, q.Get("token"))
	require.NoError(t, err)
	assert.Equal(t, usr.ID, owner.ID)

	_, err = env.svc.JoinSchool(ctx, owner, "school-1")
	require.NoError(t, err)
	assert.Equal(t, user.ErrNotFound, env.svc.ResendVerification(ctx, "jane@test.com"), "onboarded owners get no new link")
}

func TestService_InviteTeachers(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	invitees, err := env.svc.InviteTeachers(ctx, "school-1", "Green Hill", []string{"T1@test.com", "t2@test.com"})
	require.NoError(t, err)
	assert.Equal(t, []user.Invitee{{Email: "t1@test.com", New: true}, {Email: "t2@test.com", New: true}}, invitees)

	sent := emailsvc.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "You have been invited to join Green Hill", sent[0].Subject)
	path, q := linkParams(t, sent[0])
	assert.Equal(t, "/set-password", path)

	t1, err := env.svc.GetByEmail(ctx, "t1@test.com")
	require.NoError(t, err)
	assert.True(t, t1.IsTeacher())
	assert.True(t, t1.CanAccess(user.PortalTeacher))
	assert.False(t, t1.CanAccess(user.PortalAdmin))
	assert.Equal(t, "school-1", t1.SchoolID)
	assert.Error(t, t1.CheckPassword(""), "invited teachers have no password yet")

	// the invitation link sets the first password
	require.NoError(t, env.svc.ResetPassword(ctx, user.ResetUserPassword{
		UID: q.Get("uid"), Token: q.Get("token"), Password: "Teach!ng123",
	}))

	// inviting again is idempotent for teachers of the same school
	invitees, err = env.svc.InviteTeachers(ctx, "school-1", "Green Hill", []string{"t1@test.com"})
	require.NoError(t, err)
	assert.Equal(t, []user.Invitee{{Email: "t1@test.com"}}, invitees)

	// but not across schools
	_, err = env.svc.InviteTeachers(ctx, "school-2", "Blue Lake", []string{"t1@test.com"})
	assert.True(t, core.IsValidationError(err))
}

func TestService_JoinSchool(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	usr := testutil.CreateUser(t, env.repo, "Jane", "jane@test.com", "", []string{user.RoleAdminOwner}, true)

	joined, err := env.svc.JoinSchool(ctx, usr, "school-1")
	require.NoError(t, err)
	assert.Equal(t, "school-1", joined.SchoolID)
	assert.True(t, joined.EmailVerified)

	_, err = env.svc.JoinSchool(ctx, joined, "school-2")
	assert.Equal(t, user.ErrAlreadyInSchool, err)
}
