package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/surgepay/core/school"
	"github.com/trezcool/surgepay/core/user"
	emailsvc "github.com/trezcool/surgepay/services/email"
	testutil "github.com/trezcool/surgepay/tests"
)

// signUpOwner signs up a school owner and returns them with their verification token.
func signUpOwner(t *testing.T, app testApp, email string) (user.User, string) {
	emailsvc.ResetSentMessages()
	usr, err := app.usrSvc.SignUp(context.Background(), user.NewUser{
		Name: "Owner", Email: email, Password: strongPwd, PasswordConfirm: strongPwd,
	})
	require.NoError(t, err)
	sent := emailsvc.SentMessages()
	require.Len(t, sent, 1)
	token := linkQuery(t, sent[0]).Get("token")
	require.NotEmpty(t, token)
	return usr, token
}

func TestSchoolAPI_completeOnboarding(t *testing.T) {
	app := setup(t)
	owner, token := signUpOwner(t, app, "owner@test.com")
	testutil.CreateUser(t, app.usrRepo, "Other", "other@test.com", strongPwd, []string{user.RoleAdminOwner}, true)

	invalidToken := marchallObj(t, httpErr{Error: user.ErrInvalidToken.Error()})
	tests := []httpTest{
		{
			name:     "missing fields",
			body:     []byte(`{"schoolName": "  ", "students": ["Ann"]}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"schoolName":        "this field is required",
				"address":           "this field is required",
				"verificationToken": "this field is required",
			}),
		},
		{
			name: "unknown token",
			body: marchallObj(t, school.CompleteOnboarding{
				SchoolName: "Green Hill", Address: "1 Main St", VerificationToken: "bogus",
			}),
			wantCode: http.StatusBadRequest,
			wantData: invalidToken,
		},
		{
			name: "teacher already elsewhere",
			body: marchallObj(t, school.CompleteOnboarding{
				SchoolName:        "Green Hill",
				Address:           "1 Main St",
				Teachers:          []string{"other@test.com"},
				VerificationToken: token,
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"teachers": "other@test.com: " + user.ErrEmailExists.Error(),
			}),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.method = http.MethodPost
			tc.path = "/v1/onboarding/complete"
			checkCodeAndData(t, tc, app.do(tc))
		})
	}

	t.Run("success", func(t *testing.T) {
		emailsvc.ResetSentMessages()
		rec := app.do(httpTest{
			method: http.MethodPost,
			path:   "/v1/onboarding/complete",
			body: marchallObj(t, school.CompleteOnboarding{
				SchoolName:        " Green Hill ",
				Motto:             "Learn and grow",
				Address:           "1 Main St",
				Teachers:          []string{"T1@test.com", "t1@test.com", "t2@test.com"},
				Students:          []string{"Ann", "Bob", " "},
				VerificationToken: token,
			}),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		data := decodeMap(t, rec)
		assert.Equal(t, msgOnboardingCompleted, data["message"])
		sch, _ := data["school"].(map[string]interface{})
		require.NotNil(t, sch)
		assert.Equal(t, "Green Hill", sch["name"])
		assert.Equal(t, owner.ID, sch["ownerId"])
		assert.Equal(t, []interface{}{"t1@test.com", "t2@test.com"}, sch["teachers"])
		assert.Equal(t, []interface{}{"Ann", "Bob"}, sch["students"])

		assert.Len(t, emailsvc.SentMessages(), 2) // teacher invitations
	})

	t.Run("token spent", func(t *testing.T) {
		tc := httpTest{
			method: http.MethodPost,
			path:   "/v1/onboarding/complete",
			body: marchallObj(t, school.CompleteOnboarding{
				SchoolName: "Green Hill", Address: "1 Main St", VerificationToken: token,
			}),
			wantCode: http.StatusBadRequest,
			wantData: invalidToken,
		}
		checkCodeAndData(t, tc, app.do(tc))
	})

	t.Run("metrics", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/metrics")
		app.ServeHTTP(rec, req)
		body := rec.Body.String()
		assert.Contains(t, body, `surgepay_onboarding_completions_total{result="completed"} 1`)
		assert.Contains(t, body, `surgepay_onboarding_completions_total{result="invalid"} 1`)
		assert.Contains(t, body, `surgepay_onboarding_completions_total{result="rejected"} 3`)
	})
}

func TestSchoolAPI_retrieveAndStudents(t *testing.T) {
	app := setup(t)
	owner, token := signUpOwner(t, app, "owner@test.com")
	loner := testutil.CreateUser(t, app.usrRepo, "Loner", "loner@test.com", strongPwd, []string{user.RoleAdminOwner}, true)

	rec := app.do(httpTest{
		method: http.MethodPost,
		path:   "/v1/onboarding/complete",
		body: marchallObj(t, school.CompleteOnboarding{
			SchoolName:        "Green Hill",
			Address:           "1 Main St",
			Teachers:          []string{"teacher@test.com"},
			Students:          []string{"Ann", "Bob"},
			VerificationToken: token,
		}),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	owner, err := app.usrSvc.GetByID(context.Background(), owner.ID)
	require.NoError(t, err)
	teacher, err := app.usrSvc.GetByEmail(context.Background(), "teacher@test.com")
	require.NoError(t, err)
	require.Equal(t, owner.SchoolID, teacher.SchoolID)

	ownerToken := app.getToken(t, owner, user.PortalAdmin)
	teacherToken := app.getToken(t, teacher, user.PortalTeacher)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})
	notFound := marchallObj(t, httpErr{Error: "not found"})

	tests := []httpTest{
		{
			name:     "school: no token",
			path:     "/v1/school",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "school: teacher portal",
			path:     "/v1/school",
			token:    teacherToken,
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
		{
			name:     "school: owner token on teacher portal",
			path:     "/v1/school",
			token:    app.getToken(t, owner, user.PortalTeacher),
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
		{
			name:     "school: not onboarded",
			path:     "/v1/school",
			token:    app.getToken(t, loner, user.PortalAdmin),
			wantCode: http.StatusNotFound,
			wantData: notFound,
		},
		{
			name:     "students: no school",
			path:     "/v1/school/students",
			token:    app.getToken(t, loner, user.PortalAdmin),
			wantCode: http.StatusNotFound,
			wantData: notFound,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.method = http.MethodGet
			checkCodeAndData(t, tc, app.do(tc))
		})
	}

	t.Run("school: owner", func(t *testing.T) {
		rec := app.do(httpTest{method: http.MethodGet, path: "/v1/school", token: ownerToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		data := decodeMap(t, rec)
		assert.Equal(t, owner.SchoolID, data["id"])
		assert.Equal(t, "Green Hill", data["name"])
	})

	for _, tok := range []string{ownerToken, teacherToken} {
		rec := app.do(httpTest{method: http.MethodGet, path: "/v1/school/students", token: tok})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var students []school.Student
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &students))
		require.Len(t, students, 2)
		names := []string{students[0].FullName, students[1].FullName}
		assert.ElementsMatch(t, []string{"Ann", "Bob"}, names)
	}
}
