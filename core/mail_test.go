package core_test

import (
	"net/mail"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/surgepay/core"
	appfs "github.com/trezcool/surgepay/fs"
)

func newMailConfig() *core.Config {
	return &core.Config{AppName: "SurgePay", FrontendBaseURL: "https://app.surgepay.test", TestMode: true}
}

func TestParseEmailTemplates(t *testing.T) {
	require.NoError(t, core.ParseEmailTemplates(appfs.FS, newMailConfig()))

	type field struct{ Label, Value string }

	tests := []struct {
		name     string
		data     map[string]interface{}
		wantText []string
	}{
		{
			name: "verify_email",
			data: map[string]interface{}{
				"Name":     "Jane Doe",
				"Link":     "https://app.surgepay.test/onboarding?token=tok-123",
				"ValidFor": "48 hours",
			},
			wantText: []string{"Jane Doe", "token=tok-123", "48 hours"},
		},
		{
			name: "password_reset",
			data: map[string]interface{}{
				"Name": "Jane Doe",
				"Link": "https://app.surgepay.test/password-reset?uid=abc&token=xyz",
			},
			wantText: []string{"Jane Doe", "/password-reset?uid=abc"},
		},
		{
			name: "teacher_invite",
			data: map[string]interface{}{
				"SchoolName": "Hillside Academy",
				"Link":       "https://app.surgepay.test/set-password?uid=abc&token=xyz",
			},
			wantText: []string{"Hillside Academy", "/set-password?uid=abc"},
		},
		{
			name: "inquiry_notification",
			data: map[string]interface{}{
				"Title":       "Contact request",
				"Fields":      []field{{Label: "Message", Value: "Hello there"}},
				"SubmittedAt": "Fri, 01 Mar 2024 10:00:00 UTC",
			},
			wantText: []string{"Contact request", "Message", "Hello there"},
		},
		{
			name: "inquiry_confirmation",
			data: map[string]interface{}{
				"Name":    "Jane Doe",
				"Heading": "Thanks for reaching out",
				"Body":    "We will get back to you shortly.",
			},
			wantText: []string{"Jane Doe", "Thanks for reaching out"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := &core.EmailMessage{
				To:           []mail.Address{{Address: "jane@test.com"}},
				TemplateName: tc.name,
				TemplateData: tc.data,
			}
			require.NoError(t, msg.Render())
			require.NoError(t, msg.Check())

			assert.Contains(t, msg.TextContent, "SurgePay")
			assert.Contains(t, msg.HTMLContent, "SurgePay")
			for _, want := range tc.wantText {
				assert.Contains(t, msg.TextContent, want)
			}
		})
	}
}

func TestParseEmailTemplates_errors(t *testing.T) {
	conf := newMailConfig()

	t.Run("missing layout", func(t *testing.T) {
		fsys := fstest.MapFS{
			"assets/templates/email/welcome.txt": {Data: []byte(`{{define "content"}}hi{{end}}`)},
		}
		err := core.ParseEmailTemplates(fsys, conf)
		assert.EqualError(t, err, "parsing email template welcome.txt: template: pattern matches no files: `assets/templates/email/_base.txt`")
	})

	t.Run("no templates", func(t *testing.T) {
		err := core.ParseEmailTemplates(fstest.MapFS{}, conf)
		assert.EqualError(t, err, "no email templates found in assets/templates/email")
	})

	// a failed parse keeps the previously loaded templates
	msg := &core.EmailMessage{
		To:           []mail.Address{{Address: "jane@test.com"}},
		TemplateName: "inquiry_confirmation",
		TemplateData: map[string]interface{}{"Name": "Jane", "Heading": "Hi", "Body": "Thanks"},
	}
	require.NoError(t, core.ParseEmailTemplates(appfs.FS, conf))
	_ = core.ParseEmailTemplates(fstest.MapFS{}, conf)
	assert.NoError(t, msg.Render())
}
