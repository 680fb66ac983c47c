package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/trezcool/surgepay/core"
	"github.com/trezcool/surgepay/core/user"
	appfs "github.com/trezcool/surgepay/fs"
	logsvc "github.com/trezcool/surgepay/services/logger"
)

// NewConfig returns the configuration used by tests. It does not read the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:               "TEST",
		Debug:             true,
		TestMode:          true,
		AppName:           "SurgePay",
		Build:             "test",
		SecretKey:         "test-secret-key",
		FrontendBaseURL:   "http://localhost:3000",
		DefaultFromEmail:  "SurgePay <noreply@surgepay.test>",
		InquiryRecipients: []string{"team@surgepay.test"},
		Server: core.ServerConfig{
			Address:                   ":8000",
			Host:                      "localhost",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 30 * time.Minute,
		},
		Payment: core.PaymentConfig{WebhookHash: "test-webhook-hash"},
		Files: core.FilesConfig{
			BaseURL:     "https://files.surgepay.test",
			Secret:      "test-files-secret",
			DownloadTTL: time.Hour,
		},
		Onboarding: core.OnboardingConfig{
			APIBaseURL:    "http://localhost:8000",
			DashboardPath: "/dashboard",
			RedirectDelay: 2 * time.Second,
		},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		VerificationTokenTTL:      48 * time.Hour,
	}
}

// NewLogger returns a logger writing nowhere.
func NewLogger() core.Logger {
	return logsvc.NewRollbarLogger(zap.NewNop(), NewConfig())
}

// NewValidator returns a validator set up like the API's, with the user password policy.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(appfs.FS, NewLogger())
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}
