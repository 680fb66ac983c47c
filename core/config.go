package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string           `mapstructure:"env"`
		Debug            bool             `mapstructure:"debug"`
		TestMode         bool             `mapstructure:"testMode"`
		AppName          string           `mapstructure:"appName"`
		Build            string           `mapstructure:"build"`
		SecretKey        string           `mapstructure:"secretKey"`
		FrontendBaseURL  string           `mapstructure:"frontendBaseURL"`
		DefaultFromEmail string           `mapstructure:"defaultFromEmail"`
		SendgridApiKey   string           `mapstructure:"sendgridApiKey"`
		RollbarToken     string           `mapstructure:"rollbarToken"`
		Server           ServerConfig     `mapstructure:"server"`
		Database         DBConfig         `mapstructure:"database"`
		Redis            RedisConfig      `mapstructure:"redis"`
		Payment          PaymentConfig    `mapstructure:"payment"`
		Files            FilesConfig      `mapstructure:"files"`
		Onboarding       OnboardingConfig `mapstructure:"onboarding"`

		// InquiryRecipients is the internal distribution list notified of every inquiry.
		InquiryRecipients []string `mapstructure:"inquiryRecipients"`

		PasswordResetTimeoutDelta time.Duration `mapstructure:"passwordResetTimeoutDelta"`
		VerificationTokenTTL      time.Duration `mapstructure:"verificationTokenTTL"`
	}

	ServerConfig struct {
		Address                   string        `mapstructure:"address"`
		Host                      string        `mapstructure:"host"`
		DebugHost                 string        `mapstructure:"debugHost"`
		ShutdownTimeout           time.Duration `mapstructure:"shutdownTimeout"`
		JWTExpirationDelta        time.Duration `mapstructure:"jwtExpirationDelta"`
		JWTRefreshExpirationDelta time.Duration `mapstructure:"jwtRefreshExpirationDelta"`
	}

	DBConfig struct {
		Engine     string `mapstructure:"engine"`
		Host       string `mapstructure:"host"`
		Port       string `mapstructure:"port"`
		Name       string `mapstructure:"name"`
		User       string `mapstructure:"user"`
		Password   string `mapstructure:"password"`
		DisableTLS bool   `mapstructure:"disableTLS"`
	}

	RedisConfig struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	}

	PaymentConfig struct {
		// WebhookHash is the secret the payment gateway echoes in the `verif-hash` header.
		WebhookHash string `mapstructure:"webhookHash"`
	}

	FilesConfig struct {
		BaseURL     string        `mapstructure:"baseURL"`
		Secret      string        `mapstructure:"secret"`
		DownloadTTL time.Duration `mapstructure:"downloadTTL"`
	}

	OnboardingConfig struct {
		APIBaseURL    string        `mapstructure:"apiBaseURL"`
		DashboardPath string        `mapstructure:"dashboardPath"`
		RedirectDelay time.Duration `mapstructure:"redirectDelay"`
	}
)

func (dbc DBConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// FromAddress parses DefaultFromEmail, falling back to AppName <noreply@localhost>.
func (conf *Config) FromAddress() mail.Address {
	if addr, err := mail.ParseAddress(conf.DefaultFromEmail); err == nil {
		if addr.Name == "" {
			addr.Name = conf.AppName
		}
		return *addr
	}
	return mail.Address{Name: conf.AppName, Address: "noreply@localhost"}
}

// UsesDatabase reports whether a SQL database has been configured.
func (conf *Config) UsesDatabase() bool {
	return conf.Database.Host != "" && conf.Database.Name != ""
}

// NewConfig loads the configuration from defaults, `config/.env.<env>` and the environment.
// Environment variables are prefixed with the upper-cased env name, e.g. DEV_SECRETKEY or PROD_SERVER_ADDRESS.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "PROD":
		v.SetDefault("debug", false)
	}
	v.SetDefault("env", env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.Unmarshal(): %v", err)
	}
	return conf
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "SurgePay")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "SurgePay <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("inquiryRecipients", []string{"team@localhost"})
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("verificationTokenTTL", 48*time.Hour)

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("payment.webhookHash", "")

	v.SetDefault("files.baseURL", "http://localhost:8000/files")
	v.SetDefault("files.secret", "")
	v.SetDefault("files.downloadTTL", time.Hour)

	v.SetDefault("onboarding.apiBaseURL", "http://localhost:8000")
	v.SetDefault("onboarding.dashboardPath", "/dashboard")
	v.SetDefault("onboarding.redirectDelay", 2*time.Second)
}
