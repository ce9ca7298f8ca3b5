package core

import (
	"log"
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
		Debug    bool
		TestMode bool
		Env      string // DEV (default), TEST, QA, PROD
		Build    string

		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Auth     AuthConfig
		Database DatabaseConfig
		Redis    RedisConfig
	}

	ServerConfig struct {
		Host            string
		Port            string
		ShutdownTimeout time.Duration
	}

	AuthConfig struct {
		// Provider selects the active identity provider adapter:
		// "firebase", "oidc" or "mock". An empty value falls back to the
		// mock adapter so a dev deployment never crashes on missing config.
		Provider string

		ResolveTimeout      time.Duration
		SyncTimeout         time.Duration
		SessionTTL          time.Duration
		PrincipalFreshFor   time.Duration
		PrincipalStaleBound time.Duration
		InvitationTimeout   time.Duration

		LoginURL      string
		AdminLoginURL string
		SignOutURL    string

		Firebase FirebaseConfig
		OIDC     OIDCConfig
	}

	FirebaseConfig struct {
		ProjectID       string
		CredentialsJSON string
		CredentialsFile string
	}

	OIDCConfig struct {
		IssuerURL    string
		ClientID     string
		ClientSecret string
		RedirectURL  string
	}

	DatabaseConfig struct {
		Engine     string
		Host       string
		Port       string
		Name       string
		User       string
		Password   string
		DisableTLS bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// NewConfig loads the app configuration from the environment,
// after loading any config/.env.<env> file present.
func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Shule")
	conf.SetDefault("secretKey", "w3lc0me-2-shule!-ch4nge-m3-b4-pr0d")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverPort", "8000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("authProvider", "")
	conf.SetDefault("authResolveTimeout", 8*time.Second)
	conf.SetDefault("authSyncTimeout", 8*time.Second)
	conf.SetDefault("authSessionTTL", 1*time.Hour)
	conf.SetDefault("authPrincipalFreshFor", 30*time.Second)
	conf.SetDefault("authPrincipalStaleBound", 5*time.Minute)
	conf.SetDefault("authInvitationTimeout", 7*24*time.Hour)
	conf.SetDefault("authLoginURL", "/login")
	conf.SetDefault("authAdminLoginURL", "/admin/login")
	conf.SetDefault("authSignOutURL", "/login")
	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("dbName", "shule")
	conf.SetDefault("redisDB", 0)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:    conf.GetBool("debug"),
		TestMode: conf.GetBool("testMode"),
		Env:      env,
		Build:    conf.GetString("build"),

		AppName:         conf.GetString("appName"),
		SecretKey:       conf.GetString("secretKey"),
		FrontendBaseURL: conf.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{
			Name:    conf.GetString("appName"),
			Address: conf.GetString("defaultFromEmail"),
		},
		SendgridApiKey: conf.GetString("sendgridApiKey"),
		RollbarToken:   conf.GetString("rollbarToken"),

		Server: ServerConfig{
			Host:            conf.GetString("serverHost"),
			Port:            conf.GetString("serverPort"),
			ShutdownTimeout: conf.GetDuration("serverShutdownTimeout"),
		},
		Auth: AuthConfig{
			Provider:            conf.GetString("authProvider"),
			ResolveTimeout:      conf.GetDuration("authResolveTimeout"),
			SyncTimeout:         conf.GetDuration("authSyncTimeout"),
			SessionTTL:          conf.GetDuration("authSessionTTL"),
			PrincipalFreshFor:   conf.GetDuration("authPrincipalFreshFor"),
			PrincipalStaleBound: conf.GetDuration("authPrincipalStaleBound"),
			InvitationTimeout:   conf.GetDuration("authInvitationTimeout"),
			LoginURL:            conf.GetString("authLoginURL"),
			AdminLoginURL:       conf.GetString("authAdminLoginURL"),
			SignOutURL:          conf.GetString("authSignOutURL"),
			Firebase: FirebaseConfig{
				ProjectID:       conf.GetString("firebaseProjectID"),
				CredentialsJSON: conf.GetString("firebaseCredentialsJSON"),
				CredentialsFile: conf.GetString("firebaseCredentialsFile"),
			},
			OIDC: OIDCConfig{
				IssuerURL:    conf.GetString("oidcIssuerURL"),
				ClientID:     conf.GetString("oidcClientID"),
				ClientSecret: conf.GetString("oidcClientSecret"),
				RedirectURL:  conf.GetString("oidcRedirectURL"),
			},
		},
		Database: DatabaseConfig{
			Engine:     conf.GetString("dbEngine"),
			Host:       conf.GetString("dbHost"),
			Port:       conf.GetString("dbPort"),
			Name:       conf.GetString("dbName"),
			User:       conf.GetString("dbUser"),
			Password:   conf.GetString("dbPassword"),
			DisableTLS: conf.GetBool("dbDisableTLS"),
		},
		Redis: RedisConfig{
			Addr:     conf.GetString("redisAddr"),
			Password: conf.GetString("redisPassword"),
			DB:       conf.GetInt("redisDB"),
		},
	}
}
