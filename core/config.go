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
	ServerConfig struct {
		Address            string
		DebugHost          string
		Host               string
		ReadTimeout        time.Duration
		WriteTimeout       time.Duration
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	AttendanceConfig struct {
		// MaxDistance is the acceptance radius (meters) around a course's location.
		MaxDistance       float64
		EnforceWindow     bool
		RequireEnrollment bool
		Retry             RetryPolicy
	}

	Config struct {
		Debug            bool
		TestMode         bool
		Env              string
		Build            string
		AppName          string
		SecretKey        string
		RollbarToken     string
		SendgridApiKey   string
		DefaultFromEmail mail.Address

		Server     ServerConfig
		Database   DatabaseConfig
		Attendance AttendanceConfig
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

// NewConfig loads the app configuration from the environment.
// `config/.env.<env>` is loaded first when it exists; real env vars win over it.
// Nested keys map to env vars by replacing "." with "_", e.g. ATTENDANCE_MAX_DISTANCE.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("app_name", "LocateMe")
	v.SetDefault("secret_key", "locate-me-secret-key")
	v.SetDefault("rollbar_token", "")
	v.SetDefault("sendgrid_api_key", "")
	v.SetDefault("default_from_email", "LocateMe <noreply@localhost>")

	v.SetDefault("server.address", ":5000")
	v.SetDefault("server.debug_host", ":5001")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.jwt_expiration_delta", 24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "locateme")
	v.SetDefault("database.user", "locateme")
	v.SetDefault("database.password", "locateme")
	v.SetDefault("database.admin_user", "postgres")
	v.SetDefault("database.admin_password", "postgres")
	v.SetDefault("database.disable_tls", true)

	defaultRetry := DefaultRetryPolicy()
	v.SetDefault("attendance.max_distance", 30.0)
	v.SetDefault("attendance.enforce_window", false)
	v.SetDefault("attendance.require_enrollment", false)
	v.SetDefault("attendance.retry.max_attempts", defaultRetry.MaxAttempts)
	v.SetDefault("attendance.retry.backoff", defaultRetry.Backoff)
	v.SetDefault("attendance.retry.jitter", defaultRetry.Jitter)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	loadDotEnv(env)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	from, err := mail.ParseAddress(v.GetString("default_from_email"))
	if err != nil {
		log.Fatalf("config.mail.ParseAddress(%s): %v", v.GetString("default_from_email"), err)
	}

	return &Config{
		Debug:            v.GetBool("debug") && env != "PROD",
		TestMode:         env == "TEST",
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("app_name"),
		SecretKey:        v.GetString("secret_key"),
		RollbarToken:     v.GetString("rollbar_token"),
		SendgridApiKey:   v.GetString("sendgrid_api_key"),
		DefaultFromEmail: *from,
		Server: ServerConfig{
			Address:            v.GetString("server.address"),
			DebugHost:          v.GetString("server.debug_host"),
			Host:               v.GetString("server.host"),
			ReadTimeout:        v.GetDuration("server.read_timeout"),
			WriteTimeout:       v.GetDuration("server.write_timeout"),
			ShutdownTimeout:    v.GetDuration("server.shutdown_timeout"),
			JWTExpirationDelta: v.GetDuration("server.jwt_expiration_delta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.admin_user"),
			AdminPassword: v.GetString("database.admin_password"),
			DisableTLS:    v.GetBool("database.disable_tls"),
		},
		Attendance: AttendanceConfig{
			MaxDistance:       v.GetFloat64("attendance.max_distance"),
			EnforceWindow:     v.GetBool("attendance.enforce_window"),
			RequireEnrollment: v.GetBool("attendance.require_enrollment"),
			Retry: RetryPolicy{
				MaxAttempts: v.GetInt("attendance.retry.max_attempts"),
				Backoff:     v.GetDuration("attendance.retry.backoff"),
				Jitter:      v.GetFloat64("attendance.retry.jitter"),
			},
		},
	}
}

// loadDotEnv loads config/.env.<env> if it exists (ignored if it does not).
// CONFIG_DIR overrides the directory, which is relative to the working directory by default.
func loadDotEnv(env string) {
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "config"
	}
	dotEnvPath := filepath.Join(dir, ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
}
