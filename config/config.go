package config

import (
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Port    string
	Env     string
	AppName string

	DBDriver   string // postgres, mysql, sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTKey      string
	JWTTTLHours int
	SaltRound   int

	EmailDriver    string // smtp, sendgrid, console
	EmailSender    string
	Password       string // SMTP Password
	SMTPHost       string
	SMTPPort       string
	SendgridAPIKey string
	FrontendURL    string

	RollbarToken string

	MidtransServerKey  string
	MidtransProduction bool

	ZoomAccountID    string
	ZoomClientID     string
	ZoomClientSecret string

	StorageDriver      string // local, oss
	PublicDir          string
	OSSEndpoint        string
	OSSAccessKeyID     string
	OSSAccessKeySecret string
	OSSBucket          string
	OSSPublicBaseURL   string

	CertificateTemplate       string
	CertificatePassPercentage float64
	ClassReminderLeadMinutes  int
	TokenBlacklistTTLDays     int
	RateLimitPerMinute        int
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from .env, environment variables and defaults
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	AppConfig = fromViper(v)

	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.DBDriver == "sqlite" && AppConfig.IsProduction() {
		log.Println("Warning: Running production on sqlite. Set DB_DRIVER to postgres or mysql.")
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "LMS")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "lms")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("JWT_SECRET_KEY", "defaultSecret")
	v.SetDefault("JWT_TTL_HOURS", 24)
	v.SetDefault("SALT_ROUND", 10)
	v.SetDefault("EMAIL_DRIVER", "console")
	v.SetDefault("EMAIL_SENDER", "noreply@localhost")
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("MIDTRANS_PRODUCTION", false)
	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("PUBLIC_DIR", "./public")
	v.SetDefault("CERTIFICATE_TEMPLATE", "./assets/certificate-template.png")
	v.SetDefault("CERTIFICATE_PASS_PERCENTAGE", 40.0)
	v.SetDefault("CLASS_REMINDER_LEAD_MINUTES", 30)
	v.SetDefault("TOKEN_BLACKLIST_TTL_DAYS", 7)
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:    v.GetString("PORT"),
		Env:     strings.ToLower(v.GetString("APP_ENV")),
		AppName: v.GetString("APP_NAME"),

		DBDriver:   strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBSSLMode:  v.GetString("DB_SSLMODE"),

		JWTKey:      v.GetString("JWT_SECRET_KEY"),
		JWTTTLHours: v.GetInt("JWT_TTL_HOURS"),
		SaltRound:   v.GetInt("SALT_ROUND"),

		EmailDriver:    strings.ToLower(v.GetString("EMAIL_DRIVER")),
		EmailSender:    v.GetString("EMAIL_SENDER"),
		Password:       v.GetString("PASSWORD"),
		SMTPHost:       v.GetString("SMTP_HOST"),
		SMTPPort:       v.GetString("SMTP_PORT"),
		SendgridAPIKey: v.GetString("SENDGRID_API_KEY"),
		FrontendURL:    v.GetString("FRONTEND_URL"),

		RollbarToken: v.GetString("ROLLBAR_TOKEN"),

		MidtransServerKey:  v.GetString("MIDTRANS_SERVER_KEY"),
		MidtransProduction: v.GetBool("MIDTRANS_PRODUCTION"),

		ZoomAccountID:    v.GetString("ZOOM_ACCOUNT_ID"),
		ZoomClientID:     v.GetString("ZOOM_CLIENT_ID"),
		ZoomClientSecret: v.GetString("ZOOM_CLIENT_SECRET"),

		StorageDriver:      strings.ToLower(v.GetString("STORAGE_DRIVER")),
		PublicDir:          v.GetString("PUBLIC_DIR"),
		OSSEndpoint:        v.GetString("ALI_OSS_ENDPOINT"),
		OSSAccessKeyID:     v.GetString("ALI_OSS_ACCESS_KEY"),
		OSSAccessKeySecret: v.GetString("ALI_OSS_SECRET_KEY"),
		OSSBucket:          v.GetString("ALI_OSS_BUCKET"),
		OSSPublicBaseURL:   v.GetString("ALI_OSS_PUBLIC_BASE_URL"),

		CertificateTemplate:       v.GetString("CERTIFICATE_TEMPLATE"),
		CertificatePassPercentage: v.GetFloat64("CERTIFICATE_PASS_PERCENTAGE"),
		ClassReminderLeadMinutes:  v.GetInt("CLASS_REMINDER_LEAD_MINUTES"),
		TokenBlacklistTTLDays:     v.GetInt("TOKEN_BLACKLIST_TTL_DAYS"),
		RateLimitPerMinute:        v.GetInt("RATE_LIMIT_PER_MINUTE"),
	}
}

// Defaults returns a Config populated only with default values. Used by tests and scripts
// that must not depend on the process environment.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	return fromViper(v)
}

// IsProduction reports whether raw error messages must be hidden from API responses.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}
