package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"riseagain/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB        *gorm.DB
	AppConfig Config
	envLoaded bool
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// StorageConfig points at the hosted object storage service (Supabase
// Storage). ListingsBucket is public; AttachmentsBucket is served through
// signed URLs only.
type StorageConfig struct {
	URL               string `json:"url"`
	ServiceKey        string `json:"-"`
	ListingsBucket    string `json:"listings_bucket"`
	AttachmentsBucket string `json:"attachments_bucket"`
}

type SMTPConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"-"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name"`
}

type IMAPConfig struct {
	Enabled    bool   `json:"enabled"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Username   string `json:"username"`
	Password   string `json:"-"`
	Encryption string `json:"encryption"` // SSL, STARTTLS or plain
	Mailbox    string `json:"mailbox"`
}

type Config struct {
	Environment       string        `json:"environment"`
	ServerPort        string        `json:"server_port"`
	JWTSecret         string        `json:"-"`
	AdminBootstrapKey string        `json:"-"`
	SentryDSN         string        `json:"-"`
	DBHost            string        `json:"db_host"`
	DBPort            string        `json:"db_port"`
	DBUser            string        `json:"db_user"`
	DBPassword        string        `json:"-"`
	DBName            string        `json:"db_name"`
	DBSSLMode         string        `json:"db_ssl_mode"`
	DBMaxIdleConns    int           `json:"db_max_idle_conns"`
	DBMaxOpenConns    int           `json:"db_max_open_conns"`
	RateLimitContact  int           `json:"rate_limit_contact"`
	Storage           StorageConfig `json:"storage"`
	SMTP              SMTPConfig    `json:"smtp"`
	IMAP              IMAPConfig    `json:"imap"`
	Redis             RedisConfig   `json:"redis"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
	envLoaded = true
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:       getEnv("ENVIRONMENT", "development"),
		ServerPort:        getEnv("SERVER_PORT", "5000"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		AdminBootstrapKey: getEnv("ADMIN_BOOTSTRAP_KEY", ""),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", "riseagain"),
		DBSSLMode:         getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		RateLimitContact:  getEnvAsInt("RATE_LIMIT_CONTACT", 5),
		Storage: StorageConfig{
			URL:               strings.TrimRight(getEnv("STORAGE_URL", ""), "/"),
			ServiceKey:        getEnv("STORAGE_SERVICE_KEY", ""),
			ListingsBucket:    getEnv("STORAGE_LISTINGS_BUCKET", "listings-media"),
			AttachmentsBucket: getEnv("STORAGE_ATTACHMENTS_BUCKET", "message-attachments"),
		},
		SMTP: SMTPConfig{
			Host:      getEnv("SMTP_HOST", ""),
			Port:      getEnvAsInt("SMTP_PORT", 587),
			Username:  getEnv("SMTP_USERNAME", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			FromEmail: getEnv("FROM_EMAIL", "info@riseagainholdings.com"),
			FromName:  getEnv("FROM_NAME", "Rise Again Holdings"),
		},
		IMAP: IMAPConfig{
			Enabled:    getEnv("IMAP_HOST", "") != "",
			Host:       getEnv("IMAP_HOST", ""),
			Port:       getEnvAsInt("IMAP_PORT", 993),
			Username:   getEnv("IMAP_USERNAME", ""),
			Password:   getEnv("IMAP_PASSWORD", ""),
			Encryption: getEnv("IMAP_ENCRYPTION", "SSL"),
			Mailbox:    getEnv("IMAP_MAILBOX", "INBOX"),
		},
		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ADDRESS", "") != "",
			Address:  getEnv("REDIS_ADDRESS", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
	}

	// Validate required configurations
	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if AppConfig.AdminBootstrapKey == "" {
		return fmt.Errorf("ADMIN_BOOTSTRAP_KEY is required")
	}
	if AppConfig.Environment == "production" {
		if AppConfig.Storage.URL == "" || AppConfig.Storage.ServiceKey == "" {
			return fmt.Errorf("STORAGE_URL and STORAGE_SERVICE_KEY are required in production")
		}
	}

	logConfig()
	return nil
}

func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("✅ Successfully connected to the database")
	log.Println("🔄 Starting database migration...")
	if err := MigrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("✅ Database migration completed")
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		log.Printf("⚠️ Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("🔧 Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("Storage: %s (listings=%s, attachments=%s)",
		AppConfig.Storage.URL,
		AppConfig.Storage.ListingsBucket,
		AppConfig.Storage.AttachmentsBucket)
	log.Printf("Workers: smtp(%t), imap(%t)",
		AppConfig.SMTP.Host != "",
		AppConfig.IMAP.Enabled)
}

// MigrateDB keeps the schema in step with the models. Exported so tests
// can run the same migration against their own database.
func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.AdminUser{},
		&models.Listing{},
		&models.ListingMedia{},
		&models.Contact{},
		&models.Conversation{},
		&models.Message{},
		&models.MessageAttachment{},
		&models.MessageDraft{},
		&models.Notification{},
	)
}
