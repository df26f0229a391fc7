// backend-go/internal/config/config.go
package config

import (
	"log"
	"os"
	"sync"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/analytics"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	App       AppConfig
	Cache     CacheConfig
	Sheets    SheetsConfig
	Drive     DriveConfig
	Storage   StorageConfig
	LLM       LLMConfig
	Analytics AnalyticsConfig
}

type ServerConfig struct {
	Port           string
	OpsPort        string
	Mode           string
	LogLevel       string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

type AppConfig struct {
	UploadDir string
	DataDir   string
	// LedgerSource selects where the ledger is read from: sheets, xlsx or csv.
	LedgerSource string
	LedgerPath   string
	IndexPath    string
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
}

type SheetsConfig struct {
	CredentialsJSON string
	SpreadsheetID   string
}

type DriveConfig struct {
	CredentialsJSON string
	FolderPath      string
	WorkbookName    string
}

type StorageConfig struct {
	// Provider is minio, sevalla or empty to keep exports local.
	Provider  string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	TimeoutSecs int
}

type AnalyticsConfig struct {
	Workers         int
	ServiceLevel    float64
	Windows         []int
	Horizons        []int
	CriticalDays    float64
	UrgentDays      float64
	AttentionDays   float64
	StaleAfterDays  int
	ClassALimit     float64
	ClassBLimit     float64
	ReplenishDays   float64
	PurchaseMargin  float64
	DivergenceDelta float64
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		// Ensure upload and data directories exist
		ensureDir(viper.GetString("APP_UPLOAD_DIR"))
		ensureDir(viper.GetString("APP_DATA_DIR"))

		instance = build()
	})

	return instance
}

func setDefaults() {
	def := analytics.DefaultConfig()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("OPS_PORT", "8081")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SERVER_READ_TIMEOUT", 30)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("DB_ENABLED", false)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "marfim")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
	viper.SetDefault("APP_DATA_DIR", "./data/output")
	viper.SetDefault("LEDGER_SOURCE", "xlsx")
	viper.SetDefault("LEDGER_PATH", "./data/estoque.xlsx")
	viper.SetDefault("INDEX_PATH", "")
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_REPORT_TTL_SECONDS", 300)
	viper.SetDefault("GOOGLE_SHEETS_CREDENTIALS_JSON", "")
	viper.SetDefault("GOOGLE_SHEETS_SPREADSHEET_ID", "")
	viper.SetDefault("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
	viper.SetDefault("GOOGLE_DRIVE_FOLDER", "")
	viper.SetDefault("GOOGLE_DRIVE_WORKBOOK", "CEARÁ ESTOQUE ONLINE")
	viper.SetDefault("STORAGE_PROVIDER", "")
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("STORAGE_PREFIX", "exports/")
	viper.SetDefault("GROQ_API_KEY", "")
	viper.SetDefault("LLM_BASE_URL", "https://api.groq.com/openai/v1")
	viper.SetDefault("LLM_MODEL", "llama-3.3-70b-versatile")
	viper.SetDefault("LLM_TEMPERATURE", 0.3)
	viper.SetDefault("LLM_TIMEOUT_SECONDS", 60)
	viper.SetDefault("ANALYTICS_WORKERS", 0)
	viper.SetDefault("ANALYTICS_SERVICE_LEVEL", def.ServiceLevel)
	viper.SetDefault("ANALYTICS_WINDOWS", def.Windows)
	viper.SetDefault("ANALYTICS_HORIZONS", def.Horizons)
	viper.SetDefault("ANALYTICS_CRITICAL_DAYS", def.CriticalDays)
	viper.SetDefault("ANALYTICS_URGENT_DAYS", def.UrgentDays)
	viper.SetDefault("ANALYTICS_ATTENTION_DAYS", def.AttentionDays)
	viper.SetDefault("ANALYTICS_STALE_AFTER_DAYS", def.StaleAfterDays)
	viper.SetDefault("ANALYTICS_CLASS_A_LIMIT", def.ClassALimit)
	viper.SetDefault("ANALYTICS_CLASS_B_LIMIT", def.ClassBLimit)
	viper.SetDefault("ANALYTICS_REPLENISH_DAYS", def.AlertReplenishDays)
	viper.SetDefault("ANALYTICS_PURCHASE_MARGIN", def.PurchaseSafetyMargin)
	viper.SetDefault("ANALYTICS_DIVERGENCE_TOLERANCE", def.DivergenceTolerance)
}

func build() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			OpsPort:        viper.GetString("OPS_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Enabled:  viper.GetBool("DB_ENABLED"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
			MaxConns: viper.GetInt("DB_MAX_CONNS"),
		},
		App: AppConfig{
			UploadDir:    viper.GetString("APP_UPLOAD_DIR"),
			DataDir:      viper.GetString("APP_DATA_DIR"),
			LedgerSource: viper.GetString("LEDGER_SOURCE"),
			LedgerPath:   viper.GetString("LEDGER_PATH"),
			IndexPath:    viper.GetString("INDEX_PATH"),
		},
		Cache: CacheConfig{
			Enabled:          viper.GetBool("CACHE_ENABLED"),
			RedisURL:         viper.GetString("REDIS_URL"),
			RedisHost:        viper.GetString("REDIS_HOST"),
			RedisPort:        viper.GetString("REDIS_PORT"),
			RedisPassword:    viper.GetString("REDIS_PASSWORD"),
			RedisDB:          viper.GetInt("REDIS_DB"),
			ReportTTLSeconds: viper.GetInt("CACHE_REPORT_TTL_SECONDS"),
		},
		Sheets: SheetsConfig{
			CredentialsJSON: viper.GetString("GOOGLE_SHEETS_CREDENTIALS_JSON"),
			SpreadsheetID:   viper.GetString("GOOGLE_SHEETS_SPREADSHEET_ID"),
		},
		Drive: DriveConfig{
			CredentialsJSON: viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			FolderPath:      viper.GetString("GOOGLE_DRIVE_FOLDER"),
			WorkbookName:    viper.GetString("GOOGLE_DRIVE_WORKBOOK"),
		},
		Storage: StorageConfig{
			Provider:  viper.GetString("STORAGE_PROVIDER"),
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			Region:    viper.GetString("STORAGE_REGION"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			Prefix:    viper.GetString("STORAGE_PREFIX"),
		},
		LLM: LLMConfig{
			APIKey:      viper.GetString("GROQ_API_KEY"),
			BaseURL:     viper.GetString("LLM_BASE_URL"),
			Model:       viper.GetString("LLM_MODEL"),
			Temperature: viper.GetFloat64("LLM_TEMPERATURE"),
			TimeoutSecs: viper.GetInt("LLM_TIMEOUT_SECONDS"),
		},
		Analytics: AnalyticsConfig{
			Workers:         viper.GetInt("ANALYTICS_WORKERS"),
			ServiceLevel:    viper.GetFloat64("ANALYTICS_SERVICE_LEVEL"),
			Windows:         viper.GetIntSlice("ANALYTICS_WINDOWS"),
			Horizons:        viper.GetIntSlice("ANALYTICS_HORIZONS"),
			CriticalDays:    viper.GetFloat64("ANALYTICS_CRITICAL_DAYS"),
			UrgentDays:      viper.GetFloat64("ANALYTICS_URGENT_DAYS"),
			AttentionDays:   viper.GetFloat64("ANALYTICS_ATTENTION_DAYS"),
			StaleAfterDays:  viper.GetInt("ANALYTICS_STALE_AFTER_DAYS"),
			ClassALimit:     viper.GetFloat64("ANALYTICS_CLASS_A_LIMIT"),
			ClassBLimit:     viper.GetFloat64("ANALYTICS_CLASS_B_LIMIT"),
			ReplenishDays:   viper.GetFloat64("ANALYTICS_REPLENISH_DAYS"),
			PurchaseMargin:  viper.GetFloat64("ANALYTICS_PURCHASE_MARGIN"),
			DivergenceDelta: viper.GetFloat64("ANALYTICS_DIVERGENCE_TOLERANCE"),
		},
	}
}

// EngineConfig overlays the configured values on the analytics defaults. Zero values keep
// the default.
func (a AnalyticsConfig) EngineConfig() analytics.Config {
	cfg := analytics.DefaultConfig()
	cfg.Workers = a.Workers
	if a.ServiceLevel > 0 {
		cfg.ServiceLevel = a.ServiceLevel
	}
	if len(a.Windows) > 0 {
		cfg.Windows = a.Windows
	}
	if len(a.Horizons) > 0 {
		cfg.Horizons = a.Horizons
	}
	setIfPositive(&cfg.CriticalDays, a.CriticalDays)
	setIfPositive(&cfg.UrgentDays, a.UrgentDays)
	setIfPositive(&cfg.AttentionDays, a.AttentionDays)
	setIfPositive(&cfg.ClassALimit, a.ClassALimit)
	setIfPositive(&cfg.ClassBLimit, a.ClassBLimit)
	setIfPositive(&cfg.AlertReplenishDays, a.ReplenishDays)
	setIfPositive(&cfg.PurchaseSafetyMargin, a.PurchaseMargin)
	setIfPositive(&cfg.DivergenceTolerance, a.DivergenceDelta)
	if a.StaleAfterDays > 0 {
		cfg.StaleAfterDays = a.StaleAfterDays
	}
	return cfg
}

func setIfPositive(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
