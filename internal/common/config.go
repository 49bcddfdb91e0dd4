package common

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Archive drivers.
const (
	ArchiveNone     = "none"
	ArchiveSQLite   = "sqlite"
	ArchivePostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	OCR     OCRConfig
	NLP     NLPConfig
	Jobs    JobsConfig
	Archive ArchiveConfig
	Ingest  IngestConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
	LogLevel slog.Level
	// InputRoot confines submitted document paths; empty allows any path.
	InputRoot string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract       string
	TesseractLang   string
	TessdataDir     string
	Pdftoppm        string
	DPI             int
	MaxPages        int
	PageWorkers     int
	PreferTextLayer bool
}

// NLPConfig holds entity classifier configuration
type NLPConfig struct {
	Enabled bool
}

// JobsConfig holds job manager configuration
type JobsConfig struct {
	Workers         int
	QueueSize       int
	Retention       int
	CleanupInterval time.Duration
	PreviewChars    int
}

// IngestConfig holds directory intake configuration
type IngestConfig struct {
	WatchDirs   []string
	InitialScan bool
	SkipHidden  bool
	Debounce    time.Duration
}

// ArchiveConfig holds result archive configuration
type ArchiveConfig struct {
	Driver          string
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCAddr:  getEnv("GRPC_ADDR", ":8080"),
			LogLevel:  getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
			InputRoot: getEnv("INPUT_ROOT", ""),
		},
		OCR: OCRConfig{
			Tesseract:       getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang:   getEnv("TESSERACT_LANG", "rus"),
			TessdataDir:     getEnv("TESSDATA_PREFIX", ""),
			Pdftoppm:        getEnv("PDFTOPPM_BIN", "pdftoppm"),
			DPI:             getEnvAsInt("OCR_DPI", 300),
			MaxPages:        getEnvAsInt("OCR_MAX_PAGES", 0),
			PageWorkers:     getEnvAsInt("OCR_PAGE_WORKERS", 2),
			PreferTextLayer: getEnvAsBool("OCR_PREFER_TEXT_LAYER", true),
		},
		NLP: NLPConfig{
			Enabled: getEnvAsBool("NLP_ENABLED", true),
		},
		Jobs: JobsConfig{
			Workers:         getEnvAsInt("JOB_WORKERS", 4),
			QueueSize:       getEnvAsInt("JOB_QUEUE_SIZE", 256),
			Retention:       getEnvAsInt("JOB_RETENTION", 100),
			CleanupInterval: getEnvAsDuration("JOB_CLEANUP_INTERVAL", time.Hour),
			PreviewChars:    getEnvAsInt("RESULT_PREVIEW_CHARS", 1000),
		},
		Archive: ArchiveConfig{
			Driver:          strings.ToLower(getEnv("ARCHIVE_DRIVER", ArchiveNone)),
			DSN:             getEnv("ARCHIVE_DSN", ""),
			MaxConns:        getEnvAsInt32("ARCHIVE_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("ARCHIVE_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("ARCHIVE_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("ARCHIVE_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("ARCHIVE_DIAL_TIMEOUT", 3*time.Second),
		},
		Ingest: IngestConfig{
			WatchDirs:   getEnvAsList("WATCH_DIRS"),
			InitialScan: getEnvAsBool("WATCH_INITIAL_SCAN", false),
			SkipHidden:  getEnvAsBool("WATCH_SKIP_HIDDEN", true),
			Debounce:    getEnvAsDuration("WATCH_DEBOUNCE", 500*time.Millisecond),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty items.
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	if value := os.Getenv(key); value != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(value)); err == nil {
			return lvl
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.GRPCAddr == "" {
		return NewAppError(CodeConfig, "GRPC_ADDR is required", ErrInvalidInput)
	}
	if c.OCR.DPI <= 0 {
		return NewAppError(CodeConfig, "OCR_DPI must be positive", ErrInvalidInput)
	}
	if c.OCR.PageWorkers <= 0 {
		return NewAppError(CodeConfig, "OCR_PAGE_WORKERS must be positive", ErrInvalidInput)
	}
	if c.Jobs.Workers <= 0 {
		return NewAppError(CodeConfig, "JOB_WORKERS must be positive", ErrInvalidInput)
	}
	if c.Jobs.Retention <= 0 {
		return NewAppError(CodeConfig, "JOB_RETENTION must be positive", ErrInvalidInput)
	}
	if c.Jobs.CleanupInterval <= 0 {
		return NewAppError(CodeConfig, "JOB_CLEANUP_INTERVAL must be positive", ErrInvalidInput)
	}
	switch c.Archive.Driver {
	case ArchiveNone:
	case ArchiveSQLite, ArchivePostgres:
		if c.Archive.DSN == "" {
			return NewAppError(CodeConfig, "ARCHIVE_DSN is required for archive driver "+c.Archive.Driver, ErrInvalidInput)
		}
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unknown ARCHIVE_DRIVER %q", c.Archive.Driver), ErrInvalidInput)
	}
	return nil
}
