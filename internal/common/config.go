package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	Ensemble EnsembleConfig
	Vision   VisionConfig
	Export   ExportConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // postgres | sqlite | none
	DSN              string
	SQLitePath       string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr       string
	MetricsAddr    string
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine           string   // vision | tesseract | cli | chain
	Languages        []string // ISO 639-1 hints, e.g. it,en
	Timeout          time.Duration
	Tesseract        string
	Pdftoppm         string
	DPI              int
	MaxPages         int
	PSM              int
	TessdataDir      string
	HeicConverter    string
	ArtifactCacheDir string
}

// EnsembleConfig holds the variant grid and the early-stop rule
type EnsembleConfig struct {
	Scales            []float64
	Rotations         []float64
	Sensitivities     []float64
	DilateSensitivity float64
	ContrastFactor    float64
	StopConfidence    float64
	FallbackOriginal  bool
}

// VisionConfig holds Google Vision configuration
type VisionConfig struct {
	APIKey            string
	Endpoint          string
	RequestsPerSecond float64
	Burst             int
	HTTPTimeout       time.Duration
}

// ExportConfig holds export-related configuration
type ExportConfig struct {
	Currency string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:              getEnv("DB_URL", ""),
			SQLitePath:       getEnv("SQLITE_PATH", "./tmp/liquidation.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:       getEnv("GRPC_ADDR", ":8080"),
			MetricsAddr:    getEnv("METRICS_ADDR", ":9090"),
			Workers:        getEnvAsInt("WORKERS", 2),
			QueueSize:      getEnvAsInt("QUEUE_SIZE", 64),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 15*time.Minute),
		},
		OCR: OCRConfig{
			Engine:           strings.ToLower(getEnv("OCR_ENGINE", "chain")),
			Languages:        getEnvAsStrings("OCR_LANGUAGES", []string{"it", "en"}),
			Timeout:          getEnvAsDuration("OCR_TIMEOUT", 12*time.Second),
			Tesseract:        getEnv("TESSERACT_BIN", "tesseract"),
			Pdftoppm:         getEnv("PDFTOPPM_BIN", "pdftoppm"),
			DPI:              getEnvAsInt("PDF_DPI", 300),
			MaxPages:         getEnvAsInt("MAX_PAGES", 0),
			PSM:              getEnvAsInt("TESSERACT_PSM", 6),
			TessdataDir:      getEnv("TESSDATA_PREFIX", ""),
			HeicConverter:    getEnv("HEIC_CONVERTER", "magick"),
			ArtifactCacheDir: getEnv("ARTIFACT_CACHE_DIR", "./tmp"),
		},
		Ensemble: EnsembleConfig{
			Scales:            getEnvAsFloats("ENSEMBLE_SCALES", []float64{2.2, 2.8, 3.2}),
			Rotations:         getEnvAsFloats("ENSEMBLE_ROTATIONS", []float64{-2, -1, 0, 1, 2}),
			Sensitivities:     getEnvAsFloats("ENSEMBLE_SENSITIVITIES", []float64{0.94, 0.96, 0.985}),
			DilateSensitivity: getEnvAsFloat64("ENSEMBLE_DILATE_SENSITIVITY", 0.96),
			ContrastFactor:    getEnvAsFloat64("ENSEMBLE_CONTRAST_FACTOR", 1.45),
			StopConfidence:    getEnvAsFloat64("ENSEMBLE_STOP_CONFIDENCE", 96),
			FallbackOriginal:  getEnvAsBool("ENSEMBLE_FALLBACK_ORIGINAL", true),
		},
		Vision: VisionConfig{
			APIKey:            getEnv("VISION_API_KEY", ""),
			Endpoint:          getEnv("VISION_ENDPOINT", "https://vision.googleapis.com/v1/images:annotate"),
			RequestsPerSecond: getEnvAsFloat64("VISION_RPS", 5),
			Burst:             getEnvAsInt("VISION_BURST", 5),
			HTTPTimeout:       getEnvAsDuration("VISION_HTTP_TIMEOUT", 30*time.Second),
		},
		Export: ExportConfig{
			Currency: getEnv("EXPORT_CURRENCY", "EUR"),
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

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

// getEnvAsStrings splits a comma separated list, dropping empty items.
func getEnvAsStrings(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getEnvAsFloats falls back to the default when any item fails to parse.
func getEnvAsFloats(key string, defaultValue []float64) []float64 {
	items := getEnvAsStrings(key, nil)
	if len(items) == 0 {
		return defaultValue
	}
	out := make([]float64, 0, len(items))
	for _, item := range items {
		f, err := strconv.ParseFloat(item, 64)
		if err != nil {
			return defaultValue
		}
		out = append(out, f)
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("DB_DRIVER", c.Database.Driver, OneOf("postgres", "sqlite", "none")).
		Field("OCR_ENGINE", c.OCR.Engine, OneOf("vision", "tesseract", "cli", "chain")).
		Field("EXPORT_CURRENCY", c.Export.Currency, CurrencyCode)
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required for the postgres driver", ErrInvalidInput)
	}
	if c.OCR.Engine == "vision" && c.Vision.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "VISION_API_KEY is required for the vision engine", ErrInvalidInput)
	}
	if c.OCR.Timeout <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_TIMEOUT must be positive", ErrInvalidInput)
	}
	if len(c.Ensemble.Scales) == 0 || len(c.Ensemble.Rotations) == 0 || len(c.Ensemble.Sensitivities) == 0 {
		return NewAppError("CONFIG_ERROR", "ensemble grid must not be empty", ErrInvalidInput)
	}
	for _, s := range c.Ensemble.Scales {
		if s <= 0 {
			return NewAppError("CONFIG_ERROR", "ENSEMBLE_SCALES must be positive", ErrInvalidInput)
		}
	}
	return nil
}
