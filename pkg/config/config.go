// Package config loads application configuration from environment
// variables. Feature switches live here and are injected at pipeline
// construction; nothing in the core reads ambient globals.
package config

import (
	"os"
	"strconv"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration.
type Config struct {
	Store    StoreConfig
	OCR      OCRConfig
	Features FeatureConfig
	Merge    MergeConfig
}

// StoreConfig configures the key-value persistence backing truth layers.
type StoreConfig struct {
	Path string
}

// OCRConfig locates the external OCR toolchain used for image-based
// statements.
type OCRConfig struct {
	TesseractBin string
	PdftoppmBin  string
	Languages    string // tesseract -l value, e.g. "eng+spa"
	DPI          int
}

// FeatureConfig gates the ingestion paths. A disabled path fails fast with
// a clear error instead of running partially.
type FeatureConfig struct {
	PasteIngestion      bool
	StructuredIngestion bool
	PDFIngestion        bool
	ImageOCR            bool
	InstallmentInfer    bool
}

// MergeConfig carries the hard-coded fallbacks used when every truth layer
// falls through.
type MergeConfig struct {
	DefaultDueInDays    int
	DefaultMinimumCents int64
	DefaultCurrency     string
}

// Load reads configuration from environment variables with sensible
// defaults for local, single-user use.
func Load() (*Config, error) {
	cfg := &Config{
		Store: StoreConfig{
			Path: getEnv("CARD_TRUTH_DB", "card-truth.db"),
		},
		OCR: OCRConfig{
			TesseractBin: getEnv("CARD_TRUTH_TESSERACT", "tesseract"),
			PdftoppmBin:  getEnv("CARD_TRUTH_PDFTOPPM", "pdftoppm"),
			Languages:    getEnv("CARD_TRUTH_OCR_LANGS", "eng+spa"),
			DPI:          getEnvAsInt("CARD_TRUTH_OCR_DPI", 300),
		},
		Features: FeatureConfig{
			PasteIngestion:      getEnvAsBool("CARD_TRUTH_FEATURE_PASTE", true),
			StructuredIngestion: getEnvAsBool("CARD_TRUTH_FEATURE_STRUCTURED", true),
			PDFIngestion:        getEnvAsBool("CARD_TRUTH_FEATURE_PDF", true),
			ImageOCR:            getEnvAsBool("CARD_TRUTH_FEATURE_OCR", true),
			InstallmentInfer:    getEnvAsBool("CARD_TRUTH_FEATURE_INFER", true),
		},
		Merge: MergeConfig{
			DefaultDueInDays:    getEnvAsInt("CARD_TRUTH_DEFAULT_DUE_DAYS", 25),
			DefaultMinimumCents: int64(getEnvAsInt("CARD_TRUTH_DEFAULT_MIN_CENTS", 2500)),
			DefaultCurrency:     getEnv("CARD_TRUTH_CURRENCY", "USD"),
		},
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
