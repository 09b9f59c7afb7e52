package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "card-truth.db", cfg.Store.Path)
	assert.Equal(t, "tesseract", cfg.OCR.TesseractBin)
	assert.Equal(t, "eng+spa", cfg.OCR.Languages)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.True(t, cfg.Features.PDFIngestion)
	assert.True(t, cfg.Features.InstallmentInfer)
	assert.Equal(t, 25, cfg.Merge.DefaultDueInDays)
	assert.Equal(t, int64(2500), cfg.Merge.DefaultMinimumCents)
	assert.Equal(t, "USD", cfg.Merge.DefaultCurrency)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CARD_TRUTH_DB", "/tmp/other.db")
	t.Setenv("CARD_TRUTH_FEATURE_OCR", "false")
	t.Setenv("CARD_TRUTH_OCR_DPI", "150")
	t.Setenv("CARD_TRUTH_CURRENCY", "MXN")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/other.db", cfg.Store.Path)
	assert.False(t, cfg.Features.ImageOCR)
	assert.Equal(t, 150, cfg.OCR.DPI)
	assert.Equal(t, "MXN", cfg.Merge.DefaultCurrency)
}
