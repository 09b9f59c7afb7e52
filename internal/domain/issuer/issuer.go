// Package issuer identifies which bank produced a statement and what
// language it is written in, so field extraction can bias its patterns.
// Detection is additive: it returns hints for the extractor but never
// mutates the statement text.
package issuer

import (
	"regexp"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Language tags returned by detection.
const (
	LangEnglish = "en"
	LangSpanish = "es"
	LangAuto    = "auto"
)

// Signature is one issuer's fingerprint: regex fragments with the
// confidence an exact match carries, the statement language the issuer
// usually prints in, and known section-header variants the field extractor
// can use as hints.
type Signature struct {
	Name       string
	Pattern    *regexp.Regexp
	Confidence float64
	Language   string
	Hints      []string
}

// Detection is the result of issuer/language detection.
type Detection struct {
	Issuer     string   `json:"issuer,omitempty"`
	Confidence float64  `json:"confidence"`
	Language   string   `json:"language"`
	Hints      []string `json:"hints,omitempty"`
}

// Detector holds the ranked signature table and the bilingual keyword
// matchers used for language fallback.
type Detector struct {
	signatures []Signature
	english    *ahocorasick.Matcher
	spanish    *ahocorasick.Matcher
}

// englishTerms and spanishTerms are financial vocabulary used for
// keyword-frequency language detection when no issuer matches.
var englishTerms = []string{
	"statement", "balance", "payment due", "minimum payment", "credit limit",
	"available credit", "purchases", "cash advance", "interest charged",
	"previous balance", "new balance", "due date", "billing cycle", "annual fee",
}

var spanishTerms = []string{
	"estado de cuenta", "saldo", "pago m", "pago para no generar intereses",
	"fecha l", "fecha de corte", "l mite de cr", "cr dito disponible", "compras",
	"disposiciones", "intereses", "saldo anterior", "saldo nuevo", "pago requerido",
	"meses sin intereses", "cargos",
}

// New builds a detector with the default signature table.
func New() *Detector {
	return &Detector{
		signatures: defaultSignatures(),
		english:    ahocorasick.NewStringMatcher(englishTerms),
		spanish:    ahocorasick.NewStringMatcher(spanishTerms),
	}
}

// Detect returns the best issuer match plus a language tag. When no
// signature matches, the issuer is empty and language falls back to
// keyword frequency.
func (d *Detector) Detect(text string) Detection {
	lower := strings.ToLower(text)

	best := Detection{Language: LangAuto}
	for _, sig := range d.signatures {
		if !sig.Pattern.MatchString(lower) {
			continue
		}
		if sig.Confidence > best.Confidence {
			best = Detection{
				Issuer:     sig.Name,
				Confidence: sig.Confidence,
				Language:   sig.Language,
				Hints:      sig.Hints,
			}
		}
	}

	if best.Language == LangAuto || best.Language == "" {
		best.Language = d.detectLanguage(lower)
	}
	return best
}

// detectLanguage counts distinct financial terms from each language's
// vocabulary; ties stay auto so the extractor tries both pattern sets.
func (d *Detector) detectLanguage(lower string) string {
	// The spanish list stores accented letters as single-space wildcards so
	// OCR accent loss still counts; fold accents before matching.
	folded := foldAccents(lower)

	en := len(d.english.Match([]byte(folded)))
	es := len(d.spanish.Match([]byte(folded)))

	switch {
	case es > en:
		return LangSpanish
	case en > es:
		return LangEnglish
	default:
		return LangAuto
	}
}

// foldAccents replaces accented vowels and ñ with a single space so that
// both accented and accent-stripped OCR output match the wildcard slots in
// spanishTerms.
func foldAccents(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case 'á', 'é', 'í', 'ó', 'ú', 'ü', 'ñ':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func defaultSignatures() []Signature {
	return []Signature{
		{
			Name:       "Chase",
			Pattern:    regexp.MustCompile(`chase|jpmorgan`),
			Confidence: 0.95,
			Language:   LangEnglish,
			Hints:      []string{"Payment Due Date", "New Balance", "Minimum Payment Due"},
		},
		{
			Name:       "American Express",
			Pattern:    regexp.MustCompile(`american express|\bamex\b`),
			Confidence: 0.95,
			Language:   LangEnglish,
			Hints:      []string{"Payment Due", "Plan It", "Pay Over Time"},
		},
		{
			Name:       "Bank of America",
			Pattern:    regexp.MustCompile(`bank of america`),
			Confidence: 0.95,
			Language:   LangEnglish,
			Hints:      []string{"Payment Due Date", "Total Minimum Payment Due"},
		},
		{
			Name:       "Citi",
			Pattern:    regexp.MustCompile(`citibank|citi card|\bciti\b`),
			Confidence: 0.9,
			Language:   LangEnglish,
			Hints:      []string{"Minimum Payment Due", "New Balance", "Citi Flex"},
		},
		{
			Name:       "Capital One",
			Pattern:    regexp.MustCompile(`capital one`),
			Confidence: 0.95,
			Language:   LangEnglish,
			Hints:      []string{"Payment Due Date", "Minimum Payment"},
		},
		{
			Name:       "Discover",
			Pattern:    regexp.MustCompile(`\bdiscover\b.{0,20}(card|bank|it\b)`),
			Confidence: 0.85,
			Language:   LangEnglish,
			Hints:      []string{"Payment Due Date", "Minimum Payment Due"},
		},
		{
			Name:       "Wells Fargo",
			Pattern:    regexp.MustCompile(`wells fargo`),
			Confidence: 0.95,
			Language:   LangEnglish,
			Hints:      []string{"Payment Due Date", "Minimum Payment"},
		},
		{
			Name:       "BBVA",
			Pattern:    regexp.MustCompile(`\bbbva\b|bancomer`),
			Confidence: 0.95,
			Language:   LangSpanish,
			Hints:      []string{"Pago para no generar intereses", "Fecha límite de pago", "Meses sin intereses"},
		},
		{
			Name:       "Citibanamex",
			Pattern:    regexp.MustCompile(`banamex|citibanamex`),
			Confidence: 0.95,
			Language:   LangSpanish,
			Hints:      []string{"Pago mínimo", "Fecha límite de pago", "Saldo al corte"},
		},
		{
			Name:       "Santander",
			Pattern:    regexp.MustCompile(`santander`),
			Confidence: 0.95,
			Language:   LangAuto,
			Hints:      []string{"Pago mínimo", "Fecha límite de pago"},
		},
		{
			Name:       "Banorte",
			Pattern:    regexp.MustCompile(`banorte`),
			Confidence: 0.95,
			Language:   LangSpanish,
			Hints:      []string{"Pago mínimo", "Pago para no generar intereses"},
		},
		{
			Name:       "HSBC",
			Pattern:    regexp.MustCompile(`\bhsbc\b`),
			Confidence: 0.95,
			Language:   LangAuto,
			Hints:      []string{"Payment Due Date", "Pago mínimo"},
		},
		{
			Name:       "Scotiabank",
			Pattern:    regexp.MustCompile(`scotiabank`),
			Confidence: 0.95,
			Language:   LangAuto,
			Hints:      []string{"Pago mínimo", "Minimum Payment"},
		},
	}
}
