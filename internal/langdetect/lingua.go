// Package langdetect guesses which supported language a selection is in.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"

	"github.com/oukeidos/transpop/internal/language"
)

// minLetters below which detection is not attempted.
const minLetters = 2

// DefaultMinConfidence is the confidence the popup requires before it trusts
// a detection over letting the model decide.
const DefaultMinConfidence = 0.3

var codes = map[lingua.Language]string{
	lingua.English:    "en",
	lingua.Vietnamese: "vi",
	lingua.Japanese:   "ja",
	lingua.Korean:     "ko",
	lingua.Chinese:    "zh-Hans",
	lingua.French:     "fr",
	lingua.German:     "de",
	lingua.Spanish:    "es",
}

// Detector is restricted to the languages offered in the language menu.
type Detector struct {
	once     sync.Once
	detector lingua.LanguageDetector
	minConf  float64
}

// New returns a lazily built detector. Results whose confidence is below
// minConfidence are reported as undetected; 0 accepts any answer.
func New(minConfidence float64) *Detector {
	return &Detector{minConf: minConfidence}
}

func (d *Detector) get() lingua.LanguageDetector {
	d.once.Do(func() {
		langs := make([]lingua.Language, 0, len(codes))
		for l, code := range codes {
			if _, ok := language.Get(code); ok {
				langs = append(langs, l)
			}
		}
		d.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(langs...).
			Build()
	})
	return d.detector
}

// Detect returns the descriptor of the most likely language of text.
func (d *Detector) Detect(text string) (language.Descriptor, bool) {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return language.Descriptor{}, false
	}

	letters := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < minLetters {
		return language.Descriptor{}, false
	}

	det := d.get()
	lang, ok := det.DetectLanguageOf(sample)
	if !ok {
		return language.Descriptor{}, false
	}
	if d.minConf > 0 && det.ComputeLanguageConfidence(sample, lang) < d.minConf {
		return language.Descriptor{}, false
	}
	code, ok := codes[lang]
	if !ok {
		return language.Descriptor{}, false
	}
	return language.Get(code)
}
