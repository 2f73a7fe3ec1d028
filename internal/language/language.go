package language

import (
	"sort"
	"strings"
)

// Descriptor identifies a language by code and display label.
type Descriptor struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// IsZero reports whether the descriptor carries no language.
func (d Descriptor) IsZero() bool {
	return d.Code == "" && d.Label == ""
}

// Languages is the fixed set of supported languages, code -> descriptor.
var Languages = map[string]Descriptor{
	"en":      {Code: "en", Label: "English"},
	"vi":      {Code: "vi", Label: "Tiếng Việt"},
	"ja":      {Code: "ja", Label: "日本語"},
	"ko":      {Code: "ko", Label: "한국어"},
	"zh-Hans": {Code: "zh-Hans", Label: "简体中文"},
	"fr":      {Code: "fr", Label: "Français"},
	"de":      {Code: "de", Label: "Deutsch"},
	"es":      {Code: "es", Label: "Español"},
}

// aliases accepted on the command line.
var aliases = map[string]string{
	"zh":         "zh-Hans",
	"english":    "en",
	"vietnamese": "vi",
}

var (
	English    = Languages["en"]
	Vietnamese = Languages["vi"]
)

// Get returns the descriptor for code, accepting a few aliases.
func Get(code string) (Descriptor, bool) {
	code = strings.TrimSpace(code)
	if d, ok := Languages[code]; ok {
		return d, true
	}
	if canonical, ok := aliases[strings.ToLower(code)]; ok {
		return Languages[canonical], true
	}
	return Descriptor{}, false
}

// Supported returns every supported language sorted by code.
func Supported() []Descriptor {
	out := make([]Descriptor, 0, len(Languages))
	for _, d := range Languages {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Config is the source/target pair a window translates between.
type Config struct {
	Source Descriptor `json:"sourceLang"`
	Target Descriptor `json:"targetLang"`
}

// DefaultConfig is English into Vietnamese.
func DefaultConfig() Config {
	return Config{Source: English, Target: Vietnamese}
}

// Swap exchanges source and target.
func (c Config) Swap() Config {
	return Config{Source: c.Target, Target: c.Source}
}

// Counterpart returns the other side of the pair for code. A code that is
// not part of the pair maps to the target.
func (c Config) Counterpart(code string) Descriptor {
	switch code {
	case c.Target.Code:
		return c.Source
	default:
		return c.Target
	}
}
