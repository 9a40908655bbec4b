package models

// Language is a supported answer language code.
type Language string

const (
	English  Language = "en"
	Hindi    Language = "hi"
	Gujarati Language = "gu"
	Tamil    Language = "ta"
	Marathi  Language = "mr"
)

// SourceLanguage is the language answers are generated in. Translations are
// always made from it.
const SourceLanguage = English

// SupportedLanguages lists every language code the resolver answers in,
// source language first.
var SupportedLanguages = []Language{English, Hindi, Gujarati, Tamil, Marathi}

var languageNames = map[Language]string{
	English:  "English",
	Hindi:    "Hindi",
	Gujarati: "Gujarati",
	Tamil:    "Tamil",
	Marathi:  "Marathi",
}

// ParseLanguage maps a raw language code onto the supported table.
// Unrecognized codes, including the empty string, fall back to SourceLanguage.
// Matching is exact: "HI" is not "hi".
func ParseLanguage(code string) Language {
	l := Language(code)
	if _, ok := languageNames[l]; ok {
		return l
	}
	return SourceLanguage
}

// Normalize returns l if it is supported, SourceLanguage otherwise.
func (l Language) Normalize() Language {
	return ParseLanguage(string(l))
}

// IsSource reports whether l is the source language.
func (l Language) IsSource() bool {
	return l == SourceLanguage
}

// Name returns the English display name, or the raw code if unsupported.
func (l Language) Name() string {
	if n, ok := languageNames[l]; ok {
		return n
	}
	return string(l)
}

func (l Language) String() string { return string(l) }
