package entities

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedLanguage is returned for languages without a greeting and voice
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Language describes how an interview is spoken
type Language struct {
	Name         string `json:"name"`
	Code         string `json:"code"`          // ISO 639-1, used for transcription
	LanguageCode string `json:"language_code"` // BCP-47, used for synthesis
	Voice        string `json:"voice"`
	Greeting     string `json:"greeting"`
}

var languages = []Language{
	{
		Name:         "english",
		Code:         "en",
		LanguageCode: "en-US",
		Voice:        "en-US-Neural2-I",
		Greeting:     "Hello, I'll be interviewing you to learn more about your family history. Please tell me a little about yourself and your family.",
	},
	{
		Name:         "korean",
		Code:         "ko",
		LanguageCode: "ko-KR",
		Voice:        "ko-KR-Neural2-A",
		Greeting:     "안녕하세요. 가족 역사에 대해서 여쭤보겠습니다. 자기 소개 잠깐 해주실 수 있으세요?",
	},
}

// DefaultLanguage is used when a client does not pick one
var DefaultLanguage = languages[0]

// LookupLanguage finds a language by name ("korean") or code ("ko")
func LookupLanguage(key string) (Language, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return DefaultLanguage, nil
	}
	for _, l := range languages {
		if l.Name == key || l.Code == key || strings.ToLower(l.LanguageCode) == key {
			return l, nil
		}
	}
	return Language{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, key)
}

// Languages lists the supported languages
func Languages() []Language {
	return append([]Language(nil), languages...)
}
