package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestIndonesianIsDefault(t *testing.T) {
	l := New("")
	assert.Equal(t, language.Indonesian, l.Tag())
	assert.Equal(t, "Terlalu banyak percobaan. Coba lagi dalam 120 detik", l.T(MsgRetryAfter, 120))
	assert.Equal(t, "Email atau password tidak valid", l.T(MsgInvalidLogin))
}

func TestEnglishUsesKeys(t *testing.T) {
	l := New("en-US")
	assert.Equal(t, language.English, l.Tag())
	assert.Equal(t, "Too many attempts. Try again in 5 seconds", l.T(MsgRetryAfter, 5))
	assert.Equal(t, "Name is required", l.T(MsgFieldRequired, "Name"))
}

func TestUnknownLanguageFallsBack(t *testing.T) {
	assert.Equal(t, language.Indonesian, New("not a tag!").Tag())
	var nilLocalizer *Localizer
	assert.Equal(t, "Data tidak ditemukan", nilLocalizer.T(MsgNotFound))
}

func TestEveryKeyTranslated(t *testing.T) {
	for key, text := range translations[language.Indonesian] {
		assert.NotEmpty(t, text, key)
	}
}
