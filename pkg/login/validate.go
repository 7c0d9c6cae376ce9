// Package login implements the username modal: validation, the form state
// reducer and the localized error banner.
package login

import (
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Result is the validation state of a username. Client-side kinds come from
// Validate; server-side kinds arrive through OnLoginError and may be any
// string the server chooses.
type Result string

const (
	Valid        Result = "valid"
	Empty        Result = "empty"
	TooLong      Result = "length"
	InvalidChars Result = "chars"

	// Server-reported kinds known to the catalogs.
	Taken   Result = "taken"
	Unknown Result = "unknown"
)

// MaxLength is the longest accepted username, in characters.
const MaxLength = 20

// IsValid reports whether the result allows submitting.
func (r Result) IsValid() bool {
	return r == Valid
}

// ErrorKey is the catalog key of the banner text for r.
func (r Result) ErrorKey() string {
	return "usernameSet.errors." + string(r)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("username_chars", func(fl validator.FieldLevel) bool {
		return usernameChars(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// checks are run in order; the first failing one decides the result.
var checks = []struct {
	tag    string
	result Result
}{
	{"required", Empty},
	{"max=" + strconv.Itoa(MaxLength), TooLong},
	{"username_chars", InvalidChars},
}

// Validate classifies a candidate username. Length is counted in
// characters, not bytes.
func Validate(username string) Result {
	for _, c := range checks {
		if err := validate.Var(username, c.tag); err != nil {
			return c.result
		}
	}
	return Valid
}

// usernameChars accepts digits, ASCII letters and every rune whose
// uppercase form is a Greek capital Α-Ω. That includes variant forms such
// as µ, ϐ and ϑ. Accented Greek is rejected, and so are non-ASCII runes
// that only fold into ASCII (e.g. the Kelvin sign).
func usernameChars(s string) bool {
	for _, r := range s {
		if !usernameRune(r) {
			return false
		}
	}
	return true
}

func usernameRune(r rune) bool {
	if r < utf8.RuneSelf {
		return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	}
	u := unicode.ToUpper(r)
	return u >= 'Α' && u <= 'Ω' && u != 0x03A2
}
