package validation

import (
	"regexp"
	"strings"
	"unicode"
)

// eduEmailRe matches Express models/User.js: /^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.edu$/
var eduEmailRe = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.edu$`)

// nameRe: letters, spaces, hyphens, apostrophes only.
var nameRe = regexp.MustCompile(`^[A-Za-z\s\-']+$`)

// phoneRe: exactly 10 digits (Express phoneNumber validator).
var phoneRe = regexp.MustCompile(`^\d{10}$`)

// IsValidEduEmail reports whether the address is a .edu email.
func IsValidEduEmail(email string) bool {
	return eduEmailRe.MatchString(email)
}

// IsValidPassword enforces the same rule as Express middleware/validation.js:
// - at least 8 characters
// - contains at least one letter
// - contains at least one number
func IsValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter, hasDigit := false, false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// IsValidName reports whether a first/last name is non-empty, within 50
// characters, and uses name characters only.
func IsValidName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && len(name) <= 50 && nameRe.MatchString(name)
}

// IsValidPhone accepts an empty value or a 10-digit number.
func IsValidPhone(phone string) bool {
	return phone == "" || phoneRe.MatchString(phone)
}
