package service

import (
	"regexp"
	"unicode"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// validatePassword 至少 8 位，包含大写字母、小写字母和数字
func validatePassword(password string) error {
	if password == "" {
		return invalidInput("Password is required")
	}
	if len(password) < 8 {
		return invalidInput("Password must be at least 8 characters long")
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		return invalidInput("Password must contain at least one uppercase letter")
	}
	if !lower {
		return invalidInput("Password must contain at least one lowercase letter")
	}
	if !digit {
		return invalidInput("Password must contain at least one digit")
	}
	return nil
}
