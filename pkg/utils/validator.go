package utils

import (
	"fmt"
	"regexp"
)

var (
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)
	clockRegex    = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	controlRegex  = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidateCurrency checks for a three-letter ISO 4217 style currency code
func ValidateCurrency(code string) error {
	if !currencyRegex.MatchString(code) {
		return fmt.Errorf("invalid currency code: %s", code)
	}
	return nil
}

// ValidateClockTime checks an HH:MM time of day in 24-hour format
func ValidateClockTime(value string) error {
	if !clockRegex.MatchString(value) {
		return fmt.Errorf("invalid time of day, want HH:MM: %s", value)
	}
	return nil
}

// SanitizeString removes control characters from user-supplied text
func SanitizeString(s string) string {
	return controlRegex.ReplaceAllString(s, "")
}
