package model

import "regexp"

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmailAddress reports whether s looks like a deliverable address.
func ValidEmailAddress(s string) bool {
	return emailPattern.MatchString(s)
}
