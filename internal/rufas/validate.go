package rufas

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field limits enforced on user input.
const (
	MaxNameLength              = 50
	MaxTagDescriptionLength    = 200
	MaxBundleDescriptionLength = 420
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func validateName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: kind + " name is required"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("%s name must be at most %d characters", kind, MaxNameLength)}
	}
	return nil
}

func validateDescription(description string, limit int) error {
	if utf8.RuneCountInString(description) > limit {
		return &ValidationError{Field: "description", Message: fmt.Sprintf("description must be at most %d characters", limit)}
	}
	return nil
}

func validateColor(color string) error {
	if !colorPattern.MatchString(color) {
		return &ValidationError{Field: "color", Message: "invalid color format, expected #RRGGBB"}
	}
	return nil
}

func validateTag(name, description, color string) error {
	if err := validateName("tag", name); err != nil {
		return err
	}
	if err := validateDescription(description, MaxTagDescriptionLength); err != nil {
		return err
	}
	return validateColor(color)
}

func validateBundle(name, description string, fileIDs []string) error {
	if err := validateName("bundle", name); err != nil {
		return err
	}
	if err := validateDescription(description, MaxBundleDescriptionLength); err != nil {
		return err
	}
	if len(fileIDs) == 0 {
		return &ValidationError{Field: "fileIds", Message: "select files first"}
	}
	return nil
}
