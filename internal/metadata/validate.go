package metadata

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/shared"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 5000
	MaxTags              = 500
)

// ValidationError names the offending field and why it was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets callers match any validation failure with [shared.ErrValidation].
func (e *ValidationError) Unwrap() error {
	return shared.ErrValidation
}

// NormalizePrivacy lower-cases and trims a privacy status.
func NormalizePrivacy(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// Validate returns the first violation found in m, or nil.
func Validate(m models.Metadata) error {
	if errs := ValidateAll(m); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// ValidateAll collects every violation in m, ordered by field.
func ValidateAll(m models.Metadata) []*ValidationError {
	var errs []*ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	title := strings.TrimSpace(m.Title)
	switch {
	case title == "":
		add("title", "is required")
	case utf8.RuneCountInString(m.Title) > MaxTitleLength:
		add("title", "must be at most %d characters, got %d", MaxTitleLength, utf8.RuneCountInString(m.Title))
	}

	if n := utf8.RuneCountInString(m.Description); n > MaxDescriptionLength {
		add("description", "must be at most %d characters, got %d", MaxDescriptionLength, n)
	}

	switch NormalizePrivacy(m.PrivacyStatus) {
	case models.PrivacyPrivate, models.PrivacyPublic, models.PrivacyUnlisted:
	default:
		add("privacy_status", "must be one of private, public, unlisted, got %q", m.PrivacyStatus)
	}

	if len(m.Tags) > MaxTags {
		add("tags", "must have at most %d entries, got %d", MaxTags, len(m.Tags))
	}

	if m.ThumbnailURL != "" && !isHTTPURL(m.ThumbnailURL) {
		add("thumbnail_url", "must be an http(s) URL, got %q", m.ThumbnailURL)
	}

	return errs
}

// ValidateRendered checks the description as it will be sent, chapter list included.
func ValidateRendered(description string) error {
	if n := utf8.RuneCountInString(description); n > MaxDescriptionLength {
		return &ValidationError{
			Field:  "description",
			Reason: fmt.Sprintf("must be at most %d characters with chapters, got %d", MaxDescriptionLength, n),
		}
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
