package metadata

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/shared"
)

func validMetadata() models.Metadata {
	return models.Metadata{
		Title:         "Launch",
		Description:   "Product launch walkthrough",
		Tags:          []string{"launch", "demo"},
		PrivacyStatus: "public",
	}
}

func TestValidate(t *testing.T) {
	t.Run("accepts valid metadata", func(t *testing.T) {
		assert.NoError(t, Validate(validMetadata()))
	})

	t.Run("title boundary", func(t *testing.T) {
		m := validMetadata()
		m.Title = strings.Repeat("a", 100)
		assert.NoError(t, Validate(m))

		m.Title = strings.Repeat("a", 101)
		err := Validate(m)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "title", verr.Field)
	})

	t.Run("title counts runes not bytes", func(t *testing.T) {
		m := validMetadata()
		m.Title = strings.Repeat("é", 100)
		assert.NoError(t, Validate(m))
	})

	t.Run("title required", func(t *testing.T) {
		m := validMetadata()
		m.Title = "   "
		err := Validate(m)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("privacy is case insensitive", func(t *testing.T) {
		for _, p := range []string{"PUBLIC", "Private", "unlisted"} {
			m := validMetadata()
			m.PrivacyStatus = p
			assert.NoError(t, Validate(m), p)
		}
	})

	t.Run("unknown privacy rejected", func(t *testing.T) {
		m := validMetadata()
		m.PrivacyStatus = "friends"
		var verr *ValidationError
		require.ErrorAs(t, Validate(m), &verr)
		assert.Equal(t, "privacy_status", verr.Field)
	})

	t.Run("description limit", func(t *testing.T) {
		m := validMetadata()
		m.Description = strings.Repeat("d", 5001)
		var verr *ValidationError
		require.ErrorAs(t, Validate(m), &verr)
		assert.Equal(t, "description", verr.Field)
	})

	t.Run("rendered description limit", func(t *testing.T) {
		assert.NoError(t, ValidateRendered(strings.Repeat("d", 5000)))

		var verr *ValidationError
		require.ErrorAs(t, ValidateRendered(strings.Repeat("é", 5001)), &verr)
		assert.Equal(t, "description", verr.Field)
		assert.ErrorIs(t, verr, shared.ErrValidation)
	})

	t.Run("tag count limit", func(t *testing.T) {
		m := validMetadata()
		m.Tags = make([]string, 501)
		var verr *ValidationError
		require.ErrorAs(t, Validate(m), &verr)
		assert.Equal(t, "tags", verr.Field)
	})

	t.Run("thumbnail url must be http", func(t *testing.T) {
		m := validMetadata()
		m.ThumbnailURL = "ftp://example.com/a.png"
		var verr *ValidationError
		require.ErrorAs(t, Validate(m), &verr)
		assert.Equal(t, "thumbnail_url", verr.Field)

		m.ThumbnailURL = "https://cdn.example.com/a.png"
		assert.NoError(t, Validate(m))
	})

	t.Run("first violation is returned and all are collected", func(t *testing.T) {
		m := models.Metadata{PrivacyStatus: "nope", ThumbnailURL: "not a url"}
		errs := ValidateAll(m)
		require.Len(t, errs, 3)
		assert.Equal(t, "title", errs[0].Field)
		assert.Equal(t, "privacy_status", errs[1].Field)
		assert.Equal(t, "thumbnail_url", errs[2].Field)

		var verr *ValidationError
		require.ErrorAs(t, Validate(m), &verr)
		assert.Equal(t, "title", verr.Field)
	})
}
