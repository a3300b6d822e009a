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

func chapters(pairs ...string) []models.Chapter {
	out := make([]models.Chapter, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.Chapter{Title: pairs[i], Timestamp: pairs[i+1]})
	}
	return out
}

func requireChapterKind(t *testing.T, err error, kind ChapterErrorKind) *ChapterError {
	t.Helper()
	var cerr *ChapterError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, kind, cerr.Kind)
	assert.True(t, errors.Is(err, shared.ErrValidation))
	return cerr
}

func TestParseTimestamp(t *testing.T) {
	tc := []struct {
		in   string
		want int
	}{
		{"0:00", 0},
		{"00:00", 0},
		{"0:15", 15},
		{"1:30", 90},
		{"90:00", 5400},
		{"1:01:01", 3661},
		{"01:00:00", 3600},
	}
	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "1", "1:5", "a:00", "1:00:0", "1:2:3:4", "-1:00", "1:60", "1:60:00"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := ParseTimestamp(bad)
			assert.Error(t, err)
		})
	}
}

func TestFormatTimestampRoundTrip(t *testing.T) {
	tc := map[int]string{
		0:     "0:00",
		15:    "0:15",
		90:    "1:30",
		599:   "9:59",
		3599:  "59:59",
		3600:  "1:00:00",
		3661:  "1:01:01",
		36000: "10:00:00",
	}
	for secs, want := range tc {
		got := FormatTimestamp(secs)
		assert.Equal(t, want, got)

		back, err := ParseTimestamp(got)
		require.NoError(t, err)
		assert.Equal(t, secs, back)
	}
}

func TestRenderChapters(t *testing.T) {
	t.Run("empty list returns base unchanged", func(t *testing.T) {
		out, err := RenderChapters(nil, "base")
		require.NoError(t, err)
		assert.Equal(t, "base", out)
	})

	t.Run("launch scenario", func(t *testing.T) {
		out, err := RenderChapters(chapters("Intro", "0:00", "Demo", "0:15", "Outro", "0:30"), "Launch day")
		require.NoError(t, err)
		assert.Equal(t, "Launch day\n\n📍 CHAPTERS:\nIntro : 0:00\nDemo : 0:15\nOutro : 0:30", out)
	})

	t.Run("empty base has no separator", func(t *testing.T) {
		out, err := RenderChapters(chapters("Intro", "0:00", "Demo", "0:15", "Outro", "0:30"), "")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, ChaptersHeader))
	})

	t.Run("order independent", func(t *testing.T) {
		valid := chapters("Intro", "0:00", "Demo", "0:15", "Deep dive", "1:02:03", "Outro", "30:00")
		want, err := RenderChapters(valid, "d")
		require.NoError(t, err)

		perms := [][]int{{3, 2, 1, 0}, {1, 0, 3, 2}, {2, 3, 0, 1}, {0, 2, 1, 3}}
		for _, p := range perms {
			shuffled := make([]models.Chapter, len(valid))
			for i, idx := range p {
				shuffled[i] = valid[idx]
			}
			got, err := RenderChapters(shuffled, "d")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("too few chapters", func(t *testing.T) {
		for _, list := range [][]models.Chapter{
			chapters("Intro", "0:00"),
			chapters("Intro", "0:00", "Outro", "5:00"),
		} {
			_, err := RenderChapters(list, "")
			requireChapterKind(t, err, TooFewChapters)
		}
	})

	t.Run("first chapter not at zero", func(t *testing.T) {
		_, err := RenderChapters(chapters("Intro", "0:05", "Demo", "0:15", "Outro", "0:30"), "")
		cerr := requireChapterKind(t, err, FirstChapterNotAtZero)
		assert.Equal(t, "Intro", cerr.Chapter.Title)
	})

	t.Run("earliest by time not by position", func(t *testing.T) {
		_, err := RenderChapters(chapters("Demo", "0:15", "Outro", "0:30", "Intro", "0:00"), "")
		assert.NoError(t, err)
	})

	t.Run("gap below ten seconds", func(t *testing.T) {
		_, err := RenderChapters(chapters("Intro", "0:00", "Demo", "0:09", "Outro", "0:30"), "")
		cerr := requireChapterKind(t, err, ChapterTooShort)
		assert.Equal(t, "Demo", cerr.Chapter.Title)
	})

	t.Run("gap of exactly ten seconds passes", func(t *testing.T) {
		_, err := RenderChapters(chapters("Intro", "0:00", "Demo", "0:10", "Outro", "0:20"), "")
		assert.NoError(t, err)
	})

	t.Run("duplicate timestamps rejected", func(t *testing.T) {
		_, err := RenderChapters(chapters("Intro", "0:00", "Demo", "0:30", "Again", "0:30"), "")
		requireChapterKind(t, err, ChapterTooShort)
	})

	t.Run("invalid timestamp format", func(t *testing.T) {
		_, err := RenderChapters(chapters("Intro", "0:00", "Demo", "15s", "Outro", "0:30"), "")
		cerr := requireChapterKind(t, err, InvalidTimestampFormat)
		assert.Equal(t, "Demo", cerr.Chapter.Title)
	})

	t.Run("format checked before count", func(t *testing.T) {
		_, err := RenderChapters(chapters("Intro", "zero"), "")
		requireChapterKind(t, err, InvalidTimestampFormat)
	})

	t.Run("chapter title limit", func(t *testing.T) {
		list := chapters("Intro", "0:00", strings.Repeat("x", 101), "0:15", "Outro", "0:30")
		_, err := RenderChapters(list, "")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "chapters[1].title", verr.Field)
	})

	t.Run("hour long timestamps render in long form", func(t *testing.T) {
		out, err := RenderChapters(chapters("Intro", "00:00:00", "Middle", "45:00", "Late", "01:30:00"), "")
		require.NoError(t, err)
		assert.Contains(t, out, "Middle : 45:00")
		assert.Contains(t, out, "Late : 1:30:00")
		assert.Contains(t, out, "Intro : 0:00")
	})
}
