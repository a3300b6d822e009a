package metadata

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/shared"
)

const (
	ChaptersHeader      = "📍 CHAPTERS:"
	MinChapters         = 3
	MinChapterGap       = 10 // seconds
	MaxChapterTitleSize = 100
)

var timestampPattern = regexp.MustCompile(`^(\d+):(\d{2})(:(\d{2}))?$`)

// ChapterErrorKind classifies a rejected chapter list.
type ChapterErrorKind string

const (
	InvalidTimestampFormat ChapterErrorKind = "InvalidTimestampFormat"
	TooFewChapters         ChapterErrorKind = "TooFewChapters"
	FirstChapterNotAtZero  ChapterErrorKind = "FirstChapterNotAtZero"
	ChapterTooShort        ChapterErrorKind = "ChapterTooShort"
)

// ChapterError rejects the whole chapter list. Chapter is the offending entry, when there is one.
type ChapterError struct {
	Kind    ChapterErrorKind
	Chapter *models.Chapter
	Detail  string
}

func (e *ChapterError) Error() string {
	if e.Chapter != nil {
		return fmt.Sprintf("chapters: %s: %q at %s: %s", e.Kind, e.Chapter.Title, e.Chapter.Timestamp, e.Detail)
	}
	return fmt.Sprintf("chapters: %s: %s", e.Kind, e.Detail)
}

func (e *ChapterError) Unwrap() error {
	return shared.ErrValidation
}

// ParseTimestamp converts MM:SS or HH:MM:SS into total seconds.
//
// In MM:SS form the minutes may exceed 59 ("90:00"). Seconds, and minutes in the
// HH:MM:SS form, must be below 60.
func ParseTimestamp(s string) (int, error) {
	m := timestampPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("timestamp %q does not match MM:SS or HH:MM:SS", s)
	}

	first, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("timestamp %q: %w", s, err)
	}
	second, _ := strconv.Atoi(m[2])

	if m[4] == "" {
		if second > 59 {
			return 0, fmt.Errorf("timestamp %q: seconds out of range", s)
		}
		return first*60 + second, nil
	}

	third, _ := strconv.Atoi(m[4])
	if second > 59 || third > 59 {
		return 0, fmt.Errorf("timestamp %q: minutes or seconds out of range", s)
	}
	return first*3600 + second*60 + third, nil
}

// FormatTimestamp renders seconds as M:SS, or H:MM:SS from one hour up.
func FormatTimestamp(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

type timedChapter struct {
	chapter models.Chapter
	seconds int
}

// RenderChapters validates chapters as a set and appends the chapter section to base.
//
// An empty list returns base unchanged. Otherwise the list must have at least three
// entries, start at 0:00 and keep at least ten seconds between consecutive entries once
// sorted by time; any violation rejects the whole list. Input order does not matter.
func RenderChapters(chapters []models.Chapter, base string) (string, error) {
	if len(chapters) == 0 {
		return base, nil
	}

	timed := make([]timedChapter, 0, len(chapters))
	for i, c := range chapters {
		secs, err := ParseTimestamp(c.Timestamp)
		if err != nil {
			ch := c
			return "", &ChapterError{Kind: InvalidTimestampFormat, Chapter: &ch, Detail: err.Error()}
		}
		if utf8.RuneCountInString(c.Title) > MaxChapterTitleSize {
			return "", &ValidationError{
				Field:  fmt.Sprintf("chapters[%d].title", i),
				Reason: fmt.Sprintf("must be at most %d characters", MaxChapterTitleSize),
			}
		}
		timed = append(timed, timedChapter{chapter: c, seconds: secs})
	}

	if len(timed) < MinChapters {
		return "", &ChapterError{
			Kind:   TooFewChapters,
			Detail: fmt.Sprintf("need at least %d chapters, got %d", MinChapters, len(timed)),
		}
	}

	sort.SliceStable(timed, func(i, j int) bool {
		if timed[i].seconds != timed[j].seconds {
			return timed[i].seconds < timed[j].seconds
		}
		return timed[i].chapter.Title < timed[j].chapter.Title
	})

	if first := timed[0]; first.seconds != 0 {
		return "", &ChapterError{
			Kind:    FirstChapterNotAtZero,
			Chapter: &first.chapter,
			Detail:  "first chapter must start at 0:00",
		}
	}

	for i := 1; i < len(timed); i++ {
		gap := timed[i].seconds - timed[i-1].seconds
		if gap < MinChapterGap {
			c := timed[i].chapter
			return "", &ChapterError{
				Kind:    ChapterTooShort,
				Chapter: &c,
				Detail: fmt.Sprintf("starts %ds after %q, minimum gap is %ds",
					gap, timed[i-1].chapter.Title, MinChapterGap),
			}
		}
	}

	var b strings.Builder
	b.WriteString(base)
	if base != "" {
		b.WriteString("\n\n")
	}
	b.WriteString(ChaptersHeader)
	for _, t := range timed {
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(t.chapter.Title))
		b.WriteString(" : ")
		b.WriteString(FormatTimestamp(t.seconds))
	}

	return b.String(), nil
}
