package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/jangdahyun/codingline/internal/repository"
)

// maxSlugLength keeps the generated slug inside the column, leaving room
// for a numeric uniqueness suffix.
const maxSlugLength = 100

// slugify reduces a room title to a URL-safe identifier: lowercase ASCII
// letters and digits, runs of anything else collapsed to single hyphens.
func slugify(title string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r) && r < 128:
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
		if b.Len() >= maxSlugLength {
			break
		}
	}
	slug := b.String()
	if slug == "" {
		slug = "room"
	}
	return slug
}

// uniqueSlug returns the base slug, or the first "base-2", "base-3", ...
// variant not yet taken. Collisions past the attempt cap are treated as an
// error rather than looping forever.
func uniqueSlug(ctx context.Context, rooms repository.RoomRepository, base string) (string, error) {
	const maxAttempts = 50

	candidate := base
	for attempt := 2; attempt <= maxAttempts+1; attempt++ {
		exists, err := rooms.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking slug '%s': %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}
	return "", fmt.Errorf("failed to find a free slug for '%s' after %d attempts", base, maxAttempts)
}
