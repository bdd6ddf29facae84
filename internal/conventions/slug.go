package conventions

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
	"github.com/conventionhub/backend/pkg/utils"
)

const (
	maxSlugLen  = 80
	defaultSlug = "convention"
)

var (
	deletedSuffixRe = regexp.MustCompile(`-DELETED-[0-9a-z]+-[0-9a-z]+$`)
	nonSlugRe       = regexp.MustCompile(`[^a-z0-9]+`)
	validSlugRe     = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Slugify folds accents, lowercases and joins alphanumeric runs with '-'.
// Input with no usable characters yields "convention".
func Slugify(s string) string {
	if slug := normalizeSlug(s); slug != "" {
		return slug
	}
	return defaultSlug
}

// ExplicitSlug normalizes a caller-supplied slug and rejects one that
// normalizes to nothing.
func ExplicitSlug(s string) (string, error) {
	slug := normalizeSlug(s)
	if !ValidSlug(slug) {
		return "", apperrors.Validation(map[string]string{"slug": "must contain letters or digits"})
	}
	return slug, nil
}

func normalizeSlug(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	slug := nonSlugRe.ReplaceAllString(strings.ToLower(folded), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}

// ValidSlug reports whether s is already in canonical slug form.
func ValidSlug(s string) bool {
	return len(s) <= maxSlugLen && validSlugRe.MatchString(s)
}

// DeletedSlug returns slug with the soft-delete suffix so the bare slug can be reused.
func DeletedSlug(slug string, now time.Time) string {
	return slug + "-DELETED-" + strconv.FormatInt(now.UnixMilli(), 36) + "-" + utils.RandomBase36(6)
}

// IsDeletedSlug reports whether slug carries the soft-delete suffix.
func IsDeletedSlug(slug string) bool {
	return deletedSuffixRe.MatchString(slug)
}

// RestoredSlug returns the slug a soft-deleted convention should get back.
// The stored original slug wins; the suffix is only stripped for rows
// deleted before original_slug existed.
func RestoredSlug(c *models.Convention) (string, error) {
	if c.OriginalSlug != nil && *c.OriginalSlug != "" {
		return *c.OriginalSlug, nil
	}
	if !IsDeletedSlug(c.Slug) {
		return "", apperrors.Internal("cannot determine original slug", nil)
	}
	return deletedSuffixRe.ReplaceAllString(c.Slug, ""), nil
}

// duplicateCandidates is the collision-avoidance chain tried in order when
// duplicating a convention with slug base.
func duplicateCandidates(base string, now time.Time) []string {
	base = strings.TrimSuffix(deletedSuffixRe.ReplaceAllString(base, ""), "-")
	return []string{
		base + "-copy",
		base + "-copy-" + utils.RandomBase36(6),
		base + "-copy-" + strconv.FormatInt(now.UnixMilli(), 36) + "-" + utils.RandomBase36(4),
	}
}

// CopyName is the name given to a duplicated convention.
func CopyName(name string) string {
	return name + " (Copy)"
}
