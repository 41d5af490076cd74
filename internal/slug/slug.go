// Package slug turns human-readable names into URL-safe identifiers and
// resolves collisions against an existing set of slugs.
package slug

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/unicode/norm"
)

// Fallback is the base used when a name contains no letters or digits.
const Fallback = "place"

// MaxLength is the width of the slug column. Every slug returned by this
// package, suffix included, fits in it.
const MaxLength = 255

// ExistsFunc reports whether candidate is already in use.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Slugify lower-cases name, transliterates it to ASCII and collapses every
// run of characters outside [a-z0-9] into a single hyphen. The result is at
// most MaxLength bytes long.
//
//	Slugify("Test Place")   // "test-place"
//	Slugify("Asunción")     // "asuncion"
//	Slugify("Москва")       // "moskva"
//	Slugify("  Café & Bar") // "cafe-bar"
func Slugify(name string) string {
	// NFKC folds compatibility forms (ligatures, full-width digits) and
	// composes combining marks so the transliteration table sees one rune.
	ascii := unidecode.Unidecode(norm.NFKC.String(name))

	var b strings.Builder
	b.Grow(len(ascii))
	pendingDash := false
	for _, r := range strings.ToLower(ascii) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return truncate(b.String(), MaxLength)
}

// Generate returns the first slug derived from name for which exists
// reports false. It tries the base slug, then base-1, base-2, and so on,
// shortening the base where needed so the suffixed slug fits in MaxLength.
//
// The result is free only at the moment it was checked; callers that insert
// it must still rely on the store's unique constraint under concurrency.
// The only error returned is one produced by exists.
func Generate(ctx context.Context, name string, exists ExistsFunc) (string, error) {
	base := Slugify(name)
	if base == "" {
		base = Fallback
	}

	candidate := base
	for i := 1; ; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("slug.Generate: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		suffix := "-" + strconv.Itoa(i)
		candidate = truncate(base, MaxLength-len(suffix)) + suffix
	}
}

// truncate cuts an ASCII slug to at most n bytes without leaving a
// trailing hyphen.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimRight(s[:n], "-")
}
