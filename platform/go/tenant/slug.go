package tenant

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxSlugLength keeps slugs usable as a single DNS label.
const MaxSlugLength = 63

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// reservedSlugs collide with the central context or with storage prefixes.
var reservedSlugs = map[string]struct{}{
	"admin":   {},
	"api":     {},
	"central": {},
	"tenants": {},
	"www":     {},
}

// NormalizeSlug lowercases and trims a tenant slug and checks it is a kebab-case DNS label
// that is not reserved.
func NormalizeSlug(input string) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(input))
	switch {
	case slug == "":
		return "", errors.New("slug is required")
	case len(slug) > MaxSlugLength:
		return "", fmt.Errorf("slug must be at most %d characters", MaxSlugLength)
	case !slugPattern.MatchString(slug):
		return "", fmt.Errorf("invalid slug %q: use lowercase letters, digits and single hyphens", input)
	}
	if _, ok := reservedSlugs[slug]; ok {
		return "", fmt.Errorf("slug %q is reserved", slug)
	}
	return slug, nil
}
