package persistence

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
)

// DefaultSchema is where the platform tables live unless configured otherwise.
const DefaultSchema = "palmyra"

var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// normalizeIdentifier trims the input and enforces a lowercase snake_case identifier that is safe to embed in SQL.
func normalizeIdentifier(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", errors.New("identifier is required")
	}

	if !identifierPattern.MatchString(trimmed) {
		return "", fmt.Errorf("invalid identifier %q: must match ^[a-z][a-z0-9_]*$", trimmed)
	}

	return trimmed, nil
}

// tableRef validates schema and returns the sanitized "schema"."table" reference.
func tableRef(schema, table string) (string, error) {
	s, err := normalizeIdentifier(schema)
	if err != nil {
		return "", fmt.Errorf("schema: %w", err)
	}
	return pgx.Identifier{s, table}.Sanitize(), nil
}
