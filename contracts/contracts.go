// Package contracts embeds the OpenAPI documents served and enforced by the API server.
package contracts

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed *.yaml
var files embed.FS

// Names lists the embedded documents without their extension, sorted.
func Names() []string {
	entries, err := files.ReadDir(".")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Load parses and validates the named document. Servers are dropped so request
// validation matches on path only, whatever host the request arrived on.
func Load(ctx context.Context, name string) (*openapi3.T, error) {
	data, err := files.ReadFile(name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("contract %q: %w", name, err)
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("parse contract %q: %w", name, err)
	}
	if err := spec.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate contract %q: %w", name, err)
	}

	spec.Servers = nil
	return spec, nil
}
