package media

import (
	"net/url"
	"strings"
)

const (
	tenantsRoot = "tenants"
	centralRoot = "central"
	unknown     = "unknown"

	conversionsDir      = "conversions"
	responsiveImagesDir = "responsive-images"
)

// Asset carries the fields that determine where a stored media object lives.
type Asset struct {
	ID string
	// TenantRef is nil for central (non-tenant) assets.
	TenantRef *string
	// ModelType and ModelID identify the owning record; only used for central assets.
	ModelType string
	ModelID   string
}

// PathGenerator maps assets to storage paths relative to the storage root.
type PathGenerator interface {
	BasePath(asset Asset) string
	ConversionsPath(asset Asset) string
	ResponsiveImagesPath(asset Asset) string
}

// TenantAwarePaths partitions assets by tenant at the top of the hierarchy:
//
//	tenants/{tenantRef}/media/{assetId}
//	central/{lower(modelType)}/{modelId}/{assetId}
//
// Every segment is path-escaped, so a separator inside an input can never make two
// different assets share a prefix.
type TenantAwarePaths struct{}

var _ PathGenerator = TenantAwarePaths{}

func (TenantAwarePaths) BasePath(asset Asset) string {
	id := segment(asset.ID)
	if ref, ok := tenantRef(asset); ok {
		return tenantsRoot + "/" + segment(ref) + "/media/" + id
	}

	return strings.Join([]string{
		centralRoot,
		segment(strings.ToLower(asset.ModelType)),
		segment(asset.ModelID),
		id,
	}, "/")
}

func (p TenantAwarePaths) ConversionsPath(asset Asset) string {
	return p.BasePath(asset) + "/" + conversionsDir
}

func (p TenantAwarePaths) ResponsiveImagesPath(asset Asset) string {
	return p.BasePath(asset) + "/" + responsiveImagesDir
}

// TenantPrefix is the prefix holding every asset of a tenant, for delete/export by prefix.
func TenantPrefix(ref string) string {
	return tenantsRoot + "/" + segment(ref) + "/"
}

// ObjectKey joins a directory produced by the generator with a file name.
func ObjectKey(dir, fileName string) string {
	return dir + "/" + segment(fileName)
}

func tenantRef(asset Asset) (string, bool) {
	if asset.TenantRef == nil {
		return "", false
	}
	ref := *asset.TenantRef
	return ref, strings.TrimSpace(ref) != ""
}

// segment escapes v as a single path element. Blank values become "unknown"; dot
// segments are percent-encoded, a form PathEscape never produces for other inputs.
func segment(v string) string {
	switch {
	case strings.TrimSpace(v) == "":
		return unknown
	case v == "." || v == "..":
		return strings.ReplaceAll(v, ".", "%2E")
	}
	return url.PathEscape(v)
}
