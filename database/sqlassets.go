package sqlassets

import _ "embed"

//go:embed schema/platform/tenants.sql
var TenantsSQL string

//go:embed schema/platform/memberships.sql
var MembershipsSQL string

//go:embed schema/platform/role_assignments.sql
var RoleAssignmentsSQL string

//go:embed schema/platform/media_assets.sql
var MediaAssetsSQL string
