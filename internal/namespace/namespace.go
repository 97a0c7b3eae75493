// Package namespace derives the tenant-scoped identifiers used across the
// shared RADIUS tables. The schema itself carries no tenant column;
// isolation exists only through these composed strings, so every table
// access in the engine goes through this package.
package namespace

import (
	"strconv"
	"strings"
)

// Separator joins a tenant slug and a local identifier. Tenant slugs must
// never contain it; that is enforced at slug allocation time, not here.
const Separator = "_"

// BuildUsername returns the RADIUS username for a tenant-local subscriber
// username.
func BuildUsername(tenant, username string) string {
	return tenant + Separator + username
}

// BuildGroupname returns the RADIUS policy-group name for a plan id.
func BuildGroupname(tenant string, planID int64) string {
	return tenant + Separator + strconv.FormatInt(planID, 10)
}

// ExtractLocalUsername strips the tenant prefix from a RADIUS username.
// Splitting on the first separator only, so local usernames containing
// underscores round-trip intact. Returns the input unchanged when no
// separator is present.
func ExtractLocalUsername(radiusUsername string) string {
	_, local, found := strings.Cut(radiusUsername, Separator)
	if !found {
		return radiusUsername
	}
	return local
}

// TenantPrefix returns the LIKE pattern matching every identifier of a
// tenant, with the separator escaped for the SQL LIKE wildcard rules.
// Queries using it must specify ESCAPE '\'.
func TenantPrefix(tenant string) string {
	return tenant + `\` + Separator + "%"
}
