// Package attr holds the closed set of RADIUS control attributes this
// engine writes, and the encoding rules that turn a bandwidth plan into
// attribute values. The check/reply tables store attribute names as free
// strings; keeping the names here as a fixed enumeration is the single
// serialization point that stops a typo from silently creating an
// attribute the daemon ignores.
package attr

import (
	"strings"
	"time"
)

// Name is a RADIUS check/reply attribute name in its external string form.
type Name string

const (
	CleartextPassword Name = "Cleartext-Password"
	Expiration        Name = "Expiration"
	CallingStationID  Name = "Calling-Station-Id"
	AuthType          Name = "Auth-Type"
	MikrotikRateLimit Name = "Mikrotik-Rate-Limit"
	FramedPool        Name = "Framed-Pool"
	SessionTimeout    Name = "Session-Timeout"
	SimultaneousUse   Name = "Simultaneous-Use"
	FramedIPAddress   Name = "Framed-IP-Address"
)

// Op is the comparison operator stored alongside a check attribute.
type Op string

const (
	// OpSet overrides any other source of the attribute.
	OpSet Op = ":="
	// OpCompare is evaluated as a match condition during authentication.
	OpCompare Op = "=="
	// OpReply is the operator used on reply attributes.
	OpReply Op = "="
)

// RejectValue is the Auth-Type value acting as a hard reject. Its
// presence in the check set fails authentication before any credential
// comparison runs.
const RejectValue = "Reject"

// expirationLayout renders the Expiration check value. The daemon parses
// this exact shape; the fixed 23:59:59 makes access valid through the
// whole expiry day.
const expirationLayout = "Jan 02 2006 15:04:05"

// FormatExpiration renders an expiry date as the daemon's Expiration
// check value, pinned to the end of the day.
func FormatExpiration(t time.Time) string {
	endOfDay := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
	return endOfDay.Format(expirationLayout)
}

// FormatMAC normalizes a device MAC for the Calling-Station-Id check row.
// Stored upper-cased so comparison is case-insensitive on the daemon side.
func FormatMAC(mac string) string {
	return strings.ToUpper(mac)
}
