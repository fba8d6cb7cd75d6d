// Package principal resolves Windows SIDs into identities and classifies
// them as system-reserved or not.
//
// Resolution never fails: an unresolvable SID degrades to an Unknown
// principal rather than propagating an error, because a partial scan must
// still produce a usable snapshot (see pkg/acl).
package principal

import "fmt"

// Kind is the closed set of principal categories a platform lookup can
// return.
type Kind string

const (
	KindUser            Kind = "user"
	KindGroup           Kind = "group"
	KindWellKnownGroup  Kind = "well_known_group"
	KindAlias           Kind = "alias"
	KindUnknown         Kind = "unknown"
)

// Principal is an identity resolved from a platform SID.
type Principal struct {
	SID      string
	Name     string
	Domain   string
	FullName string
	Kind     Kind
	IsSystem bool
}

// systemFullNames is the exact set of full names classified as system
// principals regardless of prefix.
var systemFullNames = map[string]bool{
	`NT AUTHORITY\SYSTEM`:              true,
	`NT AUTHORITY\Authenticated Users`: true,
	`BUILTIN\Administrators`:           true,
	`BUILTIN\Users`:                    true,
	`BUILTIN\Power Users`:              true,
	`CREATOR OWNER`:                    true,
}

// systemPrefixes is matched against full_name in addition to the exact set.
var systemPrefixes = []string{`NT `, `BUILTIN\`, `NT SERVICE\`}

// IsSystemFullName reports whether a full_name identifies a system-reserved
// principal, per the exact-set-or-prefix rule.
func IsSystemFullName(fullName string) bool {
	if systemFullNames[fullName] {
		return true
	}
	for _, p := range systemPrefixes {
		if len(fullName) >= len(p) && fullName[:len(p)] == p {
			return true
		}
	}
	return false
}

// unknown builds the fixed Unknown principal for a SID that could not be
// resolved by the platform lookup.
func unknown(sidStr string) *Principal {
	return &Principal{
		SID:      sidStr,
		Name:     "Unknown",
		FullName: fmt.Sprintf("Unknown SID: %s", sidStr),
		Kind:     KindUnknown,
		IsSystem: false,
	}
}
