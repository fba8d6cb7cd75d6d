//go:build windows

package principal

import (
	"golang.org/x/sys/windows"

	"github.com/shareguard/shareguard/pkg/sid"
)

// WindowsLookup resolves SIDs via the LookupAccountSid Win32 API.
type WindowsLookup struct{}

// NewWindowsLookup returns the production PlatformLookup for Windows hosts.
func NewWindowsLookup() *WindowsLookup {
	return &WindowsLookup{}
}

func (WindowsLookup) LookupSID(sidStr string) (LookupResult, bool) {
	if parsed, err := sid.ParseSIDString(sidStr); err == nil {
		if name, ok := sid.WellKnownName(parsed); ok {
			return LookupResult{Name: name, Kind: KindWellKnownGroup}, true
		}
	}

	winSID, err := windows.StringToSid(sidStr)
	if err != nil {
		return LookupResult{}, false
	}

	name, domain, use, err := winSID.LookupAccount("")
	if err != nil {
		return LookupResult{}, false
	}

	return LookupResult{
		Name:   name,
		Domain: domain,
		Kind:   kindFromSidType(use),
	}, true
}

func kindFromSidType(use uint32) Kind {
	switch use {
	case windows.SidTypeUser:
		return KindUser
	case windows.SidTypeGroup, windows.SidTypeDeletedAccount:
		return KindGroup
	case windows.SidTypeWellKnownGroup:
		return KindWellKnownGroup
	case windows.SidTypeAlias:
		return KindAlias
	default:
		return KindUnknown
	}
}
