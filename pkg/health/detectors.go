package health

import (
	"strings"

	"github.com/shareguard/shareguard/pkg/acl"
	"github.com/shareguard/shareguard/pkg/change"
	"github.com/shareguard/shareguard/pkg/principal"
)

// severityMultiplier implements the low/medium/high/critical weighting
// used by the risk score formula.
func severityMultiplier(s change.Severity) float64 {
	switch s {
	case change.SeverityLow:
		return 0.25
	case change.SeverityMedium:
		return 0.5
	case change.SeverityHigh:
		return 0.75
	case change.SeverityCritical:
		return 1.0
	default:
		return 0
	}
}

// detection is a pre-filter candidate Issue; riskScore is computed once the
// severity is known.
type detection struct {
	issueType IssueType
	severity  change.Severity
	affected  []string
	baseWeight float64
}

func (d detection) riskScore() float64 {
	return d.baseWeight * severityMultiplier(d.severity)
}

// detectBrokenInheritance fires when the path's own DACL no longer
// inherits from its parent.
func detectBrokenInheritance(snap *acl.Snapshot) *detection {
	if snap.InheritanceEnabled {
		return nil
	}
	return &detection{issueType: IssueBrokenInheritance, severity: change.SeverityMedium, baseWeight: 15}
}

// detectDirectUserACE flags ACEs directly granted to non-system, non-group
// user principals.
func detectDirectUserACE(snap *acl.Snapshot, cfg DetectorConfig) *detection {
	var affected []string
	seen := map[string]bool{}
	for _, a := range snap.ACEs {
		if a.Trustee.Kind != principal.KindUser || a.Trustee.IsSystem {
			continue
		}
		if seen[a.Trustee.FullName] {
			continue
		}
		seen[a.Trustee.FullName] = true
		affected = append(affected, a.Trustee.FullName)
	}
	if len(affected) == 0 {
		return nil
	}
	maxDirect := cfg.MaxDirectUserACEs
	if maxDirect <= 0 {
		maxDirect = DefaultDetectorConfig().MaxDirectUserACEs
	}
	severity := change.SeverityMedium
	if len(affected) > maxDirect {
		severity = change.SeverityHigh
	}
	return &detection{
		issueType:  IssueDirectUserACE,
		severity:   severity,
		affected:   affected,
		baseWeight: 10 + 2*float64(len(affected)),
	}
}

// detectOrphanedSID flags trustees that resolved to an unknown principal
// whose platform-reported name is itself a raw SID string: a real lookup
// that came back with no symbolic name, distinct from a total resolution
// failure (which pkg/principal already renders as "Unknown", not "S-...").
func detectOrphanedSID(snap *acl.Snapshot) *detection {
	var affected []string
	seen := map[string]bool{}
	for _, a := range snap.ACEs {
		if a.Trustee.Kind != principal.KindUnknown {
			continue
		}
		if !strings.HasPrefix(a.Trustee.Name, "S-") {
			continue
		}
		if seen[a.Trustee.FullName] {
			continue
		}
		seen[a.Trustee.FullName] = true
		affected = append(affected, a.Trustee.FullName)
	}
	if len(affected) == 0 {
		return nil
	}
	severity := change.SeverityLow
	if len(affected) > 3 {
		severity = change.SeverityMedium
	}
	return &detection{
		issueType:  IssueOrphanedSID,
		severity:   severity,
		affected:   affected,
		baseWeight: 5 + 1*float64(len(affected)),
	}
}

// detectExcessiveACECount flags paths whose consolidated ACE list has grown
// past the configured threshold.
func detectExcessiveACECount(snap *acl.Snapshot, cfg DetectorConfig) *detection {
	count := len(snap.ACEs)
	if count <= cfg.MaxACECount {
		return nil
	}
	severity := change.SeverityMedium
	if count > 100 {
		severity = change.SeverityHigh
	}
	return &detection{
		issueType:  IssueExcessiveACECount,
		severity:   severity,
		baseWeight: 20 + 0.5*float64(count),
	}
}

// detectConflictingDenyOrder flags a Deny ACE for a trustee that appears
// after an Allow ACE for the SAME trustee SID earlier in the ordered list:
// on Windows the first matching ACE wins, so a trailing Deny like this is
// dead and the effective grant is the Allow above it.
func detectConflictingDenyOrder(snap *acl.Snapshot) *detection {
	allowSeenAt := map[string]int{}
	conflicting := map[string]bool{}
	var affected []string

	for i, a := range snap.ACEs {
		if a.Type == acl.ACEAllow {
			if _, ok := allowSeenAt[a.Trustee.SID]; !ok {
				allowSeenAt[a.Trustee.SID] = i
			}
			continue
		}
		if j, ok := allowSeenAt[a.Trustee.SID]; ok && j < i {
			if !conflicting[a.Trustee.SID] {
				conflicting[a.Trustee.SID] = true
				affected = append(affected, a.Trustee.FullName)
			}
		}
	}

	if len(affected) == 0 {
		return nil
	}
	return &detection{
		issueType:  IssueConflictingDenyOrder,
		severity:   change.SeverityHigh,
		affected:   affected,
		baseWeight: 25 + 5*float64(len(affected)),
	}
}

// detectOverPermissiveGroups flags Allow ACEs granted to a critical,
// high-privilege group.
func detectOverPermissiveGroups(snap *acl.Snapshot, cfg DetectorConfig) *detection {
	var affected []string
	seen := map[string]bool{}
	for _, a := range snap.ACEs {
		if a.Type != acl.ACEAllow {
			continue
		}
		if !matchesAny(a.Trustee.FullName, cfg.CriticalGroupSubstrings) {
			continue
		}
		if seen[a.Trustee.FullName] {
			continue
		}
		seen[a.Trustee.FullName] = true
		affected = append(affected, a.Trustee.FullName)
	}
	if len(affected) == 0 {
		return nil
	}
	severity := change.SeverityHigh
	if len(affected) > 2 {
		severity = change.SeverityCritical
	}
	return &detection{
		issueType:  IssueOverPermissiveGroups,
		severity:   severity,
		affected:   affected,
		baseWeight: 25 + 10*float64(len(affected)),
	}
}

func matchesAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func isExcludedDirectUser(fullName string, cfg DetectorConfig) bool {
	name := fullName
	if idx := strings.LastIndex(fullName, `\`); idx >= 0 {
		name = fullName[idx+1:]
	}
	lowerName := strings.ToLower(name)
	for _, excluded := range cfg.ExcludedDirectUserNames {
		if lowerName == excluded {
			return true
		}
	}
	lowerFull := strings.ToLower(fullName)
	for _, prefix := range cfg.ExcludedDirectUserPrefixes {
		if strings.HasPrefix(lowerFull, prefix) {
			return true
		}
	}
	return false
}
