package health

// DetectorConfig tunes the six detectors' trigger thresholds and exclusion
// lists. Zero value is invalid; use DefaultDetectorConfig.
type DetectorConfig struct {
	// MaxACECount is the configurable excessive_ace_count trigger
	// threshold (default 50). A hard floor of 15 still applies at the
	// significance-filter stage regardless of how low this is configured.
	MaxACECount int

	// MaxDirectUserACEs is the direct_user_ace severity pivot: at or below
	// this many distinct directly-granted users the issue is medium, above
	// it high (default 5).
	MaxDirectUserACEs int

	// CriticalGroupSubstrings flags an Allow ACE as over_permissive_groups
	// when the trustee's full_name contains any of these, case-sensitive.
	CriticalGroupSubstrings []string

	// ExcludedDirectUserNames are exact (case-insensitive) principal names
	// that never count toward a direct_user_ace issue surviving the
	// significance filter.
	ExcludedDirectUserNames []string

	// ExcludedDirectUserPrefixes are case-insensitive full_name prefixes
	// with the same effect.
	ExcludedDirectUserPrefixes []string
}

// DefaultDetectorConfig matches the defaults spelled out in §4.6.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		MaxACECount:       50,
		MaxDirectUserACEs: 5,
		CriticalGroupSubstrings: []string{
			"Domain Admins",
			"Enterprise Admins",
			"Administrators",
			`BUILTIN\Administrators`,
			"Everyone",
		},
		ExcludedDirectUserNames: []string{
			"administrator", "guest", "krbtgt",
			"default account", "default user", "wdagutilityaccount",
		},
		ExcludedDirectUserPrefixes: []string{"nt ", "iis_"},
	}
}
