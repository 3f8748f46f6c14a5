package core

import (
	"fmt"
)

// Check names, in the order their findings are reported
const (
	CheckDisposable       = "disposable"
	CheckSuspiciousTLD    = "suspicious_tld"
	CheckTyposquatting    = "typosquatting"
	CheckNumericDensity   = "numeric_density"
	CheckMX               = "mx"
	CheckDomainAge        = "domain_age"
	CheckDomainReputation = "domain_reputation"
	CheckIPReputation     = "ip_reputation"
)

// NoIssuesReason is the single reason reported when nothing triggered
const NoIssuesReason = "no issues detected"

// InvalidFormatReason is the single reason of a syntax rejection
const InvalidFormatReason = "invalid email format"

// MXState is the tri-state outcome of the MX probe
type MXState int

const (
	// MXUnknown means the lookup failed or timed out
	MXUnknown MXState = iota
	MXPresent
	MXAbsent
)

// ReputationSignal is a feed result already mapped to a weight and label
type ReputationSignal struct {
	Weight int
	Label  string
}

// Facts is everything the checks and collectors learned about a domain
type Facts struct {
	Domain         string
	Disposable     bool
	SuspiciousTLD  string
	TyposquatBrand string
	DenseLabel     bool
	MX             MXState
	AgeDays        *int
	DomainSignal   ReputationSignal
	IPSignal       ReputationSignal
}

// CheckSetting toggles and weights one check
type CheckSetting struct {
	Enabled bool
	Weight  int
}

// ScoringPolicy carries the tunable part of the scoring table
type ScoringPolicy struct {
	Checks          map[string]CheckSetting
	YoungDomainDays int
	Reputation      ReputationWeights
}

// DefaultScoringPolicy returns the stock weights
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		Checks: map[string]CheckSetting{
			CheckDisposable:       {Enabled: true, Weight: 60},
			CheckSuspiciousTLD:    {Enabled: true, Weight: 15},
			CheckTyposquatting:    {Enabled: true, Weight: 25},
			CheckNumericDensity:   {Enabled: true, Weight: 10},
			CheckMX:               {Enabled: true, Weight: 30},
			CheckDomainAge:        {Enabled: true, Weight: 25},
			CheckDomainReputation: {Enabled: true},
			CheckIPReputation:     {Enabled: true},
		},
		YoungDomainDays: 30,
		Reputation:      DefaultReputationWeights(),
	}
}

func (p ScoringPolicy) setting(check string) CheckSetting {
	if s, ok := p.Checks[check]; ok {
		return s
	}
	return DefaultScoringPolicy().Checks[check]
}

// Enabled reports whether a check is switched on
func (p ScoringPolicy) Enabled(check string) bool {
	return p.setting(check).Enabled
}

// ScoringRule is one row of the scoring table
type ScoringRule struct {
	Check   string
	Matches func(f *Facts, p ScoringPolicy) bool
	Reason  func(f *Facts) string
	// Weight, when set, replaces the configured weight with one derived
	// from the facts. A derived weight of zero produces no finding.
	Weight func(f *Facts) int
}

// ScoringTable lists every check in reporting order
var ScoringTable = []ScoringRule{
	{
		Check:   CheckDisposable,
		Matches: func(f *Facts, _ ScoringPolicy) bool { return f.Disposable },
		Reason:  func(*Facts) string { return "disposable email provider detected" },
	},
	{
		Check:   CheckSuspiciousTLD,
		Matches: func(f *Facts, _ ScoringPolicy) bool { return f.SuspiciousTLD != "" },
		Reason: func(f *Facts) string {
			return fmt.Sprintf("suspicious top-level domain (%s)", f.SuspiciousTLD)
		},
	},
	{
		Check:   CheckTyposquatting,
		Matches: func(f *Facts, _ ScoringPolicy) bool { return f.TyposquatBrand != "" },
		Reason: func(f *Facts) string {
			return fmt.Sprintf("possible typosquatting of %s", f.TyposquatBrand)
		},
	},
	{
		Check:   CheckNumericDensity,
		Matches: func(f *Facts, _ ScoringPolicy) bool { return f.DenseLabel },
		Reason:  func(*Facts) string { return "domain name has an unusual number of digits or hyphens" },
	},
	{
		Check:   CheckMX,
		Matches: func(f *Facts, _ ScoringPolicy) bool { return f.MX == MXAbsent },
		Reason:  func(*Facts) string { return "no valid mail routing (MX) records" },
	},
	{
		Check: CheckDomainAge,
		Matches: func(f *Facts, p ScoringPolicy) bool {
			return f.AgeDays != nil && *f.AgeDays < p.YoungDomainDays
		},
		Reason: func(f *Facts) string { return fmt.Sprintf("domain too new (%d days)", *f.AgeDays) },
	},
	{
		Check:   CheckDomainReputation,
		Matches: func(f *Facts, _ ScoringPolicy) bool { return f.DomainSignal.Weight > 0 },
		Reason:  func(f *Facts) string { return "domain reputation: " + f.DomainSignal.Label },
		Weight:  func(f *Facts) int { return f.DomainSignal.Weight },
	},
	{
		Check:   CheckIPReputation,
		Matches: func(f *Facts, _ ScoringPolicy) bool { return f.IPSignal.Weight > 0 },
		Reason:  func(f *Facts) string { return "IP reputation: " + f.IPSignal.Label },
		Weight:  func(f *Facts) int { return f.IPSignal.Weight },
	},
}

// Findings runs the scoring table over the facts. Only checks carrying a
// positive weight produce a finding.
func Findings(f *Facts, p ScoringPolicy) []SignalFinding {
	var findings []SignalFinding
	for _, rule := range ScoringTable {
		s := p.setting(rule.Check)
		if !s.Enabled || !rule.Matches(f, p) {
			continue
		}
		weight := s.Weight
		if rule.Weight != nil {
			weight = rule.Weight(f)
		}
		// A check weighted to zero contributes neither score nor reason.
		if weight <= 0 {
			continue
		}
		findings = append(findings, SignalFinding{
			Check:  rule.Check,
			Reason: rule.Reason(f),
			Weight: weight,
		})
	}
	return findings
}

// Score sums the findings, clamps the total to [0,100] and collects the
// reasons in order
func Score(findings []SignalFinding) (int, []string) {
	total := 0
	reasons := make([]string, 0, len(findings))
	for _, f := range findings {
		if f.Weight > 0 {
			total += f.Weight
		}
		reasons = append(reasons, f.Reason)
	}
	if total > 100 {
		total = 100
	}
	if len(reasons) == 0 {
		reasons = []string{NoIssuesReason}
	}
	return total, reasons
}

// StatusFor maps a score onto the verdict bands
func StatusFor(score int) Status {
	switch {
	case score >= 60:
		return StatusBlocked
	case score >= 30:
		return StatusChallenge
	default:
		return StatusAllowed
	}
}

// RecommendedAction returns the guidance shown alongside a status
func RecommendedAction(status Status) string {
	switch status {
	case StatusBlocked:
		return "blocked for security reasons, use a different email"
	case StatusChallenge:
		return "additional verification required (CAPTCHA or second factor)"
	default:
		return "proceed with normal authentication"
	}
}
