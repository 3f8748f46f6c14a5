package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestFindingsNothingTriggered(t *testing.T) {
	findings := Findings(&Facts{Domain: "example.com", MX: MXPresent}, DefaultScoringPolicy())
	assert.Empty(t, findings)

	score, reasons := Score(findings)
	assert.Equal(t, 0, score)
	assert.Equal(t, []string{NoIssuesReason}, reasons)
}

func TestFindingsDeclarationOrder(t *testing.T) {
	facts := &Facts{
		Domain:         "paypa1-secure-123.xyz",
		Disposable:     true,
		SuspiciousTLD:  ".xyz",
		TyposquatBrand: "paypal",
		DenseLabel:     true,
		MX:             MXAbsent,
		AgeDays:        intPtr(3),
		DomainSignal:   ReputationSignal{Weight: 45, Label: "malicious (1 detections)"},
		IPSignal:       ReputationSignal{Weight: 30, Label: "high risk (90%)"},
	}

	findings := Findings(facts, DefaultScoringPolicy())
	require.Len(t, findings, 8)

	checks := make([]string, 0, len(findings))
	for _, f := range findings {
		checks = append(checks, f.Check)
	}
	assert.Equal(t, []string{
		CheckDisposable, CheckSuspiciousTLD, CheckTyposquatting, CheckNumericDensity,
		CheckMX, CheckDomainAge, CheckDomainReputation, CheckIPReputation,
	}, checks)

	assert.Equal(t, "domain too new (3 days)", findings[5].Reason)
	assert.Equal(t, "domain reputation: malicious (1 detections)", findings[6].Reason)
	assert.Equal(t, 45, findings[6].Weight)

	score, reasons := Score(findings)
	assert.Equal(t, 100, score)
	assert.Len(t, reasons, 8)
}

func TestFindingsRespectPolicy(t *testing.T) {
	policy := DefaultScoringPolicy()
	policy.Checks[CheckDisposable] = CheckSetting{Enabled: false, Weight: 60}
	policy.Checks[CheckMX] = CheckSetting{Enabled: true, Weight: 12}

	findings := Findings(&Facts{Disposable: true, MX: MXAbsent}, policy)
	require.Len(t, findings, 1)
	assert.Equal(t, CheckMX, findings[0].Check)
	assert.Equal(t, 12, findings[0].Weight)
}

func TestFindingsSkipZeroWeightChecks(t *testing.T) {
	policy := DefaultScoringPolicy()
	policy.Checks[CheckSuspiciousTLD] = CheckSetting{Enabled: true, Weight: 0}

	findings := Findings(&Facts{MX: MXPresent, SuspiciousTLD: ".xyz"}, policy)
	assert.Empty(t, findings)

	score, reasons := Score(findings)
	assert.Equal(t, 0, score)
	assert.Equal(t, []string{NoIssuesReason}, reasons)
}

func TestFindingsUnknownMXIsNotPenalized(t *testing.T) {
	assert.Empty(t, Findings(&Facts{MX: MXUnknown}, DefaultScoringPolicy()))
}

func TestDomainAgeBoundary(t *testing.T) {
	policy := DefaultScoringPolicy()
	assert.Len(t, Findings(&Facts{MX: MXPresent, AgeDays: intPtr(29)}, policy), 1)
	assert.Empty(t, Findings(&Facts{MX: MXPresent, AgeDays: intPtr(30)}, policy))
	assert.Empty(t, Findings(&Facts{MX: MXPresent}, policy))
}

func TestScoreIsMonotoneAndClamped(t *testing.T) {
	all := []SignalFinding{
		{Check: "a", Reason: "a", Weight: 25},
		{Check: "b", Reason: "b", Weight: 30},
		{Check: "c", Reason: "c", Weight: 0},
		{Check: "d", Reason: "d", Weight: 60},
	}

	prev := 0
	for i := range all {
		score, reasons := Score(all[:i+1])
		assert.GreaterOrEqual(t, score, prev)
		assert.LessOrEqual(t, score, 100)
		assert.Len(t, reasons, i+1)
		prev = score
	}
	assert.Equal(t, 100, prev)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		score int
		want  Status
	}{
		{0, StatusAllowed},
		{29, StatusAllowed},
		{30, StatusChallenge},
		{59, StatusChallenge},
		{60, StatusBlocked},
		{100, StatusBlocked},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.score), "score %d", tt.score)
	}
}

func TestRecommendedAction(t *testing.T) {
	assert.Contains(t, RecommendedAction(StatusBlocked), "blocked")
	assert.Contains(t, RecommendedAction(StatusChallenge), "additional verification")
	assert.Equal(t, "proceed with normal authentication", RecommendedAction(StatusAllowed))
}

func TestClassifyDomainReport(t *testing.T) {
	w := DefaultReputationWeights()
	tests := []struct {
		name   string
		report *DomainReport
		err    error
		want   ReputationSignal
	}{
		{"not configured", nil, ErrNotConfigured, ReputationSignal{Label: LabelNotChecked}},
		{"unknown to feed", nil, ErrNotFound, ReputationSignal{Weight: 5, Label: LabelUnknown}},
		{"transport error", nil, errors.New("boom"), ReputationSignal{Label: LabelVerificationError}},
		{"malicious", &DomainReport{Malicious: 3, Suspicious: 2}, nil, ReputationSignal{Weight: 55, Label: "malicious (3 detections)"}},
		{"suspicious only", &DomainReport{Suspicious: 2}, nil, ReputationSignal{Weight: 30, Label: "suspicious (2 detections)"}},
		{"clean", &DomainReport{Harmless: 70}, nil, ReputationSignal{Label: LabelClean}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDomainReport(tt.report, tt.err, w))
		})
	}
}

func TestClassifyAbuseConfidence(t *testing.T) {
	w := DefaultReputationWeights()
	tests := []struct {
		name       string
		confidence int
		err        error
		want       ReputationSignal
	}{
		{"not configured", 0, ErrNotConfigured, ReputationSignal{Label: LabelNotChecked}},
		{"error", 0, errors.New("boom"), ReputationSignal{Label: LabelVerificationError}},
		{"high", 75, nil, ReputationSignal{Weight: 30, Label: "high risk (75%)"}},
		{"moderate", 25, nil, ReputationSignal{Weight: 15, Label: "moderate risk (25%)"}},
		{"moderate upper", 74, nil, ReputationSignal{Weight: 15, Label: "moderate risk (74%)"}},
		{"low", 24, nil, ReputationSignal{Label: "low risk (24%)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAbuseConfidence(tt.confidence, tt.err, w))
		})
	}
}
