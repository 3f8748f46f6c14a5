package core

import (
	"errors"
	"fmt"
)

// Reputation labels
const (
	LabelNotChecked        = "not checked"
	LabelVerificationError = "verification error"
	LabelUnknown           = "unknown"
	LabelClean             = "clean"
	LabelNoAddress         = "no IP address"
)

// ReputationWeights maps feed answers to penalties
type ReputationWeights struct {
	MaliciousBase  int
	SuspiciousBase int
	PerDetection   int
	UnknownDomain  int

	HighRiskConfidence     int
	ModerateRiskConfidence int
	HighRisk               int
	ModerateRisk           int
	NoAddress              int
}

// DefaultReputationWeights returns the stock reputation penalties
func DefaultReputationWeights() ReputationWeights {
	return ReputationWeights{
		MaliciousBase:          40,
		SuspiciousBase:         20,
		PerDetection:           5,
		UnknownDomain:          5,
		HighRiskConfidence:     75,
		ModerateRiskConfidence: 25,
		HighRisk:               30,
		ModerateRisk:           15,
		NoAddress:              5,
	}
}

// ClassifyDomainReport turns a threat-feed answer into a signal. Errors other
// than ErrNotFound fail open.
func ClassifyDomainReport(report *DomainReport, err error, w ReputationWeights) ReputationSignal {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return ReputationSignal{Label: LabelNotChecked}
	case errors.Is(err, ErrNotFound):
		return ReputationSignal{Weight: w.UnknownDomain, Label: LabelUnknown}
	case err != nil || report == nil:
		return ReputationSignal{Label: LabelVerificationError}
	case report.Malicious > 0:
		return ReputationSignal{
			Weight: w.MaliciousBase + w.PerDetection*report.Malicious,
			Label:  fmt.Sprintf("malicious (%d detections)", report.Malicious),
		}
	case report.Suspicious > 0:
		return ReputationSignal{
			Weight: w.SuspiciousBase + w.PerDetection*report.Suspicious,
			Label:  fmt.Sprintf("suspicious (%d detections)", report.Suspicious),
		}
	default:
		return ReputationSignal{Label: LabelClean}
	}
}

// ClassifyAbuseConfidence turns an abuse confidence percentage into a signal
func ClassifyAbuseConfidence(confidence int, err error, w ReputationWeights) ReputationSignal {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return ReputationSignal{Label: LabelNotChecked}
	case err != nil:
		return ReputationSignal{Label: LabelVerificationError}
	case confidence >= w.HighRiskConfidence:
		return ReputationSignal{Weight: w.HighRisk, Label: fmt.Sprintf("high risk (%d%%)", confidence)}
	case confidence >= w.ModerateRiskConfidence:
		return ReputationSignal{Weight: w.ModerateRisk, Label: fmt.Sprintf("moderate risk (%d%%)", confidence)}
	default:
		return ReputationSignal{Label: fmt.Sprintf("low risk (%d%%)", confidence)}
	}
}
