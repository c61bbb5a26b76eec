package enums

import "fmt"

// FinancialLineStatus tracks the seller revenue owed for one paid order line.
type FinancialLineStatus string

const (
	FinancialLineStatusCreated   FinancialLineStatus = "CREATED"
	FinancialLineStatusPending   FinancialLineStatus = "PENDING"
	FinancialLineStatusCollected FinancialLineStatus = "COLLECTED"
	FinancialLineStatusCancelled FinancialLineStatus = "CANCELLED"
)

var validFinancialLineStatuses = []FinancialLineStatus{
	FinancialLineStatusCreated,
	FinancialLineStatusPending,
	FinancialLineStatusCollected,
	FinancialLineStatusCancelled,
}

var financialLineTransitions = map[FinancialLineStatus][]FinancialLineStatus{
	FinancialLineStatusCreated:   {FinancialLineStatusPending, FinancialLineStatusCancelled},
	FinancialLineStatusPending:   {FinancialLineStatusCollected, FinancialLineStatusCancelled},
	FinancialLineStatusCollected: {FinancialLineStatusCancelled},
}

// String implements fmt.Stringer.
func (s FinancialLineStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known FinancialLineStatus.
func (s FinancialLineStatus) IsValid() bool {
	for _, candidate := range validFinancialLineStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the ledger allows moving from s to next.
func (s FinancialLineStatus) CanTransitionTo(next FinancialLineStatus) bool {
	for _, candidate := range financialLineTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// FinancialLineSourcesFor lists every status that may move to target.
func FinancialLineSourcesFor(target FinancialLineStatus) []FinancialLineStatus {
	var sources []FinancialLineStatus
	for _, candidate := range validFinancialLineStatuses {
		if candidate.CanTransitionTo(target) {
			sources = append(sources, candidate)
		}
	}
	return sources
}

// ParseFinancialLineStatus converts raw input into a FinancialLineStatus.
func ParseFinancialLineStatus(value string) (FinancialLineStatus, error) {
	for _, candidate := range validFinancialLineStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid financial line status %q", value)
}
