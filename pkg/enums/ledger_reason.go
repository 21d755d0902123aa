package enums

import "fmt"

// LedgerReason classifies a stock ledger delta.
type LedgerReason string

const (
	LedgerReasonOrderPaid    LedgerReason = "order_paid"
	LedgerReasonManualAdjust LedgerReason = "manual_adjust"
	LedgerReasonRestock      LedgerReason = "restock"
	LedgerReasonInitialSync  LedgerReason = "initial_sync"
)

var validLedgerReasons = []LedgerReason{
	LedgerReasonOrderPaid,
	LedgerReasonManualAdjust,
	LedgerReasonRestock,
	LedgerReasonInitialSync,
}

// String implements fmt.Stringer.
func (l LedgerReason) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LedgerReason.
func (l LedgerReason) IsValid() bool {
	for _, candidate := range validLedgerReasons {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLedgerReason converts raw input into a LedgerReason.
func ParseLedgerReason(value string) (LedgerReason, error) {
	for _, candidate := range validLedgerReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger reason %q", value)
}
