package enums

import "fmt"

// RefundMethod records how money was returned to the customer.
type RefundMethod string

const (
	RefundMethodPaystack     RefundMethod = "paystack"
	RefundMethodBankTransfer RefundMethod = "bank_transfer"
	RefundMethodStoreCredit  RefundMethod = "store_credit"
)

var validRefundMethods = []RefundMethod{
	RefundMethodPaystack,
	RefundMethodBankTransfer,
	RefundMethodStoreCredit,
}

// String implements fmt.Stringer.
func (r RefundMethod) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RefundMethod.
func (r RefundMethod) IsValid() bool {
	for _, candidate := range validRefundMethods {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRefundMethod converts raw input into a RefundMethod.
func ParseRefundMethod(value string) (RefundMethod, error) {
	for _, candidate := range validRefundMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund method %q", value)
}
