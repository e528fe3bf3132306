package domain

import "fmt"

// CheckoutMode selects how multi-write operations are made consistent.
type CheckoutMode string

const (
	// CheckoutStrict runs database writes in one transaction and clears the
	// cart as a compensable saga step before commit.
	CheckoutStrict CheckoutMode = "strict"
	// CheckoutLenient issues independent writes and logs partial failures.
	CheckoutLenient CheckoutMode = "lenient"
)

// ParseCheckoutMode validates s.
func ParseCheckoutMode(s string) (CheckoutMode, error) {
	switch m := CheckoutMode(s); m {
	case CheckoutStrict, CheckoutLenient:
		return m, nil
	default:
		return "", fmt.Errorf("unknown checkout mode %q", s)
	}
}

// MissingReferencePolicy decides what happens when an order references a
// product or seller that no longer exists.
type MissingReferencePolicy string

const (
	// MissingReferenceSkip ignores the reference; the order still lists the item.
	MissingReferenceSkip MissingReferencePolicy = "skip"
	// MissingReferenceReject fails the placement with 422.
	MissingReferenceReject MissingReferencePolicy = "reject"
)

// ParseMissingReferencePolicy validates s.
func ParseMissingReferencePolicy(s string) (MissingReferencePolicy, error) {
	switch p := MissingReferencePolicy(s); p {
	case MissingReferenceSkip, MissingReferenceReject:
		return p, nil
	default:
		return "", fmt.Errorf("unknown missing reference policy %q", s)
	}
}
