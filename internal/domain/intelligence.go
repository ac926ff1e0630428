package domain

// IntelBundle groups every artifact category extracted from scammer text.
// Each slice is deduplicated and insertion-ordered; accumulation is
// union-only, entries are never removed. JSON field names follow the
// external reporting contract.
type IntelBundle struct {
	BankAccounts       []string `json:"bankAccounts"`
	PaymentHandles     []string `json:"upiIds"`
	Links              []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// Merge unions other into b field by field. Merging is idempotent and
// commutative with respect to membership; insertion order is preserved
// for entries already present in b.
func (b *IntelBundle) Merge(other IntelBundle) {
	b.BankAccounts = appendUnique(b.BankAccounts, other.BankAccounts)
	b.PaymentHandles = appendUnique(b.PaymentHandles, other.PaymentHandles)
	b.Links = appendUnique(b.Links, other.Links)
	b.PhoneNumbers = appendUnique(b.PhoneNumbers, other.PhoneNumbers)
	b.SuspiciousKeywords = appendUnique(b.SuspiciousKeywords, other.SuspiciousKeywords)
}

// Clone returns a deep copy safe to hand across goroutines.
func (b IntelBundle) Clone() IntelBundle {
	return IntelBundle{
		BankAccounts:       cloneSlice(b.BankAccounts),
		PaymentHandles:     cloneSlice(b.PaymentHandles),
		Links:              cloneSlice(b.Links),
		PhoneNumbers:       cloneSlice(b.PhoneNumbers),
		SuspiciousKeywords: cloneSlice(b.SuspiciousKeywords),
	}
}

// HasActionable reports whether the bundle contains at least one artifact
// worth reporting on its own: a bank account, payment handle, or link.
// Keywords and phone numbers alone are not actionable.
func (b IntelBundle) HasActionable() bool {
	return len(b.BankAccounts) > 0 || len(b.PaymentHandles) > 0 || len(b.Links) > 0
}

// Total returns the number of artifacts across all five categories.
func (b IntelBundle) Total() int {
	return len(b.BankAccounts) + len(b.PaymentHandles) + len(b.Links) +
		len(b.PhoneNumbers) + len(b.SuspiciousKeywords)
}

func appendUnique(dst, src []string) []string {
	for _, v := range src {
		found := false
		for _, existing := range dst {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}

func cloneSlice(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
