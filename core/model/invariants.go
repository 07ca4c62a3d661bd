package model

import "fmt"

// CheckPairInvariants validates invariants (ii)-(iv) on a transfer-paired
// transaction against its counterpart: opposite-signed amount, different
// account, symmetric paired_id, and is_transfer/suspect_reason mutual
// exclusion. It is used by tests; it never mutates its arguments.
func CheckPairInvariants(a, b Transaction) error {
	if a.IsTransfer && a.SuspectReason != nil {
		return fmt.Errorf("transaction %d: is_transfer and suspect_reason are mutually exclusive", a.ID)
	}
	if a.IsTransfer {
		if a.PairedID == nil || *a.PairedID != b.ID {
			return fmt.Errorf("transaction %d: is_transfer requires paired_id == %d", a.ID, b.ID)
		}
		if b.PairedID == nil || *b.PairedID != a.ID {
			return fmt.Errorf("transaction %d: paired_id symmetry violated with %d", a.ID, b.ID)
		}
		if a.AccountID == b.AccountID {
			return fmt.Errorf("transfer pair %d/%d: same account_id", a.ID, b.ID)
		}
		if a.Amount.Sign() == b.Amount.Sign() || a.Amount.Sign() == 0 {
			return fmt.Errorf("transfer pair %d/%d: amounts are not opposite-signed", a.ID, b.ID)
		}
	}
	return nil
}
