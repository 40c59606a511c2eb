package fraud

// Fan-out computation is kept pure and separate from the sending I/O so
// the who-gets-told logic is testable without a live transport.

type NotificationKind int

const (
	// KindComplaintCheck asks another grantee of a reported code to
	// confirm or deny that the code worked.
	KindComplaintCheck NotificationKind = iota
	// KindSubmitterFlagged tells a code's submitter it was reported.
	KindSubmitterFlagged
	// KindGrantRevoked tells a claimant their code was purged and they
	// may rejoin the waitlist.
	KindGrantRevoked
)

type Notification struct {
	Kind      NotificationKind
	Recipient string
	Code      string
}

// ComplaintSnapshot is the store state relevant to one complaint.
type ComplaintSnapshot struct {
	Code        string
	Complainant string
	Submitter   string
	// Grantees are every claimant ever granted the reported code.
	Grantees []string
}

// ComplaintFanout computes who must hear about a fresh complaint. The
// complainant is never notified about their own report, and synthetic
// system identities (admin donations and the like) are skipped.
func ComplaintFanout(s ComplaintSnapshot, systemIdentities map[string]bool) []Notification {
	var out []Notification

	for _, grantee := range s.Grantees {
		if grantee == s.Complainant {
			continue
		}
		out = append(out, Notification{
			Kind:      KindComplaintCheck,
			Recipient: grantee,
			Code:      s.Code,
		})
	}

	if s.Submitter != "" && s.Submitter != s.Complainant && !systemIdentities[s.Submitter] {
		out = append(out, Notification{
			Kind:      KindSubmitterFlagged,
			Recipient: s.Submitter,
			Code:      s.Code,
		})
	}

	return out
}

// BanSnapshot is the store state relevant to one ban fan-out.
type BanSnapshot struct {
	BannedID string
	Codes    []string
	// Victims maps claimant id to the purged code they were holding.
	Victims map[string]string
}

// BanFanout computes the revocation notices for everyone holding a code
// purged by a ban. The banned identity itself is not notified; its flows
// keep pretending to work.
func BanFanout(s BanSnapshot) []Notification {
	var out []Notification
	for victim, code := range s.Victims {
		if victim == s.BannedID {
			continue
		}
		out = append(out, Notification{
			Kind:      KindGrantRevoked,
			Recipient: victim,
			Code:      code,
		})
	}
	return out
}
