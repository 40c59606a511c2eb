package memrepo

import (
	"context"
	"sync"
)

// Notice is one recorded notification.
type Notice struct {
	Method    string
	Recipient string
	Code      string
	Position  int
	Percent   int
	Message   string
}

// RecordingNotifier captures every notification instead of sending it.
type RecordingNotifier struct {
	mu      sync.Mutex
	notices []Notice

	// Err, when set, fails every call.
	Err error
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) record(notice Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.notices = append(n.notices, notice)
	return nil
}

func (n *RecordingNotifier) CodeGranted(_ context.Context, claimantID, code string) error {
	return n.record(Notice{Method: "CodeGranted", Recipient: claimantID, Code: code})
}

func (n *RecordingNotifier) Requeued(_ context.Context, claimantID string, position int) error {
	return n.record(Notice{Method: "Requeued", Recipient: claimantID, Position: position})
}

func (n *RecordingNotifier) ComplaintCheck(_ context.Context, claimantID, code string) error {
	return n.record(Notice{Method: "ComplaintCheck", Recipient: claimantID, Code: code})
}

func (n *RecordingNotifier) SubmitterFlagged(_ context.Context, submitterID, code string) error {
	return n.record(Notice{Method: "SubmitterFlagged", Recipient: submitterID, Code: code})
}

func (n *RecordingNotifier) GrantRevoked(_ context.Context, claimantID string) error {
	return n.record(Notice{Method: "GrantRevoked", Recipient: claimantID})
}

func (n *RecordingNotifier) WaitlistReminder(_ context.Context, claimantID string, position int) error {
	return n.record(Notice{Method: "WaitlistReminder", Recipient: claimantID, Position: position})
}

func (n *RecordingNotifier) Progress(_ context.Context, claimantID string, percent int) error {
	return n.record(Notice{Method: "Progress", Recipient: claimantID, Percent: percent})
}

func (n *RecordingNotifier) Document(_ context.Context, claimantID, filename string, _ []byte) error {
	return n.record(Notice{Method: "Document", Recipient: claimantID, Message: filename})
}

func (n *RecordingNotifier) OperatorAlert(_ context.Context, message string) error {
	return n.record(Notice{Method: "OperatorAlert", Message: message})
}

// All returns a snapshot of every recorded notice in order.
func (n *RecordingNotifier) All() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notice, len(n.notices))
	copy(out, n.notices)
	return out
}

// ByMethod returns the notices recorded for one method.
func (n *RecordingNotifier) ByMethod(method string) []Notice {
	var out []Notice
	for _, notice := range n.All() {
		if notice.Method == method {
			out = append(out, notice)
		}
	}
	return out
}

// Count reports how many notices were recorded for method.
func (n *RecordingNotifier) Count(method string) int {
	return len(n.ByMethod(method))
}
