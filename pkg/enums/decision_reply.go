package enums

import "fmt"

// DecisionReply is the reply an administrator gives to a pending order.
type DecisionReply string

const (
	DecisionReplyApprove DecisionReply = "approve"
	DecisionReplyDeny    DecisionReply = "deny"
)

var validDecisionReplies = []DecisionReply{
	DecisionReplyApprove,
	DecisionReplyDeny,
}

// String implements fmt.Stringer.
func (d DecisionReply) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DecisionReply.
func (d DecisionReply) IsValid() bool {
	for _, candidate := range validDecisionReplies {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDecisionReply converts raw input into a DecisionReply. Anything
// outside approve/deny is malformed input and rejected before any state
// is touched.
func ParseDecisionReply(value string) (DecisionReply, error) {
	for _, candidate := range validDecisionReplies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid decision reply %q", value)
}
