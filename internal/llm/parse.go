package llm

import (
	"fmt"
	"regexp"
	"strings"

	"ai-crypto-trader/internal/types"
)

var (
	decisionRe      = regexp.MustCompile(`(?i)DECISION:\s*([A-Z_]+)`)
	justificationRe = regexp.MustCompile(`(?i)JUSTIFICACION:\s*(.+)`)
)

// ParseResponse extracts the action and its justification from a raw
// model response. A response that does not carry a recognizable
// decision token degrades to NO_ACTION with the raw text preserved in
// the reason, so the audit trail keeps what the model actually said.
func ParseResponse(raw string) (types.Action, string) {
	dm := decisionRe.FindStringSubmatch(raw)
	if dm == nil {
		return types.ActionNoAction, fmt.Sprintf("unparseable model response: %s", strings.TrimSpace(raw))
	}

	action := types.Action(strings.ToUpper(dm[1]))
	if !action.Valid() {
		return types.ActionNoAction, fmt.Sprintf("invalid decision %q in model response: %s", dm[1], strings.TrimSpace(raw))
	}

	reason := ""
	if jm := justificationRe.FindStringSubmatch(raw); jm != nil {
		reason = strings.TrimSpace(jm[1])
	}
	if reason == "" {
		reason = "no justification provided"
	}
	return action, reason
}
