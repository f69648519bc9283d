package authorization

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecision_String(t *testing.T) {
	testCases := []struct {
		name     string
		decision Decision
		expected string
	}{
		{
			name:     "Allow with decider",
			decision: allow(`allowed by rule "public"`, stringPtr("public")),
			expected: `Decision{Allowed: true, Reason: OK, Message: "allowed by rule \"public\"", Decider: public}`,
		},
		{
			name:     "Default deny",
			decision: deny(ReasonRouteForbidden, "no matching rule found, access denied by default", nil),
			expected: `Decision{Allowed: false, Reason: ROUTE_FORBIDDEN, Message: "no matching rule found, access denied by default", Decider: nil}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.decision.String())
		})
	}
}
