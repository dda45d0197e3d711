package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleResponder(t *testing.T) {
	r := NewRuleResponder()

	assert.Contains(t, r.Respond("Hi!"), "offline mode")
	assert.Contains(t, r.Respond("how is my PORTFOLIO doing"), "Supported requests", "earlier rules win")
	assert.Contains(t, r.Respond("show positions"), "portfolio commentary")
	assert.Equal(t, DefaultFallbackAnswer, r.Respond("this has no keyword"), "keywords match whole words only")
	assert.Equal(t, DefaultFallbackAnswer, r.Respond(""))
	assert.Equal(t, r.Respond("risk?"), r.Respond("risk?"))
}

func TestRuleResponder_CustomRules(t *testing.T) {
	r := NewRuleResponder(FallbackRule{Keywords: []string{"ping"}, Answer: "pong"})
	assert.Equal(t, "pong", r.Respond("PING"))
	assert.Equal(t, DefaultFallbackAnswer, r.Respond("hello"))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "backend_cascade", StateBackendCascade.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.Equal(t, "unknown", AnyState.String())
}
