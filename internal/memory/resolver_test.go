package memory

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/anbose/studiodesk/internal/models"
)

func TestNeedsResolution(t *testing.T) {
	r := NewResolver(newTestStore(t, StoreConfig{}))

	assert.True(t, r.NeedsResolution("Show me orders for that client"))
	assert.True(t, r.NeedsResolution("Has THE ORDER shipped yet?"))
	assert.True(t, r.NeedsResolution("email them the invoice"))
	assert.False(t, r.NeedsResolution("Find client john@example.com"))
}

func TestResolve_SubstitutesRememberedEntities(t *testing.T) {
	s := newTestStore(t, StoreConfig{})
	r := NewResolver(s)

	id := s.CreateNewSession()
	s.StoreInteraction(id, models.AgentSupport, "find john", "ok", map[string]string{
		"email":       "john@example.com",
		"orderId":     "ORD-42",
		"serviceName": "Yoga Course",
	}, "search_client")

	assert.Equal(t, "Show orders for john@example.com",
		r.Resolve(id, "Show orders for that client"))
	assert.Equal(t, "Has order ORD-42 been paid?",
		r.Resolve(id, "Has the order been paid?"))
	assert.Equal(t, "When does Yoga Course start?",
		r.Resolve(id, "When does this service start?"))
}

func TestResolve_LengthChangingCaseFolds(t *testing.T) {
	s := newTestStore(t, StoreConfig{})
	r := NewResolver(s)

	id := s.CreateNewSession()
	s.StoreInteraction(id, models.AgentSupport, "find john", "ok",
		map[string]string{"email": "john@example.com"}, "search_client")

	// "İ" (U+0130) lowercases to two bytes and "Ⱥ" (U+023A) to three, so
	// surrounding text whose byte length shifts under case conversion must
	// not skew where the phrase is replaced.
	resolved := r.Resolve(id, "İstanbul İİ notes: email that client")
	assert.Equal(t, "İstanbul İİ notes: email john@example.com", resolved)
	assert.True(t, utf8.ValidString(resolved))

	resolved = r.Resolve(id, "ȺȺȺȺȺȺȺȺȺȺ email that client")
	assert.Equal(t, "ȺȺȺȺȺȺȺȺȺȺ email john@example.com", resolved)
	assert.True(t, utf8.ValidString(resolved))

	// Phrase casing itself stays case-insensitive.
	assert.Equal(t, "email john@example.com",
		r.Resolve(id, "email THAT CLIENT"))
}

func TestResolve_EmptySessionUsesActive(t *testing.T) {
	s := newTestStore(t, StoreConfig{})
	r := NewResolver(s)

	s.StoreInteraction("", models.AgentSupport, "find john", "ok",
		map[string]string{"email": "john@example.com"}, "search_client")

	assert.Equal(t, "Email john@example.com now", r.Resolve("", "Email that client now"))
}

func TestResolve_NoContextLeavesQueryUnchanged(t *testing.T) {
	s := newTestStore(t, StoreConfig{})
	r := NewResolver(s)

	// No session at all.
	assert.Equal(t, "email that client", r.Resolve("", "email that client"))

	// A session without client context: the phrase stays literal.
	id := s.CreateNewSession()
	assert.Equal(t, "email that client", r.Resolve(id, "email that client"))

	// Bare pronouns trigger resolution but have no substitution rule.
	s.StoreInteraction(id, models.AgentSupport, "find john", "ok",
		map[string]string{"email": "john@example.com"}, "search_client")
	assert.Equal(t, "email them please", r.Resolve(id, "email them please"))
}
