package memory

import (
	"regexp"
	"strings"
)

// Deictic trigger phrases. The bare pronouns flag a query as needing
// resolution but carry no substitution rule of their own.
var triggerPhrases = []string{
	"that client", "this client", "the client",
	"that order", "this order", "the order",
	"that service", "this service", "the service",
	"them", "it", "he", "she", "they",
	"same client", "same order", "same service",
}

// Substitution patterns, one per remembered entity kind. Case-insensitive
// matching must not assume lowercasing preserves byte offsets: some
// characters change byte length under case conversion, so the replace is
// done by the regexp engine rather than by slicing a lowered copy.
var (
	clientPhrasePattern  = regexp.MustCompile(`(?i)(?:that|this|the) client`)
	orderPhrasePattern   = regexp.MustCompile(`(?i)(?:that|this|the) order`)
	servicePhrasePattern = regexp.MustCompile(`(?i)(?:that|this|the) service`)
)

// Resolver rewrites deictic references in a query into the concrete values a
// session remembers, so "email that client" behaves as if the caller had
// typed the actual email. The rewrite is a best-effort literal substitution:
// it does not parse the query and may leave a sentence ungrammatical, which
// downstream classification tolerates.
type Resolver struct {
	store *Store
}

// NewResolver constructs a resolver reading context from the given store.
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// NeedsResolution reports whether the query contains any trigger phrase.
func (r *Resolver) NeedsResolution(query string) bool {
	lower := strings.ToLower(query)
	for _, phrase := range triggerPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Resolve substitutes remembered entities for deictic phrases. Each
// substitution is independent; a phrase whose context field is absent is
// left untouched. An empty sessionID resolves to the store's active session;
// with no session or no trigger phrases the query is returned unchanged.
func (r *Resolver) Resolve(sessionID, query string) string {
	if sessionID == "" {
		sessionID = r.store.CurrentSessionID()
	}
	if sessionID == "" || !r.NeedsResolution(query) {
		return query
	}

	resolved := query

	if c := r.store.ClientContextFor(sessionID); c != nil && c.Email != "" {
		resolved = clientPhrasePattern.ReplaceAllLiteralString(resolved, c.Email)
	}

	if sc := r.store.ServiceContextFor(sessionID); sc != nil {
		if sc.OrderID != "" {
			resolved = orderPhrasePattern.ReplaceAllLiteralString(resolved, "order "+sc.OrderID)
		}
		if sc.ServiceName != "" {
			resolved = servicePhrasePattern.ReplaceAllLiteralString(resolved, sc.ServiceName)
		}
	}

	return resolved
}
