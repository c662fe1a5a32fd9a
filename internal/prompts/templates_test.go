package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anbose/studiodesk/internal/models"
)

func TestBuildSupportPrompt(t *testing.T) {
	prompt := BuildSupportPrompt("Find client john@example.com", "")
	assert.Contains(t, prompt, `"Find client john@example.com"`)
	assert.NotContains(t, prompt, "Conversation context")

	withCtx := BuildSupportPrompt("email that client", "Recent client context:\n- Last searched client: a@b.com\n")
	assert.Contains(t, withCtx, "Conversation context so far:")
	assert.Contains(t, withCtx, "a@b.com")
}

func TestBuildDashboardPrompt(t *testing.T) {
	prompt := BuildDashboardPrompt("मासिक राजस्व दिखाएं", "")
	assert.Contains(t, prompt, "मासिक राजस्व दिखाएं")
	assert.Contains(t, prompt, "outstanding_payments")
}

func TestParseClassification(t *testing.T) {
	c, err := ParseClassification(`{"intent": "revenue", "period": "month", "translated_query": "Show me monthly revenue"}`)
	require.NoError(t, err)
	assert.Equal(t, models.IntentRevenue, c.Intent)
	assert.Equal(t, "month", c.Period)
	assert.Equal(t, "Show me monthly revenue", c.TranslatedQuery)
}

func TestParseClassification_ExtractsEmbeddedJSON(t *testing.T) {
	content := "Sure! Here is the classification:\n" +
		`{"intent": "order_status", "extracted_data": {"orderId": 123, "rush": true, "note": ""}}` +
		"\nLet me know if you need more."

	c, err := ParseClassification(content)
	require.NoError(t, err)
	assert.Equal(t, "order_status", c.Intent)

	// Scalars are coerced to strings; empty strings are dropped.
	assert.Equal(t, "123", c.ExtractedData["orderId"])
	assert.Equal(t, "true", c.ExtractedData["rush"])
	_, ok := c.ExtractedData["note"]
	assert.False(t, ok)
}

func TestParseClassification_MissingIntentBecomesUnknown(t *testing.T) {
	c, err := ParseClassification(`{"translated_query": "hello"}`)
	require.NoError(t, err)
	assert.Equal(t, models.IntentUnknown, c.Intent)
	assert.True(t, c.Unknown())
}

func TestParseClassification_Malformed(t *testing.T) {
	for _, content := range []string{
		"no json here at all",
		"{not valid json}",
		strings.Repeat("}", 3),
	} {
		_, err := ParseClassification(content)
		assert.Error(t, err, "content: %s", content)
	}
}
