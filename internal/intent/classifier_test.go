package intent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/anbose/studiodesk/internal/models"
)

type fakeModel struct {
	response string
	err      error
	prompt   string
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if len(messages) > 0 && len(messages[0].Parts) > 0 {
		if text, ok := messages[0].Parts[0].(llms.TextContent); ok {
			f.prompt = text.Text
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.response}},
	}, nil
}

func (f *fakeModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return f.response, f.err
}

func TestClassify_ParsesModelOutput(t *testing.T) {
	model := &fakeModel{
		response: `Here is the result:
{"intent": "search_client", "extracted_data": {"email": "john@example.com"}, "translated_query": "Find client john@example.com"}`,
	}
	c := NewClassifier(model, time.Second, nil)

	got := c.Classify(context.Background(), models.AgentSupport, "Find client john@example.com", "")
	if got.Intent != models.IntentSearchClient {
		t.Fatalf("intent = %s, want search_client", got.Intent)
	}
	if got.ExtractedData["email"] != "john@example.com" {
		t.Errorf("extracted email = %q", got.ExtractedData["email"])
	}
}

func TestClassify_IncludesSessionContextInPrompt(t *testing.T) {
	model := &fakeModel{response: `{"intent": "order_status"}`}
	c := NewClassifier(model, time.Second, nil)

	c.Classify(context.Background(), models.AgentSupport, "status of the order",
		"Recent service context:\n- Last order: ORD-42\n")

	if !strings.Contains(model.prompt, "ORD-42") {
		t.Errorf("expected session context in prompt:\n%s", model.prompt)
	}
}

func TestClassify_DegradesToUnknown(t *testing.T) {
	tests := []struct {
		name  string
		model llms.Model
	}{
		{"nil model", nil},
		{"transport error", &fakeModel{err: errors.New("rate limited")}},
		{"unparseable output", &fakeModel{response: "I cannot classify that."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(tt.model, time.Second, nil)
			got := c.Classify(context.Background(), models.AgentDashboard, "anything", "")
			if !got.Unknown() {
				t.Errorf("expected unknown classification, got %+v", got)
			}
		})
	}
}
