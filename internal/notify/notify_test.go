package notify

import "testing"

// Interface compliance (compile-time assertions)
var (
	_ Notifier = (*NATSNotifier)(nil)
	_ Notifier = NoopNotifier{}
)

func TestLastToken(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{"webhooks.order-created", "order-created"},
		{"a.b.client-created", "client-created"},
		{"nodots", "nodots"},
	}
	for _, tt := range tests {
		if got := lastToken(tt.subject); got != tt.want {
			t.Errorf("lastToken(%q) = %q, want %q", tt.subject, got, tt.want)
		}
	}
}
