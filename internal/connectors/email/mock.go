package email

import (
	"context"
	"fmt"
)

// mockClient is a deterministic, in-memory UpstreamClient used when
// CORPUSMIND_EMAIL_PROVIDER is unset or "mock" — the same zero-config
// default posture as providers.MockProvider.
type mockClient struct {
	messages []UpstreamMessage
}

// NewMockClientFactory returns a ClientFactory that ignores the access token
// and always serves the same small fixed inbox.
func NewMockClientFactory() ClientFactory {
	return func(ctx context.Context, accessToken string) (UpstreamClient, error) {
		return &mockClient{messages: sampleMessages()}, nil
	}
}

func (m *mockClient) ListPage(ctx context.Context, pageToken string, afterUnix int64) ([]string, string, error) {
	ids := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		if afterUnix > 0 && msg.Timestamp <= afterUnix {
			continue
		}
		ids = append(ids, msg.ID)
	}
	return ids, "", nil
}

func (m *mockClient) FetchMessage(ctx context.Context, id string) (UpstreamMessage, error) {
	for _, msg := range m.messages {
		if msg.ID == id {
			return msg, nil
		}
	}
	return UpstreamMessage{}, fmt.Errorf("mock email client: unknown message %s", id)
}

func (m *mockClient) GetAccountIdentifier(ctx context.Context) (string, error) {
	return "mock-user@corpusmind.local", nil
}

func sampleMessages() []UpstreamMessage {
	return []UpstreamMessage{
		{
			ID:        "mock-1",
			From:      "teammate@example.com",
			To:        []string{"me@example.com"},
			Subject:   "Roadmap sync notes",
			Snippet:   "Notes from today's roadmap sync",
			PlainText: "We agreed to ship the retrieval pipeline before the embedding drain work.",
			Timestamp: 1700000000,
		},
		{
			ID:        "mock-2",
			From:      "billing@example.com",
			To:        []string{"me@example.com"},
			Subject:   "Your invoice is ready",
			Snippet:   "Invoice #4821 is now available",
			PlainText: "Invoice #4821 for August is attached. Amount due: $42.00.",
			Timestamp: 1700100000,
		},
	}
}
