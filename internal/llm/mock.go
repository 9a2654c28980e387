package llm

import (
	"context"
	"sync/atomic"
)

// MockClient is a test double for Client.
type MockClient struct {
	ProviderName string
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

func (m *MockClient) Name() string { return m.ProviderName }

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResponse{Content: "mock response"}, nil
}

// cannedReplies back the "mock" provider used for offline runs.
var cannedReplies = []string{
	"Haan ji, I am listening. Which bank did you say you are calling from?",
	"Okay okay, but what is your good name and employee ID please?",
	"My son handles these things. Can you give me a number to call back?",
	"Where should I send it exactly? Please tell me the UPI ID slowly.",
	"The link is not opening on my phone. Can you email me the details?",
	"Which account number should I write down? Let me get my spectacles.",
}

// NewCannedClient returns a provider that cycles through fixed replies.
func NewCannedClient() *MockClient {
	var n atomic.Uint64
	return &MockClient{
		ProviderName: "mock",
		CompleteFunc: func(context.Context, CompletionRequest) (*CompletionResponse, error) {
			i := n.Add(1) - 1
			return &CompletionResponse{
				Content: cannedReplies[i%uint64(len(cannedReplies))],
				Model:   "canned",
			}, nil
		},
	}
}
