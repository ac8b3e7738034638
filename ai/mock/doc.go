// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, llms.Model,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), mock.NewMockChatModel())
//	vector, err := provider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	chat := mock.NewMockChatModel()
//	chat.GenerateContentFunc = func(ctx context.Context, msgs []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
//	    return mock.Respond("Paris"), nil
//	}
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockChatModel: Returns DefaultResponse and records the prompt
//   - MockProvider: Aggregates mock embedder and chat model
package mock
