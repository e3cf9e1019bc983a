package models

const (
	// SystemPrompt pins the assistant to the retrieved context.
	SystemPrompt = "You are a helpful assistant. Use the provided context to answer the user's question. " +
		"If the answer is not in the context, say you don't know."

	// UserPromptTemplate wraps the retrieved context and the question.
	UserPromptTemplate = "Context:\n%s\n\nQuestion: %s\nAnswer:"

	// EmptyContextMarker is handed to the model when retrieval found nothing,
	// so the answer states that instead of failing.
	EmptyContextMarker = "(no relevant context found)"
)
