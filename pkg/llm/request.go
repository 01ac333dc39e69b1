package llm

// ChatRequest represents a chat completion request (Ollama-compatible).
type ChatRequest struct {
	Model    string    `json:"model"`            // Model name (e.g., "llama3", "deepseek-r1:8b")
	Messages []Message `json:"messages"`         // Conversation history
	Stream   *bool     `json:"stream,omitempty"` // Ollama streams unless this is explicitly false
}
