package llm

// SingleTurn builds the one-message conversation sent for a prompt.
// The prompt is used verbatim, including the empty string.
func SingleTurn(prompt string) []Message {
	return []Message{{Role: RoleUser, Content: prompt}}
}
