// Package llm holds the wire types shared by promptgate's providers and HTTP surfaces.
package llm

// ErrorResponse is the JSON body returned by HTTP surfaces when a call fails.
type ErrorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
	Display  string `json:"display,omitempty"`
}
