package models

import "fmt"

// ChatRequest is the inbound query contract: a user message, an optional selected
// text to explain, and an optional auth token.
type ChatRequest struct {
	Message      string `json:"message"`
	SelectedText string `json:"selected_text,omitempty"`
	AuthToken    string `json:"auth_token,omitempty"`
}

// Validate ensures the request has a non-empty message.
func (r *ChatRequest) Validate() error {
	if r.Message == "" {
		return fmt.Errorf("message cannot be empty")
	}
	return nil
}

// ChatResponse is the minimal chat endpoint response.
type ChatResponse struct {
	Reply string `json:"reply"`
}
