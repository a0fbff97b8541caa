package models

import (
	"testing"
)

func TestChatRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     *ChatRequest
		wantErr bool
	}{
		{"empty message", &ChatRequest{Message: ""}, true},
		{"valid message", &ChatRequest{Message: "what is physical AI?"}, false},
		{"selected text without message", &ChatRequest{SelectedText: "some text"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
