// Package domain defines core domain types, the error taxonomy, and row
// validation for the career engine pipeline. It acts as the validation gate at
// pipeline entry points.
package domain

// Posting represents one open internship row parsed from the listing document.
// All four fields are non-empty for a valid posting.
type Posting struct {
	Company    string `json:"company"`
	Title      string `json:"title"`
	Location   string `json:"location"`
	PostedDate string `json:"posted_date"`
}

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// LatestUserContent returns the content of the last user message in the
// history, or "" if there is none.
func LatestUserContent(history []Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" {
			return history[i].Content
		}
	}
	return ""
}
