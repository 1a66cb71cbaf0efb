package rest

// ChannelInfo describes a channel the user can see.
type ChannelInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Direct    bool   `json:"direct"`
	CreatedAt int64  `json:"created_at"`
}

// Message is one message in a channel.
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
}

// MessagesResponse is a page of history plus the cursor for the next page.
type MessagesResponse struct {
	Messages   []Message `json:"messages"`
	HasMore    bool      `json:"has_more"`
	NextBefore string    `json:"next_before,omitempty"`
}

// EventRequest is a connection-scoped event such as typing start/stop.
type EventRequest struct {
	Type string `json:"type"`
}

// ErrorResponse is the API error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
