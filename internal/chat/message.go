package chat

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Source is a web citation attached to a grounded assistant reply.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Message is one visible transcript entry. Sources is nil unless the reply was grounded.
type Message struct {
	Role    Role     `json:"role"`
	Text    string   `json:"text"`
	Sources []Source `json:"sources,omitempty"`
}
