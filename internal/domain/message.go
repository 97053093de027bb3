// Package domain contains core domain types for the Chameleon chat widget.
package domain

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is a single conversational turn shown in the chat window.
type Message struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
}

// Role tags a turn in the history sent to the answering service.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one role-tagged entry of the answering-service history.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// RoleFor maps a message sender to its history role.
func RoleFor(s Sender) Role {
	if s == SenderBot {
		return RoleModel
	}
	return RoleUser
}
