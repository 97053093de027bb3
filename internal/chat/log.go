package chat

import (
	"github.com/ashureev/chameleon/internal/domain"
	"github.com/google/uuid"
)

// Log is the append-only message log of one conversation. The first entry is
// always the greeting.
type Log struct {
	messages []domain.Message
}

// NewLog returns a log holding only greeting.
func NewLog(greeting string) *Log {
	l := &Log{}
	l.Append(greeting, domain.SenderBot)
	return l
}

func restoreLog(messages []domain.Message) *Log {
	return &Log{messages: append([]domain.Message(nil), messages...)}
}

// Append adds a message and returns it.
func (l *Log) Append(text string, sender domain.Sender) domain.Message {
	msg := domain.Message{ID: newMessageID(), Text: text, Sender: sender}
	l.messages = append(l.messages, msg)
	return msg
}

// Len returns the number of messages.
func (l *Log) Len() int { return len(l.messages) }

// Messages returns a copy of the log.
func (l *Log) Messages() []domain.Message {
	return append([]domain.Message(nil), l.messages...)
}

// History maps every message after the greeting to a role-tagged turn.
func (l *Log) History() []domain.Turn {
	if len(l.messages) <= 1 {
		return nil
	}
	turns := make([]domain.Turn, 0, len(l.messages)-1)
	for _, m := range l.messages[1:] {
		turns = append(turns, domain.Turn{Role: domain.RoleFor(m.Sender), Text: m.Text})
	}
	return turns
}

func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
