// Package transcript writes conversation transcripts as NDJSON files, one per
// visitor session.
package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/chameleon/internal/domain"
)

const defaultQueueSize = 256

var (
	unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)
	ansiSequence    = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
)

// ConversationLogConfig configures the transcript logger.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// ConversationLogEvent is one line of a transcript.
type ConversationLogEvent struct {
	Timestamp  time.Time `json:"ts"`
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	Channel    string    `json:"channel"`
	Direction  string    `json:"direction"`
	EventType  string    `json:"event_type"`
	MessageID  string    `json:"message_id,omitempty"`
	Content    string    `json:"content"`
	ContentRaw string    `json:"content_raw,omitempty"`
}

// ConversationLogger appends events asynchronously. Events are dropped, not
// blocked on, when the queue is full.
type ConversationLogger struct {
	dir     string
	queue   chan ConversationLogEvent
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
	logger  *slog.Logger
}

// NewConversationLogger starts a logger. A disabled config returns nil, which
// is a valid no-op logger.
func NewConversationLogger(cfg ConversationLogConfig, logger *slog.Logger) (*ConversationLogger, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, errors.New("conversation log directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log directory: %w", err)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}

	l := &ConversationLogger{
		dir:    cfg.Dir,
		queue:  make(chan ConversationLogEvent, cfg.QueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go l.run()
	return l, nil
}

// Log queues an event.
func (l *ConversationLogger) Log(event ConversationLogEvent) {
	if l == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.ContentRaw != "" && event.Content == "" {
		event.Content = cleanForReadability(event.ContentRaw)
	}

	defer func() {
		// Sending after Close panics; count it as dropped.
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()
	select {
	case l.queue <- event:
	default:
		if n := l.dropped.Add(1); n%100 == 1 {
			l.logger.Warn("Conversation log queue full, dropping events", "dropped", n)
		}
	}
}

// MessageHook returns a chat message hook that logs every message of one
// session. A disabled logger returns nil.
func (l *ConversationLogger) MessageHook(userID, sessionID, channel string) func(domain.Message) {
	if l == nil {
		return nil
	}
	return func(m domain.Message) {
		direction, eventType := "inbound", "chat_user_message"
		if m.Sender == domain.SenderBot {
			direction, eventType = "outbound", "chat_bot_message"
		}
		l.Log(ConversationLogEvent{
			UserID:     userID,
			SessionID:  sessionID,
			Channel:    channel,
			Direction:  direction,
			EventType:  eventType,
			MessageID:  m.ID,
			ContentRaw: m.Text,
		})
	}
}

// Dropped returns the number of events dropped so far.
func (l *ConversationLogger) Dropped() int64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

// Close flushes queued events and stops the writer.
func (l *ConversationLogger) Close() error {
	if l == nil {
		return nil
	}
	l.once.Do(func() {
		close(l.queue)
		<-l.done
	})
	return nil
}

func (l *ConversationLogger) run() {
	defer close(l.done)
	for event := range l.queue {
		if err := l.write(event); err != nil {
			l.logger.Warn("Failed to write conversation log", "user_id", event.UserID, "session_id", event.SessionID, "error", err)
		}
	}
}

func (l *ConversationLogger) write(event ConversationLogEvent) error {
	dir := filepath.Join(l.dir, safeName(event.UserID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create user log directory: %w", err)
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	path := filepath.Join(dir, safeName(event.SessionID)+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("append log line: %w", err)
	}
	return f.Close()
}

func safeName(s string) string {
	s = unsafePathChars.ReplaceAllString(s, "_")
	if s == "" || s == "." || s == ".." {
		return "unknown"
	}
	return s
}

// cleanForReadability strips escape sequences and control characters and
// collapses runs of whitespace.
func cleanForReadability(raw string) string {
	s := ansiSequence.ReplaceAllString(raw, "")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
