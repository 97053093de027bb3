// Package chat implements the conversation state machine behind the widget.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ashureev/chameleon/internal/domain"
	"github.com/ashureev/chameleon/internal/i18n"
)

var (
	// ErrEmptyInput is returned for blank input. Nothing is changed.
	ErrEmptyInput = errors.New("chat: empty input")
	// ErrBusy is returned while a previous submission is still loading.
	ErrBusy = errors.New("chat: previous message is still loading")

	errNoAnswerer      = errors.New("no answering service configured")
	errNoContactSender = errors.New("no contact sender configured")
	errEmptyAnswer     = errors.New("answering service returned an empty answer")
)

// Answerer produces an answer grounded in the supplied context document.
type Answerer interface {
	GetAnswer(ctx context.Context, history []domain.Turn, doc string, lang i18n.Language) (string, error)
}

// ContactSender delivers a completed contact record.
type ContactSender interface {
	SendContact(ctx context.Context, info domain.ContactInfo) (bool, error)
}

// Knowledge supplies the static context document for a language.
type Knowledge interface {
	Document(lang i18n.Language) string
}

// QueryKnowledge is a Knowledge that can narrow the document to the entries
// relevant to a question.
type QueryKnowledge interface {
	Knowledge
	DocumentFor(lang i18n.Language, query string) string
}

// Dependencies are the collaborators of a Controller.
type Dependencies struct {
	Answerer  Answerer
	Sender    ContactSender
	Knowledge Knowledge
}

// State is the observable view of a conversation.
type State struct {
	Language                      i18n.Language    `json:"language"`
	ChatState                     domain.ChatState `json:"chat_state"`
	Messages                      []domain.Message `json:"messages"`
	IsLoading                     bool             `json:"is_loading"`
	IsAwaitingContactConfirmation bool             `json:"is_awaiting_contact_confirmation"`
	Revision                      uint64           `json:"revision"`
}

// Snapshot is the complete state of a conversation, including the contact
// record in progress.
type Snapshot struct {
	State
	Contact    domain.ContactDraft `json:"contact"`
	Generation uint64              `json:"generation"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithMatcher replaces the trigger and confirmation matcher.
func WithMatcher(m Matcher) Option {
	return func(c *Controller) {
		if m != nil {
			c.matcher = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMessageHook registers fn to be called for every appended message.
func WithMessageHook(fn func(domain.Message)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.hooks = append(c.hooks, fn)
		}
	}
}

// Controller routes every user input to the contact form, a hand-off
// confirmation, or the answering service. One Submit runs at a time; state
// may be read concurrently.
type Controller struct {
	deps    Dependencies
	matcher Matcher
	logger  *slog.Logger

	mu         sync.Mutex
	lang       i18n.Language
	text       i18n.Strings
	log        *Log
	state      domain.ChatState
	draft      domain.ContactDraft
	loading    bool
	awaiting   bool
	generation uint64
	revision   uint64

	pending   []domain.Message
	hooks     []func(domain.Message)
	listeners []func(State)
}

// New returns a controller in the querying state with a greeting in lang.
func New(deps Dependencies, lang i18n.Language, opts ...Option) *Controller {
	if !i18n.Supported(lang) {
		lang = i18n.Default
	}
	c := newController(deps, opts)
	c.lang = lang
	c.text = i18n.Lookup(lang)
	c.log = NewLog(c.text.Greeting)
	c.state = domain.StateQuerying
	return c
}

// Restore rebuilds a controller from a snapshot. A snapshot taken while a
// call was loading is restored idle.
func Restore(deps Dependencies, snap Snapshot, opts ...Option) *Controller {
	c := newController(deps, opts)
	c.lang = snap.Language
	if !i18n.Supported(c.lang) {
		c.lang = i18n.Default
	}
	c.text = i18n.Lookup(c.lang)
	if len(snap.Messages) == 0 {
		c.log = NewLog(c.text.Greeting)
	} else {
		c.log = restoreLog(snap.Messages)
	}
	c.state = snap.ChatState
	if !c.state.Valid() {
		c.state = domain.StateQuerying
	}
	c.draft = snap.Contact
	c.awaiting = snap.IsAwaitingContactConfirmation
	c.generation = snap.Generation
	c.revision = snap.Revision
	return c
}

func newController(deps Dependencies, opts []Option) *Controller {
	c := &Controller{
		deps:    deps,
		matcher: SubstringMatcher{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnChange registers fn to receive the state after every committed change.
func (c *Controller) OnChange(fn func(State)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// State returns the current observable state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Snapshot returns the complete state for persistence.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:      c.stateLocked(),
		Contact:    c.draft,
		Generation: c.generation,
	}
}

// Language returns the active language.
func (c *Controller) Language() i18n.Language {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lang
}

// SetLanguage switches the prompt table and resets the message log to the
// greeting of the new language. Answers still in flight for the previous
// language are discarded when they arrive.
func (c *Controller) SetLanguage(lang i18n.Language) {
	if !i18n.Supported(lang) {
		lang = i18n.Default
	}
	c.mu.Lock()
	if lang == c.lang {
		c.mu.Unlock()
		return
	}
	c.lang = lang
	c.text = i18n.Lookup(lang)
	c.log = NewLog(c.text.Greeting)
	c.generation++
	c.commit()
}

// Submit handles one user input.
func (c *Controller) Submit(ctx context.Context, input string) error {
	if strings.TrimSpace(input) == "" {
		return ErrEmptyInput
	}

	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}

	c.appendLocked(input, domain.SenderUser)

	if c.awaiting {
		c.awaiting = false
		if c.matcher.Match(input, c.text.Affirmatives()) {
			c.state = domain.StateCollectingName
			c.appendLocked(c.text.ContactInitiate, domain.SenderBot)
			c.commit()
			return nil
		}
	}

	if c.state != domain.StateQuerying {
		c.advanceContactLocked(ctx, input)
		return nil
	}

	if c.matcher.Match(input, c.text.Triggers()) {
		c.state = domain.StateCollectingName
		c.appendLocked(c.text.ContactInitiate, domain.SenderBot)
		c.commit()
		return nil
	}

	c.askLocked(ctx)
	return nil
}

// askLocked routes the latest input to the answering service. Called with
// mu held; returns with mu released.
func (c *Controller) askLocked(ctx context.Context) {
	c.loading = true
	gen := c.generation
	lang := c.lang
	history := c.log.History()
	doc := c.document(lang, history)
	c.commit()

	answer, err := c.getAnswer(ctx, history, doc, lang)

	c.mu.Lock()
	defer c.commit()
	if gen != c.generation {
		c.logger.Info("Discarding answer for a superseded conversation", "language", lang)
		c.loading = false
		return
	}
	if err != nil {
		c.logger.Warn("Answering service failed", "language", lang, "error", err)
		c.awaiting = false
		c.appendLocked(c.text.GenericError, domain.SenderBot)
		c.loading = false
		return
	}
	c.awaiting = c.matcher.Match(answer, []string{c.text.ContactOfferTrigger})
	c.appendLocked(answer, domain.SenderBot)
	c.loading = false
}

func (c *Controller) document(lang i18n.Language, history []domain.Turn) string {
	switch k := c.deps.Knowledge.(type) {
	case nil:
		return ""
	case QueryKnowledge:
		if len(history) > 0 {
			return k.DocumentFor(lang, history[len(history)-1].Text)
		}
		return k.Document(lang)
	default:
		return k.Document(lang)
	}
}

func (c *Controller) getAnswer(ctx context.Context, history []domain.Turn, doc string, lang i18n.Language) (answer string, err error) {
	if c.deps.Answerer == nil {
		return "", errNoAnswerer
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("answering service panicked: %v", r)
		}
	}()
	answer, err = c.deps.Answerer.GetAnswer(ctx, history, doc, lang)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		return "", errEmptyAnswer
	}
	return answer, nil
}

// advanceContactLocked feeds input to the contact form. Called with mu held;
// returns with mu released.
func (c *Controller) advanceContactLocked(ctx context.Context, input string) {
	step, err := c.safeAdvance(input)
	if err != nil {
		c.logger.Warn("Contact flow failed", "state", c.state, "error", err)
		c.resetContactLocked()
		c.appendLocked(c.text.ContactFlowError, domain.SenderBot)
		c.commit()
		return
	}

	c.draft = step.draft
	if !step.submit {
		c.state = step.next
		c.appendLocked(step.reply, domain.SenderBot)
		c.commit()
		return
	}

	c.submitContactLocked(ctx, step.draft.Info())
}

func (c *Controller) safeAdvance(input string) (step contactStep, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("contact step panicked: %v", r)
		}
	}()
	return advanceContact(c.state, c.draft, input, c.text)
}

// submitContactLocked hands the finished record to the sender. Called with
// mu held; returns with mu released.
func (c *Controller) submitContactLocked(ctx context.Context, info domain.ContactInfo) {
	c.loading = true
	gen := c.generation
	c.commit()

	ok, err := c.sendContact(ctx, info)

	c.mu.Lock()
	defer c.commit()
	c.resetContactLocked()
	c.loading = false
	if gen != c.generation {
		c.logger.Info("Discarding contact result for a superseded conversation")
		return
	}
	if err != nil || !ok {
		c.logger.Warn("Contact submission failed", "delivered", ok, "error", err)
		c.appendLocked(c.text.ContactFlowError, domain.SenderBot)
		return
	}
	c.appendLocked(i18n.Interpolate(c.text.ContactSuccess, info.Name), domain.SenderBot)
}

func (c *Controller) sendContact(ctx context.Context, info domain.ContactInfo) (ok bool, err error) {
	if c.deps.Sender == nil {
		return false, errNoContactSender
	}
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("contact sender panicked: %v", r)
		}
	}()
	return c.deps.Sender.SendContact(ctx, info)
}

func (c *Controller) resetContactLocked() {
	c.state = domain.StateQuerying
	c.draft = domain.ContactDraft{}
}

func (c *Controller) appendLocked(text string, sender domain.Sender) {
	msg := c.log.Append(text, sender)
	c.pending = append(c.pending, msg)
}

func (c *Controller) stateLocked() State {
	return State{
		Language:                      c.lang,
		ChatState:                     c.state,
		Messages:                      c.log.Messages(),
		IsLoading:                     c.loading,
		IsAwaitingContactConfirmation: c.awaiting,
		Revision:                      c.revision,
	}
}

// commit publishes the current state and releases mu. Hooks and listeners
// run without the lock held.
func (c *Controller) commit() {
	c.revision++
	st := c.stateLocked()
	pending := c.pending
	c.pending = nil
	hooks := c.hooks
	listeners := append([]func(State){}, c.listeners...)
	c.mu.Unlock()

	for _, msg := range pending {
		for _, fn := range hooks {
			fn(msg)
		}
	}
	for _, fn := range listeners {
		fn(st)
	}
}
