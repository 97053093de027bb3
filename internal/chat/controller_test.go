package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/chameleon/internal/domain"
	"github.com/ashureev/chameleon/internal/i18n"
)

type answerCall struct {
	history []domain.Turn
	context string
	lang    i18n.Language
}

type fakeAnswerer struct {
	mu      sync.Mutex
	answer  string
	err     error
	panicV  any
	calls   []answerCall
	started chan struct{}
	release chan struct{}
}

func (f *fakeAnswerer) GetAnswer(_ context.Context, history []domain.Turn, doc string, lang i18n.Language) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, answerCall{history: history, context: doc, lang: lang})
	answer, err, panicV := f.answer, f.err, f.panicV
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}
	if panicV != nil {
		panic(panicV)
	}
	return answer, err
}

func (f *fakeAnswerer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAnswerer) lastCall() answerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type fakeSender struct {
	mu     sync.Mutex
	ok     bool
	err    error
	panicV any
	sent   []domain.ContactInfo
}

func (f *fakeSender) SendContact(_ context.Context, info domain.ContactInfo) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, info)
	if f.panicV != nil {
		panic(f.panicV)
	}
	return f.ok, f.err
}

type staticKnowledge string

func (k staticKnowledge) Document(i18n.Language) string { return string(k) }

const testDoc = "Chameleon AI offers three plans."

type queryKnowledge struct {
	mu      sync.Mutex
	queries []string
}

func (k *queryKnowledge) Document(i18n.Language) string { return "full" }

func (k *queryKnowledge) DocumentFor(lang i18n.Language, query string) string {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.queries = append(k.queries, query)
	return "narrowed:" + string(lang)
}

func newTestController(a *fakeAnswerer, s *fakeSender, lang i18n.Language, opts ...Option) *Controller {
	return New(Dependencies{Answerer: a, Sender: s, Knowledge: staticKnowledge(testDoc)}, lang, opts...)
}

func submit(t *testing.T, c *Controller, input string) {
	t.Helper()
	if err := c.Submit(context.Background(), input); err != nil {
		t.Fatalf("Submit(%q) failed: %v", input, err)
	}
}

func lastBot(t *testing.T, c *Controller) string {
	t.Helper()
	msgs := c.State().Messages
	last := msgs[len(msgs)-1]
	if last.Sender != domain.SenderBot {
		t.Fatalf("expected last message from bot, got %+v", last)
	}
	return last.Text
}

func TestNewStartsWithGreeting(t *testing.T) {
	c := newTestController(&fakeAnswerer{}, &fakeSender{}, i18n.Spanish)
	st := c.State()
	if st.ChatState != domain.StateQuerying {
		t.Fatalf("expected querying, got %s", st.ChatState)
	}
	if len(st.Messages) != 1 || st.Messages[0].Text != i18n.Lookup(i18n.Spanish).Greeting {
		t.Fatalf("expected single Spanish greeting, got %+v", st.Messages)
	}
	if st.Messages[0].Sender != domain.SenderBot {
		t.Fatalf("greeting must be a bot message")
	}
}

func TestNewFallsBackToEnglish(t *testing.T) {
	c := newTestController(&fakeAnswerer{}, &fakeSender{}, "pt")
	if c.Language() != i18n.English {
		t.Fatalf("expected en fallback, got %s", c.Language())
	}
}

func TestSubmitRejectsBlankInput(t *testing.T) {
	a := &fakeAnswerer{answer: "hi"}
	c := newTestController(a, &fakeSender{}, i18n.English)
	before := c.State()

	for _, in := range []string{"", "   ", "\n\t"} {
		if err := c.Submit(context.Background(), in); !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("Submit(%q) = %v, want ErrEmptyInput", in, err)
		}
	}
	after := c.State()
	if len(after.Messages) != 1 || after.Revision != before.Revision || a.callCount() != 0 {
		t.Fatalf("blank input must not change state: %+v", after)
	}
}

func TestGreetingQuestionRoutesToAnswerer(t *testing.T) {
	a := &fakeAnswerer{answer: "Hello! How can I help you today?"}
	c := newTestController(a, &fakeSender{}, i18n.English)

	submit(t, c, "hello")

	if a.callCount() != 1 {
		t.Fatalf("expected one answer call, got %d", a.callCount())
	}
	call := a.lastCall()
	if len(call.history) != 1 || call.history[0] != (domain.Turn{Role: domain.RoleUser, Text: "hello"}) {
		t.Fatalf("unexpected history: %+v", call.history)
	}
	if call.context != testDoc || call.lang != i18n.English {
		t.Fatalf("unexpected context or language: %+v", call)
	}

	st := c.State()
	if st.IsAwaitingContactConfirmation || st.ChatState != domain.StateQuerying || st.IsLoading {
		t.Fatalf("unexpected state after greeting: %+v", st)
	}
	if lastBot(t, c) != a.answer {
		t.Fatalf("expected answer appended")
	}
}

func TestHistoryExcludesGreetingAndMapsRoles(t *testing.T) {
	a := &fakeAnswerer{answer: "We have three plans."}
	c := newTestController(a, &fakeSender{}, i18n.English)

	submit(t, c, "what plans exist?")
	submit(t, c, "tell me more")

	want := []domain.Turn{
		{Role: domain.RoleUser, Text: "what plans exist?"},
		{Role: domain.RoleModel, Text: "We have three plans."},
		{Role: domain.RoleUser, Text: "tell me more"},
	}
	got := a.lastCall().history
	if len(got) != len(want) {
		t.Fatalf("history = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("history[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestContactTriggerStartsFlowWithoutAnswerer(t *testing.T) {
	a := &fakeAnswerer{answer: "unused"}
	c := newTestController(a, &fakeSender{}, i18n.English)

	submit(t, c, "I need help")

	if a.callCount() != 0 {
		t.Fatalf("trigger must not reach the answerer")
	}
	if st := c.State(); st.ChatState != domain.StateCollectingName {
		t.Fatalf("expected collecting_name, got %s", st.ChatState)
	}
	if lastBot(t, c) != i18n.Lookup(i18n.English).ContactInitiate {
		t.Fatalf("expected contact initiate prompt")
	}
}

func TestOfferMarkerThenAffirmativeStartsFlow(t *testing.T) {
	en := i18n.Lookup(i18n.English)
	a := &fakeAnswerer{answer: en.NotFound}
	c := newTestController(a, &fakeSender{}, i18n.English)

	submit(t, c, "do you sell boats?")
	if !c.State().IsAwaitingContactConfirmation {
		t.Fatal("expected awaiting confirmation after offer marker")
	}

	submit(t, c, "yes please")

	st := c.State()
	if a.callCount() != 1 {
		t.Fatalf("confirmation must bypass the answerer, got %d calls", a.callCount())
	}
	if st.ChatState != domain.StateCollectingName || st.IsAwaitingContactConfirmation {
		t.Fatalf("unexpected state: %+v", st)
	}
	if lastBot(t, c) != en.ContactInitiate {
		t.Fatalf("expected contact initiate prompt")
	}
}

func TestNegativeConfirmationFallsThroughToQuestion(t *testing.T) {
	en := i18n.Lookup(i18n.English)
	a := &fakeAnswerer{answer: en.NotFound}
	c := newTestController(a, &fakeSender{}, i18n.English)

	submit(t, c, "do you sell boats?")
	a.mu.Lock()
	a.answer = "Pro costs $129/month."
	a.mu.Unlock()

	submit(t, c, "no thanks, what does Pro cost?")

	st := c.State()
	if a.callCount() != 2 {
		t.Fatalf("negative confirmation must still be answered, got %d calls", a.callCount())
	}
	if st.IsAwaitingContactConfirmation || st.ChatState != domain.StateQuerying {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestNegativeConfirmationCanStillTrigger(t *testing.T) {
	en := i18n.Lookup(i18n.English)
	a := &fakeAnswerer{answer: en.NotFound}
	c := newTestController(a, &fakeSender{}, i18n.English)

	submit(t, c, "do you sell boats?")
	submit(t, c, "no, I want a human")

	if a.callCount() != 1 {
		t.Fatalf("trigger must not reach the answerer")
	}
	if c.State().ChatState != domain.StateCollectingName {
		t.Fatal("expected trigger to start the contact flow")
	}
}

func TestOfferMarkerMatchIgnoresCase(t *testing.T) {
	a := &fakeAnswerer{answer: "Would you like to CONTACT OUR SUPPORT TEAM?"}
	c := newTestController(a, &fakeSender{}, i18n.English)
	submit(t, c, "boats?")
	if !c.State().IsAwaitingContactConfirmation {
		t.Fatal("expected case-insensitive marker detection")
	}
}

func TestFullContactFlowWithSkips(t *testing.T) {
	en := i18n.Lookup(i18n.English)
	s := &fakeSender{ok: true}
	c := newTestController(&fakeAnswerer{}, s, i18n.English)

	submit(t, c, "contact support")
	submit(t, c, "Jane Doe")
	if got := lastBot(t, c); got != i18n.Interpolate(en.AskCompany, "Jane Doe") {
		t.Fatalf("unexpected company prompt: %q", got)
	}
	submit(t, c, "skip")
	if got := lastBot(t, c); got != en.AskEmail {
		t.Fatalf("unexpected email prompt: %q", got)
	}
	submit(t, c, "jane@x.com")
	if got := lastBot(t, c); got != en.AskPhone {
		t.Fatalf("unexpected phone prompt: %q", got)
	}
	submit(t, c, "skip")

	if len(s.sent) != 1 {
		t.Fatalf("expected one submission, got %d", len(s.sent))
	}
	got := s.sent[0]
	if got.Name != "Jane Doe" || got.Email != "jane@x.com" || got.Company != nil || got.Phone != nil {
		t.Fatalf("unexpected contact record: %+v", got)
	}
	if lastBot(t, c) != "Thank you, Jane Doe! Our team will reach out to you within 24 hours." {
		t.Fatalf("unexpected success message: %q", lastBot(t, c))
	}
	snap := c.Snapshot()
	if snap.ChatState != domain.StateQuerying || snap.IsLoading {
		t.Fatalf("expected idle querying state, got %+v", snap.State)
	}
	if snap.Contact != (domain.ContactDraft{}) {
		t.Fatalf("expected cleared draft, got %+v", snap.Contact)
	}
}

func TestContactFlowKeepsOptionalValues(t *testing.T) {
	s := &fakeSender{ok: true}
	c := newTestController(&fakeAnswerer{}, s, i18n.English)

	for _, in := range []string{"help", "Jane Doe", "Acme Inc", "jane@acme.io", "+1 555 0100"} {
		submit(t, c, in)
	}
	got := s.sent[0]
	if got.Company == nil || *got.Company != "Acme Inc" || got.Phone == nil || *got.Phone != "+1 555 0100" {
		t.Fatalf("unexpected optional fields: %+v", got)
	}
}

func TestSkipTokenIgnoresCaseAndLanguage(t *testing.T) {
	for _, tc := range []struct {
		lang i18n.Language
		skip string
	}{
		{i18n.English, "SKIP"},
		{i18n.Spanish, "Omitir"},
		{i18n.German, "Überspringen"},
		{i18n.French, "skip"},
	} {
		s := &fakeSender{ok: true}
		c := newTestController(&fakeAnswerer{}, s, tc.lang)
		c.mu.Lock()
		c.state = domain.StateCollectingName
		c.mu.Unlock()

		for _, in := range []string{"Ana", tc.skip, "ana@example.org", tc.skip} {
			submit(t, c, in)
		}
		if len(s.sent) != 1 || s.sent[0].Company != nil || s.sent[0].Phone != nil {
			t.Fatalf("%s: skip %q not honored: %+v", tc.lang, tc.skip, s.sent)
		}
	}
}

func TestInvalidEmailKeepsState(t *testing.T) {
	en := i18n.Lookup(i18n.English)
	c := newTestController(&fakeAnswerer{}, &fakeSender{ok: true}, i18n.English)
	for _, in := range []string{"help", "Jane", "skip"} {
		submit(t, c, in)
	}

	submit(t, c, "not-an-email")

	if st := c.State(); st.ChatState != domain.StateCollectingEmail {
		t.Fatalf("expected collecting_email, got %s", st.ChatState)
	}
	if lastBot(t, c) != en.InvalidEmail {
		t.Fatalf("expected invalid email message")
	}

	submit(t, c, "a@b.c")
	if st := c.State(); st.ChatState != domain.StateCollectingPhone {
		t.Fatalf("expected collecting_phone, got %s", st.ChatState)
	}
}

func TestContactSubmissionFailures(t *testing.T) {
	en := i18n.Lookup(i18n.English)
	for name, s := range map[string]*fakeSender{
		"rejected": {ok: false},
		"error":    {err: errors.New("endpoint down")},
		"panic":    {panicV: "boom"},
	} {
		c := newTestController(&fakeAnswerer{}, s, i18n.English)
		for _, in := range []string{"help", "Jane", "skip", "jane@x.com", "skip"} {
			submit(t, c, in)
		}
		snap := c.Snapshot()
		if snap.ChatState != domain.StateQuerying || snap.IsLoading {
			t.Fatalf("%s: expected idle querying, got %+v", name, snap.State)
		}
		if snap.Contact != (domain.ContactDraft{}) {
			t.Fatalf("%s: expected cleared draft", name)
		}
		if lastBot(t, c) != en.ContactFlowError {
			t.Fatalf("%s: expected contact flow error, got %q", name, lastBot(t, c))
		}
	}
}

func TestMissingSenderFailsFlow(t *testing.T) {
	c := New(Dependencies{Answerer: &fakeAnswerer{}}, i18n.English)
	for _, in := range []string{"help", "Jane", "skip", "jane@x.com", "skip"} {
		submit(t, c, in)
	}
	if lastBot(t, c) != i18n.Lookup(i18n.English).ContactFlowError {
		t.Fatalf("expected contact flow error without sender")
	}
}

func TestAnswerFailuresUseGenericError(t *testing.T) {
	en := i18n.Lookup(i18n.English)
	for name, a := range map[string]*fakeAnswerer{
		"error": {err: errors.New("quota")},
		"blank": {answer: "   "},
		"panic": {panicV: "boom"},
	} {
		c := newTestController(a, &fakeSender{}, i18n.English)
		c.mu.Lock()
		c.awaiting = true
		c.mu.Unlock()

		submit(t, c, "what is the price?")

		st := c.State()
		if st.IsAwaitingContactConfirmation || st.IsLoading || st.ChatState != domain.StateQuerying {
			t.Fatalf("%s: unexpected state %+v", name, st)
		}
		if lastBot(t, c) != en.GenericError {
			t.Fatalf("%s: expected generic error, got %q", name, lastBot(t, c))
		}
	}
}

func TestEverySubmitAppendsOneUserAndOneBotMessage(t *testing.T) {
	en := i18n.Lookup(i18n.English)
	a := &fakeAnswerer{answer: en.NotFound}
	c := newTestController(a, &fakeSender{ok: true}, i18n.English)

	inputs := []string{"hi", "nope", "help", "Jane", "skip", "bad", "jane@x.com", "skip", "pricing?", "sure"}
	for _, in := range inputs {
		before := c.State().Messages
		submit(t, c, in)
		after := c.State().Messages
		if len(after) != len(before)+2 {
			t.Fatalf("input %q appended %d messages", in, len(after)-len(before))
		}
		if after[len(before)].Sender != domain.SenderUser || after[len(before)].Text != in {
			t.Fatalf("input %q: expected user message first", in)
		}
		if after[len(before)+1].Sender != domain.SenderBot {
			t.Fatalf("input %q: expected bot reply second", in)
		}
		if !c.State().ChatState.Valid() {
			t.Fatalf("invalid chat state after %q", in)
		}
	}
}

func TestMessageIDsAreUnique(t *testing.T) {
	c := newTestController(&fakeAnswerer{answer: "ok"}, &fakeSender{}, i18n.English)
	for i := 0; i < 20; i++ {
		submit(t, c, "question")
	}
	seen := make(map[string]bool)
	for _, m := range c.State().Messages {
		if m.ID == "" || seen[m.ID] {
			t.Fatalf("duplicate or empty id %q", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestSetLanguageResetsLog(t *testing.T) {
	c := newTestController(&fakeAnswerer{answer: "ok"}, &fakeSender{}, i18n.English)
	submit(t, c, "hello")

	c.SetLanguage(i18n.French)

	st := c.State()
	if st.Language != i18n.French {
		t.Fatalf("expected fr, got %s", st.Language)
	}
	if len(st.Messages) != 1 || st.Messages[0].Text != i18n.Lookup(i18n.French).Greeting {
		t.Fatalf("expected single French greeting, got %+v", st.Messages)
	}

	rev := st.Revision
	c.SetLanguage(i18n.French)
	if c.State().Revision != rev {
		t.Fatal("setting the active language must be a no-op")
	}
}

func TestStaleAnswerIsDiscardedAfterLanguageChange(t *testing.T) {
	a := &fakeAnswerer{
		answer:  "late English answer",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := newTestController(a, &fakeSender{}, i18n.English)

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background(), "what is Pro?") }()

	select {
	case <-a.started:
	case <-time.After(2 * time.Second):
		t.Fatal("answerer was not called")
	}
	if !c.State().IsLoading {
		t.Fatal("expected loading while answer is in flight")
	}
	if err := c.Submit(context.Background(), "another"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy during load, got %v", err)
	}

	c.SetLanguage(i18n.Spanish)
	close(a.release)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Submit did not return")
	}

	st := c.State()
	if st.IsLoading {
		t.Fatal("loading must be cleared after a stale answer")
	}
	if len(st.Messages) != 1 || st.Messages[0].Text != i18n.Lookup(i18n.Spanish).Greeting {
		t.Fatalf("stale answer leaked into the new log: %+v", st.Messages)
	}
}

func TestSnapshotRestoreContinuesContactFlow(t *testing.T) {
	s := &fakeSender{ok: true}
	deps := Dependencies{Answerer: &fakeAnswerer{}, Sender: s, Knowledge: staticKnowledge(testDoc)}
	c := New(deps, i18n.English)
	for _, in := range []string{"help", "Jane Doe", "Acme"} {
		submit(t, c, in)
	}

	restored := Restore(deps, c.Snapshot())
	if restored.State().ChatState != domain.StateCollectingEmail {
		t.Fatalf("expected collecting_email after restore, got %s", restored.State().ChatState)
	}
	for _, in := range []string{"jane@x.com", "skip"} {
		submit(t, restored, in)
	}
	if len(s.sent) != 1 || s.sent[0].Name != "Jane Doe" || s.sent[0].Company == nil || *s.sent[0].Company != "Acme" {
		t.Fatalf("unexpected record after restore: %+v", s.sent)
	}
}

func TestRestoreSanitizesSnapshot(t *testing.T) {
	c := Restore(Dependencies{}, Snapshot{State: State{Language: "xx", ChatState: "bogus", IsLoading: true}})
	st := c.State()
	if st.Language != i18n.English || st.ChatState != domain.StateQuerying || st.IsLoading {
		t.Fatalf("unexpected restored state: %+v", st)
	}
	if len(st.Messages) != 1 {
		t.Fatalf("expected greeting for empty snapshot")
	}
}

func TestHooksAndListeners(t *testing.T) {
	var got []domain.Message
	c := newTestController(&fakeAnswerer{answer: "answer"}, &fakeSender{}, i18n.English,
		WithMessageHook(func(m domain.Message) { got = append(got, m) }),
	)
	var states []State
	c.OnChange(func(st State) { states = append(states, st) })

	submit(t, c, "question")

	if len(got) != 2 || got[0].Text != "question" || got[1].Text != "answer" {
		t.Fatalf("unexpected hook messages: %+v", got)
	}
	if len(states) != 2 || !states[0].IsLoading || states[1].IsLoading {
		t.Fatalf("expected loading then idle notifications, got %+v", states)
	}
	if states[1].Revision <= states[0].Revision {
		t.Fatal("revision must increase")
	}
}

type neverMatcher struct{}

func (neverMatcher) Match(string, []string) bool { return false }

func TestCustomMatcher(t *testing.T) {
	a := &fakeAnswerer{answer: "Sure, here is help."}
	c := newTestController(a, &fakeSender{}, i18n.English, WithMatcher(neverMatcher{}))

	submit(t, c, "I need help")

	if a.callCount() != 1 || c.State().ChatState != domain.StateQuerying {
		t.Fatal("custom matcher should disable trigger detection")
	}
}

func TestQueryKnowledgeReceivesLatestInput(t *testing.T) {
	kb := &queryKnowledge{}
	a := &fakeAnswerer{answer: "Three plans."}
	c := New(Dependencies{Answerer: a, Knowledge: kb}, i18n.French)

	submit(t, c, "quels sont les prix ?")

	if got := a.lastCall().context; got != "narrowed:fr" {
		t.Fatalf("expected narrowed document, got %q", got)
	}
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if len(kb.queries) != 1 || kb.queries[0] != "quels sont les prix ?" {
		t.Fatalf("unexpected queries %v", kb.queries)
	}
}
