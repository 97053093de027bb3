package chat

import (
	"testing"

	"github.com/ashureev/chameleon/internal/domain"
	"github.com/ashureev/chameleon/internal/i18n"
)

func TestAdvanceContactTrimsName(t *testing.T) {
	en := i18n.Lookup(i18n.English)
	step, err := advanceContact(domain.StateCollectingName, domain.ContactDraft{}, "  Jane Doe \n", en)
	if err != nil {
		t.Fatalf("advanceContact failed: %v", err)
	}
	if step.draft.Name != "Jane Doe" || step.next != domain.StateCollectingCompany {
		t.Fatalf("unexpected step: %+v", step)
	}
	if step.reply != i18n.Interpolate(en.AskCompany, "Jane Doe") {
		t.Fatalf("unexpected reply: %q", step.reply)
	}
}

func TestAdvanceContactEmailPattern(t *testing.T) {
	en := i18n.Lookup(i18n.English)
	tests := []struct {
		input string
		valid bool
	}{
		{"a@b.c", true},
		{"jane.doe@example.co.uk", true},
		{"reach me at jane@x.com", true},
		{"not-an-email", false},
		{"jane@localhost", false},
		{"@.", false},
	}
	for _, tt := range tests {
		step, err := advanceContact(domain.StateCollectingEmail, domain.ContactDraft{Name: "Jane"}, tt.input, en)
		if err != nil {
			t.Fatalf("advanceContact(%q) failed: %v", tt.input, err)
		}
		if tt.valid && step.next != domain.StateCollectingPhone {
			t.Errorf("%q: expected acceptance, got %+v", tt.input, step)
		}
		if !tt.valid && (step.next != domain.StateCollectingEmail || step.reply != en.InvalidEmail || step.draft.Email != "") {
			t.Errorf("%q: expected rejection, got %+v", tt.input, step)
		}
	}
}

func TestAdvanceContactPhoneSubmits(t *testing.T) {
	en := i18n.Lookup(i18n.English)
	draft := domain.ContactDraft{Name: "Jane", Email: "jane@x.com"}
	step, err := advanceContact(domain.StateCollectingPhone, draft, "555-0100", en)
	if err != nil {
		t.Fatalf("advanceContact failed: %v", err)
	}
	if !step.submit || step.next != domain.StateQuerying {
		t.Fatalf("expected submission, got %+v", step)
	}
	if step.draft.Phone == nil || *step.draft.Phone != "555-0100" {
		t.Fatalf("unexpected phone: %+v", step.draft.Phone)
	}
}

func TestAdvanceContactRejectsIncompleteDraft(t *testing.T) {
	en := i18n.Lookup(i18n.English)
	if _, err := advanceContact(domain.StateCollectingPhone, domain.ContactDraft{Name: "Jane"}, "skip", en); err == nil {
		t.Fatal("expected error for draft without email")
	}
}

func TestAdvanceContactRejectsQueryingState(t *testing.T) {
	if _, err := advanceContact(domain.StateQuerying, domain.ContactDraft{}, "hi", i18n.Lookup(i18n.English)); err == nil {
		t.Fatal("expected error outside the contact form")
	}
}

func TestOptionalField(t *testing.T) {
	es := i18n.Lookup(i18n.Spanish)
	for _, skip := range []string{"skip", "Skip", "OMITIR", "omitir"} {
		if got := optionalField(skip, es); got != nil {
			t.Errorf("optionalField(%q) = %q, want nil", skip, *got)
		}
	}
	if got := optionalField("Acme", es); got == nil || *got != "Acme" {
		t.Fatalf("expected value to be kept, got %v", got)
	}
}

func TestSubstringMatcher(t *testing.T) {
	m := SubstringMatcher{}
	tests := []struct {
		input  string
		tokens []string
		want   bool
	}{
		{"Yes please", []string{"yes"}, true},
		{"I NEED HELP", []string{"help"}, true},
		{"hello", []string{"help"}, false},
		{"anything", []string{"", "  "}, false},
		{"anything", nil, false},
		{"talk to someone now", []string{"human", "talk to someone"}, true},
	}
	for _, tt := range tests {
		if got := m.Match(tt.input, tt.tokens); got != tt.want {
			t.Errorf("Match(%q, %v) = %v, want %v", tt.input, tt.tokens, got, tt.want)
		}
	}
}

func TestLogHistory(t *testing.T) {
	l := NewLog("Hi there")
	if l.Len() != 1 || l.History() != nil {
		t.Fatalf("new log must hold only the greeting")
	}
	l.Append("question", domain.SenderUser)
	l.Append("answer", domain.SenderBot)

	h := l.History()
	if len(h) != 2 || h[0].Role != domain.RoleUser || h[1].Role != domain.RoleModel {
		t.Fatalf("unexpected history: %+v", h)
	}

	msgs := l.Messages()
	msgs[0].Text = "mutated"
	if l.Messages()[0].Text != "Hi there" {
		t.Fatal("Messages must return a copy")
	}
}
