package chat

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ashureev/chameleon/internal/domain"
	"github.com/ashureev/chameleon/internal/i18n"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

var errIncompleteContact = errors.New("contact record is missing name or email")

// universalSkip is accepted in every language next to the localized token.
const universalSkip = "skip"

// contactStep is the outcome of feeding one input to the contact form.
type contactStep struct {
	next   domain.ChatState
	reply  string
	draft  domain.ContactDraft
	submit bool
}

// advanceContact computes the next contact-form state for input. It never
// mutates the controller; the caller commits the returned step.
func advanceContact(state domain.ChatState, draft domain.ContactDraft, input string, s i18n.Strings) (contactStep, error) {
	text := strings.TrimSpace(input)

	switch state {
	case domain.StateCollectingName:
		draft.Name = text
		return contactStep{
			next:  domain.StateCollectingCompany,
			reply: i18n.Interpolate(s.AskCompany, text),
			draft: draft,
		}, nil

	case domain.StateCollectingCompany:
		draft.Company = optionalField(text, s)
		return contactStep{next: domain.StateCollectingEmail, reply: s.AskEmail, draft: draft}, nil

	case domain.StateCollectingEmail:
		if !emailPattern.MatchString(text) {
			return contactStep{next: domain.StateCollectingEmail, reply: s.InvalidEmail, draft: draft}, nil
		}
		draft.Email = text
		return contactStep{next: domain.StateCollectingPhone, reply: s.AskPhone, draft: draft}, nil

	case domain.StateCollectingPhone:
		draft.Phone = optionalField(text, s)
		if !draft.Complete() {
			return contactStep{}, errIncompleteContact
		}
		return contactStep{next: domain.StateQuerying, draft: draft, submit: true}, nil
	}

	return contactStep{}, fmt.Errorf("no contact step for state %q", state)
}

// optionalField returns nil when text is the skip token.
func optionalField(text string, s i18n.Strings) *string {
	if strings.EqualFold(text, s.Skip) || strings.EqualFold(text, universalSkip) {
		return nil
	}
	return &text
}
