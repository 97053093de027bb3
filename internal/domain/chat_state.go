package domain

// ChatState is the position of a conversation in the contact flow.
type ChatState string

const (
	StateQuerying          ChatState = "querying"
	StateCollectingName    ChatState = "collecting_name"
	StateCollectingCompany ChatState = "collecting_company"
	StateCollectingEmail   ChatState = "collecting_email"
	StateCollectingPhone   ChatState = "collecting_phone"
)

// Valid reports whether s is one of the defined chat states.
func (s ChatState) Valid() bool {
	switch s {
	case StateQuerying, StateCollectingName, StateCollectingCompany, StateCollectingEmail, StateCollectingPhone:
		return true
	}
	return false
}
