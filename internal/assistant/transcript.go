package assistant

import (
	"errors"

	"foxshelf/pkg/domain"
)

// ErrNoAssistantTail is returned when fragment append is attempted while the
// transcript does not end in an assistant turn.
var ErrNoAssistantTail = errors.New("transcript does not end in an assistant turn")

// Transcript is an ordered, append-only log of chat turns. The only mutation
// allowed besides appending is growing the text of the most recent assistant
// turn while a response streams in.
type Transcript struct {
	turns []domain.ChatTurn
}

// AppendUser appends a user turn.
func (t *Transcript) AppendUser(text string) {
	t.turns = append(t.turns, domain.ChatTurn{Role: domain.RoleUser, Text: text})
}

// AppendAssistant appends an empty assistant turn that streamed fragments
// will fill in.
func (t *Transcript) AppendAssistant() {
	t.turns = append(t.turns, domain.ChatTurn{Role: domain.RoleAssistant})
}

// AppendToLastAssistantTurn grows the tail assistant turn by one fragment.
func (t *Transcript) AppendToLastAssistantTurn(fragment string) error {
	if len(t.turns) == 0 || t.turns[len(t.turns)-1].Role != domain.RoleAssistant {
		return ErrNoAssistantTail
	}
	t.turns[len(t.turns)-1].Text += fragment
	return nil
}

// Turns returns a copy of the transcript.
func (t *Transcript) Turns() []domain.ChatTurn {
	return append([]domain.ChatTurn(nil), t.turns...)
}

// Len reports the number of turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}
