package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"foxshelf/pkg/ai"
	"foxshelf/pkg/domain"
)

// ErrBusy is returned when Ask is called while a response is streaming.
var ErrBusy = errors.New("assistant is already answering")

// CatalogReader supplies the catalog snapshot embedded in every request.
type CatalogReader interface {
	Snapshot() []domain.Book
}

// Session holds one assistant conversation. A session is either idle or
// awaiting a response; the awaiting guard is the only concurrency control,
// and it rejects rather than queues.
type Session struct {
	ID string

	gen     ai.StreamGenerator
	catalog CatalogReader
	author  string

	mu         sync.Mutex
	transcript Transcript
	awaiting   bool
	lastError  string
}

// NewSession builds an idle session bound to a generator and catalog.
func NewSession(id string, gen ai.StreamGenerator, catalog CatalogReader, author string) *Session {
	return &Session{ID: id, gen: gen, catalog: catalog, author: author}
}

// Ask appends a user turn and streams the assistant response into a
// placeholder assistant turn, fragment by fragment in arrival order.
//
// Empty or whitespace-only input is a no-op. If a response is already
// streaming, Ask returns ErrBusy and leaves the transcript unchanged.
// On stream failure the partial text already accumulated is kept, the error
// is retained alongside the transcript, and the session returns to idle.
// onFragment, when non-nil, observes each fragment after it has been applied.
func (s *Session) Ask(ctx context.Context, text string, onFragment func(string) error) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	if s.awaiting {
		s.mu.Unlock()
		return ErrBusy
	}
	s.awaiting = true
	s.lastError = ""
	s.transcript.AppendUser(text)
	history := s.transcript.Turns()
	s.transcript.AppendAssistant()
	s.mu.Unlock()

	turns := make([]ai.Turn, 0, len(history))
	for _, t := range history {
		turns = append(turns, ai.Turn{Role: string(t.Role), Text: t.Text})
	}
	system := buildSystemInstruction(s.author, s.catalog.Snapshot())

	err := s.gen.GenerateTextStream(ctx, system, turns, func(fragment string) error {
		s.mu.Lock()
		appendErr := s.transcript.AppendToLastAssistantTurn(fragment)
		s.mu.Unlock()
		if appendErr != nil {
			return appendErr
		}
		if onFragment != nil {
			return onFragment(fragment)
		}
		return nil
	})

	s.mu.Lock()
	s.awaiting = false
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()
	return err
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []domain.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Turns()
}

// Awaiting reports whether a response is currently streaming.
func (s *Session) Awaiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaiting
}

// LastError returns the retained error from the most recent failed ask, or
// empty. It is cleared when a new ask starts.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// catalogEntry is the projection of a book shared with the assistant.
type catalogEntry struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	PayPalLink  string  `json:"payPalLink"`
}

func buildSystemInstruction(author string, books []domain.Book) string {
	entries := make([]catalogEntry, 0, len(books))
	for _, b := range books {
		entries = append(entries, catalogEntry{
			Title:       b.Title,
			Author:      b.Author,
			Description: b.Description,
			Price:       b.Price,
			PayPalLink:  b.PayPalLink,
		})
	}
	listing, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		listing = []byte("[]")
	}
	return fmt.Sprintf("You are Foxxy, a cute, clever, and slightly mischievous fox spirit. "+
		"You are the guardian of this enchanted library in a magical forest. Your job is to help "+
		"visitors by answering their questions about the author's books. The author of all books "+
		"here is %s. You speak in a friendly, whimsical, and encouraging tone. Use forest and "+
		"magic-themed metaphors sometimes (e.g., 'Let's rustle through the pages,' 'That's a "+
		"sparkling question!'). You have access to the library's catalog. When asked for "+
		"recommendations or details, use the information provided. If you mention a book, always "+
		"give its title and price. Provide the PayPal link when a user seems interested in buying. "+
		"Here is the current catalog of books: %s", author, listing)
}
