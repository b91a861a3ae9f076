package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"foxshelf/internal/assistant"
	"foxshelf/internal/catalog"
	"foxshelf/internal/session"
	"foxshelf/pkg/ai"
	"foxshelf/pkg/domain"
	"foxshelf/pkg/storage"
)

// AssertionVerifier decodes an opaque identity assertion into the asserted
// profile, failing with identity.ErrDecode on malformed input.
type AssertionVerifier interface {
	Verify(assertion string) (domain.Identity, error)
}

// Config holds runtime dependencies for the application core.
type Config struct {
	AuthorName  string
	AuthorEmail string

	// Verifier is nil when no identity provider client ID is configured;
	// sign-in is then disabled.
	Verifier AssertionVerifier
	Sessions session.Store
	Catalog  *catalog.Store
	Blobs    storage.BlobStore

	// Generator and Streamer are nil when no generation credential is
	// configured; AI features then fail with ErrUnavailable on use.
	Generator ai.TextGenerator
	Streamer  ai.StreamGenerator
}

// App wires identity, catalog, submission, and assistant logic together.
type App struct {
	authorName  string
	authorEmail string

	verifier  AssertionVerifier
	sessions  session.Store
	catalog   *catalog.Store
	blobs     storage.BlobStore
	generator ai.TextGenerator
	assistant *assistant.Registry

	genMu      sync.Mutex
	generating bool
}

// New constructs the application core.
func New(cfg Config) (*App, error) {
	authorEmail := strings.TrimSpace(strings.ToLower(cfg.AuthorEmail))
	if authorEmail == "" {
		return nil, fmt.Errorf("author email required")
	}
	authorName := strings.TrimSpace(cfg.AuthorName)
	if authorName == "" {
		return nil, fmt.Errorf("author name required")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog store required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if cfg.Blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if cfg.Verifier == nil {
		slog.Warn("identity provider client ID is not configured; sign-in is disabled")
	}
	if cfg.Generator == nil || cfg.Streamer == nil {
		slog.Warn("generation credential is not configured; AI features are disabled")
	}

	a := &App{
		authorName:  authorName,
		authorEmail: authorEmail,
		verifier:    cfg.Verifier,
		sessions:    cfg.Sessions,
		catalog:     cfg.Catalog,
		blobs:       cfg.Blobs,
		generator:   cfg.Generator,
	}
	if cfg.Streamer != nil {
		a.assistant = assistant.NewRegistry(cfg.Streamer, cfg.Catalog, authorName)
	}
	return a, nil
}

// SignIn verifies an identity assertion and, when it asserts the configured
// author email, issues a session. Any other email is rejected and no
// identity is retained.
func (a *App) SignIn(assertion string) (domain.Identity, string, error) {
	if a.verifier == nil {
		return domain.Identity{}, "", ErrSignInDisabled
	}
	id, err := a.verifier.Verify(assertion)
	if err != nil {
		return domain.Identity{}, "", err
	}
	if !strings.EqualFold(strings.TrimSpace(id.Email), a.authorEmail) {
		return domain.Identity{}, "", ErrNotAuthorized
	}
	token, err := a.sessions.NewSession(id)
	if err != nil {
		return domain.Identity{}, "", fmt.Errorf("issue session: %w", err)
	}
	return id, token, nil
}

// IdentityFromToken resolves a held identity from a session token.
func (a *App) IdentityFromToken(token string) (domain.Identity, bool) {
	id, ok, err := a.sessions.GetIdentity(token)
	if err != nil || !ok {
		return domain.Identity{}, false
	}
	return id, true
}

// SignOut clears the session.
func (a *App) SignOut(token string) error {
	return a.sessions.DeleteSession(token)
}

// Books returns the catalog filtered by the query.
func (a *App) Books(query string) []domain.Book {
	return a.catalog.Filter(query)
}

// GenerateDescription produces a one-paragraph blurb for a draft title.
// Only one generation may be outstanding at a time.
func (a *App) GenerateDescription(ctx context.Context, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", validationf("Please enter a title before generating a description.")
	}
	if a.generator == nil {
		return "", ErrUnavailable
	}

	a.genMu.Lock()
	if a.generating {
		a.genMu.Unlock()
		return "", ErrGenerating
	}
	a.generating = true
	a.genMu.Unlock()
	defer func() {
		a.genMu.Lock()
		a.generating = false
		a.genMu.Unlock()
	}()

	prompt := fmt.Sprintf("Generate a captivating, one-paragraph blurb for an online bookstore "+
		"with a magical, whimsical theme. The book is titled %q by the author %s. The tone should "+
		"be enticing and make someone want to buy it. Do not use markdown or special formatting.",
		title, a.authorName)
	text, err := a.generator.GenerateText(ctx, "", prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return strings.TrimSpace(stripMarkup(text)), nil
}

// AcquireChatSession resolves an assistant session, creating one when the id
// is empty or unknown.
func (a *App) AcquireChatSession(sessionID string) (*assistant.Session, error) {
	if a.assistant == nil {
		return nil, ErrUnavailable
	}
	return a.assistant.Acquire(sessionID), nil
}

// Chat runs one assistant exchange on the identified session, streaming
// fragments through onFragment as they arrive. The returned session exposes
// the transcript and retained error state.
func (a *App) Chat(ctx context.Context, sessionID, message string, onFragment func(string) error) (*assistant.Session, error) {
	sess, err := a.AcquireChatSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess, sess.Ask(ctx, message, onFragment)
}

// ChatSession returns an existing assistant session.
func (a *App) ChatSession(sessionID string) (*assistant.Session, bool) {
	if a.assistant == nil {
		return nil, false
	}
	return a.assistant.Get(sessionID)
}
