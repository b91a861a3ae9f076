package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"foxshelf/internal/app"
	"foxshelf/internal/identity"
	"foxshelf/internal/ratelimit"
	"foxshelf/internal/util"
	"foxshelf/pkg/domain"
	"foxshelf/pkg/storage"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App

	// Files serves stored uploads directly when the blob store is the
	// local filesystem one. Nil when an object store with its own URLs
	// is in use.
	Files *storage.FileStore

	// SignInLimiter and ChatLimiter are optional; nil disables limiting.
	SignInLimiter *ratelimit.FixedWindowLimiter
	ChatLimiter   *ratelimit.FixedWindowLimiter

	MaxUploadBytes int64
}

// Server exposes the storefront HTTP endpoints.
type Server struct {
	app            *app.App
	files          *storage.FileStore
	signInLimiter  *ratelimit.FixedWindowLimiter
	chatLimiter    *ratelimit.FixedWindowLimiter
	maxUploadBytes int64
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:            cfg.App,
		files:          cfg.Files,
		signInLimiter:  cfg.SignInLimiter,
		chatLimiter:    cfg.ChatLimiter,
		maxUploadBytes: cfg.MaxUploadBytes,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/auth/google", s.handleSignIn)
	s.mux.Handle("/api/auth/logout", s.authenticated(s.handleSignOut))
	s.mux.Handle("/api/users/me", s.authenticated(s.handleMe))
	s.mux.HandleFunc("/api/books", s.handleBooks)
	s.mux.Handle("/api/books/description", s.authenticated(s.handleDescription))
	s.mux.HandleFunc("/api/chat", s.handleChat)
	s.mux.HandleFunc("/api/chat/", s.handleTranscript)
	if s.files != nil {
		s.mux.Handle("/files/", http.StripPrefix("/files/", http.FileServer(http.Dir(s.files.Root()))))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type identityHandler func(http.ResponseWriter, *http.Request, string, domain.Identity)

func (s *Server) authenticated(next identityHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		id, ok := s.app.IdentityFromToken(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, token, id)
	})
}

type signInRequest struct {
	Credential string `json:"credential"`
}

type signInResponse struct {
	User  domain.Identity `json:"user"`
	Token string          `json:"token"`
	// AutoSelect tells the client to disable automatic credential
	// re-assertion; sign-in decisions stay explicit.
	AutoSelect bool `json:"autoSelect"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.signInLimiter.Allow(util.ClientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "too many sign-in attempts, try again later")
		return
	}
	var req signInRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Credential) == "" {
		writeError(w, http.StatusBadRequest, "credential is required")
		return
	}
	id, token, err := s.app.SignIn(req.Credential)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signInResponse{User: id, Token: token, AutoSelect: false})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request, token string, _ domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.app.SignOut(token); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"signedOut": true, "autoSelect": false})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, _ string, id domain.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListBooks(w, r)
	case http.MethodPost:
		s.authenticated(s.handleSubmitBook).ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books := s.app.Books(r.URL.Query().Get("query"))
	writeJSON(w, http.StatusOK, map[string]any{
		"items": books,
		"count": len(books),
	})
}

func (s *Server) handleSubmitBook(w http.ResponseWriter, r *http.Request, _ string, _ domain.Identity) {
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	draft := app.Draft{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Price:       r.FormValue("price"),
		PayPalLink:  r.FormValue("payPalLink"),
	}
	if cover, err := readUpload(r, "cover"); err == nil {
		draft.Cover = cover
	}
	if doc, err := readUpload(r, "pdf"); err == nil {
		draft.PDF = doc
	}
	book, err := s.app.SubmitBook(r.Context(), draft)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func readUpload(r *http.Request, field string) (*app.FileUpload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &app.FileUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

type descriptionRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleDescription(w http.ResponseWriter, r *http.Request, _ string, _ domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req descriptionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	text, err := s.app.GenerateDescription(r.Context(), req.Title)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"description": text})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps application errors onto HTTP statuses.
func writeAppError(w http.ResponseWriter, err error) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Reason)
	case errors.Is(err, identity.ErrDecode):
		writeError(w, http.StatusUnauthorized, "invalid credential")
	case errors.Is(err, app.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrGenerating):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrSignInDisabled), errors.Is(err, app.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, app.ErrGeneration):
		writeError(w, http.StatusBadGateway, "generation failed, try again")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}
