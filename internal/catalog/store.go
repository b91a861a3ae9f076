package catalog

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"foxshelf/pkg/domain"
)

// Store keeps the catalog in process memory, newest first.
type Store struct {
	mu    sync.RWMutex
	books []domain.Book
}

// NewStore initializes an empty catalog.
func NewStore() *Store {
	return &Store{}
}

// Add prepends a book to the catalog and returns the stored record.
// A fresh ID is assigned when the caller has not supplied one. The book is
// visible to Filter as soon as Add returns.
func (s *Store) Add(b domain.Book) domain.Book {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books = append([]domain.Book{b}, s.books...)
	return b
}

// Filter returns every book whose title or description contains query as a
// case-insensitive substring. An empty query returns the full catalog in
// store order. The returned slice is a copy.
func (s *Store) Filter(query string) []domain.Book {
	query = strings.ToLower(strings.TrimSpace(query))
	s.mu.RLock()
	defer s.mu.RUnlock()
	if query == "" {
		return append([]domain.Book(nil), s.books...)
	}
	res := make([]domain.Book, 0, len(s.books))
	for _, b := range s.books {
		if strings.Contains(strings.ToLower(b.Title), query) ||
			strings.Contains(strings.ToLower(b.Description), query) {
			res = append(res, b)
		}
	}
	return res
}

// Snapshot returns a read-only copy of the full catalog.
func (s *Store) Snapshot() []domain.Book {
	return s.Filter("")
}

// Len reports the number of listed books.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}
