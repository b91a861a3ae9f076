package catalog

import (
	"testing"

	"foxshelf/pkg/domain"
)

func TestAddPrependsAndAssignsID(t *testing.T) {
	s := NewStore()
	first := s.Add(domain.Book{Title: "Alpha"})
	if first.ID == "" {
		t.Fatalf("expected generated id")
	}
	second := s.Add(domain.Book{Title: "Beta"})
	if second.ID == first.ID {
		t.Fatalf("ids must be unique")
	}

	all := s.Filter("")
	if len(all) != 2 {
		t.Fatalf("expected 2 books, got %d", len(all))
	}
	if all[0].Title != "Beta" || all[1].Title != "Alpha" {
		t.Fatalf("expected newest first, got %q then %q", all[0].Title, all[1].Title)
	}
}

func TestAddKeepsCallerID(t *testing.T) {
	s := NewStore()
	b := s.Add(domain.Book{ID: "fixed-1", Title: "Alpha"})
	if b.ID != "fixed-1" {
		t.Fatalf("caller id replaced: %q", b.ID)
	}
}

func TestFilterMatchesTitleAndDescriptionCaseInsensitive(t *testing.T) {
	s := NewStore()
	s.Add(domain.Book{Title: "The Whispering Woods", Description: "A young sorceress"})
	s.Add(domain.Book{Title: "The Starlight Compass", Description: "Two siblings and a SKY pirate"})

	if got := s.Filter("whispering"); len(got) != 1 || got[0].Title != "The Whispering Woods" {
		t.Fatalf("title match failed: %+v", got)
	}
	if got := s.Filter("sky"); len(got) != 1 || got[0].Title != "The Starlight Compass" {
		t.Fatalf("description match failed: %+v", got)
	}
	if got := s.Filter("THE"); len(got) != 2 {
		t.Fatalf("case-insensitive match failed: %d", len(got))
	}
	if got := s.Filter("dragon"); len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}

func TestFilterIsIdempotent(t *testing.T) {
	s := NewStore()
	s.Add(domain.Book{Title: "Alpha", Description: "forest"})
	s.Add(domain.Book{Title: "Beta", Description: "forest moon"})

	once := s.Filter("forest")
	again := NewStore()
	for i := len(once) - 1; i >= 0; i-- {
		again.Add(once[i])
	}
	twice := again.Filter("forest")
	if len(once) != len(twice) {
		t.Fatalf("idempotence violated: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].Title != twice[i].Title {
			t.Fatalf("order changed at %d: %q vs %q", i, once[i].Title, twice[i].Title)
		}
	}
}

func TestFilterReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Add(domain.Book{Title: "Alpha"})
	view := s.Filter("")
	view[0].Title = "mutated"
	if s.Filter("")[0].Title != "Alpha" {
		t.Fatalf("store mutated through filter view")
	}
}
