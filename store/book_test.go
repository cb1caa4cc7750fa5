package store

import (
	"testing"

	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/pkg/errors"
)

func TestAddAndGetBook(t *testing.T) {
	s := newTestStore(t, "add_get_book")
	addTestBook(t, s, "book-1", 320)

	uuid := "book-1"
	book, err := s.GetBook(&model.FindBook{UUID: &uuid})
	if err != nil {
		t.Fatalf("Failed to get book: %v", err)
	}
	if book == nil {
		t.Fatal("Expected a book")
	}
	if book.Title != "The Test Book" || book.TotalPages != 320 {
		t.Fatalf("Unexpected book: %+v", book)
	}
}

func TestUpdateBookNotFound(t *testing.T) {
	s := newTestStore(t, "update_book_not_found")

	page := 10
	_, err := s.UpdateBook(&model.UpdateBook{UUID: "missing", CurrentPage: &page})
	if !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("Expected ErrBookNotFound, got %v", err)
	}
}

func TestReplaceReadingList(t *testing.T) {
	s := newTestStore(t, "replace_reading_list")

	// Local state: two currently-reading books and one finished book.
	addTestBook(t, s, "keep-me", 200)
	addTestBook(t, s, "stale-one", 150)
	finished, err := s.AddBook(&model.Book{
		UUID:          "finished-one",
		Title:         "Done Already",
		ReadingStatus: model.StatusFinished,
		BookType:      model.BookTypeEbook,
	})
	if err != nil {
		t.Fatalf("Failed to add finished book: %v", err)
	}

	incoming := []model.BookTransfer{
		{
			UUID:          "keep-me",
			Title:         "The Test Book",
			Author:        "A. Writer",
			TotalPages:    200,
			CurrentPage:   42,
			BookType:      model.BookTypePhysical,
			ReadingStatus: model.StatusCurrentlyReading,
		},
		{
			UUID:          "brand-new",
			Title:         "Fresh Arrival",
			TotalPages:    99,
			BookType:      model.BookTypeEbook,
			ReadingStatus: model.StatusCurrentlyReading,
		},
	}
	if err := s.ReplaceReadingList(incoming); err != nil {
		t.Fatalf("Failed to replace reading list: %v", err)
	}

	// keep-me updated in place.
	uuid := "keep-me"
	book, err := s.GetBook(&model.FindBook{UUID: &uuid})
	if err != nil {
		t.Fatalf("Failed to get book: %v", err)
	}
	if book == nil || book.CurrentPage != 42 {
		t.Fatalf("Expected keep-me at page 42, got %+v", book)
	}

	// brand-new inserted.
	uuid = "brand-new"
	book, err = s.GetBook(&model.FindBook{UUID: &uuid})
	if err != nil {
		t.Fatalf("Failed to get book: %v", err)
	}
	if book == nil {
		t.Fatal("Expected brand-new to be inserted")
	}

	// stale-one removed: it was currently reading and absent from the payload.
	uuid = "stale-one"
	book, err = s.GetBook(&model.FindBook{UUID: &uuid})
	if err != nil {
		t.Fatalf("Failed to get book: %v", err)
	}
	if book != nil {
		t.Fatalf("Expected stale-one to be deleted, got %+v", book)
	}

	// Books outside CURRENTLY_READING are untouched.
	uuid = finished.UUID
	book, err = s.GetBook(&model.FindBook{UUID: &uuid})
	if err != nil {
		t.Fatalf("Failed to get book: %v", err)
	}
	if book == nil {
		t.Fatal("Finished book must survive a broadcast")
	}
}

func TestReplaceReadingListIsIdempotent(t *testing.T) {
	s := newTestStore(t, "replace_reading_list_replay")

	incoming := []model.BookTransfer{
		{UUID: "b1", Title: "One", CurrentPage: 5, ReadingStatus: model.StatusCurrentlyReading, BookType: model.BookTypePhysical},
	}
	if err := s.ReplaceReadingList(incoming); err != nil {
		t.Fatalf("Failed first replace: %v", err)
	}
	if err := s.ReplaceReadingList(incoming); err != nil {
		t.Fatalf("Replay must be harmless: %v", err)
	}

	status := model.StatusCurrentlyReading
	books, err := s.ListBooks(&model.FindBook{Status: &status})
	if err != nil {
		t.Fatalf("Failed to list books: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("Expected exactly one book, got %d", len(books))
	}
}
