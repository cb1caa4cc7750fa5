package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/johnyfernandes/shlf-sync/model"
	"go.uber.org/zap"
)

func (s *Store) GetBook(find *model.FindBook) (*model.Book, error) {
	if find.UUID != nil {
		if cache, ok := s.BookCache.Load(*find.UUID); ok {
			return cache.(*model.Book), nil
		}
	}

	list, err := s.ListBooks(find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	book := list[0]
	s.BookCache.Store(book.UUID, book)
	return book, nil
}

func (s *Store) ListBooks(find *model.FindBook) ([]*model.Book, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UUID; v != nil {
		where, args = append(where, "uuid = ?"), append(args, *v)
	}
	if v := find.Title; v != nil {
		where, args = append(where, "title = ?"), append(args, *v)
	}
	if v := find.Author; v != nil {
		where, args = append(where, "author = ?"), append(args, *v)
	}
	if v := find.ISBN; v != nil {
		where, args = append(where, "isbn = ?"), append(args, *v)
	}
	if v := find.Status; v != nil {
		where, args = append(where, "reading_status = ?"), append(args, string(*v))
	}

	// Default order by title
	orderBy := []string{"title"}
	if find.OrderBy != nil {
		orderBy = append([]string{*find.OrderBy}, orderBy...)
	}

	query := `
        SELECT
            uuid,
            title,
            author,
            isbn,
            cover_url,
            total_pages,
            current_page,
            book_type,
            reading_status,
            bookmark_page,
            bookmark_line,
            bookmark_note,
            notes,
            date_added_ts,
            date_finished_ts,
            updated_ts
        FROM book
    WHERE ` + strings.Join(where, " AND ") + ` ORDER BY ` + strings.Join(orderBy, ", ")
	if v := find.Limit; v != nil {
		query += fmt.Sprintf(" LIMIT %d", *v)
	}

	log.Debug("SQL query and args:")
	log.Fallback("Debug", fmt.Sprintf("query: %s\nargs: %v\n", query, args))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		log.Error("Failed to query books", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	list := make([]*model.Book, 0)
	for rows.Next() {
		var book model.Book
		if err := rows.Scan(
			&book.UUID,
			&book.Title,
			&book.Author,
			&book.ISBN,
			&book.CoverURL,
			&book.TotalPages,
			&book.CurrentPage,
			&book.BookType,
			&book.ReadingStatus,
			&book.BookmarkPage,
			&book.BookmarkLine,
			&book.BookmarkNote,
			&book.Notes,
			&book.DateAddedTs,
			&book.DateFinishedTs,
			&book.UpdatedTs,
		); err != nil {
			log.Error("Failed to scan book", zap.Error(err))
			return nil, err
		}
		list = append(list, &book)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func (s *Store) AddBook(create *model.Book) (*model.Book, error) {
	fields := []string{"`uuid`", "`title`", "`author`", "`isbn`", "`cover_url`", "`total_pages`", "`current_page`", "`book_type`", "`reading_status`", "`bookmark_page`", "`bookmark_line`", "`bookmark_note`", "`notes`", "`date_added_ts`"}
	placeholder := []string{"?", "?", "?", "?", "?", "?", "?", "?", "?", "?", "?", "?", "?", "?"}
	if create.DateAddedTs == 0 {
		create.DateAddedTs = time.Now().Unix()
	}
	args := []any{create.UUID, create.Title, create.Author, create.ISBN, create.CoverURL, create.TotalPages, create.CurrentPage, string(create.BookType), string(create.ReadingStatus), create.BookmarkPage, create.BookmarkLine, create.BookmarkNote, create.Notes, create.DateAddedTs}
	stmt := "INSERT INTO book (" + strings.Join(fields, ", ") + ") VALUES (" + strings.Join(placeholder, ", ") + ") RETURNING updated_ts, date_finished_ts"

	log.Fallback("Debug", fmt.Sprintf("AddBook\nstmt: %s\nargs: %v\n", stmt, args))

	s.dbLock.Lock()
	defer s.dbLock.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := tx.QueryRow(stmt, args...).Scan(
		&create.UpdatedTs,
		&create.DateFinishedTs,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.BookCache.Store(create.UUID, create)
	return create, nil
}

func (s *Store) UpdateBook(update *model.UpdateBook) (*model.Book, error) {
	set, args := []string{}, []any{}

	if v := update.Title; v != nil {
		set, args = append(set, "title = ?"), append(args, *v)
	}
	if v := update.Author; v != nil {
		set, args = append(set, "author = ?"), append(args, *v)
	}
	if v := update.ISBN; v != nil {
		set, args = append(set, "isbn = ?"), append(args, *v)
	}
	if v := update.CoverURL; v != nil {
		set, args = append(set, "cover_url = ?"), append(args, *v)
	}
	if v := update.TotalPages; v != nil {
		set, args = append(set, "total_pages = ?"), append(args, *v)
	}
	if v := update.CurrentPage; v != nil {
		set, args = append(set, "current_page = ?"), append(args, *v)
	}
	if v := update.BookType; v != nil {
		set, args = append(set, "book_type = ?"), append(args, string(*v))
	}
	if v := update.ReadingStatus; v != nil {
		set, args = append(set, "reading_status = ?"), append(args, string(*v))
	}
	if v := update.BookmarkPage; v != nil {
		set, args = append(set, "bookmark_page = ?"), append(args, *v)
	}
	if v := update.BookmarkLine; v != nil {
		set, args = append(set, "bookmark_line = ?"), append(args, *v)
	}
	if v := update.BookmarkNote; v != nil {
		set, args = append(set, "bookmark_note = ?"), append(args, *v)
	}
	if v := update.Notes; v != nil {
		set, args = append(set, "notes = ?"), append(args, *v)
	}
	if v := update.DateFinishedTs; v != nil {
		set, args = append(set, "date_finished_ts = ?"), append(args, *v)
	}

	if len(set) == 0 {
		return s.GetBook(&model.FindBook{UUID: &update.UUID})
	}

	set, args = append(set, "updated_ts = ?"), append(args, time.Now().Unix())
	args = append(args, update.UUID)

	stmt := "UPDATE book SET " + strings.Join(set, ", ") + " WHERE uuid = ?"
	log.Fallback("Debug", fmt.Sprintf("UpdateBook\nstmt: %s\nargs: %v\n", stmt, args))

	result, err := s.db.Exec(stmt, args...)
	if err != nil {
		return nil, err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrBookNotFound
	}

	s.BookCache.Delete(update.UUID)
	return s.GetBook(&model.FindBook{UUID: &update.UUID})
}

func (s *Store) RemoveBook(uuid string) error {
	stmt := `DELETE FROM book WHERE uuid = ?`

	s.dbLock.Lock()
	defer s.dbLock.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(stmt, uuid); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.BookCache.Delete(uuid)
	return nil
}

// ReplaceReadingList applies a full library broadcast: the incoming set is
// authoritative for books in CURRENTLY_READING status. Existing books are
// field-updated, new ones inserted, local currently-reading books absent from
// the payload are deleted. This is complete replacement, not an additive merge.
func (s *Store) ReplaceReadingList(transfers []model.BookTransfer) error {
	s.dbLock.Lock()
	defer s.dbLock.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	incoming := make(map[string]bool, len(transfers))
	for _, t := range transfers {
		incoming[t.UUID] = true
	}

	rows, err := tx.Query(`SELECT uuid FROM book WHERE reading_status = ?`, string(model.StatusCurrentlyReading))
	if err != nil {
		return err
	}
	stale := []string{}
	for rows.Next() {
		var uuid string
		if err := rows.Scan(&uuid); err != nil {
			rows.Close()
			return err
		}
		if !incoming[uuid] {
			stale = append(stale, uuid)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	upsert := `
		INSERT INTO book (uuid, title, author, isbn, cover_url, total_pages, current_page, book_type, reading_status, notes, date_added_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE
		SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			isbn = EXCLUDED.isbn,
			cover_url = EXCLUDED.cover_url,
			total_pages = EXCLUDED.total_pages,
			current_page = EXCLUDED.current_page,
			book_type = EXCLUDED.book_type,
			reading_status = EXCLUDED.reading_status,
			notes = EXCLUDED.notes,
			updated_ts = strftime('%s', 'now')
	`
	for _, t := range transfers {
		if _, err := tx.Exec(upsert,
			t.UUID, t.Title, t.Author, t.ISBN, t.CoverURL, t.TotalPages, t.CurrentPage,
			string(t.BookType), string(t.ReadingStatus), t.Notes, t.DateAddedTs,
		); err != nil {
			return err
		}
	}

	for _, uuid := range stale {
		if _, err := tx.Exec(`DELETE FROM book WHERE uuid = ?`, uuid); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	for _, t := range transfers {
		s.BookCache.Delete(t.UUID)
	}
	for _, uuid := range stale {
		s.BookCache.Delete(uuid)
	}
	return nil
}

// CountBooksFinishedBetween counts finished books in the window [startTs, endTs).
func (s *Store) CountBooksFinishedBetween(startTs, endTs int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM book
		WHERE reading_status = ? AND date_finished_ts >= ? AND date_finished_ts < ?
	`
	var count int
	if err := s.db.QueryRow(query, string(model.StatusFinished), startTs, endTs).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) CountFinishedBooks() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM book WHERE reading_status = ?`, string(model.StatusFinished)).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
