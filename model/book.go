package model //import "github.com/johnyfernandes/shlf-sync/model"

// ReadingStatus is the shelf a book sits on.
type ReadingStatus string

const (
	StatusWantToRead       ReadingStatus = "WANT_TO_READ"
	StatusCurrentlyReading ReadingStatus = "CURRENTLY_READING"
	StatusFinished         ReadingStatus = "FINISHED"
	StatusDidNotFinish     ReadingStatus = "DID_NOT_FINISH"
)

func (s ReadingStatus) Valid() bool {
	switch s {
	case StatusWantToRead, StatusCurrentlyReading, StatusFinished, StatusDidNotFinish:
		return true
	}
	return false
}

// BookType distinguishes how the book is consumed.
type BookType string

const (
	BookTypePhysical  BookType = "PHYSICAL"
	BookTypeEbook     BookType = "EBOOK"
	BookTypeAudiobook BookType = "AUDIOBOOK"
)

type Book struct {
	// UUID is stable across devices and is the identity used by the sync
	// protocol. The local row id never travels over the wire.
	UUID          string        `json:"uuid"`
	Title         string        `json:"title"`
	Author        string        `json:"author"`
	ISBN          string        `json:"isbn"`
	CoverURL      string        `json:"cover_url"`
	TotalPages    int           `json:"total_pages"` // 0 when unknown
	CurrentPage   int           `json:"current_page"`
	BookType      BookType      `json:"book_type"`
	ReadingStatus ReadingStatus `json:"reading_status"`
	BookmarkPage  int           `json:"bookmark_page"`
	BookmarkLine  int           `json:"bookmark_line"`
	BookmarkNote  string        `json:"bookmark_note"`
	Notes         string        `json:"notes"`
	DateAddedTs   int64         `json:"date_added_ts"`
	DateFinishedTs int64        `json:"date_finished_ts"`
	UpdatedTs     int64         `json:"updated_ts"`
}

type FindBook struct {
	UUID   *string        `json:"uuid"`
	Title  *string        `json:"title"`
	Author *string        `json:"author"`
	ISBN   *string        `json:"isbn"`
	Status *ReadingStatus `json:"status"`

	OrderBy *string `json:"order_by"`
	// The maximum number of books to return.
	Limit *int `json:"limit"`
}

type UpdateBook struct {
	UUID           string
	Title          *string
	Author         *string
	ISBN           *string
	CoverURL       *string
	TotalPages     *int
	CurrentPage    *int
	BookType       *BookType
	ReadingStatus  *ReadingStatus
	BookmarkPage   *int
	BookmarkLine   *int
	BookmarkNote   *string
	Notes          *string
	DateFinishedTs *int64
}
