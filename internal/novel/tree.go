// Package novel defines the per-user document tree: the full workspace state
// exchanged between client and server and persisted wholesale. The tree is
// never partially persisted; every save carries the whole thing.
package novel

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	DefaultBookTitle    = "My First Book"
	DefaultChapterTitle = "Chapter 1"
	DefaultGoalWords    = 1200
)

type DocumentTree struct {
	Books          []Book `json:"books"`
	SelectedBookID int64  `json:"selectedBookId"`
}

type Book struct {
	ID                int64          `json:"id"`
	Title             string         `json:"title"`
	Chapters          []Chapter      `json:"chapters"`
	SelectedChapterID int64          `json:"selectedChapterId"`
	Characters        []Character    `json:"characters"`
	Locations         []Location     `json:"locations"`
	PlotPoints        []PlotPoint    `json:"plotPoints"`
	Settings          map[string]any `json:"settings"`
}

// Chapter content is the rich-text widget's raw state. The server and the
// sync layer treat it as opaque JSON.
type Chapter struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Content   json.RawMessage `json:"content"`
	GoalWords int             `json:"goalWords"`
}

type Character struct {
	ID    int64    `json:"id"`
	Name  string   `json:"name"`
	Notes []string `json:"notes"`
}

type Location struct {
	ID    int64    `json:"id"`
	Name  string   `json:"name"`
	Notes []string `json:"notes"`
}

type PlotPoint struct {
	ID    int64    `json:"id"`
	Text  string   `json:"text"`
	Notes []string `json:"notes"`
}

var ErrInvalidPayload = errors.New("invalid document payload")

func emptyContent() json.RawMessage {
	return json.RawMessage(`{}`)
}

func defaultChapter() Chapter {
	return Chapter{ID: 1, Title: DefaultChapterTitle, Content: emptyContent(), GoalWords: DefaultGoalWords}
}

func defaultBook(id int64, title string) Book {
	return Book{
		ID:                id,
		Title:             title,
		Chapters:          []Chapter{defaultChapter()},
		SelectedChapterID: 1,
		Characters:        []Character{},
		Locations:         []Location{},
		PlotPoints:        []PlotPoint{},
		Settings:          map[string]any{},
	}
}

// DefaultTree is the tree every brand-new user starts from: one book with
// one empty chapter.
func DefaultTree() *DocumentTree {
	return &DocumentTree{
		Books:          []Book{defaultBook(1, DefaultBookTitle)},
		SelectedBookID: 1,
	}
}

// Normalize repairs a tree so it satisfies the structural invariant: at
// least one book, every book has at least one chapter, every chapter has a
// usable word-count goal. Run after every load and before every persist.
func Normalize(tree *DocumentTree) {
	if len(tree.Books) == 0 {
		tree.Books = []Book{defaultBook(1, DefaultBookTitle)}
		tree.SelectedBookID = 1
		return
	}
	for i := range tree.Books {
		book := &tree.Books[i]
		if len(book.Chapters) == 0 {
			book.Chapters = []Chapter{defaultChapter()}
			book.SelectedChapterID = 1
			continue
		}
		for j := range book.Chapters {
			if book.Chapters[j].GoalWords <= 0 {
				book.Chapters[j].GoalWords = DefaultGoalWords
			}
			if len(book.Chapters[j].Content) == 0 {
				book.Chapters[j].Content = emptyContent()
			}
		}
	}
	if selectedBook(tree) == nil {
		tree.SelectedBookID = tree.Books[0].ID
	}
}

// Parse validates the shape of an incoming save payload and decodes it. The
// two checks mirror what a well-behaved client always sends: a books list
// and a selectedBookId key. Anything else is rejected before it can reach
// the store.
func Parse(raw []byte) (*DocumentTree, error) {
	var probe struct {
		Books          *[]json.RawMessage `json:"books"`
		SelectedBookID *json.RawMessage   `json:"selectedBookId"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if probe.Books == nil || probe.SelectedBookID == nil {
		return nil, ErrInvalidPayload
	}

	var tree DocumentTree
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &tree, nil
}

// Fingerprint is the canonical serialized form of a tree, used as the
// snapshot for structural-equality checks. Struct field order makes the
// encoding deterministic.
func Fingerprint(tree *DocumentTree) string {
	if tree == nil {
		return ""
	}
	raw, err := json.Marshal(tree)
	if err != nil {
		return ""
	}
	return string(raw)
}

// Equal reports structural equality over the serialized form. The trees are
// rebuilt by value on every edit, so pointer identity means nothing.
func Equal(a, b *DocumentTree) bool {
	return Fingerprint(a) == Fingerprint(b)
}

// Clone deep-copies a tree through its serialized form.
func Clone(tree *DocumentTree) *DocumentTree {
	if tree == nil {
		return nil
	}
	raw, err := json.Marshal(tree)
	if err != nil {
		return nil
	}
	var out DocumentTree
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return &out
}

func selectedBook(tree *DocumentTree) *Book {
	for i := range tree.Books {
		if tree.Books[i].ID == tree.SelectedBookID {
			return &tree.Books[i]
		}
	}
	return nil
}

// SelectedBook returns the currently selected book, falling back to the
// first book when the selection pointer is stale.
func SelectedBook(tree *DocumentTree) *Book {
	if book := selectedBook(tree); book != nil {
		return book
	}
	if len(tree.Books) == 0 {
		return nil
	}
	return &tree.Books[0]
}

// SelectedChapter returns the selected chapter of a book, falling back to
// the first chapter.
func SelectedChapter(book *Book) *Chapter {
	if book == nil || len(book.Chapters) == 0 {
		return nil
	}
	for i := range book.Chapters {
		if book.Chapters[i].ID == book.SelectedChapterID {
			return &book.Chapters[i]
		}
	}
	return &book.Chapters[0]
}
