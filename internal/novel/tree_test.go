package novel

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDefaultTreeShape(t *testing.T) {
	tree := DefaultTree()
	if len(tree.Books) != 1 {
		t.Fatalf("expected 1 book, got %d", len(tree.Books))
	}
	book := tree.Books[0]
	if book.Title != DefaultBookTitle || book.ID != 1 {
		t.Fatalf("unexpected default book: %+v", book)
	}
	if len(book.Chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(book.Chapters))
	}
	chapter := book.Chapters[0]
	if chapter.Title != DefaultChapterTitle || chapter.GoalWords != DefaultGoalWords {
		t.Fatalf("unexpected default chapter: %+v", chapter)
	}
	if tree.SelectedBookID != 1 || book.SelectedChapterID != 1 {
		t.Fatalf("unexpected selection: book=%d chapter=%d", tree.SelectedBookID, book.SelectedChapterID)
	}
}

func TestNormalizeRepairsEmptyTree(t *testing.T) {
	tree := &DocumentTree{}
	Normalize(tree)
	if len(tree.Books) != 1 || len(tree.Books[0].Chapters) != 1 {
		t.Fatalf("Normalize() did not restore default book/chapter: %+v", tree)
	}
	if tree.SelectedBookID != tree.Books[0].ID {
		t.Fatalf("Normalize() did not fix selection")
	}
}

func TestNormalizeRepairsChapterlessBookAndGoal(t *testing.T) {
	tree := &DocumentTree{
		Books: []Book{
			{ID: 5, Title: "Empty"},
			{ID: 6, Title: "Bad Goal", Chapters: []Chapter{{ID: 1, Title: "One", GoalWords: -3}}, SelectedChapterID: 1},
		},
		SelectedBookID: 5,
	}
	Normalize(tree)
	if len(tree.Books[0].Chapters) != 1 || tree.Books[0].SelectedChapterID != 1 {
		t.Fatalf("chapterless book not repaired: %+v", tree.Books[0])
	}
	if tree.Books[1].Chapters[0].GoalWords != DefaultGoalWords {
		t.Fatalf("goal not defaulted: %d", tree.Books[1].Chapters[0].GoalWords)
	}
}

func TestNormalizeFixesStaleSelection(t *testing.T) {
	tree := DefaultTree()
	tree.SelectedBookID = 999
	Normalize(tree)
	if tree.SelectedBookID != 1 {
		t.Fatalf("stale selection not repaired: %d", tree.SelectedBookID)
	}
}

func TestParseRejectsBadShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `{"books":`},
		{"missing books", `{"selectedBookId":1}`},
		{"missing selectedBookId", `{"books":[]}`},
		{"books not a list", `{"books":{"id":1},"selectedBookId":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.raw)); !errors.Is(err, ErrInvalidPayload) {
				t.Fatalf("Parse(%s) error = %v, want ErrInvalidPayload", tc.raw, err)
			}
		})
	}
}

func TestParseAcceptsWellFormedTree(t *testing.T) {
	raw, err := json.Marshal(DefaultTree())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	tree, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !Equal(tree, DefaultTree()) {
		t.Fatalf("parsed tree differs from input")
	}
}

func TestEqualIsStructuralNotIdentity(t *testing.T) {
	a := DefaultTree()
	b := DefaultTree()
	if !Equal(a, b) {
		t.Fatal("identical trees reported unequal")
	}
	b.Books[0].Title = "Renamed"
	if Equal(a, b) {
		t.Fatal("differing trees reported equal")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := DefaultTree()
	b := Clone(a)
	b.Books[0].Title = "Changed"
	if a.Books[0].Title != DefaultBookTitle {
		t.Fatal("Clone() shares state with original")
	}
}
