package novel

import (
	"strconv"
	"strings"
	"time"
)

// Entity ids are millisecond timestamps, matching the ids already present in
// persisted trees. Chapter ids are sequential within their book.
func newID() int64 {
	return time.Now().UnixMilli()
}

func AddBook(tree *DocumentTree, title string) *Book {
	if strings.TrimSpace(title) == "" {
		title = "Untitled Book"
	}
	book := defaultBook(newID(), title)
	tree.Books = append(tree.Books, book)
	tree.SelectedBookID = book.ID
	return &tree.Books[len(tree.Books)-1]
}

// RemoveBook deletes a book. Removing the last book replaces it with a fresh
// default so the tree never goes empty; removing the selected book moves the
// selection to the nearest remaining neighbour.
func RemoveBook(tree *DocumentTree, id int64) {
	deletedIndex := -1
	remaining := tree.Books[:0:0]
	for i, book := range tree.Books {
		if book.ID == id {
			deletedIndex = i
			continue
		}
		remaining = append(remaining, book)
	}
	if deletedIndex == -1 {
		return
	}

	if len(remaining) == 0 {
		fallback := defaultBook(newID(), "Untitled Book")
		tree.Books = []Book{fallback}
		tree.SelectedBookID = fallback.ID
		return
	}

	tree.Books = remaining
	if tree.SelectedBookID != id {
		return
	}
	fallbackIndex := deletedIndex
	if fallbackIndex > len(remaining)-1 {
		fallbackIndex = len(remaining) - 1
	}
	tree.SelectedBookID = remaining[fallbackIndex].ID
}

func SelectBook(tree *DocumentTree, id int64) {
	tree.SelectedBookID = id
}

func RenameBook(tree *DocumentTree, id int64, title string) {
	for i := range tree.Books {
		if tree.Books[i].ID == id {
			tree.Books[i].Title = title
			return
		}
	}
}

func AddChapter(tree *DocumentTree, title string) *Chapter {
	book := SelectedBook(tree)
	if book == nil {
		return nil
	}
	var id int64 = 1
	if len(book.Chapters) > 0 {
		id = book.Chapters[len(book.Chapters)-1].ID + 1
	}
	chapter := defaultChapter()
	chapter.ID = id
	if trimmed := strings.TrimSpace(title); trimmed != "" {
		chapter.Title = trimmed
	} else {
		chapter.Title = "Chapter " + strconv.FormatInt(id, 10)
	}
	book.Chapters = append(book.Chapters, chapter)
	book.SelectedChapterID = id
	return &book.Chapters[len(book.Chapters)-1]
}

// RemoveChapter deletes a chapter from the selected book, restoring the
// default chapter when the last one goes.
func RemoveChapter(tree *DocumentTree, id int64) {
	book := SelectedBook(tree)
	if book == nil {
		return
	}
	remaining := book.Chapters[:0:0]
	for _, chapter := range book.Chapters {
		if chapter.ID != id {
			remaining = append(remaining, chapter)
		}
	}
	if len(remaining) == 0 {
		book.Chapters = []Chapter{defaultChapter()}
		book.SelectedChapterID = 1
		return
	}
	book.Chapters = remaining
	if book.SelectedChapterID == id {
		book.SelectedChapterID = remaining[0].ID
	}
}

func SelectChapter(tree *DocumentTree, id int64) {
	if book := SelectedBook(tree); book != nil {
		book.SelectedChapterID = id
	}
}

func RenameChapter(tree *DocumentTree, id int64, title string) {
	if chapter := findChapter(tree, id); chapter != nil {
		chapter.Title = title
	}
}

func SetChapterContent(tree *DocumentTree, id int64, content []byte) {
	if chapter := findChapter(tree, id); chapter != nil {
		chapter.Content = append([]byte(nil), content...)
	}
}

func SetChapterGoal(tree *DocumentTree, id int64, goalWords int) {
	if chapter := findChapter(tree, id); chapter != nil {
		if goalWords < 0 {
			goalWords = DefaultGoalWords
		}
		chapter.GoalWords = goalWords
	}
}

func findChapter(tree *DocumentTree, id int64) *Chapter {
	book := SelectedBook(tree)
	if book == nil {
		return nil
	}
	for i := range book.Chapters {
		if book.Chapters[i].ID == id {
			return &book.Chapters[i]
		}
	}
	return nil
}

func AddCharacter(tree *DocumentTree, name string, notes []string) {
	if book := SelectedBook(tree); book != nil {
		book.Characters = append(book.Characters, Character{ID: newID(), Name: name, Notes: notes})
	}
}

func UpdateCharacter(tree *DocumentTree, id int64, name string, notes []string) {
	book := SelectedBook(tree)
	if book == nil {
		return
	}
	for i := range book.Characters {
		if book.Characters[i].ID == id {
			book.Characters[i].Name = name
			book.Characters[i].Notes = notes
			return
		}
	}
}

func RemoveCharacter(tree *DocumentTree, id int64) {
	book := SelectedBook(tree)
	if book == nil {
		return
	}
	kept := book.Characters[:0:0]
	for _, c := range book.Characters {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	book.Characters = kept
}

func AddLocation(tree *DocumentTree, name string, notes []string) {
	if book := SelectedBook(tree); book != nil {
		book.Locations = append(book.Locations, Location{ID: newID(), Name: name, Notes: notes})
	}
}

func UpdateLocation(tree *DocumentTree, id int64, name string, notes []string) {
	book := SelectedBook(tree)
	if book == nil {
		return
	}
	for i := range book.Locations {
		if book.Locations[i].ID == id {
			book.Locations[i].Name = name
			book.Locations[i].Notes = notes
			return
		}
	}
}

func RemoveLocation(tree *DocumentTree, id int64) {
	book := SelectedBook(tree)
	if book == nil {
		return
	}
	kept := book.Locations[:0:0]
	for _, l := range book.Locations {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	book.Locations = kept
}

func AddPlotPoint(tree *DocumentTree, text string, notes []string) {
	if book := SelectedBook(tree); book != nil {
		book.PlotPoints = append(book.PlotPoints, PlotPoint{ID: newID(), Text: text, Notes: notes})
	}
}

func UpdatePlotPoint(tree *DocumentTree, id int64, text string, notes []string) {
	book := SelectedBook(tree)
	if book == nil {
		return
	}
	for i := range book.PlotPoints {
		if book.PlotPoints[i].ID == id {
			book.PlotPoints[i].Text = text
			book.PlotPoints[i].Notes = notes
			return
		}
	}
}

func RemovePlotPoint(tree *DocumentTree, id int64) {
	book := SelectedBook(tree)
	if book == nil {
		return
	}
	kept := book.PlotPoints[:0:0]
	for _, p := range book.PlotPoints {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	book.PlotPoints = kept
}
