package vault

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"noveldesk/internal/identity"
	"noveldesk/internal/novel"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	cipher, err := NewCipher("store-test-secret")
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}
	store, err := NewStore(dir, cipher)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store, dir
}

func TestSafeKey(t *testing.T) {
	cases := map[string]string{
		"a@x.com":            "a@x.com",
		"First.Last-1@x.com": "First.Last-1@x.com",
		"../../etc/passwd":   ".._.._etc_passwd",
		"a b@x.com":          "a_b@x.com",
		"a/b\\c@x.com":       "a_b_c@x.com",
	}
	for in, want := range cases {
		if got := SafeKey(in); got != want {
			t.Errorf("SafeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFirstLoadCreatesEncryptedDefault(t *testing.T) {
	store, dir := testStore(t)
	id := identity.Identity{Email: "a@x.com"}

	tree, err := store.Load(id)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !novel.Equal(tree, novel.DefaultTree()) {
		t.Fatalf("first load did not return the default tree: %s", novel.Fingerprint(tree))
	}

	path := filepath.Join(dir, "a@x.com.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("record not created: %v", err)
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil || !record.IsEncryptedRecord() {
		t.Fatalf("on-disk record is not an encrypted envelope: err=%v record=%+v", err, record)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat record: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("record permissions = %o, want 600", perm)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	store, _ := testStore(t)
	id := identity.Identity{Email: "writer@x.com"}

	tree := novel.DefaultTree()
	novel.AddBook(tree, "Second Book")
	novel.SetChapterContent(tree, 1, json.RawMessage(`{"blocks":[{"text":"hello"}]}`))
	if err := store.Save(id, tree); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(id)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !novel.Equal(tree, loaded) {
		t.Fatalf("round trip mismatch:\nsaved:  %s\nloaded: %s", novel.Fingerprint(tree), novel.Fingerprint(loaded))
	}
}

func TestLegacyPlaintextMigratesOnce(t *testing.T) {
	store, dir := testStore(t)
	id := identity.Identity{Email: "legacy@x.com"}
	path := filepath.Join(dir, "legacy@x.com.json")

	legacy := novel.DefaultTree()
	novel.RenameBook(legacy, 1, "Legacy Book")
	raw, err := json.Marshal(legacy)
	if err != nil {
		t.Fatalf("marshal legacy tree: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("seed legacy file: %v", err)
	}

	migrations := 0
	store.OnMigrate = func() { migrations++ }

	tree, err := store.Load(id)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tree.Books[0].Title != "Legacy Book" {
		t.Fatalf("legacy content lost in migration: %+v", tree.Books[0])
	}
	if migrations != 1 {
		t.Fatalf("expected exactly 1 migration, got %d", migrations)
	}

	// The file must now be an encrypted envelope.
	migrated, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read migrated file: %v", err)
	}
	var record Record
	if err := json.Unmarshal(migrated, &record); err != nil || !record.IsEncryptedRecord() {
		t.Fatalf("migration did not produce an encrypted record")
	}

	// A second load sees the encrypted record and must not migrate again.
	again, err := store.Load(id)
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if !novel.Equal(tree, again) {
		t.Fatal("second load returned a different tree")
	}
	if migrations != 1 {
		t.Fatalf("migration ran twice")
	}
	afterSecond, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file after second load: %v", err)
	}
	if string(afterSecond) != string(migrated) {
		t.Fatal("second load rewrote the record")
	}
}

func TestLoadRejectsGarbageFile(t *testing.T) {
	store, dir := testStore(t)
	id := identity.Identity{Email: "broken@x.com"}
	path := filepath.Join(dir, "broken@x.com.json")
	if err := os.WriteFile(path, []byte(`{"neither":"format"}`), 0o600); err != nil {
		t.Fatalf("seed garbage file: %v", err)
	}

	if _, err := store.Load(id); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("Load() error = %v, want ErrCorruptRecord", err)
	}
}

func TestLoadFailsOnTamperedRecord(t *testing.T) {
	store, dir := testStore(t)
	id := identity.Identity{Email: "victim@x.com"}
	if _, err := store.Load(id); err != nil {
		t.Fatalf("seed Load() error = %v", err)
	}

	path := filepath.Join(dir, "victim@x.com.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		t.Fatalf("parse record: %v", err)
	}
	tag := []byte(record.Tag)
	if tag[0] == '0' {
		tag[0] = '1'
	} else {
		tag[0] = '0'
	}
	record.Tag = string(tag)
	tampered, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal tampered record: %v", err)
	}
	if err := os.WriteFile(path, tampered, 0o600); err != nil {
		t.Fatalf("write tampered record: %v", err)
	}

	if _, err := store.Load(id); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("Load() error = %v, want ErrCorruptRecord", err)
	}
}

func TestUsersCannotAddressEachOthersFiles(t *testing.T) {
	store, dir := testStore(t)
	victim := identity.Identity{Email: "victim@x.com"}
	if _, err := store.Load(victim); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// An email crafted to escape the data dir lands on a sanitized name
	// inside it instead.
	attacker := identity.Identity{Email: "../victim@x.com"}
	if _, err := store.Load(attacker); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name()] = true
	}
	if !names[".._victim@x.com.json"] || !names["victim@x.com.json"] {
		t.Fatalf("unexpected store contents: %v", names)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 records, got %d", len(entries))
	}
}
