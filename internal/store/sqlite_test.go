// ABOUTME: Tests for the SQLite content store
// ABOUTME: Covers schema init, self-healing recovery, stamping and key semantics

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/g333vn/Glingo-sub002/internal/auth"
)

func newTestStore(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return st
}

func TestOpen(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	st, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

	st, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	st, err := Open(dbPath)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	ctx := context.Background()
	if err := st.PutLevel(ctx, &Level{ID: "n5", Name: "N5"}); err != nil {
		t.Fatalf("PutLevel failed: %v", err)
	}
	st.Close()

	st, err = Open(dbPath)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer st.Close()

	got, err := st.GetLevel(ctx, "n5")
	if err != nil {
		t.Fatalf("GetLevel failed: %v", err)
	}
	if got == nil || got.Name != "N5" {
		t.Errorf("data did not survive reopen: %+v", got)
	}
}

func TestOpen_NewerVersionSelfHeals(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	st, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()
	if err := st.PutLevel(ctx, &Level{ID: "n5", Name: "N5"}); err != nil {
		t.Fatalf("PutLevel failed: %v", err)
	}
	// Stamp a future schema version, as if written by a newer build.
	if _, err := st.db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("stamping future version: %v", err)
	}
	st.Close()

	var warnings []Warning
	st, err = Open(dbPath, WithWarningFunc(func(w Warning) {
		warnings = append(warnings, w)
	}))
	if err != nil {
		t.Fatalf("Open should self-heal, got: %v", err)
	}
	defer st.Close()

	reset := false
	for _, w := range warnings {
		if w.Kind == WarnDatabaseReset {
			reset = true
		}
	}
	if !reset {
		t.Error("expected WarnDatabaseReset before the reset")
	}

	// The reset trades data for availability.
	got, err := st.GetLevel(ctx, "n5")
	if err != nil {
		t.Fatalf("GetLevel failed: %v", err)
	}
	if got != nil {
		t.Error("expected data to be gone after reset")
	}
}

func TestOpen_NewerVersionWithoutAutoReset(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	st, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := st.db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("stamping future version: %v", err)
	}
	st.Close()

	_, err = Open(dbPath, WithoutAutoReset())
	if !errors.Is(err, ErrMigrationFailed) {
		t.Errorf("expected ErrMigrationFailed, got %v", err)
	}
}

func TestPutBook_StampsTimestamps(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	b := &Book{ID: "b1", Level: "n5", Title: "Grammar Basics", Category: "Core"}
	if err := st.PutBook(ctx, b); err != nil {
		t.Fatalf("PutBook failed: %v", err)
	}
	if b.CreatedAt.IsZero() || b.UpdatedAt.IsZero() {
		t.Fatal("timestamps were not stamped")
	}
	created := b.CreatedAt

	time.Sleep(10 * time.Millisecond)

	update := &Book{ID: "b1", Level: "n5", Title: "Grammar Basics 2nd ed", Category: "Core"}
	if err := st.PutBook(ctx, update); err != nil {
		t.Fatalf("second PutBook failed: %v", err)
	}
	if !update.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed on update: got %v, want %v", update.CreatedAt, created)
	}
	if !update.UpdatedAt.After(created) {
		t.Errorf("UpdatedAt not refreshed: %v", update.UpdatedAt)
	}

	got, err := st.GetBook(ctx, "n5", "b1")
	if err != nil {
		t.Fatalf("GetBook failed: %v", err)
	}
	if got.Title != "Grammar Basics 2nd ed" {
		t.Errorf("Title mismatch: %q", got.Title)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("stored CreatedAt changed: %v", got.CreatedAt)
	}
}

func TestPutBookRaw_PreservesTimestamps(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	updated := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	b := &Book{ID: "b1", Level: "n5", Title: "Imported"}
	b.CreatedAt = created
	b.UpdatedAt = updated

	if err := st.PutBookRaw(ctx, b); err != nil {
		t.Fatalf("PutBookRaw failed: %v", err)
	}

	got, err := st.GetBook(ctx, "n5", "b1")
	if err != nil {
		t.Fatalf("GetBook failed: %v", err)
	}
	if !got.CreatedAt.Equal(created) || !got.UpdatedAt.Equal(updated) {
		t.Errorf("timestamps not preserved: %v / %v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestGetAbsent_IsNotAnError(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	if got, err := st.GetBook(ctx, "n5", "nope"); err != nil || got != nil {
		t.Errorf("GetBook absent: got %v, err %v", got, err)
	}
	if got, err := st.GetQuiz(ctx, "b", "c", "l"); err != nil || got != nil {
		t.Errorf("GetQuiz absent: got %v, err %v", got, err)
	}
	if got, err := st.GetChapters(ctx, "nope"); err != nil || got != nil {
		t.Errorf("GetChapters absent: got %v, err %v", got, err)
	}
	if got, err := st.GetUser(ctx, ""); err != nil || got != nil {
		t.Errorf("GetUser empty key: got %v, err %v", got, err)
	}
}

func TestDeleteAbsent_IsNoOp(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	if err := st.DeleteBook(ctx, "n5", "nope"); err != nil {
		t.Errorf("DeleteBook absent: %v", err)
	}
	if err := st.DeleteChapters(ctx, "nope"); err != nil {
		t.Errorf("DeleteChapters absent: %v", err)
	}
	if err := st.DeleteExam(ctx, "n5", "nope"); err != nil {
		t.Errorf("DeleteExam absent: %v", err)
	}
}

func TestPutInvalidKey(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	if err := st.PutBook(ctx, &Book{ID: "b1"}); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey for missing level, got %v", err)
	}
	if err := st.PutQuiz(ctx, &Quiz{BookID: "b1", ChapterID: "c1"}); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey for missing lesson, got %v", err)
	}
}

func TestPutChapters_StampsPerElement(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	first := []Chapter{{ID: "c1", Title: "Greetings"}, {ID: "c2", Title: "Numbers"}}
	if err := st.PutChapters(ctx, "b1", first); err != nil {
		t.Fatalf("PutChapters failed: %v", err)
	}
	stored, err := st.GetChapters(ctx, "b1")
	if err != nil {
		t.Fatalf("GetChapters failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(stored))
	}
	c1Created := stored[0].CreatedAt
	if c1Created.IsZero() {
		t.Fatal("element CreatedAt not stamped")
	}

	time.Sleep(10 * time.Millisecond)

	// Replace the list: c1 survives, c2 is dropped, c3 is new.
	second := []Chapter{{ID: "c1", Title: "Greetings (rev)"}, {ID: "c3", Title: "Particles"}}
	if err := st.PutChapters(ctx, "b1", second); err != nil {
		t.Fatalf("second PutChapters failed: %v", err)
	}
	stored, err = st.GetChapters(ctx, "b1")
	if err != nil {
		t.Fatalf("GetChapters failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(stored))
	}
	if !stored[0].CreatedAt.Equal(c1Created) {
		t.Errorf("surviving element lost its CreatedAt: %v", stored[0].CreatedAt)
	}
	if !stored[0].UpdatedAt.After(c1Created) {
		t.Errorf("surviving element UpdatedAt not refreshed: %v", stored[0].UpdatedAt)
	}
	if !stored[1].CreatedAt.After(c1Created) {
		t.Errorf("new element should have a fresh CreatedAt: %v", stored[1].CreatedAt)
	}
}

func TestLessons_KeyedByBookAndChapter(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	if err := st.PutLessons(ctx, "b1", "c1", []Lesson{{ID: "l1", Title: "Hiragana"}}); err != nil {
		t.Fatalf("PutLessons failed: %v", err)
	}
	if err := st.PutLessons(ctx, "b1", "c2", []Lesson{{ID: "l1", Title: "Katakana"}}); err != nil {
		t.Fatalf("PutLessons failed: %v", err)
	}

	got, err := st.GetLessons(ctx, "b1", "c2")
	if err != nil {
		t.Fatalf("GetLessons failed: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Katakana" {
		t.Errorf("wrong record for (b1, c2): %+v", got)
	}

	byBook, err := st.ListLessonRecordsByBook(ctx, "b1")
	if err != nil {
		t.Fatalf("ListLessonRecordsByBook failed: %v", err)
	}
	if len(byBook) != 2 {
		t.Errorf("expected 2 lesson records, got %d", len(byBook))
	}
}

func TestListBooksByCategory(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	for _, b := range []*Book{
		{ID: "b1", Level: "n5", Title: "Core 1", Category: "Core"},
		{ID: "b2", Level: "n5", Title: "Core 2", Category: "Core"},
		{ID: "b3", Level: "n5", Title: "Kanji 1", Category: "Kanji"},
		{ID: "b4", Level: "n4", Title: "Core 1", Category: "Core"},
	} {
		if err := st.PutBook(ctx, b); err != nil {
			t.Fatalf("PutBook failed: %v", err)
		}
	}

	got, err := st.ListBooksByCategory(ctx, "n5", "Core")
	if err != nil {
		t.Fatalf("ListBooksByCategory failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 books, got %d", len(got))
	}
}

func TestFindBook_ScansLevels(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	if err := st.PutBook(ctx, &Book{ID: "b9", Level: "n3", Title: "Reading"}); err != nil {
		t.Fatalf("PutBook failed: %v", err)
	}

	got, err := st.FindBook(ctx, "b9")
	if err != nil {
		t.Fatalf("FindBook failed: %v", err)
	}
	if got == nil || got.Level != "n3" {
		t.Errorf("FindBook: %+v", got)
	}
}

func TestExams_YearListing(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	for _, ex := range []*Exam{
		{ID: "e1", Level: "n2", Year: 2023, Date: "2023-07-02"},
		{ID: "e2", Level: "n2", Year: 2023, Date: "2023-12-03"},
		{ID: "e3", Level: "n2", Year: 2024, Date: "2024-07-07"},
	} {
		if err := st.PutExam(ctx, ex); err != nil {
			t.Fatalf("PutExam failed: %v", err)
		}
	}

	got, err := st.ListExamsByYear(ctx, "n2", 2023)
	if err != nil {
		t.Fatalf("ListExamsByYear failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 exams for 2023, got %d", len(got))
	}

	all, err := st.ListExams(ctx, "n2")
	if err != nil {
		t.Fatalf("ListExams failed: %v", err)
	}
	if len(all) != 3 || all[0].Year != 2024 {
		t.Errorf("ListExams order: %+v", all)
	}
}

func TestAddReview_GeneratesID(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	r := &Review{CardID: "card1", UserID: "u1", Rating: 3}
	if err := st.AddReview(ctx, r); err != nil {
		t.Fatalf("AddReview failed: %v", err)
	}
	if r.ID == "" {
		t.Error("review id was not generated")
	}
	if r.ReviewedAt.IsZero() {
		t.Error("ReviewedAt was not defaulted")
	}

	got, err := st.ListReviewsByCard(ctx, "card1", "u1")
	if err != nil {
		t.Fatalf("ListReviewsByCard failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 review, got %d", len(got))
	}
}

func TestInfo_ReportsCounts(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	if err := st.PutLevel(ctx, &Level{ID: "n5", Name: "N5"}); err != nil {
		t.Fatalf("PutLevel failed: %v", err)
	}
	if err := st.PutBook(ctx, &Book{ID: "b1", Level: "n5", Title: "Core 1"}); err != nil {
		t.Fatalf("PutBook failed: %v", err)
	}

	info := st.Info(ctx)
	if info.StorageKind != "sqlite" {
		t.Errorf("StorageKind: %q", info.StorageKind)
	}
	if info.ItemCount != 2 {
		t.Errorf("ItemCount: %d", info.ItemCount)
	}
	if info.TotalSize <= 0 {
		t.Errorf("TotalSize: %d", info.TotalSize)
	}
	if len(info.PerStore) != len(storeTables) {
		t.Errorf("PerStore entries: %d", len(info.PerStore))
	}
}

type chanMirror struct {
	pushes chan MirrorWrite
}

func (m *chanMirror) Push(_ context.Context, w MirrorWrite) error {
	m.pushes <- w
	return nil
}

func TestMirror_PushesTokenBearingWrites(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	mirror := &chanMirror{pushes: make(chan MirrorWrite, 4)}

	st, err := Open(dbPath, WithMirror(mirror))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	// No token: the write stays local.
	if err := st.PutLevel(context.Background(), &Level{ID: "n5", Name: "N5"}); err != nil {
		t.Fatalf("PutLevel failed: %v", err)
	}
	select {
	case w := <-mirror.pushes:
		t.Fatalf("unexpected mirror push without token: %+v", w)
	case <-time.After(50 * time.Millisecond):
	}

	ctx := auth.WithToken(context.Background(), "test-token")
	ctx = auth.WithUserID(ctx, "u1")
	if err := st.PutLevel(ctx, &Level{ID: "n4", Name: "N4"}); err != nil {
		t.Fatalf("PutLevel failed: %v", err)
	}
	select {
	case w := <-mirror.pushes:
		if w.Store != "levels" || w.Key != "n4" || w.Token != "test-token" || w.Delete {
			t.Errorf("unexpected push: %+v", w)
		}
		if w.UserID != "u1" {
			t.Errorf("push missing verified subject: %+v", w)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a mirror push for the token-bearing write")
	}

	if err := st.DeleteLevel(ctx, "n4"); err != nil {
		t.Fatalf("DeleteLevel failed: %v", err)
	}
	select {
	case w := <-mirror.pushes:
		if !w.Delete || w.Key != "n4" {
			t.Errorf("unexpected delete push: %+v", w)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a mirror push for the delete")
	}
}

func TestDegraded(t *testing.T) {
	st := NewDegraded()
	ctx := context.Background()

	if err := st.PutBook(ctx, &Book{ID: "b1", Level: "n5"}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if got, err := st.GetBook(ctx, "n5", "b1"); err != nil || got != nil {
		t.Errorf("degraded read should be empty, got %v, err %v", got, err)
	}
	if books, err := st.ListBooks(ctx, "n5"); err != nil || len(books) != 0 {
		t.Errorf("degraded list should be empty: %v, %v", books, err)
	}
	info := st.Info(ctx)
	if info.ItemCount != 0 || info.StorageKind != "unavailable" {
		t.Errorf("degraded info: %+v", info)
	}
	if err := st.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
