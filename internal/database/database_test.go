package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// setupTestDB creates a migrated catalog in a temp directory.
func setupTestDB(t testing.TB) *Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newResource(path string) Resource {
	return Resource{
		ResourceName: LocalResourceName,
		FilePath:     path,
		FileName:     filepath.Base(path),
		FileExt:      filepath.Ext(path),
		FileType:     "image",
		IsLandscape:  -1,
	}
}

// seed inserts resources and returns them with ids assigned.
func seed(t *testing.T, db *Database, list ...Resource) []Resource {
	t.Helper()

	out := make([]Resource, len(list))
	for i, r := range list {
		got, created, err := db.InsertResource(context.Background(), r)
		if err != nil {
			t.Fatalf("InsertResource(%s) error = %v", r.FilePath, err)
		}
		if !created {
			t.Fatalf("InsertResource(%s) created = false", r.FilePath)
		}
		out[i] = got
	}
	return out
}

func TestNewDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopening must find migrations already applied.
	db, err = New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()
}

func TestNewDatabaseBadDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing", "dir", "catalog.db")
	if _, err := New(context.Background(), dbPath); err == nil {
		t.Error("expected error for missing parent directory")
	}
}

func TestInsertResourcesIgnore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	batch := []Resource{newResource("/w/a.jpg"), newResource("/w/b.jpg"), newResource("/w/c.jpg")}

	n, err := db.InsertResourcesIgnore(ctx, batch)
	if err != nil {
		t.Fatalf("InsertResourcesIgnore() error = %v", err)
	}
	if n != 3 {
		t.Errorf("inserted = %d, want 3", n)
	}

	n, err = db.InsertResourcesIgnore(ctx, batch)
	if err != nil {
		t.Fatalf("second InsertResourcesIgnore() error = %v", err)
	}
	if n != 0 {
		t.Errorf("repeat inserted = %d, want 0", n)
	}

	total, err := db.CountResources(ctx, LocalResourceName)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Errorf("CountResources = %d, want 3", total)
	}

	if n, err := db.InsertResourcesIgnore(ctx, nil); err != nil || n != 0 {
		t.Errorf("empty insert = (%d, %v), want (0, nil)", n, err)
	}
}

func TestApplyScanUpdatesModifiedRows(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	old := newResource("/w/a.jpg")
	old.Width, old.Height, old.Quality, old.IsLandscape, old.MtimeMs, old.FileSize = 3840, 2160, "4K", 1, 1000, 10
	rows := seed(t, db, old)

	changed := rows[0]
	changed.MtimeMs, changed.FileSize = 2000, 20
	changed.Width, changed.Height, changed.Quality, changed.IsLandscape = 0, 0, "", -1

	inserted, updated, err := db.ApplyScan(ctx, []Resource{newResource("/w/b.jpg")}, []Resource{changed})
	if err != nil {
		t.Fatalf("ApplyScan() error = %v", err)
	}
	if inserted != 1 || updated != 1 {
		t.Errorf("ApplyScan() = (%d, %d), want (1, 1)", inserted, updated)
	}

	got, err := db.GetResource(ctx, rows[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.MtimeMs != 2000 || got.FileSize != 20 {
		t.Errorf("file fields not refreshed: mtime %d size %d", got.MtimeMs, got.FileSize)
	}
	if got.Width != 0 || got.Quality != "" || got.IsLandscape != -1 {
		t.Errorf("stale metrics kept: %+v", got)
	}

	items, err := db.ListUnscored(ctx, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Errorf("unscored = %d, want the modified row and the new one", len(items))
	}

	if i, u, err := db.ApplyScan(ctx, nil, nil); err != nil || i != 0 || u != 0 {
		t.Errorf("empty ApplyScan() = (%d, %d, %v)", i, u, err)
	}
}

func TestInsertResourceReturnsExistingOnConflict(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := seed(t, db, newResource("/w/a.jpg"))[0]

	dup := newResource("/w/a.jpg")
	dup.Title = "other"
	got, created, err := db.InsertResource(ctx, dup)
	if err != nil {
		t.Fatalf("InsertResource() error = %v", err)
	}
	if created {
		t.Error("created = true for duplicate path")
	}
	if got.ID != first.ID {
		t.Errorf("ID = %d, want existing %d", got.ID, first.ID)
	}
	if got.Title != "" {
		t.Errorf("existing row was modified: title %q", got.Title)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if IsUniqueViolation(errors.New("plain")) {
		t.Error("plain error reported as unique violation")
	}
	if IsUniqueViolation(nil) {
		t.Error("nil reported as unique violation")
	}
}

func TestGetResource(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	r := newResource("/w/a.jpg")
	r.Author = "someone"
	r.Width, r.Height, r.Quality, r.IsLandscape = 3840, 2160, "4K", 1
	saved := seed(t, db, r)[0]

	got, err := db.GetResource(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetResource() error = %v", err)
	}
	if got.FilePath != r.FilePath || got.Author != "someone" || got.Quality != "4K" || got.IsLandscape != 1 {
		t.Errorf("GetResource() = %+v", got)
	}
	if got.CreatedAt == 0 || got.UpdatedAt == 0 {
		t.Error("record timestamps not set")
	}

	if _, err := db.GetResource(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetResource(missing) error = %v, want ErrNotFound", err)
	}
}

func TestKnownFiles(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := newResource("/w/a.jpg")
	a.MtimeMs = 111
	remote := newResource("/d/remote.jpg")
	remote.ResourceName = "unsplash"
	seed(t, db, a, remote)

	known, err := db.KnownFiles(ctx, LocalResourceName)
	if err != nil {
		t.Fatalf("KnownFiles() error = %v", err)
	}
	if len(known) != 1 {
		t.Fatalf("len(known) = %d, want 1", len(known))
	}
	if known[0].FilePath != "/w/a.jpg" || known[0].MtimeMs != 111 {
		t.Errorf("known[0] = %+v", known[0])
	}
}

func TestUnscoredBackfill(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	scored := newResource("/w/scored.jpg")
	scored.Width, scored.Height, scored.IsLandscape = 800, 600, 1
	video := newResource("/w/clip.mp4")
	video.FileType = "video"
	rows := seed(t, db, newResource("/w/a.jpg"), newResource("/w/b.jpg"), scored, video)

	items, err := db.ListUnscored(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListUnscored() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}

	updated, err := db.UpdateMetrics(ctx, []MetricsUpdate{
		{ID: rows[0].ID, Quality: "4K", Width: 3840, Height: 2160, IsLandscape: 1},
		{ID: rows[1].ID, Quality: "", Width: 640, Height: 480, IsLandscape: 1},
	})
	if err != nil {
		t.Fatalf("UpdateMetrics() error = %v", err)
	}
	if updated != 2 {
		t.Errorf("updated = %d, want 2", updated)
	}

	items, err = db.ListUnscored(ctx, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("after backfill len(items) = %d, want 0 (below-2K images count as scored)", len(items))
	}

	got, _ := db.GetResource(ctx, rows[0].ID)
	if got.Quality != "4K" || got.Width != 3840 {
		t.Errorf("metrics not stored: %+v", got)
	}
}

func TestDeleteResourceCascades(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	rows := seed(t, db, newResource("/w/a.jpg"), newResource("/w/b.jpg"))
	id := rows[0].ID

	if err := db.AddFavorite(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := db.AddPrivacy(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := db.AppendHistory(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := db.AppendHistory(ctx, rows[1].ID); err != nil {
		t.Fatal(err)
	}

	deleted, err := db.DeleteResource(ctx, id)
	if err != nil {
		t.Fatalf("DeleteResource() error = %v", err)
	}
	if deleted.FilePath != "/w/a.jpg" {
		t.Errorf("deleted = %+v", deleted)
	}

	stats, err := db.CalculateStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalFavorites != 0 || stats.TotalPrivacy != 0 || stats.TotalHistory != 1 {
		t.Errorf("join rows survived delete: %+v", stats)
	}

	for _, scope := range []Scope{ScopeResources, ScopeFavorites, ScopeHistory, ScopePrivacy} {
		res, err := db.Search(ctx, scope, Filters{}, Page{})
		if err != nil {
			t.Fatal(err)
		}
		for _, r := range res.List {
			if r.ID == id {
				t.Errorf("deleted resource visible in scope %s", scope)
			}
		}
	}

	if _, err := db.DeleteResource(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestFavorites(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	id := seed(t, db, newResource("/w/a.jpg"))[0].ID

	for i := 0; i < 3; i++ {
		if err := db.AddFavorite(ctx, id); err != nil {
			t.Fatalf("AddFavorite() error = %v", err)
		}
	}
	if n, _ := db.FavoriteCount(ctx, id); n != 3 {
		t.Errorf("FavoriteCount = %d, want 3", n)
	}
	stats, _ := db.CalculateStats(ctx)
	if stats.TotalFavorites != 1 {
		t.Errorf("favorite rows = %d, want 1", stats.TotalFavorites)
	}

	on, err := db.ToggleFavorite(ctx, id)
	if err != nil || on {
		t.Errorf("ToggleFavorite() = (%v, %v), want (false, nil)", on, err)
	}
	on, err = db.ToggleFavorite(ctx, id)
	if err != nil || !on {
		t.Errorf("ToggleFavorite() = (%v, %v), want (true, nil)", on, err)
	}
	if fav, _ := db.IsFavorite(ctx, id); !fav {
		t.Error("IsFavorite = false after toggle on")
	}

	removed, err := db.RemoveFavorite(ctx, id)
	if err != nil || !removed {
		t.Errorf("RemoveFavorite() = (%v, %v)", removed, err)
	}
	removed, _ = db.RemoveFavorite(ctx, id)
	if removed {
		t.Error("RemoveFavorite() on non-favorite reported removal")
	}

	if err := db.AddFavorite(ctx, 4242); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddFavorite(missing) error = %v, want ErrNotFound", err)
	}
}

func TestPrivacyInvisibility(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	remote := newResource("/d/r.jpg")
	remote.ResourceName = "bing"
	rows := seed(t, db, newResource("/w/a.jpg"), newResource("/w/b.jpg"), remote)
	hidden := rows[0].ID
	hiddenRemote := rows[2].ID

	for _, id := range []int64{hidden, hiddenRemote} {
		if err := db.AddFavorite(ctx, id); err != nil {
			t.Fatal(err)
		}
		if err := db.AddPrivacy(ctx, id); err != nil {
			t.Fatal(err)
		}
		if err := db.AppendHistory(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	contains := func(scope Scope, id int64) bool {
		t.Helper()
		res, err := db.Search(ctx, scope, Filters{}, Page{})
		if err != nil {
			t.Fatalf("Search(%s) error = %v", scope, err)
		}
		for _, r := range res.List {
			if r.ID == id {
				return true
			}
		}
		return false
	}

	for _, scope := range []Scope{ScopeResources, ScopeFavorites, "bing"} {
		if contains(scope, hidden) || contains(scope, hiddenRemote) {
			t.Errorf("privacy resource visible in scope %s", scope)
		}
	}
	for _, scope := range []Scope{ScopePrivacy, ScopeHistory} {
		if !contains(scope, hidden) || !contains(scope, hiddenRemote) {
			t.Errorf("privacy resource missing from scope %s", scope)
		}
	}

	n, err := db.CountCandidates(ctx, ScopeResources, Filters{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("CountCandidates(resources) = %d, want 1", n)
	}

	if private, _ := db.TogglePrivacy(ctx, hidden); private {
		t.Error("TogglePrivacy should clear the mark")
	}
	if !contains(ScopeResources, hidden) {
		t.Error("resource still hidden after privacy cleared")
	}
	if ok, _ := db.IsPrivate(ctx, hiddenRemote); !ok {
		t.Error("IsPrivate = false for marked resource")
	}
	if removed, _ := db.RemovePrivacy(ctx, hiddenRemote); !removed {
		t.Error("RemovePrivacy reported no removal")
	}
}

func TestHistory(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	rows := seed(t, db, newResource("/w/a.jpg"), newResource("/w/b.jpg"), newResource("/w/c.jpg"))

	if _, ok, err := db.LastHistory(ctx); err != nil || ok {
		t.Errorf("LastHistory on empty = (%v, %v)", ok, err)
	}

	for _, r := range rows {
		if err := db.AppendHistory(ctx, r.ID); err != nil {
			t.Fatal(err)
		}
	}

	last, ok, err := db.LastHistory(ctx)
	if err != nil || !ok || last.ResourceID != rows[2].ID {
		t.Errorf("LastHistory = (%+v, %v, %v)", last, ok, err)
	}

	ids, err := db.RecentHistoryIDs(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != rows[2].ID || ids[1] != rows[1].ID {
		t.Errorf("RecentHistoryIDs = %v", ids)
	}

	if n, _ := db.CountHistory(ctx); n != 3 {
		t.Errorf("CountHistory = %d, want 3", n)
	}

	for i, want := range []int64{rows[2].ID, rows[1].ID, rows[0].ID} {
		got, err := db.HistoryAt(ctx, i)
		if err != nil {
			t.Fatalf("HistoryAt(%d) error = %v", i, err)
		}
		if got.ID != want {
			t.Errorf("HistoryAt(%d) = %d, want %d", i, got.ID, want)
		}
	}
	if _, err := db.HistoryAt(ctx, 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("HistoryAt(3) error = %v, want ErrNotFound", err)
	}

	list, err := db.ListHistory(ctx, 10)
	if err != nil || len(list) != 3 {
		t.Errorf("ListHistory = (%d rows, %v)", len(list), err)
	}

	if err := db.AppendHistory(ctx, 777); !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendHistory(missing) error = %v, want ErrNotFound", err)
	}
}

func TestListExpiredDownloads(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	old := newResource("/d/old.jpg")
	old.ResourceName, old.CreatedAt = "bing", 1000
	oldFav := newResource("/d/fav.jpg")
	oldFav.ResourceName, oldFav.CreatedAt = "bing", 1000
	fresh := newResource("/d/new.jpg")
	fresh.ResourceName, fresh.CreatedAt = "bing", 5000
	local := newResource("/w/local.jpg")
	local.CreatedAt = 1000

	rows := seed(t, db, old, oldFav, fresh, local)
	if err := db.AddFavorite(ctx, rows[1].ID); err != nil {
		t.Fatal(err)
	}

	list, err := db.ListExpiredDownloads(ctx, 2000, 10)
	if err != nil {
		t.Fatalf("ListExpiredDownloads() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != rows[0].ID {
		t.Errorf("expired = %+v, want only %d", list, rows[0].ID)
	}
}
