package database

import (
	"context"
	"errors"
	"testing"
)

func TestSearchFilters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mountain := newResource("/w/nature/mountain.jpg")
	mountain.Quality, mountain.Width, mountain.Height, mountain.IsLandscape = "4K", 3840, 2160, 1
	city := newResource("/w/city/night.jpg")
	city.Title = "Mountain town"
	city.Quality, city.Width, city.Height, city.IsLandscape = "2K", 1440, 2560, 0
	beach := newResource("/w/beach.png")
	beach.Desc = "sunset_50%"
	beach.Quality, beach.Width, beach.Height, beach.IsLandscape = "8K", 7680, 4320, 1
	seed(t, db, mountain, city, beach)

	tests := []struct {
		name    string
		filters Filters
		want    int
	}{
		{"no filters", Filters{}, 3},
		{"keyword in path or title", Filters{Keywords: []string{"mountain"}}, 2},
		{"keywords are OR-combined", Filters{Keywords: []string{"night", "beach"}}, 2},
		{"blank keyword ignored", Filters{Keywords: []string{"  "}}, 3},
		{"like wildcards are literal", Filters{Keywords: []string{"_50%"}}, 1},
		{"underscore does not match any char", Filters{Keywords: []string{"m_untain"}}, 0},
		{"quality set", Filters{Qualities: []string{"4K", "8K"}}, 2},
		{"landscape", Filters{Orientation: OrientationLandscape}, 2},
		{"portrait", Filters{Orientation: OrientationPortrait}, 1},
		{"combined", Filters{Keywords: []string{"mountain"}, Orientation: OrientationPortrait}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := db.Search(ctx, ScopeResources, tt.filters, Page{})
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if res.Total != tt.want || len(res.List) != tt.want {
				t.Errorf("Search() total = %d, len = %d, want %d", res.Total, len(res.List), tt.want)
			}
		})
	}
}

func TestSearchPagination(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i, p := range []string{"/w/1.jpg", "/w/2.jpg", "/w/3.jpg", "/w/4.jpg", "/w/5.jpg"} {
		r := newResource(p)
		r.CreatedAt = int64(100 + i)
		seed(t, db, r)
	}

	res, err := db.Search(ctx, ScopeResources, Filters{}, Page{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 5 || len(res.List) != 2 {
		t.Fatalf("page 2: total %d len %d", res.Total, len(res.List))
	}
	// Default order is newest first.
	if res.List[0].FilePath != "/w/3.jpg" {
		t.Errorf("page 2 first = %s, want /w/3.jpg", res.List[0].FilePath)
	}

	res, err = db.Search(ctx, ScopeResources, Filters{}, Page{Page: 1, PageSize: 2, SortField: "file_name"})
	if err != nil {
		t.Fatal(err)
	}
	if res.List[0].FilePath != "/w/1.jpg" {
		t.Errorf("file_name asc first = %s, want /w/1.jpg", res.List[0].FilePath)
	}

	res, err = db.Search(ctx, "nobody", Filters{}, Page{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 0 || res.List == nil {
		t.Errorf("empty scope should return empty non-nil list, got %+v", res)
	}
}

func TestSelectionQueries(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var rows []Resource
	for i, p := range []string{"/w/r1.jpg", "/w/r2.jpg", "/w/r3.jpg", "/w/r4.jpg", "/w/r5.jpg"} {
		r := newResource(p)
		r.CreatedAt = int64(1000 * (i + 1))
		rows = append(rows, seed(t, db, r)...)
	}
	// A tie with r3 on created_at, larger id.
	tie := newResource("/w/r3b.jpg")
	tie.CreatedAt = rows[2].CreatedAt
	tieRow := seed(t, db, tie)[0]

	desc := Order{Field: "created_at", Desc: true}
	asc := Order{Field: "created_at"}

	key, ok, err := db.SortKeyOf(ctx, ScopeResources, desc, rows[2].ID)
	if err != nil || !ok {
		t.Fatalf("SortKeyOf = (%v, %v, %v)", key, ok, err)
	}

	next, err := db.NextInOrder(ctx, ScopeResources, Filters{}, nil, desc, key, rows[2].ID)
	if err != nil {
		t.Fatal(err)
	}
	if next.ID != tieRow.ID {
		t.Errorf("desc after r3 = %s, want tie r3b", next.FilePath)
	}

	key, _, _ = db.SortKeyOf(ctx, ScopeResources, desc, tieRow.ID)
	next, err = db.NextInOrder(ctx, ScopeResources, Filters{}, nil, desc, key, tieRow.ID)
	if err != nil {
		t.Fatal(err)
	}
	if next.ID != rows[1].ID {
		t.Errorf("desc after r3b = %s, want r2", next.FilePath)
	}

	next, err = db.NextInOrder(ctx, ScopeResources, Filters{}, []int64{rows[1].ID}, desc, key, tieRow.ID)
	if err != nil {
		t.Fatal(err)
	}
	if next.ID != rows[0].ID {
		t.Errorf("desc after r3b excluding r2 = %s, want r1", next.FilePath)
	}

	key, _, _ = db.SortKeyOf(ctx, ScopeResources, desc, rows[0].ID)
	if _, err := db.NextInOrder(ctx, ScopeResources, Filters{}, nil, desc, key, rows[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("desc after r1 error = %v, want ErrNotFound", err)
	}

	first, err := db.FirstInOrder(ctx, ScopeResources, Filters{}, nil, desc)
	if err != nil || first.ID != rows[4].ID {
		t.Errorf("FirstInOrder desc = (%s, %v), want r5", first.FilePath, err)
	}
	first, err = db.FirstInOrder(ctx, ScopeResources, Filters{}, []int64{rows[0].ID}, asc)
	if err != nil || first.ID != rows[1].ID {
		t.Errorf("FirstInOrder asc excluding r1 = (%s, %v), want r2", first.FilePath, err)
	}

	n, err := db.CountCandidates(ctx, ScopeResources, Filters{}, []int64{rows[0].ID, rows[1].ID})
	if err != nil || n != 4 {
		t.Errorf("CountCandidates = (%d, %v), want 4", n, err)
	}
	r, err := db.RandomCandidate(ctx, ScopeResources, Filters{}, []int64{rows[0].ID}, 0)
	if err != nil || r.ID != rows[1].ID {
		t.Errorf("RandomCandidate(offset 0) = (%d, %v), want %d", r.ID, err, rows[1].ID)
	}
	if _, err := db.RandomCandidate(ctx, ScopeResources, Filters{}, nil, 100); !errors.Is(err, ErrNotFound) {
		t.Errorf("RandomCandidate(out of range) error = %v", err)
	}
}

func TestSortKeyOfFavoritesScope(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	rows := seed(t, db, newResource("/w/a.jpg"), newResource("/w/b.jpg"))
	if err := db.AddFavorite(ctx, rows[0].ID); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := db.SortKeyOf(ctx, ScopeFavorites, Order{Field: "file_size"}, rows[0].ID); err != nil || !ok {
		t.Errorf("favorite key unresolved: ok=%v err=%v", ok, err)
	}
	if _, ok, err := db.SortKeyOf(ctx, ScopeFavorites, Order{}, rows[1].ID); err != nil || ok {
		t.Errorf("non-favorite resolved in favorites scope: ok=%v err=%v", ok, err)
	}
}

func TestSortKeyOfTextField(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	rows := seed(t, db, newResource("/w/a.jpg"), newResource("/w/b.jpg"), newResource("/w/c.jpg"))
	o := Order{Field: "file_name"}

	key, ok, err := db.SortKeyOf(ctx, ScopeResources, o, rows[0].ID)
	if err != nil || !ok {
		t.Fatalf("SortKeyOf = (%v, %v, %v)", key, ok, err)
	}
	if _, isString := key.(string); !isString {
		t.Errorf("text key type = %T, want string", key)
	}

	next, err := db.NextInOrder(ctx, ScopeResources, Filters{}, nil, o, key, rows[0].ID)
	if err != nil || next.ID != rows[1].ID {
		t.Errorf("file_name after a.jpg = (%s, %v), want b.jpg", next.FilePath, err)
	}
}

func TestValidSortField(t *testing.T) {
	for _, f := range []string{"created_at", "mtime_ms", "file_size", "file_name", "id"} {
		if !ValidSortField(f) {
			t.Errorf("ValidSortField(%q) = false", f)
		}
	}
	for _, f := range []string{"", "DROP TABLE", "r.id"} {
		if ValidSortField(f) {
			t.Errorf("ValidSortField(%q) = true", f)
		}
	}
}

func TestScopeIsTag(t *testing.T) {
	tests := map[Scope]bool{
		ScopeResources: false,
		ScopeFavorites: false,
		ScopeHistory:   false,
		ScopePrivacy:   false,
		"":             false,
		"unsplash":     true,
	}
	for scope, want := range tests {
		if got := scope.IsTag(); got != want {
			t.Errorf("Scope(%q).IsTag() = %v, want %v", scope, got, want)
		}
	}
}
