package scanner

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestNormalizeFolders(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "duplicates and trailing slashes",
			in:   []string{"/walls", "/walls/", "/walls/./"},
			want: []string{"/walls"},
		},
		{
			name: "nested folder dropped",
			in:   []string{"/walls/nature/mountains", "/walls", "/other"},
			want: []string{"/other", "/walls"},
		},
		{
			name: "sibling with shared prefix kept",
			in:   []string{"/walls", "/walls2"},
			want: []string{"/walls2", "/walls"},
		},
		{
			name: "sorted by length descending",
			in:   []string{"/a", "/ccc", "/bb"},
			want: []string{"/ccc", "/bb", "/a"},
		},
		{
			name: "root covers everything",
			in:   []string{"/", "/walls"},
			want: []string{"/"},
		},
		{
			name: "blank entries ignored",
			in:   []string{"", "  ", "/walls"},
			want: []string{"/walls"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeFolders(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeFolders(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeFoldersRelative(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	got := NormalizeFolders([]string{"testdata/../walls"})
	want := []string{filepath.Join(wd, "walls")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeFolders(relative) = %v, want %v", got, want)
	}
}

func TestExistingFolders(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	writeFile(t, file)

	got := ExistingFolders([]string{dir, filepath.Join(dir, "missing"), file})
	if !reflect.DeepEqual(got, []string{dir}) {
		t.Errorf("ExistingFolders() = %v, want [%s]", got, dir)
	}
}
