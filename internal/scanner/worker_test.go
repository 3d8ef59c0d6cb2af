package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"wallswitch/internal/database"
	"wallswitch/internal/media"
)

// runOnce starts a worker, sends one request and collects replies until a
// terminal event arrives.
func runOnce(t *testing.T, cfg Config, req Request) []Response {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	requests := make(chan Request)
	responses := make(chan Response, 4)
	done := make(chan error, 1)
	go func() { done <- NewWorker(cfg)(ctx, requests, responses) }()

	requests <- req

	var out []Response
	timeout := time.After(10 * time.Second)
	for {
		select {
		case resp := <-responses:
			out = append(out, resp)
			if resp.Event != EventRefreshProcessing {
				cancel()
				<-done
				return out
			}
		case <-timeout:
			t.Fatal("timed out waiting for worker reply")
		}
	}
}

func TestWorkerRefresh(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "a.png"), 40, 20)
	writePNG(t, filepath.Join(root, "nested", "b.png"), 20, 40)
	writePNG(t, filepath.Join(root, ".hidden", "c.png"), 10, 10)
	writePNG(t, filepath.Join(root, ".dot.png"), 10, 10)
	writeFile(t, filepath.Join(root, "notes.txt"))
	writeFile(t, filepath.Join(root, "clip.mp4"))

	replies := runOnce(t, Config{SkipHidden: true}, Request{
		Event:          EventRefreshDirectory,
		ResourceName:   database.LocalResourceName,
		FolderPaths:    []string{root, filepath.Join(root, "nested")},
		AllowedFileExt: []string{"png", "MP4"},
	})

	resp := replies[len(replies)-1]
	if resp.Event != EventRefreshSuccess {
		t.Fatalf("event = %s (%s), want success", resp.Event, resp.Reason)
	}
	if len(resp.List) != 3 {
		t.Fatalf("len(List) = %d, want 3: %+v", len(resp.List), resp.List)
	}
	if resp.Stats.NewFiles != 3 || resp.Stats.TotalProcessed != 3 {
		t.Errorf("stats = %+v", resp.Stats)
	}
	if resp.Timing.WalkEnd.Before(resp.Timing.WalkStart) {
		t.Error("walk end before walk start")
	}

	byName := map[string]database.Resource{}
	for _, r := range resp.List {
		byName[r.FileName] = r
	}
	a := byName["a.png"]
	if a.Width != 40 || a.Height != 20 || a.IsLandscape != media.OrientationLandscape || a.FileExt != "png" || a.FileType != "image" {
		t.Errorf("a.png = %+v", a)
	}
	if b := byName["b.png"]; b.IsLandscape != media.OrientationPortrait {
		t.Errorf("b.png orientation = %d, want portrait", b.IsLandscape)
	}
	clip := byName["clip.mp4"]
	if clip.FileType != "video" || clip.IsLandscape != media.OrientationUnknown || clip.Width != 0 {
		t.Errorf("clip.mp4 = %+v", clip)
	}
	if a.MtimeMs == 0 || a.ResourceName != database.LocalResourceName {
		t.Errorf("a.png provenance = %+v", a)
	}
}

func TestWorkerRefreshSkipsUnchanged(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.png")
	b := filepath.Join(root, "b.png")
	writePNG(t, a, 4, 4)
	writePNG(t, b, 4, 4)

	infoA, err := os.Stat(a)
	if err != nil {
		t.Fatal(err)
	}

	replies := runOnce(t, Config{}, Request{
		Event:          EventRefreshDirectory,
		ResourceName:   database.LocalResourceName,
		FolderPaths:    []string{root},
		AllowedFileExt: []string{".png"},
		ExistingFiles: []database.KnownFile{
			{ID: 1, FilePath: a, MtimeMs: infoA.ModTime().UnixMilli()},
			{ID: 2, FilePath: b, MtimeMs: 1},
			{ID: 3, FilePath: filepath.Join(root, "gone.png"), MtimeMs: 1},
			{ID: 4, FilePath: "/elsewhere/x.png", MtimeMs: 1},
		},
	})

	resp := replies[len(replies)-1]
	if resp.Event != EventRefreshSuccess {
		t.Fatalf("event = %s (%s)", resp.Event, resp.Reason)
	}
	want := Stats{NewFiles: 0, ModifiedFiles: 1, UnchangedFiles: 1, MissingFiles: 1, TotalProcessed: 2}
	if resp.Stats != want {
		t.Errorf("stats = %+v, want %+v", resp.Stats, want)
	}
	if len(resp.List) != 0 {
		t.Errorf("List = %+v, want no new files", resp.List)
	}
	if len(resp.Modified) != 1 || resp.Modified[0].FilePath != b || resp.Modified[0].ID != 2 {
		t.Fatalf("Modified = %+v, want b.png with ID 2", resp.Modified)
	}
	if m := resp.Modified[0]; m.Width != 4 || m.MtimeMs == 1 {
		t.Errorf("modified b.png = %+v, want fresh metrics and mtime", m)
	}
}

func TestWorkerRefreshIncludesHiddenByDefault(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "a.png"), 4, 4)
	writePNG(t, filepath.Join(root, ".b.png"), 4, 4)
	writePNG(t, filepath.Join(root, ".cache", "c.png"), 4, 4)

	replies := runOnce(t, DefaultConfig(), Request{
		Event:          EventRefreshDirectory,
		ResourceName:   database.LocalResourceName,
		FolderPaths:    []string{root},
		AllowedFileExt: []string{"png"},
	})

	resp := replies[len(replies)-1]
	if resp.Event != EventRefreshSuccess {
		t.Fatalf("event = %s (%s)", resp.Event, resp.Reason)
	}
	if len(resp.List) != 3 || resp.Stats.NewFiles != 3 {
		t.Errorf("catalogued %d file(s), stats %+v, want all 3", len(resp.List), resp.Stats)
	}
}

func TestWorkerScanAndBackfillAgree(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.png")
	writePNG(t, a, 30, 60)

	cfg := DefaultConfig()
	scan := runOnce(t, cfg, Request{
		Event:          EventRefreshDirectory,
		ResourceName:   database.LocalResourceName,
		FolderPaths:    []string{root},
		AllowedFileExt: []string{"png"},
	})
	backfill := runOnce(t, cfg, Request{
		Event: EventHandleQuality,
		Items: []database.UnscoredItem{{ID: 1, FilePath: a}},
	})

	got := scan[len(scan)-1]
	if len(got.List) != 1 || len(backfill[0].Metrics) != 1 {
		t.Fatalf("scan rows = %d, backfill rows = %d", len(got.List), len(backfill[0].Metrics))
	}
	r, m := got.List[0], backfill[0].Metrics[0]
	if r.Width != m.Width || r.Height != m.Height || r.IsLandscape != m.IsLandscape || r.Quality != m.Quality {
		t.Errorf("scan stored %dx%d/%d/%q, backfill %dx%d/%d/%q",
			r.Width, r.Height, r.IsLandscape, r.Quality, m.Width, m.Height, m.IsLandscape, m.Quality)
	}
}

func TestWorkerEchoesSeq(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "a.png"), 2, 2)

	ok := runOnce(t, Config{}, Request{
		Seq: 41, Event: EventRefreshDirectory, ResourceName: "local",
		FolderPaths: []string{root}, AllowedFileExt: []string{"png"},
	})
	fail := runOnce(t, Config{}, Request{Seq: 42, Event: EventRefreshDirectory, ResourceName: "local"})

	if got := ok[len(ok)-1]; got.Seq != 41 {
		t.Errorf("success Seq = %d, want 41", got.Seq)
	}
	if got := fail[len(fail)-1]; got.Event != EventRefreshFail || got.Seq != 42 {
		t.Errorf("fail reply = %s #%d, want fail #42", got.Event, got.Seq)
	}
}

func TestWorkerRefreshProcessingBatches(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"1.png", "2.png", "3.png", "4.png", "5.png"} {
		writePNG(t, filepath.Join(root, name), 2, 2)
	}

	replies := runOnce(t, Config{BatchThreshold: 3, ChunkSize: 2}, Request{
		Event:          EventRefreshDirectory,
		ResourceName:   database.LocalResourceName,
		FolderPaths:    []string{root},
		AllowedFileExt: []string{"png"},
	})

	if len(replies) != 2 {
		t.Fatalf("got %d replies, want processing + success", len(replies))
	}
	if replies[0].Event != EventRefreshProcessing || replies[0].TotalFiles != 5 {
		t.Errorf("first reply = %+v", replies[0])
	}
	if replies[1].Event != EventRefreshSuccess || len(replies[1].List) != 5 {
		t.Errorf("second reply = %s with %d rows", replies[1].Event, len(replies[1].List))
	}
}

func TestWorkerRefreshFailures(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "a.png"), 2, 2)

	tests := []struct {
		name string
		cfg  Config
		req  Request
	}{
		{
			name: "no existing folder",
			req: Request{Event: EventRefreshDirectory, ResourceName: "local",
				FolderPaths: []string{filepath.Join(root, "missing")}, AllowedFileExt: []string{"png"}},
		},
		{
			name: "no extensions",
			req:  Request{Event: EventRefreshDirectory, ResourceName: "local", FolderPaths: []string{root}},
		},
		{
			name: "probe panic",
			cfg: Config{Probe: func(string) (media.Metrics, error) {
				panic("decoder blew up")
			}},
			req: Request{Event: EventRefreshDirectory, ResourceName: "local",
				FolderPaths: []string{root}, AllowedFileExt: []string{"png"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replies := runOnce(t, tt.cfg, tt.req)
			resp := replies[len(replies)-1]
			if resp.Event != EventRefreshFail {
				t.Fatalf("event = %s, want fail", resp.Event)
			}
			if len(resp.List) != 0 {
				t.Errorf("fail reply carried %d rows", len(resp.List))
			}
			if resp.ResourceName != "local" {
				t.Errorf("fail reply resource = %q, want local", resp.ResourceName)
			}
		})
	}
}

func TestWorkerQuality(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.png")
	writePNG(t, a, 30, 10)

	replies := runOnce(t, Config{}, Request{
		Event: EventHandleQuality,
		Items: []database.UnscoredItem{
			{ID: 7, FilePath: a},
			{ID: 8, FilePath: filepath.Join(root, "missing.png")},
		},
	})

	resp := replies[0]
	if resp.Event != EventQualitySuccess {
		t.Fatalf("event = %s", resp.Event)
	}
	if len(resp.Metrics) != 1 {
		t.Fatalf("len(Metrics) = %d, want 1", len(resp.Metrics))
	}
	m := resp.Metrics[0]
	if m.ID != 7 || m.Width != 30 || m.Height != 10 || m.IsLandscape != 1 || m.Quality != "" {
		t.Errorf("metrics = %+v", m)
	}
}

func TestWorkerQualityPanicBecomesFail(t *testing.T) {
	cfg := Config{ProbeQuality: func(string) (media.Metrics, error) { panic("boom") }}
	replies := runOnce(t, cfg, Request{
		Event: EventHandleQuality,
		Items: []database.UnscoredItem{{ID: 1, FilePath: "/x.png"}},
	})
	if replies[0].Event != EventQualityFail {
		t.Errorf("event = %s, want quality fail", replies[0].Event)
	}
}

func TestWorkerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewWorker(Config{})(ctx, make(chan Request), make(chan Response)) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("worker returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}
