package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"wallswitch/internal/database"
	"wallswitch/internal/indexer"
	"wallswitch/internal/selection"
	"wallswitch/internal/startup"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// printer writes command results as aligned text on a terminal and as JSON
// when output is piped or --json is given.
type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(cmd *cobra.Command) printer {
	forced, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()
	return printer{w: out, json: forced || !isTerminal(out)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p printer) refresh(res indexer.RefreshResult) error {
	if p.json {
		return p.encode(res)
	}
	s := res.Stats
	fmt.Fprintf(p.w, "Inserted %d, updated %d resources (%d catalogued) in %v\n", res.Inserted, res.Updated, res.Total, res.Duration)
	fmt.Fprintf(p.w, "  new %d, modified %d, unchanged %d, missing %d, processed %d\n",
		s.NewFiles, s.ModifiedFiles, s.UnchangedFiles, s.MissingFiles, s.TotalProcessed)
	return nil
}

func (p printer) count(label string, n int) error {
	if p.json {
		return p.encode(map[string]int{label: n})
	}
	fmt.Fprintf(p.w, "%s %d\n", label, n)
	return nil
}

// selection prints the result and turns a failed one into an error so the
// exit status reflects it.
func (p printer) selection(res selection.Result) error {
	if p.json {
		if err := p.encode(res); err != nil {
			return err
		}
	} else if res.Success {
		fmt.Fprintf(p.w, "%d\t%s\n", res.Resource.ID, res.Resource.FilePath)
	}
	if !res.Success {
		return fmt.Errorf("no wallpaper selected: %s", res.Reason)
	}
	return nil
}

func (p printer) resources(res *database.SearchResult) error {
	if p.json {
		return p.encode(res)
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tQUALITY\tSIZE\tSOURCE\tPATH")
	for _, r := range res.List {
		fmt.Fprintf(tw, "%d\t%s\t%dx%d\t%s\t%s\n", r.ID, orDash(r.Quality), r.Width, r.Height, r.ResourceName, r.FilePath)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(p.w, "%d of %d\n", len(res.List), res.Total)
	return nil
}

func (p printer) membership(set string, id int64, member bool) error {
	if p.json {
		return p.encode(map[string]any{"id": id, set: member})
	}
	if member {
		fmt.Fprintf(p.w, "Resource %d is in %s\n", id, set)
	} else {
		fmt.Fprintf(p.w, "Resource %d is not in %s\n", id, set)
	}
	return nil
}

func (p printer) deleted(r database.Resource) error {
	if p.json {
		return p.encode(r)
	}
	fmt.Fprintf(p.w, "Deleted %d\t%s\n", r.ID, r.FilePath)
	return nil
}

func (p printer) version(info startup.BuildInfo) error {
	if p.json {
		return p.encode(info)
	}
	fmt.Fprintf(p.w, "wallctl %s (%s) built %s with %s %s/%s\n",
		info.Version, info.Commit, info.BuildTime, info.GoVersion, info.OS, info.Arch)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
