package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/xxxsen/deephash/internal/algo"
	"github.com/xxxsen/deephash/internal/audit"
	"github.com/xxxsen/deephash/internal/hashlist"
)

const programName = "deephash"

// display renders results to the output stream. It is only used from the
// consumer goroutine.
type display struct {
	w    io.Writer
	reg  *algo.Registry
	ids  []algo.ID
	opts *Options
}

func (d *display) banner(argv []string, cwd string, root bool) {
	for _, line := range hashlist.HeaderLines(d.reg, d.ids) {
		fmt.Fprintln(d.w, line)
	}
	fmt.Fprintf(d.w, "## Invoked from: %s\n", cwd)
	prompt := "$"
	if root {
		prompt = "#"
	}
	fmt.Fprintf(d.w, "## %s %s\n", prompt, strings.Join(argv, " "))
	fmt.Fprintln(d.w, "## ")
}

func (d *display) record(rec *hashlist.FileRecord) {
	fmt.Fprintln(d.w, hashlist.FormatRecord(rec, d.ids))
}

func (d *display) match(rec, known *hashlist.FileRecord) {
	line := rec.Name
	if d.opts.FullLine {
		line = hashlist.FormatRecord(rec, d.ids)
	}
	if d.opts.ShowKnown && known != nil {
		line += " matches " + known.Name
	}
	fmt.Fprintln(d.w, line)
}

func (d *display) audit(st audit.Stats, unused []*hashlist.FileRecord) {
	passed := st.Passed()
	if passed {
		fmt.Fprintf(d.w, "%s: Audit passed\n", programName)
	} else {
		fmt.Fprintf(d.w, "%s: Audit failed\n", programName)
	}
	if !passed || d.opts.Verbose > 0 {
		fmt.Fprintf(d.w, "          Files matched: %d\n", st.Exact)
		fmt.Fprintf(d.w, "Files partially matched: %d\n", st.Partial)
		fmt.Fprintf(d.w, "            Files moved: %d\n", st.Moved)
		fmt.Fprintf(d.w, "  Known files not found: %d\n", st.Unused)
		fmt.Fprintf(d.w, "        New files found: %d\n", st.Unknown)
		if st.SizeMismatch > 0 {
			fmt.Fprintf(d.w, "    Files size mismatch: %d\n", st.SizeMismatch)
		}
		fmt.Fprintf(d.w, "   Total files examined: %d\n", st.Total)
	}
	if d.opts.Verbose >= 3 {
		for _, rec := range unused {
			fmt.Fprintf(d.w, "%s: Known file not used\n", rec.Name)
		}
	}
}
