// Package runmeta collects the identity of a benchmark run: which machine
// produced it, on which branch and commit, and when. The (hostname, branch)
// pair is the key every stored history is filed under.
package runmeta

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

const cpuinfoPath = "/proc/cpuinfo"

// Meta identifies a single benchmark run.
type Meta struct {
	Hostname string
	Branch   string
	Commit   string
	CPU      string
	Date     time.Time
}

// Collect gathers run metadata from git and the local machine. hostname
// overrides the machine name when non-empty (CI runners usually want a
// stable configured name rather than an ephemeral pod hostname).
func Collect(hostname string) (*Meta, error) {
	m := &Meta{Hostname: hostname, Date: time.Now()}

	if m.Hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("runmeta: hostname: %w", err)
		}
		m.Hostname = h
	}

	branch, err := gitOutput("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("runmeta: resolving branch: %w", err)
	}
	m.Branch = branch

	commit, err := gitOutput("rev-parse", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("runmeta: resolving commit: %w", err)
	}
	m.Commit = commit

	return m, nil
}

func gitOutput(args ...string) (string, error) {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return "", fmt.Errorf("git %s: %v: %s", strings.Join(args, " "), err, ee.Stderr)
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Description returns the history key for this run, {hostname}_{branch}.
func (m *Meta) Description() string {
	return m.Hostname + "_" + m.Branch
}

// BaselineDescription returns the history key of the baseline branch on
// the same machine, typically {hostname}_master.
func (m *Meta) BaselineDescription(baseline string) string {
	return m.Hostname + "_" + baseline
}

// ShortCommit returns a truncated commit hash for banners and subjects.
func (m *Meta) ShortCommit() string {
	if len(m.Commit) > 12 {
		return m.Commit[:12]
	}
	return m.Commit
}

// Banner renders a boxed section header for the plaintext meta report.
func Banner(title string) string {
	const width = 76
	if len(title) > width {
		title = title[:width]
	}
	line := strings.Repeat("=", width+2)
	left := (width - len(title)) / 2
	right := width - len(title) - left
	return fmt.Sprintf("\n%s\n|%s%s%s|\n%s\n\n",
		line, strings.Repeat(" ", left), title, strings.Repeat(" ", right), line)
}

// Report renders the plaintext meta_data.txt stored alongside the results:
// run identity, any preamble warnings from the result file, and the full
// CPU info of the machine.
func (m *Meta) Report(warnings []string) string {
	var b strings.Builder

	b.WriteString(Banner(fmt.Sprintf("%s, %s, %s", m.Hostname, m.Branch, m.ShortCommit())))
	fmt.Fprintf(&b, "    Date:               %s\n", m.Date.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "    Benchmark Machine:  %s\n", m.Hostname)
	fmt.Fprintf(&b, "    CPU:                %s\n", m.CPU)
	fmt.Fprintf(&b, "    Branch:             %s\n", m.Branch)
	fmt.Fprintf(&b, "    Full commit hash:   %s\n", m.Commit)

	b.WriteString("\nWarnings:\n")
	for _, w := range warnings {
		fmt.Fprintf(&b, "    %s\n", w)
	}

	b.WriteString(Banner("CPU INFO"))
	if cpuinfo, err := os.ReadFile(cpuinfoPath); err == nil {
		b.Write(cpuinfo)
	}

	return b.String()
}
