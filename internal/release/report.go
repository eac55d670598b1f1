package release

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Reporter prints what a release does, and what a dry run would have done.
type Reporter struct {
	out    io.Writer
	title  lipgloss.Style
	dry    lipgloss.Style
	added  lipgloss.Style
	muted  lipgloss.Style
	action lipgloss.Style
}

// NewReporter styles output for w. Color is only used when w is a terminal.
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		w = io.Discard
	}
	r := lipgloss.NewRenderer(w)
	return &Reporter{
		out:    w,
		title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		dry:    r.NewStyle().Foreground(lipgloss.Color("#FFB86C")),
		added:  r.NewStyle().Foreground(lipgloss.Color("#50FA7B")),
		muted:  r.NewStyle().Foreground(lipgloss.Color("#888888")),
		action: r.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
	}
}

// NothingToDo reports an empty changeset directory.
func (r *Reporter) NothingToDo() {
	fmt.Fprintln(r.out, r.muted.Render("nothing to do"))
}

// Notice prints a highlighted message that is not an error.
func (r *Reporter) Notice(format string, args ...any) {
	fmt.Fprintln(r.out, r.dry.Render(fmt.Sprintf(format, args...)))
}

// Action reports a mutation. In a dry run it is prefixed and nothing was written.
func (r *Reporter) Action(dryRun bool, format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if dryRun {
		fmt.Fprintln(r.out, r.dry.Render("dry_run - "+line))
		return
	}
	fmt.Fprintln(r.out, r.action.Render(line))
}

// Block reports a multi-line insertion a dry run would have written.
func (r *Reporter) Block(content string) {
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		fmt.Fprintln(r.out, r.added.Render("dry_run: + "+line))
	}
}

// Plans prints a status table.
func (r *Reporter) Plans(plans []Plan) {
	if len(plans) == 0 {
		r.NothingToDo()
		return
	}
	fmt.Fprintln(r.out, r.title.Render(fmt.Sprintf("Pending releases (%d)", len(plans))))
	for _, plan := range plans {
		note := "implicit"
		if plan.Explicit {
			note = fmt.Sprintf("%d changeset(s)", plan.Changesets)
		}
		fmt.Fprintf(r.out, "  %s %s -> %s %s %s\n",
			plan.Name,
			plan.From,
			plan.To,
			r.added.Render(plan.Magnitude),
			r.muted.Render("("+note+")"),
		)
	}
}
