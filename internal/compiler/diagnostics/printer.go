package diagnostics

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	noteColor    = color.New(color.FgCyan, color.Bold)
	hintColor    = color.New(color.Faint)
	locColor     = color.New(color.FgHiBlack)
)

func severityColor(s Severity) *color.Color {
	switch s {
	case SeverityError:
		return errorColor
	case SeverityWarning:
		return warningColor
	default:
		return noteColor
	}
}

// Print writes a single diagnostic to w in the colorized terminal form.
func Print(w io.Writer, d Diagnostic) {
	sc := severityColor(d.Severity)
	fmt.Fprintf(w, "%s %s: %s\n",
		sc.Sprint(string(d.Severity)),
		locColor.Sprintf("[%d:%d]", d.Location.Line, d.Location.Column),
		d.Message,
	)
	for _, h := range d.Hints {
		fmt.Fprintf(w, "  %s\n", hintColor.Sprintf("hint: %s", h))
	}
}

// PrintAll writes every diagnostic followed by a one-line summary, matching
// the teacher's "N error(s), N warning(s)" compilation-result banner.
func PrintAll(w io.Writer, ds []Diagnostic) {
	var errs, warnings, notes int
	for i, d := range ds {
		if i > 0 {
			fmt.Fprintln(w)
		}
		Print(w, d)
		switch d.Severity {
		case SeverityError:
			errs++
		case SeverityWarning:
			warnings++
		case SeverityNote:
			notes++
		}
	}
	if len(ds) > 0 {
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, summaryLine(errs, warnings, notes))
}

func summaryLine(errs, warnings, notes int) string {
	var b strings.Builder
	if errs == 0 {
		fmt.Fprint(&b, color.GreenString("compiled successfully"))
	} else {
		fmt.Fprint(&b, errorColor.Sprintf("compilation failed"))
	}
	fmt.Fprintf(&b, " (%d error(s), %d warning(s), %d note(s))", errs, warnings, notes)
	return b.String()
}
