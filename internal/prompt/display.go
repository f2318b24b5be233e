package prompt

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"unicode/utf8"
)

// Command is one entry of the command menu.
type Command struct {
	Name        string
	Description string
}

var strftimeRows = [][]string{
	{"%d", "Day of the month as a zero-padded decimal number.", "01, 02, ..., 31"},
	{"%b", "Month as abbreviated name.", "Jan, Feb, ..., Dec"},
	{"%B", "Month as full name.", "January, February, ..., December"},
	{"%m", "Month as a zero-padded decimal number.", "01, 02, ..., 12"},
	{"%y", "Year without century as a zero-padded decimal number.", "00, 01, ..., 99"},
	{"%Y", "Year with century as a decimal number.", "0001, ..., 2024, ..., 9999"},
	{"%H", "Hour (24-hour clock) as a zero-padded decimal number.", "00, 01, ..., 23"},
	{"%M", "Minute as a zero-padded decimal number.", "00, 01, ..., 59"},
	{"%S", "Second as a zero-padded decimal number.", "00, 01, ..., 59"},
	{"%f", "Microsecond as a decimal number, zero-padded to 6 digits.", "000000, ..., 999999"},
	{"%Z", "Time zone name.", "UTC, GMT"},
}

// Panel writes body inside a titled box.
func (p *Prompter) Panel(title, body string) {
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")

	width := utf8.RuneCountInString(title) + 2
	for _, line := range lines {
		if n := utf8.RuneCountInString(line); n > width {
			width = n
		}
	}

	fmt.Fprintln(p.out)
	fmt.Fprintf(p.out, "+- %s %s+\n", title, strings.Repeat("-", width-utf8.RuneCountInString(title)-1))
	for _, line := range lines {
		fmt.Fprintf(p.out, "| %s%s |\n", line, strings.Repeat(" ", width-utf8.RuneCountInString(line)))
	}
	fmt.Fprintf(p.out, "+%s+\n", strings.Repeat("-", width+2))
}

// Banner reports the end of an operation.
func (p *Prompter) Banner(ok bool) {
	title := "Process Failed"
	if ok {
		title = "Process Completed"
	}
	p.Panel(title, "Returning to command menu...")
}

// Error writes msg in an error panel.
func (p *Prompter) Error(msg string) {
	p.Panel("Error", msg)
}

// Commands lists the command menu.
func (p *Prompter) Commands(cmds []Command) {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 8, 2, ' ', 0)
	for _, c := range cmds {
		fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Description)
	}
	tw.Flush()
	p.Panel("Commands", b.String())
}

// Strftime prints the supported date format directives.
func (p *Prompter) Strftime() {
	p.Table("strftime codes", []string{"Directive", "Meaning", "Example"}, strftimeRows)
}

// WorkingDir prints where relative paths are resolved from.
func (p *Prompter) WorkingDir(inputDir string) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "(unknown)"
	}
	p.Panel("Help", fmt.Sprintf(
		"The current working directory is:\n%s\n\nIf providing a relative file path, check if the file is in %q\ne.g. %q",
		cwd, inputDir+"/", inputDir+"/template.csv",
	))
}

// Table prints rows under header with aligned columns.
func (p *Prompter) Table(title string, header []string, rows [][]string) {
	fmt.Fprintf(p.out, "\n%s\n", title)
	tw := tabwriter.NewWriter(p.out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	seps := make([]string, len(header))
	for i, h := range header {
		seps[i] = strings.Repeat("-", utf8.RuneCountInString(h))
	}
	fmt.Fprintln(tw, strings.Join(seps, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

// Printf writes a plain line to the output.
func (p *Prompter) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}
