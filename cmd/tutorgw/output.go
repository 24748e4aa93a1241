package main

import (
	"fmt"
	"io"
	"os"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// out receives command results such as answers, quizzes and status rows.
// notices receives progress and diagnostics so results stay pipeable.
var (
	out     io.Writer = os.Stdout
	notices io.Writer = os.Stderr
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

type tone struct {
	color string
	mark  string
}

var (
	toneDone = tone{colorGreen, "✓"}
	toneFail = tone{colorRed, "✗"}
	toneWarn = tone{colorYellow, "!"}
	toneWork = tone{colorCyan, "→"}
)

// notify writes one marked line to notices.
func notify(t tone, format string, args ...any) {
	fmt.Fprintln(notices, colorize(t.color, t.mark+" "+fmt.Sprintf(format, args...)))
}

// statusLabelWidth fits the longest row label of `tutorgw status`.
const statusLabelWidth = len("General provider:")

// printRow writes an aligned "label: value" row to out.
func printRow(label, value string) {
	l := fmt.Sprintf("%-*s", statusLabelWidth, label+":")
	fmt.Fprintf(out, "  %s %s\n", colorize(colorBold, l), value)
}
