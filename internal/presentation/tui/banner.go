package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"  _        _       __ _               ", "#38bdf8"},
	{" | |_ _ __(_)_ __ / _| | _____      __", "#22d3ee"},
	{" | __| '__| | '_ \\| |_| |/ _ \\ \\ /\\ / /", "#2dd4bf"},
	{" | |_| |  | | |_) |  _| | (_) \\ V  V / ", "#34d399"},
	{"  \\__|_|  |_| .__/|_| |_|\\___/ \\_/\\_/  ", "#4ade80"},
	{"            |_|                        ", "#a3e635"},
}

// PrintBanner writes the tripflow banner to w, coloured for the terminal profile.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// Bot styles a line spoken by the booking flow.
func Bot(text string) string {
	p := termenv.ColorProfile()
	return termenv.String(text).Foreground(p.Color("#38bdf8")).String()
}

// System styles a meta-message (help, cancelling, errors).
func System(text string) string {
	p := termenv.ColorProfile()
	return termenv.String(text).Foreground(p.Color("#a1a1aa")).Italic().String()
}
