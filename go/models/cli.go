package models

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

const helpWidth = 80

// PrintFlags writes one entry per flag: the name and any default on the
// left, the usage text word-wrapped on the right.
func PrintFlags(w io.Writer, flags []*flag.Flag) {
	left := make([]string, len(flags))
	col := 0
	for i, f := range flags {
		s := "-" + f.Name
		switch f.DefValue {
		case "", "[]", "false", "0":
		default:
			s += " (" + f.DefValue + ")"
		}
		left[i] = s
		if len(s) > col {
			col = len(s)
		}
	}
	indent := strings.Repeat(" ", col+4)
	for i, f := range flags {
		lines := wrapWords(f.Usage, helpWidth-len(indent))
		fmt.Fprintf(w, "  %-*s  %s\n", col, left[i], lines[0])
		for _, line := range lines[1:] {
			fmt.Fprintf(w, "%s%s\n", indent, line)
		}
	}
}

// wrapWords breaks s into lines of at most n bytes, keeping explicit
// newlines. A word longer than n gets a line to itself.
func wrapWords(s string, n int) []string {
	if n < 20 {
		n = 20
	}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			if line != "" && len(line)+1+len(word) > n {
				lines = append(lines, line)
				line = ""
			}
			if line != "" {
				line += " "
			}
			line += word
		}
		lines = append(lines, line)
	}
	return lines
}
