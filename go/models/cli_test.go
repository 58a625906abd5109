package models

import (
	"bytes"
	"flag"
	"strings"
	"testing"
)

func TestPrintFlags(t *testing.T) {
	fs := flag.NewFlagSet("boot", flag.ContinueOnError)
	fs.Uint("ext", 15360, "extended memory in KB")
	fs.Bool("v", false, "verbose")
	fs.String("o", "", strings.Repeat("word ", 30))
	var flags []*flag.Flag
	fs.VisitAll(func(f *flag.Flag) { flags = append(flags, f) })

	var out bytes.Buffer
	PrintFlags(&out, flags)
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if lines[0] != "  -ext (15360)  extended memory in KB" {
		t.Fatalf("line 0 %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  -o            word word") {
		t.Fatalf("line 1 %q", lines[1])
	}
	if lines[len(lines)-1] != "  -v            verbose" {
		t.Fatalf("last line %q", lines[len(lines)-1])
	}
	// -o wraps onto indented lines
	if len(lines) < 4 {
		t.Fatalf("usage not wrapped: %q", out.String())
	}
	for _, line := range lines {
		if len(line) > helpWidth {
			t.Fatalf("line too long: %q", line)
		}
	}
	if !strings.HasPrefix(lines[2], strings.Repeat(" ", 16)+"word") {
		t.Fatalf("continuation %q", lines[2])
	}
}

func TestWrapWords(t *testing.T) {
	got := wrapWords("aaa bbb\nccc", 20)
	if strings.Join(got, "|") != "aaa bbb|ccc" {
		t.Fatalf("got %q", got)
	}
	if got := wrapWords("", 20); len(got) != 1 || got[0] != "" {
		t.Fatalf("empty usage gave %q", got)
	}
}
