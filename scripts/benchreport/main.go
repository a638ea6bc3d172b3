// Command benchreport turns `go test -bench` output into a markdown table,
// comparing each sub-benchmark variant against a baseline variant.
//
//	go test -bench . -benchmem ./mem/... | go run ./scripts/benchreport -baseline step1
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/joshuapare/mcukit/internal/report"
)

// Result is one parsed benchmark line.
type Result struct {
	Group       string // BenchmarkCompare -> Compare
	Variant     string // step8, or "" for benchmarks without sub-benchmarks
	Iterations  int
	NsPerOp     float64
	MBPerSec    float64
	BytesPerOp  int64
	AllocsPerOp int64
}

var (
	inputFile  = flag.String("input", "", "Input file with benchmark output (stdin if not specified)")
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	baseline   = flag.String("baseline", "", "Variant to compare against (first variant of each group if empty)")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

// BenchmarkCompare/step8-8   1000000   1052 ns/op   3893.22 MB/s   0 B/op   0 allocs/op
var benchLine = regexp.MustCompile(
	`^Benchmark(\S+?)(?:-\d+)?\s+(\d+)\s+([\d.]+)\s+ns/op` +
		`(?:\s+([\d.]+)\s+MB/s)?(?:\s+(\d+)\s+B/op)?(?:\s+(\d+)\s+allocs/op)?`,
)

func main() {
	flag.Parse()

	in := io.Reader(os.Stdin)
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	results := parse(bufio.NewScanner(in))
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results\n", len(results))
	}

	out := markdown(results, *baseline)
	if *outputFile == "" {
		fmt.Fprint(os.Stdout, out)
		return
	}
	if err := os.WriteFile(*outputFile, []byte(out), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
		os.Exit(1)
	}
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
	}
}

func parse(scanner *bufio.Scanner) []Result {
	var results []Result
	for scanner.Scan() {
		line := scanner.Text()

		// Lines from `go test -json` carry the text in Output.
		var event struct{ Output string }
		if err := json.Unmarshal([]byte(line), &event); err == nil && event.Output != "" {
			line = event.Output
		}

		m := benchLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		r := Result{Group: m[1]}
		if i := strings.Index(m[1], "/"); i >= 0 {
			r.Group, r.Variant = m[1][:i], m[1][i+1:]
		}
		r.Iterations, _ = strconv.Atoi(m[2])
		r.NsPerOp, _ = strconv.ParseFloat(m[3], 64)
		if m[4] != "" {
			r.MBPerSec, _ = strconv.ParseFloat(m[4], 64)
		}
		if m[5] != "" {
			r.BytesPerOp, _ = strconv.ParseInt(m[5], 10, 64)
		}
		if m[6] != "" {
			r.AllocsPerOp, _ = strconv.ParseInt(m[6], 10, 64)
		}
		results = append(results, r)
	}
	return results
}

func markdown(results []Result, base string) string {
	p, _ := report.ForLang("en")

	groups := map[string][]Result{}
	var order []string
	for _, r := range results {
		if _, ok := groups[r.Group]; !ok {
			order = append(order, r.Group)
		}
		groups[r.Group] = append(groups[r.Group], r)
	}
	sort.Strings(order)

	var sb strings.Builder
	sb.WriteString("# Benchmark Report\n\n")
	fmt.Fprintf(&sb, "%d results in %d groups.\n", len(results), len(order))

	for _, g := range order {
		rs := groups[g]
		ref := rs[0]
		for _, r := range rs {
			if base != "" && r.Variant == base {
				ref = r
				break
			}
		}

		fmt.Fprintf(&sb, "\n## %s\n\n", g)
		sb.WriteString("| Variant | ns/op | MB/s | Memory | Allocs | vs " + variantName(ref) + " |\n")
		sb.WriteString("|---------|-------|------|--------|--------|------|\n")
		for _, r := range rs {
			speedup := "-"
			if r.NsPerOp > 0 && r != ref {
				speedup = fmt.Sprintf("%.2fx", ref.NsPerOp/r.NsPerOp)
			}
			mbs := "-"
			if r.MBPerSec > 0 {
				mbs = fmt.Sprintf("%.1f", r.MBPerSec)
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s |\n",
				variantName(r),
				p.Number(int(r.NsPerOp)),
				mbs,
				report.Bytes(int(r.BytesPerOp)),
				p.Number(int(r.AllocsPerOp)),
				speedup,
			)
		}
	}
	return sb.String()
}

func variantName(r Result) string {
	if r.Variant == "" {
		return "(default)"
	}
	return r.Variant
}
