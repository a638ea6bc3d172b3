// Package report renders allocator and bitmap state for humans and for JSON
// consumers. Numbers are grouped for the requested locale and byte sizes use
// IEC units.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/mcukit/mem/bitmap"
	"github.com/joshuapare/mcukit/mem/slab"
)

// DefaultWidth is the number of bits shown per occupancy row.
const DefaultWidth = 64

// Printer formats reports for one locale.
type Printer struct {
	p *message.Printer
}

// New returns a printer for tag.
func New(tag language.Tag) *Printer {
	return &Printer{p: message.NewPrinter(tag)}
}

// ForLang parses a BCP 47 tag such as "en" or "de-CH". An empty string
// selects English.
func ForLang(lang string) (*Printer, error) {
	if lang == "" {
		return New(language.English), nil
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("report: language %q: %w", lang, err)
	}
	return New(tag), nil
}

// Number formats n with the locale's digit grouping.
func (p *Printer) Number(n int) string {
	return p.p.Sprintf("%d", n)
}

// Percent formats part/whole with one decimal place.
func (p *Printer) Percent(part, whole int) string {
	if whole == 0 {
		return p.p.Sprintf("%.1f%%", 0.0)
	}
	return p.p.Sprintf("%.1f%%", float64(part)*100/float64(whole))
}

// Bytes formats n as an IEC size ("4.0 KiB").
func Bytes(n int) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

// Layout is the JSON shape of a slab allocator's layout.
type Layout struct {
	RegionBytes  int    `json:"region_bytes"`
	BlockSize    int    `json:"block_size"`
	Blocks       int    `json:"blocks"`
	Used         int    `json:"used"`
	Free         int    `json:"free"`
	Placement    string `json:"placement"`
	BitmapBytes  int    `json:"bitmap_bytes"`
	BitmapBlocks int    `json:"bitmap_blocks"`
	Slop         int    `json:"slop"`
}

// LayoutOf converts allocator statistics for a region of regionBytes.
func LayoutOf(regionBytes int, s slab.Stats) Layout {
	return Layout{
		RegionBytes:  regionBytes,
		BlockSize:    s.BlockSize,
		Blocks:       s.Blocks,
		Used:         s.Used,
		Free:         s.Free,
		Placement:    s.Placement.String(),
		BitmapBytes:  s.BitmapBytes,
		BitmapBlocks: s.BitmapBlocks,
		Slop:         s.Slop,
	}
}

// WriteLayout prints l as an indented block.
func (p *Printer) WriteLayout(w io.Writer, l Layout) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Region:     %s (%s bytes)\n", Bytes(l.RegionBytes), p.Number(l.RegionBytes))
	fmt.Fprintf(&sb, "Block size: %s\n", Bytes(l.BlockSize))
	fmt.Fprintf(&sb, "Blocks:     %s\n", p.Number(l.Blocks))
	fmt.Fprintf(&sb, "  used:     %s (%s)\n", p.Number(l.Used), p.Percent(l.Used, l.Blocks))
	fmt.Fprintf(&sb, "  free:     %s\n", p.Number(l.Free))
	fmt.Fprintf(&sb, "Bitmap:     %s bytes, %s\n", p.Number(l.BitmapBytes), l.Placement)
	if l.BitmapBlocks > 0 {
		fmt.Fprintf(&sb, "  occupies: %s block(s)\n", p.Number(l.BitmapBlocks))
	}
	fmt.Fprintf(&sb, "Slop:       %s bytes\n", p.Number(l.Slop))
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteOccupancy prints the first bits bits of bm, width per row, each row
// prefixed with its starting index. bits <= 0 prints the whole bitmap.
func (p *Printer) WriteOccupancy(w io.Writer, bm *bitmap.Bitmap, bits, width int) error {
	if width <= 0 {
		width = DefaultWidth
	}
	s := bm.String()
	if bits > 0 && bits < len(s) {
		s = s[:bits]
	}
	digits := len(fmt.Sprint(max(len(s)-1, 0)))
	var sb strings.Builder
	for off := 0; off < len(s); off += width {
		end := min(off+width, len(s))
		fmt.Fprintf(&sb, "%*d %s\n", digits, off, s[off:end])
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
