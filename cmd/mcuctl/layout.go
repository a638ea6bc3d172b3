package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/mcukit/cmd/mcuctl/logger"
	"github.com/joshuapare/mcukit/internal/report"
	"github.com/joshuapare/mcukit/mem/region"
	"github.com/joshuapare/mcukit/mem/slab"
)

var (
	layoutSize   string
	layoutBlock  int
	layoutAllocs []int
	layoutBitmap bool
)

func init() {
	cmd := newLayoutCmd()
	cmd.Flags().StringVar(&layoutSize, "size", "64KiB", "Region size (bytes, or with a unit: 4200, 16KiB)")
	cmd.Flags().IntVar(&layoutBlock, "block", 64, "Block size in bytes")
	cmd.Flags().IntSliceVar(&layoutAllocs, "alloc", nil, "Allocate runs of these block counts before reporting")
	cmd.Flags().BoolVar(&layoutBitmap, "bitmap", false, "Print the occupancy bitmap")
	rootCmd.AddCommand(cmd)
}

func newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Show how a slab allocator lays out a region",
		Long: `The layout command builds a slab allocator over a region of the given
size and reports where its occupancy bitmap lives, how many blocks are usable,
and how many bytes are left over.

Example:
  mcuctl layout --size 4200 --block 1024
  mcuctl layout --size 16KiB --block 8 --alloc 3,1,7 --bitmap
  mcuctl layout --size 1MiB --block 4096 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout()
		},
	}
	return cmd
}

type layoutResult struct {
	report.Layout
	Allocations []allocation `json:"allocations,omitempty"`
	Bitmap      string       `json:"bitmap,omitempty"`
}

type allocation struct {
	Blocks int    `json:"blocks"`
	Index  int    `json:"index"`
	Error  string `json:"error,omitempty"`
}

func runLayout() error {
	size, err := humanize.ParseBytes(layoutSize)
	if err != nil {
		return fmt.Errorf("invalid --size: %w", err)
	}
	if size > 1<<30 {
		return fmt.Errorf("invalid --size: %s exceeds 1 GiB", humanize.IBytes(size))
	}

	printVerbose("Building allocator: %s region, %d-byte blocks\n", humanize.IBytes(size), layoutBlock)

	a, err := slab.New(region.FromBytes(make([]byte, size)), layoutBlock)
	if err != nil {
		return fmt.Errorf("failed to build allocator: %w", err)
	}

	res := layoutResult{}
	for _, n := range layoutAllocs {
		al := allocation{Blocks: n, Index: -1}
		r, err := a.Alloc(n)
		if err != nil {
			al.Error = err.Error()
			logger.Warn("allocation failed", "blocks", n, "err", err)
		} else {
			al.Index = int(r.Addr()-a.Data().Addr()) / a.BlockSize()
			logger.Debug("allocated", "blocks", n, "index", al.Index)
		}
		res.Allocations = append(res.Allocations, al)
	}
	res.Layout = report.LayoutOf(int(size), a.Stats())
	if layoutBitmap {
		res.Bitmap = a.Occupancy().String()[:a.Blocks()]
	}

	if jsonOut {
		return printJSON(res)
	}

	p, err := printer()
	if err != nil {
		return err
	}
	if quiet {
		return nil
	}
	if err := p.WriteLayout(os.Stdout, res.Layout); err != nil {
		return err
	}
	if len(res.Allocations) > 0 {
		printInfo("\nAllocations:\n")
		for _, al := range res.Allocations {
			if al.Error != "" {
				printInfo("  %s block(s): %s\n", p.Number(al.Blocks), al.Error)
				continue
			}
			printInfo("  %s block(s) at block %s\n", p.Number(al.Blocks), p.Number(al.Index))
		}
	}
	if layoutBitmap {
		printInfo("\nOccupancy:\n")
		return p.WriteOccupancy(os.Stdout, a.Occupancy(), a.Blocks(), report.DefaultWidth)
	}
	return nil
}
