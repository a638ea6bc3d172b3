package main

import (
	"fmt"
	"os"
	"sync"
	"time"
	"unsafe"

	"github.com/spf13/cobra"
	"go.uber.org/atomic"

	"github.com/joshuapare/mcukit/cmd/mcuctl/logger"
	"github.com/joshuapare/mcukit/internal/buf"
	"github.com/joshuapare/mcukit/internal/report"
	"github.com/joshuapare/mcukit/mcu"
	"github.com/joshuapare/mcukit/mcu/sim"
	"github.com/joshuapare/mcukit/mem/region"
	"github.com/joshuapare/mcukit/mem/ringbuf"
	"github.com/joshuapare/mcukit/mem/slab"
	"github.com/joshuapare/mcukit/periph/systick"
	"github.com/joshuapare/mcukit/periph/wdog"
	"github.com/joshuapare/mcukit/spin"
)

// pitIRQ is PIT channel 0 on K20 parts; the demo uses it as its periodic tick.
const pitIRQ mcu.IRQ = 48

var (
	demoBlock   int
	demoWorkers int
	demoIters   int
	demoEvents  int
	demoReload  uint32
	demoBitmap  bool
)

func init() {
	cmd := newDemoCmd()
	cmd.Flags().IntVar(&demoBlock, "block", 64, "Slab block size in bytes")
	cmd.Flags().IntVar(&demoWorkers, "workers", 4, "Number of goroutines contending for the heap")
	cmd.Flags().IntVar(&demoIters, "iterations", 1000, "Allocations per worker")
	cmd.Flags().IntVar(&demoEvents, "events", 32, "Capacity of the event log ring")
	cmd.Flags().Uint32Var(&demoReload, "reload", 71999, "SysTick reload value")
	cmd.Flags().BoolVar(&demoBitmap, "bitmap", false, "Print the heap occupancy bitmap")
	rootCmd.AddCommand(cmd)
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a concurrent allocation workload on a simulated board",
		Long: `The demo command boots a simulated Cortex-M board, disables the
watchdog, starts SysTick, builds a slab allocator over the heap and lets several
goroutines allocate and free blocks through a spin lock. Every allocation, free
and timer interrupt is written to a ring buffer that itself lives in the heap.

Example:
  mcuctl demo
  mcuctl demo --workers 8 --iterations 5000 --block 128
  mcuctl demo --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo()
		},
	}
	return cmd
}

type eventKind uint8

const (
	eventAlloc eventKind = iota + 1
	eventFree
	eventFail
	eventTick
)

func (k eventKind) String() string {
	switch k {
	case eventAlloc:
		return "alloc"
	case eventFree:
		return "free"
	case eventFail:
		return "fail"
	case eventTick:
		return "tick"
	default:
		return fmt.Sprintf("eventKind(%d)", uint8(k))
	}
}

// event is stored directly in heap memory and must stay pointer-free.
type event struct {
	Seq    uint32
	Block  int32
	Blocks uint16
	Worker uint8
	Kind   eventKind
}

type recorder struct {
	lock spin.Lock
	ring *ringbuf.Ring[event]
	seq  uint32
}

func (r *recorder) record(e event) {
	r.lock.Acquire()
	defer r.lock.Unlock()
	r.seq++
	e.Seq = r.seq
	r.ring.Push(e)
}

func (r *recorder) snapshot() []event {
	r.lock.Acquire()
	defer r.lock.Unlock()
	return r.ring.Snapshot()
}

type demoEvent struct {
	Seq    uint32 `json:"seq"`
	Kind   string `json:"kind"`
	Worker int    `json:"worker,omitempty"`
	Blocks int    `json:"blocks,omitempty"`
	Block  int    `json:"block"`
}

type demoResult struct {
	SRAM       string        `json:"sram"`
	Heap       string        `json:"heap"`
	Stack      string        `json:"stack"`
	Watchdog   bool          `json:"watchdog_enabled"`
	Reload     uint32        `json:"systick_reload"`
	Layout     report.Layout `json:"layout"`
	LogBlocks  int           `json:"log_blocks"`
	Workers    int           `json:"workers"`
	Iterations int           `json:"iterations"`
	Counter    int           `json:"counter"`
	Allocs     int64         `json:"allocs"`
	Frees      int64         `json:"frees"`
	Failures   int64         `json:"failures"`
	Ticks      int           `json:"ticks"`
	Events     []demoEvent   `json:"events"`
	Occupancy  string        `json:"occupancy,omitempty"`
}

func runDemo() error {
	if demoWorkers < 1 || demoWorkers > 255 {
		return fmt.Errorf("invalid --workers %d: must be 1-255", demoWorkers)
	}
	if demoEvents < 1 {
		return fmt.Errorf("invalid --events %d", demoEvents)
	}

	cfg := sim.DefaultConfig()
	cfg.Logger = logger.L
	board, err := sim.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to boot board: %w", err)
	}
	defer func() {
		if err := board.Close(); err != nil {
			logger.Error("board close", "err", err)
		}
	}()

	res := demoResult{
		SRAM:       board.SRAM().String(),
		Heap:       board.HeapMemory().String(),
		Stack:      board.StackMemory().String(),
		Reload:     demoReload,
		Workers:    demoWorkers,
		Iterations: demoIters,
	}

	wd := wdog.New(board.Peripherals(), wdog.Base)
	if err := wd.Disable(); err != nil {
		return fmt.Errorf("failed to disable watchdog: %w", err)
	}
	if res.Watchdog, err = wd.Enabled(); err != nil {
		return err
	}

	tick := systick.New(board.SystemControl(), systick.Base)
	if err := tick.Configure(demoReload, systick.Options{CoreClock: true, Interrupt: true}); err != nil {
		return fmt.Errorf("failed to configure systick: %w", err)
	}
	if err := tick.Enable(); err != nil {
		return err
	}
	printVerbose("Board up: %s, SysTick reload %d\n", res.SRAM, demoReload)

	a, err := slab.New(board.HeapMemory(), demoBlock)
	if err != nil {
		return fmt.Errorf("failed to build heap allocator: %w", err)
	}
	data := a.Data()
	heap := slab.NewShared(a)

	// The event log lives in the heap it describes.
	res.LogBlocks = buf.CeilDiv(demoEvents*int(unsafe.Sizeof(event{})), demoBlock)
	logMem, err := heap.AllocZeroed(res.LogBlocks)
	if err != nil {
		return fmt.Errorf("failed to allocate event log: %w", err)
	}
	ring, err := ringbuf.FromRegion[event](logMem)
	if err != nil {
		return fmt.Errorf("failed to place event log: %w", err)
	}
	rec := &recorder{ring: ring}

	nvic := board.Controller()
	if err := nvic.Attach(pitIRQ, func() {
		res.Ticks++
		rec.record(event{Kind: eventTick, Block: -1})
	}); err != nil {
		return err
	}
	if err := nvic.SetPriority(pitIRQ, 0x40); err != nil {
		return err
	}
	if err := nvic.Enable(pitIRQ); err != nil {
		return err
	}

	blockOf := func(r region.Region) int32 {
		return int32((r.Addr() - data.Addr()) / uintptr(demoBlock))
	}

	var (
		wg          sync.WaitGroup
		counterLock spin.Lock
		allocs      atomic.Int64
		frees       atomic.Int64
		failures    atomic.Int64
	)
	for w := 0; w < demoWorkers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			held := make([]region.Region, 0, 4)
			release := func() {
				r := held[0]
				held = held[1:]
				if err := heap.Free(r); err != nil {
					logger.Error("free", "worker", w, "region", r.String(), "err", err)
					return
				}
				frees.Inc()
				rec.record(event{Kind: eventFree, Worker: uint8(w), Blocks: uint16(r.Len() / demoBlock), Block: blockOf(r)})
			}
			for i := 0; i < demoIters; i++ {
				n := 1 + (w+i)%4
				r, err := heap.Alloc(n)
				if err != nil {
					failures.Inc()
					rec.record(event{Kind: eventFail, Worker: uint8(w), Blocks: uint16(n), Block: -1})
				} else {
					allocs.Inc()
					held = append(held, r)
					rec.record(event{Kind: eventAlloc, Worker: uint8(w), Blocks: uint16(n), Block: blockOf(r)})
				}
				if len(held) > 0 && (len(held) == cap(held) || err != nil) {
					release()
				}

				counterLock.Lock()
				res.Counter++
				counterLock.Unlock()
			}
			for len(held) > 0 {
				release()
			}
		}(w)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	// Interrupts are delivered on this goroutine only, like a single core.
	board.EnableInterrupts()
	ticker := time.NewTicker(time.Millisecond)
	for running := true; running; {
		select {
		case <-done:
			running = false
		case <-ticker.C:
			if err := nvic.SetPending(pitIRQ); err != nil {
				logger.Error("pend tick", "err", err)
			}
			board.Dispatch()
		}
	}
	ticker.Stop()
	board.DisableInterrupts()

	res.Allocs, res.Frees, res.Failures = allocs.Load(), frees.Load(), failures.Load()
	res.Layout = report.LayoutOf(board.HeapMemory().Len(), heap.Stats())
	for _, e := range rec.snapshot() {
		res.Events = append(res.Events, demoEvent{
			Seq:    e.Seq,
			Kind:   e.Kind.String(),
			Worker: int(e.Worker),
			Blocks: int(e.Blocks),
			Block:  int(e.Block),
		})
	}
	if demoBitmap {
		res.Occupancy = a.Occupancy().String()[:a.Blocks()]
	}
	logger.Info("demo finished", "allocs", res.Allocs, "frees", res.Frees, "failures", res.Failures, "ticks", res.Ticks)

	if jsonOut {
		return printJSON(res)
	}
	return printDemo(res, a)
}

func printDemo(res demoResult, a *slab.Allocator) error {
	p, err := printer()
	if err != nil {
		return err
	}
	if quiet {
		return nil
	}
	printInfo("Board:\n")
	printInfo("  SRAM:  %s\n", res.SRAM)
	printInfo("  heap:  %s\n", res.Heap)
	printInfo("  stack: %s\n", res.Stack)
	printInfo("  watchdog enabled: %t, SysTick reload %s\n\n", res.Watchdog, p.Number(int(res.Reload)))

	printInfo("Heap allocator:\n")
	if err := p.WriteLayout(os.Stdout, res.Layout); err != nil {
		return err
	}
	printInfo("  event log: %s block(s)\n\n", p.Number(res.LogBlocks))

	printInfo("Workload: %d workers x %s iterations\n", res.Workers, p.Number(res.Iterations))
	printInfo("  counter:  %s\n", p.Number(res.Counter))
	printInfo("  allocs:   %s\n", p.Number(int(res.Allocs)))
	printInfo("  frees:    %s\n", p.Number(int(res.Frees)))
	printInfo("  failures: %s\n", p.Number(int(res.Failures)))
	printInfo("  ticks:    %s\n\n", p.Number(res.Ticks))

	printInfo("Recent events (oldest first):\n")
	for _, e := range res.Events {
		switch e.Kind {
		case "tick":
			printInfo("  %6d %-5s\n", e.Seq, e.Kind)
		case "fail":
			printInfo("  %6d %-5s w%-3d %d block(s)\n", e.Seq, e.Kind, e.Worker, e.Blocks)
		default:
			printInfo("  %6d %-5s w%-3d %d block(s) at %d\n", e.Seq, e.Kind, e.Worker, e.Blocks, e.Block)
		}
	}
	if res.Occupancy != "" {
		printInfo("\nOccupancy:\n")
		return p.WriteOccupancy(os.Stdout, a.Occupancy(), a.Blocks(), report.DefaultWidth)
	}
	return nil
}
