package slab

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/mcukit/mem/bitmap"
	"github.com/joshuapare/mcukit/mem/region"
)

func newTestAllocator(t testing.TB, size, blockSize int) *Allocator {
	t.Helper()
	a, err := New(region.FromBytes(make([]byte, size)), blockSize)
	require.NoError(t, err)
	return a
}

func TestNew_DeadPlacement(t *testing.T) {
	a := newTestAllocator(t, 4200, 1024)

	assert.Equal(t, PlacementDead, a.Placement())
	assert.Equal(t, 4, a.Blocks())
	assert.Equal(t, 4, a.FreeBlocks())
	assert.Equal(t, 0, a.UsedBlocks())
	assert.Equal(t, 4096, a.Data().Len())

	st := a.Stats()
	assert.Equal(t, 1, st.BitmapBytes)
	assert.Equal(t, 0, st.BitmapBlocks)
	assert.Equal(t, 104, st.Slop)
	assert.Equal(t, a.Data().End(), a.Occupancy().Region().Addr(), "bitmap sits right after the last block")
}

func TestNew_LeadingPlacement(t *testing.T) {
	r := region.FromBytes(make([]byte, 1024))
	a, err := New(r, 8)
	require.NoError(t, err)

	assert.Equal(t, PlacementLeading, a.Placement())
	assert.Equal(t, 126, a.Blocks())
	assert.Equal(t, 126, a.FreeBlocks())
	assert.Equal(t, r.Addr()+16, a.Data().Addr(), "two 8-byte blocks hold the 16-byte bitmap")
	assert.Equal(t, 16, a.Occupancy().Region().Len())
	assert.Equal(t, 2, a.Stats().BitmapBlocks)
}

func TestNew_NoSlopForcesLeading(t *testing.T) {
	// 4 blocks, 1-byte bitmap, zero slop: the bitmap costs a whole block.
	a := newTestAllocator(t, 4096, 1024)
	assert.Equal(t, PlacementLeading, a.Placement())
	assert.Equal(t, 3, a.Blocks())
	assert.Equal(t, 3, a.FreeBlocks())
}

func TestNew_Invalid(t *testing.T) {
	cases := []struct {
		name      string
		size      int
		blockSize int
	}{
		{"zero block size", 64, 0},
		{"negative block size", 64, -8},
		{"region smaller than a block", 100, 128},
		{"bitmap consumes every block", 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(region.FromBytes(make([]byte, tc.size)), tc.blockSize)
			require.ErrorIs(t, err, ErrInvalidSize)
		})
	}
}

func TestAlloc_ExhaustThenInsufficient(t *testing.T) {
	a := newTestAllocator(t, 4200, 1024)

	var got []region.Region
	for i := 0; i < 4; i++ {
		r, err := a.Alloc(1)
		require.NoError(t, err, "alloc %d", i)
		require.Equal(t, 1024, r.Len())
		got = append(got, r)
	}
	assert.Equal(t, 0, a.FreeBlocks())
	assert.Equal(t, 4, a.UsedBlocks())

	for i := 1; i < len(got); i++ {
		assert.Equal(t, got[i-1].End(), got[i].Addr(), "blocks are handed out lowest first")
	}

	_, err := a.Alloc(1)
	require.ErrorIs(t, err, ErrInsufficientFree)
}

func TestAlloc_Runs(t *testing.T) {
	a := newTestAllocator(t, 1024, 8)

	r, err := a.Alloc(10)
	require.NoError(t, err)
	assert.Equal(t, a.Data().Addr(), r.Addr())
	assert.Equal(t, 80, r.Len())

	r2, err := a.Alloc(3)
	require.NoError(t, err)
	assert.Equal(t, a.Data().Addr()+80, r2.Addr())
	assert.Equal(t, 13, a.UsedBlocks())
	assert.Equal(t, 113, a.FreeBlocks())
}

func TestAlloc_InvalidSize(t *testing.T) {
	a := newTestAllocator(t, 4200, 1024)

	_, err := a.Alloc(0)
	require.ErrorIs(t, err, ErrInvalidSize)
	_, err = a.Alloc(-1)
	require.ErrorIs(t, err, ErrInvalidSize)
	assert.Equal(t, 0, a.UsedBlocks())
}

func TestAlloc_MoreThanManagedReportsInsufficientFree(t *testing.T) {
	// The free count is checked before the managed total.
	a := newTestAllocator(t, 4200, 1024)

	_, err := a.Alloc(5)
	require.ErrorIs(t, err, ErrInsufficientFree)
	require.NotErrorIs(t, err, ErrInvalidSize)

	_, err = a.Alloc(2)
	require.NoError(t, err)
	_, err = a.Alloc(3)
	require.ErrorIs(t, err, ErrInsufficientFree)
	assert.Equal(t, 2, a.UsedBlocks())
}

func TestBlockCounters(t *testing.T) {
	a := newTestAllocator(t, 4200, 1024)

	r, err := a.Alloc(3)
	require.NoError(t, err)
	assert.Equal(t, 3, a.UsedBlocks())
	assert.Equal(t, 1, a.FreeBlocks())

	st := a.Stats()
	assert.Equal(t, a.UsedBlocks(), st.Used)
	assert.Equal(t, a.FreeBlocks(), st.Free)

	require.NoError(t, a.Free(r))
	assert.Equal(t, 0, a.UsedBlocks())
	assert.Equal(t, 4, a.FreeBlocks())
}

func TestAlloc_FragmentedRunPastLastBlock(t *testing.T) {
	// Blocks 1 and 3 free; the only 2-bit clear run is block 3 plus a padding bit.
	a := newTestAllocator(t, 4200, 1024)
	blocks := make([]region.Region, 4)
	for i := range blocks {
		r, err := a.Alloc(1)
		require.NoError(t, err)
		blocks[i] = r
	}
	require.NoError(t, a.Free(blocks[1]))
	require.NoError(t, a.Free(blocks[3]))
	require.Equal(t, 2, a.FreeBlocks())

	_, err := a.Alloc(2)
	require.ErrorIs(t, err, bitmap.ErrOutOfBounds)
	assert.Equal(t, 2, a.FreeBlocks(), "rejected run must not be marked")
}

func TestAllocZeroed(t *testing.T) {
	a := newTestAllocator(t, 256, 16)
	for i := range a.Data().Bytes() {
		a.Data().Bytes()[i] = 0xCC
	}
	r, err := a.AllocZeroed(2)
	require.NoError(t, err)
	for i, v := range r.Bytes() {
		require.Zero(t, v, "byte %d", i)
	}
}

func TestFree_RoundTrip(t *testing.T) {
	a := newTestAllocator(t, 1024, 8)

	r, err := a.Alloc(4)
	require.NoError(t, err)
	require.NoError(t, a.Free(r))
	assert.Equal(t, 0, a.UsedBlocks())
	assert.Equal(t, 126, a.FreeBlocks())

	again, err := a.Alloc(4)
	require.NoError(t, err)
	assert.Equal(t, r.Addr(), again.Addr(), "freed run is reused first")
}

func TestFree_Unaligned(t *testing.T) {
	a := newTestAllocator(t, 1024, 8)
	r, err := a.Alloc(2)
	require.NoError(t, err)

	shifted, err := a.Data().Sub(4, 8)
	require.NoError(t, err)
	require.ErrorIs(t, a.Free(shifted), ErrUnaligned)

	short, err := r.Sub(0, 12)
	require.NoError(t, err)
	require.ErrorIs(t, a.Free(short), ErrUnaligned)

	assert.Equal(t, 2, a.UsedBlocks())
}

func TestFree_UnalignedBelowDataBase(t *testing.T) {
	// Leading placement: blocks 0 and 1 of the region hold the bitmap.
	whole := region.FromBytes(make([]byte, 1024))
	a, err := New(whole, 8)
	require.NoError(t, err)
	require.Equal(t, PlacementLeading, a.Placement())
	_, err = a.Alloc(1)
	require.NoError(t, err)

	misaligned, err := whole.Sub(3, 8)
	require.NoError(t, err)
	require.ErrorIs(t, a.Free(misaligned), ErrUnaligned)

	inBitmap, err := whole.Sub(8, 8)
	require.NoError(t, err)
	require.ErrorIs(t, a.Free(inBitmap), ErrForeign, "aligned but not a data block")

	assert.Equal(t, 1, a.UsedBlocks())
}

func TestFree_CountChecks(t *testing.T) {
	a := newTestAllocator(t, 1024, 8)
	_, err := a.Alloc(1)
	require.NoError(t, err)

	two, err := a.Data().Sub(0, 16)
	require.NoError(t, err)
	require.ErrorIs(t, a.Free(two), ErrInvalidSize, "more blocks than are in use")

	empty, err := a.Data().Sub(0, 0)
	require.NoError(t, err)
	require.ErrorIs(t, a.Free(empty), ErrInvalidSize)
}

func TestFree_Foreign(t *testing.T) {
	a := newTestAllocator(t, 1024, 8)
	_, err := a.Alloc(1)
	require.NoError(t, err)

	require.ErrorIs(t, a.Free(region.FromBytes(make([]byte, 8))), ErrForeign)
	require.ErrorIs(t, a.Free(region.Region{}), ErrForeign)
}

func TestFree_PartialFailureLeavesTailAllocated(t *testing.T) {
	a := newTestAllocator(t, 1024, 8)
	run, err := a.Alloc(3)
	require.NoError(t, err)
	_, err = a.Alloc(2)
	require.NoError(t, err)

	middle, err := run.Sub(8, 8)
	require.NoError(t, err)
	require.NoError(t, a.Free(middle))
	require.Equal(t, 4, a.UsedBlocks())

	err = a.Free(run)
	require.ErrorIs(t, err, bitmap.ErrAlreadyClear)

	occ := a.Occupancy()
	assert.False(t, occ.IsSet(0), "block before the failure was released")
	assert.False(t, occ.IsSet(1))
	assert.True(t, occ.IsSet(2), "block after the failure stays allocated")
	assert.Equal(t, 3, a.UsedBlocks())
}

func TestShared_Concurrent(t *testing.T) {
	s := NewShared(newTestAllocator(t, 1024, 8))

	const workers = 8
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				r, err := s.Alloc(2)
				if err != nil {
					t.Error(err)
					return
				}
				if err := s.Free(r); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	st := s.Stats()
	assert.Equal(t, 0, st.Used)
	assert.Equal(t, 126, st.Free)
}

func TestPlacementString(t *testing.T) {
	assert.Equal(t, "dead", PlacementDead.String())
	assert.Equal(t, "leading", PlacementLeading.String())
	assert.Equal(t, "Placement(9)", Placement(9).String())
}

func BenchmarkAllocFree(b *testing.B) {
	a, err := New(region.FromBytes(make([]byte, 64*1024)), 64)
	require.NoError(b, err)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r, err := a.Alloc(4)
		if err != nil {
			b.Fatal(err)
		}
		if err := a.Free(r); err != nil {
			b.Fatal(err)
		}
	}
}
