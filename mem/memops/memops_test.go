package memops

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/mcukit/mem/region"
)

var steps = []Step{Step1, Step2, Step4, Step8}

func TestSet_FillsEveryByte(t *testing.T) {
	for _, size := range []int{0, 1, 7, 8, 63, 4096} {
		for _, v := range []byte{0x00, 0x5A, 0xFF} {
			r := region.FromBytes(bytes.Repeat([]byte{0x11}, size))
			require.NoError(t, Set(r, v, r.Len()))
			for i, got := range r.Bytes() {
				require.Equal(t, v, got, "size=%d byte %d", size, i)
			}
		}
	}
}

func TestSet_Partial(t *testing.T) {
	r := region.FromBytes(make([]byte, 8))
	require.NoError(t, Set(r, 0xEE, 3))
	assert.Equal(t, []byte{0xEE, 0xEE, 0xEE, 0, 0, 0, 0, 0}, r.Bytes())

	require.ErrorIs(t, Set(r, 0, 9), ErrOutOfRange)
	require.ErrorIs(t, Set(r, 0, -1), ErrOutOfRange)
}

func TestCompare_StepWidthsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 500; iter++ {
		n := rng.Intn(40)
		a := make([]byte, n)
		rng.Read(a)
		b := append([]byte(nil), a...)
		if n > 0 && rng.Intn(4) != 0 {
			b[rng.Intn(n)] = byte(rng.Intn(256))
		}

		want := bytes.Compare(a, b)
		for _, step := range steps {
			got, err := CompareStep(region.FromBytes(a), region.FromBytes(b), n, step)
			require.NoError(t, err)
			require.Equal(t, want, got, "iter=%d n=%d step=%d", iter, n, step)
		}
	}
}

func TestCompare_Remainder(t *testing.T) {
	// 11 bytes: one 8-byte word plus a 3-byte tail that holds the difference.
	a := []byte("abcdefghijk")
	b := []byte("abcdefghijz")
	for _, step := range steps {
		t.Run(fmt.Sprintf("step%d", step), func(t *testing.T) {
			got, err := CompareStep(region.FromBytes(a), region.FromBytes(b), len(a), step)
			require.NoError(t, err)
			assert.Equal(t, -1, got)

			got, err = CompareStep(region.FromBytes(b), region.FromBytes(a), len(a), step)
			require.NoError(t, err)
			assert.Equal(t, 1, got)

			got, err = CompareStep(region.FromBytes(a), region.FromBytes(b), 10, step)
			require.NoError(t, err)
			assert.Equal(t, 0, got)
		})
	}
}

func TestCompare_Errors(t *testing.T) {
	a := region.FromBytes(make([]byte, 4))
	b := region.FromBytes(make([]byte, 8))

	_, err := CompareStep(a, b, 4, Step(3))
	require.ErrorIs(t, err, ErrInvalidStep)

	_, err = Compare(a, b, 5)
	require.ErrorIs(t, err, ErrOutOfRange)

	eq, err := Equal(a, b, 4)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestCopy_DisjointThenEqual(t *testing.T) {
	for _, n := range []int{0, 1, 8, 13, 64, 1000} {
		src := make([]byte, n)
		rand.New(rand.NewSource(int64(n))).Read(src)
		dst := make([]byte, n)

		a, b := region.FromBytes(dst), region.FromBytes(src)
		require.NoError(t, Copy(a, b, n))

		c, err := Compare(a, b, n)
		require.NoError(t, err)
		assert.Equal(t, 0, c, "n=%d", n)
	}
}

func TestCopy_Overlapping(t *testing.T) {
	cases := []struct {
		name           string
		dstOff, srcOff int
		n              int
	}{
		{"forward shift by 1", 1, 0, 20},
		{"forward shift by 7", 7, 0, 20},
		{"backward shift by 1", 0, 1, 20},
		{"backward shift by 9", 0, 9, 20},
		{"same range", 4, 4, 12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backing := make([]byte, 32)
			for i := range backing {
				backing[i] = byte(i + 1)
			}
			want := append([]byte(nil), backing...)
			copy(want[tc.dstOff:tc.dstOff+tc.n], append([]byte(nil), backing[tc.srcOff:tc.srcOff+tc.n]...))

			r := region.FromBytes(backing)
			dst, err := r.Sub(tc.dstOff, tc.n)
			require.NoError(t, err)
			src, err := r.Sub(tc.srcOff, tc.n)
			require.NoError(t, err)

			require.NoError(t, Copy(dst, src, tc.n))
			assert.Equal(t, want, backing)
		})
	}
}

func TestCopy_CountChecked(t *testing.T) {
	a := region.FromBytes(make([]byte, 4))
	b := region.FromBytes(make([]byte, 8))
	require.ErrorIs(t, Copy(a, b, 8), ErrOutOfRange)
	require.ErrorIs(t, Copy(b, a, 8), ErrOutOfRange)
}

func BenchmarkCompare(b *testing.B) {
	x := bytes.Repeat([]byte{0xA5}, 4096)
	y := bytes.Repeat([]byte{0xA5}, 4096)
	for _, step := range steps {
		b.Run(fmt.Sprintf("step%d", step), func(b *testing.B) {
			b.SetBytes(int64(len(x)))
			for i := 0; i < b.N; i++ {
				_, _ = CompareStep(region.FromBytes(x), region.FromBytes(y), len(x), step)
			}
		})
	}
}
