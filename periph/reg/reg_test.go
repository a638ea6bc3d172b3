package reg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/mcukit/mem/region"
)

func newTestBus(t testing.TB) *region.Space {
	t.Helper()
	s, err := region.NewSpace("regs", 0x40000000, region.Of(make([]uint32, 16)).Bytes())
	require.NoError(t, err)
	return s
}

func TestField(t *testing.T) {
	f := Field{Shift: 4, Width: 3}
	assert.Equal(t, uint32(0x70), f.Mask())
	assert.Equal(t, uint32(0x1), Bit(0).Mask())
	assert.Equal(t, uint32(0x80000000), Bit(31).Mask())
	assert.Equal(t, uint32(0xFFFFFF), Field{Width: 24}.Mask())
}

func TestReg32_FieldAccess(t *testing.T) {
	bus := newTestBus(t)
	r := At32(bus, 0x40000004)
	require.NoError(t, r.Write(0xFFFF0000))

	require.NoError(t, r.Set(Field{Shift: 4, Width: 4}, 0xA))
	v, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFFFF00A0), v)

	got, err := r.Get(Field{Shift: 16, Width: 8})
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFF), got)

	err = r.Set(Field{Shift: 0, Width: 2}, 4)
	require.ErrorIs(t, err, ErrFieldOverflow)

	require.NoError(t, r.Modify(func(v uint32) uint32 { return v | 1 }))
	v, err = r.Read()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFFFF00A1), v)
}

func TestReg32_BusErrors(t *testing.T) {
	bus := newTestBus(t)
	_, err := At32(bus, 0x40000002).Read()
	require.ErrorIs(t, err, region.ErrUnaligned)
	require.ErrorIs(t, At32(bus, 0x50000000).Write(1), region.ErrOutOfRange)
	require.Error(t, At32(bus, 0x50000000).Set(Bit(0), 1))
}

func TestReg16(t *testing.T) {
	bus := newTestBus(t)
	lo, hi := At16(bus, 0x40000008), At16(bus, 0x4000000A)

	require.NoError(t, lo.Write(0x1234))
	require.NoError(t, hi.Write(0xABCD))
	require.NoError(t, lo.Set(Bit(15), 1))

	v, err := lo.Read()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x9234), v)

	f, err := hi.Get(Field{Shift: 8, Width: 8})
	require.NoError(t, err)
	assert.Equal(t, uint16(0xAB), f)

	require.ErrorIs(t, lo.Set(Bit(16), 1), ErrFieldOverflow)
}
