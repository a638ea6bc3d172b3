package buf

import (
	"math"
	"testing"
)

func TestAddOverflowSafe(t *testing.T) {
	if sum, ok := AddOverflowSafe(10, 5); !ok || sum != 15 {
		t.Fatalf("AddOverflowSafe(10,5)=%d,%v want 15,true", sum, ok)
	}
	if _, ok := AddOverflowSafe(math.MaxInt, 1); ok {
		t.Fatalf("expected overflow when adding to MaxInt")
	}
	if _, ok := AddOverflowSafe(math.MinInt, -1); ok {
		t.Fatalf("expected underflow when subtracting from MinInt")
	}
}

func TestAddrOverflowSafe(t *testing.T) {
	if end, ok := AddrOverflowSafe(0x20000000, 0x1000); !ok || end != 0x20001000 {
		t.Fatalf("AddrOverflowSafe = 0x%x,%v", end, ok)
	}
	if _, ok := AddrOverflowSafe(^uintptr(0), 1); ok {
		t.Fatalf("expected wrap past top of address space")
	}
	if end, ok := AddrOverflowSafe(^uintptr(0), 0); !ok || end != ^uintptr(0) {
		t.Fatalf("zero-length at top of address space should be valid")
	}
	if _, ok := AddrOverflowSafe(0, -1); ok {
		t.Fatalf("negative length must be rejected")
	}
}

func TestMulOverflowSafe(t *testing.T) {
	if got, ok := MulOverflowSafe(126, 8); !ok || got != 1008 {
		t.Fatalf("MulOverflowSafe(126,8)=%d,%v", got, ok)
	}
	if _, ok := MulOverflowSafe(math.MaxInt, 2); ok {
		t.Fatalf("expected overflow")
	}
	if _, ok := MulOverflowSafe(-1, 2); ok {
		t.Fatalf("negative operand must be rejected")
	}
}

func TestCheckSpan(t *testing.T) {
	end, err := CheckSpan(64, 8, 4, 8)
	if err != nil || end != 40 {
		t.Fatalf("CheckSpan = %d,%v want 40,nil", end, err)
	}
	if _, err := CheckSpan(64, 60, 1, 8); err == nil {
		t.Fatalf("expected bounds error")
	}
	if _, err := CheckSpan(64, -1, 1, 1); err == nil {
		t.Fatalf("expected negative offset error")
	}
	if _, err := CheckSpan(64, 0, math.MaxInt, 2); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestSliceAndHas(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4}
	if got, ok := Slice(data, 1, 3); !ok || len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("Slice returned unexpected result: %v, %v", got, ok)
	}
	if got, _ := Slice(data, 1, 3); cap(got) != 3 {
		t.Fatalf("Slice should cap the result at its length, got cap %d", cap(got))
	}
	if _, ok := Slice(data, 4, 2); ok {
		t.Fatalf("Slice should fail when extending beyond len")
	}
	if Has(data, 2, 4) {
		t.Fatalf("Has should be false for out-of-bounds range")
	}
	if !Has(data, 2, 1) {
		t.Fatalf("Has should be true for valid range")
	}

	if _, ok := Slice(data, -1, 1); ok {
		t.Fatalf("Slice should reject negative offset")
	}
	if _, ok := Slice(data, 1, -1); ok {
		t.Fatalf("Slice should reject negative length")
	}
}

func TestCeilDiv(t *testing.T) {
	if CeilDiv(128, 8) != 16 || CeilDiv(4, 8) != 1 || CeilDiv(16, 8) != 2 || CeilDiv(0, 8) != 0 {
		t.Fatalf("CeilDiv mismatch")
	}
}
