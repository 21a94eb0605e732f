package buffer

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestGrowDoublesWhenMoreThanHalfFull(t *testing.T) {
	b := New(8)
	r := strings.NewReader("abcde")

	if _, err := b.Fill(r); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if b.Cap() != 8 {
		t.Fatalf("expected capacity 8 before growth, got %d", b.Cap())
	}
	if !b.Grow() {
		t.Fatal("expected Grow to reallocate with 3 of 8 bytes free")
	}
	if b.Cap() != 16 {
		t.Errorf("expected capacity 16, got %d", b.Cap())
	}
	if b.Grow() {
		t.Error("expected no growth with 11 of 16 bytes free")
	}
}

func TestSpanSurvivesGrowth(t *testing.T) {
	b := New(4)
	r := iotest.OneByteReader(strings.NewReader("hello world"))

	for b.Filled() < 5 {
		if _, err := b.Fill(r); err != nil {
			t.Fatalf("Fill: %v", err)
		}
	}
	hello := Span{Off: 0, Len: 5}
	capBefore := b.Cap()

	for {
		if _, err := b.Fill(r); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("Fill: %v", err)
		}
	}

	if b.Cap() == capBefore {
		t.Fatal("expected the buffer to have grown")
	}
	if got := b.String(hello); got != "hello" {
		t.Errorf("span after growth = %q, want %q", got, "hello")
	}
	if got := b.String(Span{Off: 6, Len: 5}); got != "world" {
		t.Errorf("got %q, want %q", got, "world")
	}
}

func TestAdvanceNeverPassesFilled(t *testing.T) {
	b := New(16)
	if _, err := b.Fill(strings.NewReader("abc")); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	b.Advance(2)
	if !bytes.Equal(b.Unscanned(), []byte("c")) {
		t.Errorf("unscanned = %q, want %q", b.Unscanned(), "c")
	}
	b.Advance(10)
	if b.Scanned() != b.Filled() {
		t.Errorf("scanned %d past filled %d", b.Scanned(), b.Filled())
	}
}

type stuckReader struct{}

func (stuckReader) Read([]byte) (int, error) { return 0, nil }

func TestFillReportsNoProgress(t *testing.T) {
	b := New(0)
	if b.Cap() != InitialCapacity {
		t.Fatalf("expected default capacity %d, got %d", InitialCapacity, b.Cap())
	}
	if _, err := b.Fill(stuckReader{}); err != ErrNoProgress {
		t.Errorf("expected ErrNoProgress, got %v", err)
	}
}
