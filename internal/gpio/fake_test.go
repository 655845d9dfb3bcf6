package gpio

import (
	"errors"
	"testing"
)

func TestFakeButtonRead(t *testing.T) {
	f := NewFakeButton(true, false, true)

	want := []bool{true, false, true, true} // last level repeats
	for i, w := range want {
		got, err := f.Read()
		if err != nil {
			t.Fatalf("read %d: unexpected error: %v", i, err)
		}
		if got != w {
			t.Errorf("read %d: expected %v, got %v", i, w, got)
		}
	}
}

func TestFakeButtonNoLevels(t *testing.T) {
	f := NewFakeButton()

	if _, err := f.Read(); err == nil {
		t.Error("expected error with no levels")
	}
}

func TestFakeButtonError(t *testing.T) {
	f := NewFakeButton(true)
	f.ReadError = errors.New("simulated error")

	_, err := f.Read()
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeButtonReset(t *testing.T) {
	f := NewFakeButton(false, true)
	f.Read()
	f.Close()

	f.Reset()

	if f.Closed {
		t.Error("should not be closed after Reset()")
	}
	if got, _ := f.Read(); got != false {
		t.Errorf("after reset: expected false, got %v", got)
	}
}

func TestFakeFanRecordsCommands(t *testing.T) {
	f := NewFakeFan()

	for _, on := range []bool{false, true, false} {
		if err := f.Set(on); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if len(f.Commands) != 3 || f.Commands[0] || !f.Commands[1] || f.Commands[2] {
		t.Errorf("unexpected commands: %v", f.Commands)
	}
	if f.On {
		t.Error("fan should be off after last command")
	}
}

func TestFakeFanError(t *testing.T) {
	f := NewFakeFan()
	f.SetError = errors.New("line busy")

	if err := f.Set(true); err == nil {
		t.Error("expected error to be returned")
	}
	if f.On {
		t.Error("failed command must not change state")
	}
	if len(f.Commands) != 1 {
		t.Errorf("expected command to be recorded, got %v", f.Commands)
	}
}

func TestFakeFanClose(t *testing.T) {
	f := NewFakeFan()
	f.Set(true)

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed || f.On {
		t.Errorf("expected closed and off, got closed=%v on=%v", f.Closed, f.On)
	}
}
