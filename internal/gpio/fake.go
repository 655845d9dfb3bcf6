package gpio

import "errors"

// FakeButton is a test double that returns scripted button levels.
type FakeButton struct {
	// Levels contains scripted raw levels to return (true = idle).
	// Each call to Read() consumes the next level.
	Levels []bool

	// index tracks current position in Levels
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeButton creates a FakeButton with the given levels.
func NewFakeButton(levels ...bool) *FakeButton {
	return &FakeButton{Levels: levels}
}

// Read returns the next scripted level.
// If levels are exhausted, returns the last level repeatedly.
func (f *FakeButton) Read() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Levels) == 0 {
		return false, errors.New("no levels configured")
	}

	level := f.Levels[f.index]
	if f.index < len(f.Levels)-1 {
		f.index++
	}
	return level, nil
}

// Close marks the button as closed.
func (f *FakeButton) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds to the first level.
func (f *FakeButton) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeFan records every command it receives.
type FakeFan struct {
	// Commands holds each value passed to Set, in order.
	Commands []bool

	// On is the last commanded state.
	On bool

	// SetError, if set, will be returned by Set (the command is still recorded).
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeFan creates a FakeFan that starts off.
func NewFakeFan() *FakeFan {
	return &FakeFan{}
}

// Set records the command.
func (f *FakeFan) Set(on bool) error {
	f.Commands = append(f.Commands, on)
	if f.SetError != nil {
		return f.SetError
	}
	f.On = on
	return nil
}

// Close drives the fan off and marks it closed.
func (f *FakeFan) Close() error {
	f.On = false
	f.Closed = true
	return nil
}
