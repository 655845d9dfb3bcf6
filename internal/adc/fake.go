package adc

import "errors"

// FakeReader is a test double that returns scripted readings.
type FakeReader struct {
	// Values contains scripted readings. Each successful Read consumes
	// the next value; the last one repeats once exhausted.
	Values []int

	index int

	// Channels records the channel of every Read call.
	Channels []int

	// ReadError, if set, will be returned by Read()
	ReadError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeReader creates a FakeReader with the given values.
func NewFakeReader(values ...int) *FakeReader {
	return &FakeReader{Values: values}
}

// Read returns the next scripted value. The channel is validated like the
// real converter.
func (f *FakeReader) Read(channel int) (int, error) {
	f.Channels = append(f.Channels, channel)
	if err := CheckChannel(channel); err != nil {
		return 0, err
	}
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Values) == 0 {
		return 0, errors.New("no values configured")
	}

	v := f.Values[f.index]
	if f.index < len(f.Values)-1 {
		f.index++
	}
	return v, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}
