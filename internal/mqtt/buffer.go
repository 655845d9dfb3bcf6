package mqtt

// bufferedMsg is a serialized message waiting for the broker to come back.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog holds at most cap(slots) messages while the client is offline.
// When full, the oldest message is overwritten and counted as dropped.
// Callers synchronize.
type backlog struct {
	slots   []bufferedMsg
	first   int
	n       int
	dropped int
}

func newBacklog(size int) *backlog {
	return &backlog{slots: make([]bufferedMsg, max(size, 1))}
}

func (b *backlog) add(msg bufferedMsg) {
	size := len(b.slots)
	if b.n < size {
		b.slots[(b.first+b.n)%size] = msg
		b.n++
		return
	}
	b.slots[b.first] = msg
	b.first = (b.first + 1) % size
	b.dropped++
}

// take empties the backlog, returning the held messages oldest first and
// how many were overwritten since the previous take.
func (b *backlog) take() ([]bufferedMsg, int) {
	dropped := b.dropped
	if b.n == 0 {
		b.dropped = 0
		return nil, dropped
	}
	out := make([]bufferedMsg, 0, b.n)
	for i := 0; i < b.n; i++ {
		out = append(out, b.slots[(b.first+i)%len(b.slots)])
	}
	clear(b.slots)
	b.first, b.n, b.dropped = 0, 0, 0
	return out, dropped
}

func (b *backlog) size() int {
	return b.n
}
