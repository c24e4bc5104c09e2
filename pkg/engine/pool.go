package engine

// pool is a fixed-capacity byte FIFO holding finished frames.
// It is not safe for concurrent use; Continuous guards it with its mutex.
type pool struct {
	buf  []byte
	read int
	n    int
}

func newPool(capacity int) *pool {
	return &pool{buf: make([]byte, capacity)}
}

// Len returns the number of buffered bytes.
func (p *pool) Len() int {
	return p.n
}

// Free returns the number of bytes that can still be written.
func (p *pool) Free() int {
	return len(p.buf) - p.n
}

// Write appends as much of data as fits and returns the number of bytes written.
func (p *pool) Write(data []byte) int {
	k := min(len(data), p.Free())
	w := (p.read + p.n) % len(p.buf)
	m := copy(p.buf[w:], data[:k])
	copy(p.buf, data[m:k])
	p.n += k
	return k
}

// Read moves up to len(dst) bytes out of the pool, oldest first.
func (p *pool) Read(dst []byte) int {
	k := min(len(dst), p.n)
	m := copy(dst[:k], p.buf[p.read:])
	copy(dst[m:k], p.buf)
	p.read = (p.read + k) % len(p.buf)
	p.n -= k
	if p.n == 0 {
		p.read = 0
	}
	return k
}

// Reset discards all buffered data.
func (p *pool) Reset() {
	p.read = 0
	p.n = 0
}
