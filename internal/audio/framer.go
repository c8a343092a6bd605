package audio

// Framer slices capture blocks into fixed-size frames for the Opus monitor.
// Samples that do not fill a frame are carried into the next Push.
type Framer struct {
	size    int
	pending []float32
}

// NewFramer creates a framer emitting frames of size samples.
func NewFramer(size int) *Framer {
	if size <= 0 {
		size = FrameSize
	}
	return &Framer{size: size, pending: make([]float32, 0, size)}
}

// Push appends a block and returns every complete frame, in order.
// Returned frames do not alias the input block.
func (f *Framer) Push(block []float32) [][]float32 {
	buf := append(f.pending, block...)
	total := len(buf) / f.size

	frames := make([][]float32, 0, total)
	for i := 0; i < total; i++ {
		frame := make([]float32, f.size)
		copy(frame, buf[i*f.size:(i+1)*f.size])
		frames = append(frames, frame)
	}

	rest := buf[total*f.size:]
	f.pending = append(f.pending[:0], rest...)
	return frames
}

// Pending returns the number of buffered samples not yet framed.
func (f *Framer) Pending() int {
	return len(f.pending)
}
