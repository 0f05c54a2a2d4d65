package packetcodec

import "sync"

// encoderPool backs the one-shot AppendPacket functions. Pooling whole
// encoders keeps their scratch buffers and zlib state warm between calls.
var encoderPool = sync.Pool{
	New: func() any {
		return NewEncoder()
	},
}

// maxPooledScratch keeps an occasional huge packet from pinning its scratch or
// compression buffer in the pool.
const maxPooledScratch = 64 * 1024

// AppendPacket appends one uncompressed frame carrying p to dst.
// On error dst is returned unchanged.
func AppendPacket(dst []byte, p Packet) ([]byte, error) {
	return AppendPacketCompressed(dst, p, NoCompression)
}

// AppendPacketCompressed appends one frame carrying p to dst, compressing
// the body if it is longer than threshold. A negative threshold is the same as AppendPacket.
func AppendPacketCompressed(dst []byte, p Packet, threshold int) ([]byte, error) {
	e := encoderPool.Get().(*Encoder)
	defer putEncoder(e)

	e.SetCompression(threshold)
	body, err := e.encodeBody(p)
	if err != nil {
		return dst, err
	}
	start := len(dst)
	out, err := e.appendFrame(dst, body)
	if err != nil {
		return dst[:start], err
	}
	return out, nil
}

// putEncoder returns e to the pool unless one of its buffers grew past
// maxPooledScratch. It reports whether e was pooled.
func putEncoder(e *Encoder) bool {
	if e.scratch.Cap() > maxPooledScratch || cap(e.zbuf) > maxPooledScratch {
		return false
	}
	encoderPool.Put(e)
	return true
}
