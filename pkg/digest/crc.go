package digest

import (
	"sync"
)

// crcParams describes one table-driven CRC variant
type crcParams struct {
	width      int  // 16 or 32
	reflected  bool // least-significant bit first
	complement bool // invert the register before output
	table      func() *[256]uint32
}

// CRC lookup tables are built at most once per process and are read-only
// afterwards, so hashing workers share them without locking.
var (
	crc16ForwardTable = sync.OnceValue(func() *[256]uint32 { return reflectedTable(0x8408) })
	crc16ReverseTable = sync.OnceValue(func() *[256]uint32 { return msbTable(0x1021, 16) })
	crc32ForwardTable = sync.OnceValue(func() *[256]uint32 { return reflectedTable(0xEDB88320) })
	crc32ReverseTable = sync.OnceValue(func() *[256]uint32 { return msbTable(0x04C11DB7, 32) })
)

var (
	crc16Forward = &crcParams{width: 16, reflected: true, complement: true, table: crc16ForwardTable}
	// The 16-bit reverse variant is not complemented, unlike its 32-bit sibling.
	crc16Reverse = &crcParams{width: 16, reflected: false, complement: false, table: crc16ReverseTable}
	crc32Forward = &crcParams{width: 32, reflected: true, complement: true, table: crc32ForwardTable}
	crc32Reverse = &crcParams{width: 32, reflected: false, complement: true, table: crc32ReverseTable}
)

func reflectedTable(poly uint32) *[256]uint32 {
	var t [256]uint32
	for i := range t {
		crc := uint32(i)
		for j := 0; j < 8; j++ {
			if crc&1 == 1 {
				crc = crc>>1 ^ poly
			} else {
				crc >>= 1
			}
		}
		t[i] = crc
	}
	return &t
}

func msbTable(poly uint32, width int) *[256]uint32 {
	var t [256]uint32
	top := uint32(1) << (width - 1)
	mask := widthMask(width)
	for i := range t {
		crc := uint32(i) << (width - 8)
		for j := 0; j < 8; j++ {
			if crc&top != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc & mask
	}
	return &t
}

func widthMask(width int) uint32 {
	if width == 32 {
		return 0xFFFFFFFF
	}
	return 1<<width - 1
}

// crcHash implements hash.Hash for a CRC variant
type crcHash struct {
	params *crcParams
	table  *[256]uint32
	mask   uint32
	crc    uint32
}

func newCRC(p *crcParams) *crcHash {
	h := &crcHash{params: p, table: p.table(), mask: widthMask(p.width)}
	h.Reset()
	return h
}

func (h *crcHash) Write(p []byte) (int, error) {
	crc := h.crc
	t := h.table
	if h.params.reflected {
		for _, b := range p {
			crc = t[byte(crc)^b] ^ crc>>8
		}
	} else {
		shift := h.params.width - 8
		for _, b := range p {
			crc = (t[byte(crc>>shift)^b] ^ crc<<8) & h.mask
		}
	}
	h.crc = crc
	return len(p), nil
}

// Sum32 returns the finalized register value
func (h *crcHash) Sum32() uint32 {
	if h.params.complement {
		return ^h.crc & h.mask
	}
	return h.crc
}

// Sum appends the big-endian CRC value to b
func (h *crcHash) Sum(b []byte) []byte {
	v := h.Sum32()
	if h.params.width == 16 {
		return append(b, byte(v>>8), byte(v))
	}
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func (h *crcHash) Reset()         { h.crc = h.mask }
func (h *crcHash) Size() int      { return h.params.width / 8 }
func (h *crcHash) BlockSize() int { return 1 }
