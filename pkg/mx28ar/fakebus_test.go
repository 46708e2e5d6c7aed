package mx28ar

import (
	"context"
	"encoding/binary"
	"maps"
	"slices"
)

// frame is one recorded sync write.
type frame struct {
	address byte
	size    int
	data    map[int][]byte
}

// value decodes the little-endian value written to id.
func (f frame) value(id int) int32 {
	d := f.data[id]
	if f.size == 1 {
		return int32(d[0])
	}
	return int32(binary.LittleEndian.Uint32(d))
}

// fakeBus records sync writes and answers sync reads from a per-servo
// register memory.
type fakeBus struct {
	writes []frame
	reads  [][]int

	// mem[id][address] holds the last bytes written to or preset for a register.
	mem map[int]map[byte][]byte

	// echo maps a read address to the write address it mirrors.
	echo map[byte]byte

	writeErr error
	readErr  error
}

func newFakeBus() *fakeBus {
	return &fakeBus{mem: make(map[int]map[byte][]byte)}
}

func (b *fakeBus) SyncWrite(ctx context.Context, address byte, dataLen int, servoData map[int][]byte) error {
	if b.writeErr != nil {
		return b.writeErr
	}
	b.writes = append(b.writes, frame{address: address, size: dataLen, data: maps.Clone(servoData)})
	for id, d := range servoData {
		b.preset(id, address, d)
	}
	return nil
}

func (b *fakeBus) SyncRead(ctx context.Context, address byte, dataLen int, ids []int) (map[int][]byte, error) {
	b.reads = append(b.reads, slices.Clone(ids))
	if b.readErr != nil {
		return nil, b.readErr
	}
	src := address
	if a, ok := b.echo[address]; ok {
		src = a
	}
	result := make(map[int][]byte, len(ids))
	for _, id := range ids {
		if d, ok := b.mem[id][src]; ok {
			result[id] = slices.Clone(d)
		}
	}
	return result, nil
}

func (b *fakeBus) preset(id int, address byte, d []byte) {
	if b.mem[id] == nil {
		b.mem[id] = make(map[byte][]byte)
	}
	b.mem[id][address] = slices.Clone(d)
}

// presetRaw stores a 4-byte value for id at address.
func (b *fakeBus) presetRaw(id int, address byte, v int32) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	b.preset(id, address, buf)
}
