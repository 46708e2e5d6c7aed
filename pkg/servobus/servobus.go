// Package servobus binds an ordered list of servo IDs to a shared bus handle
// and moves register values for all of them in a single sync frame.
package servobus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
)

// Sentinel errors for responses the group cannot map back onto its IDs.
var (
	ErrMalformedResponse = errors.New("malformed sync read response")
	ErrMissingResponse   = errors.New("missing sync read response")
)

// Bus is the shared bus handle a group issues its frames through.
// *feetech.Bus satisfies it. The bus serializes concurrent callers.
type Bus interface {
	SyncWrite(ctx context.Context, address byte, dataLen int, servoData map[int][]byte) error
	SyncRead(ctx context.Context, address byte, dataLen int, ids []int) (map[int][]byte, error)
}

// Register is a control table entry: start address and width in bytes.
type Register struct {
	Name    string
	Address byte
	Size    int // 1, 2 or 4 bytes
}

func (r Register) String() string {
	return fmt.Sprintf("%s@%d", r.Name, r.Address)
}

// SyncGroup addresses a fixed, ordered set of servos on a bus.
type SyncGroup struct {
	bus Bus
	ids []int
}

// NewSyncGroup binds ids to bus. The order of ids is the index order of
// every value slice passed to or returned from the group.
func NewSyncGroup(bus Bus, ids ...int) *SyncGroup {
	return &SyncGroup{
		bus: bus,
		ids: slices.Clone(ids),
	}
}

// IDs returns a copy of the servo IDs in group order.
func (g *SyncGroup) IDs() []int {
	return slices.Clone(g.ids)
}

// Len returns the number of servos in the group.
func (g *SyncGroup) Len() int {
	return len(g.ids)
}

// Write sends values[i] to servo IDs()[i] in one sync write frame.
func (g *SyncGroup) Write(ctx context.Context, reg Register, values []int32) error {
	if len(values) != len(g.ids) {
		return fmt.Errorf("write %s: got %d values for %d servos", reg, len(values), len(g.ids))
	}

	servoData := make(map[int][]byte, len(g.ids))
	for i, id := range g.ids {
		servoData[id] = encode(reg.Size, values[i])
	}

	if err := g.bus.SyncWrite(ctx, reg.Address, reg.Size, servoData); err != nil {
		return fmt.Errorf("sync write %s: %w", reg, err)
	}
	return nil
}

// Read fetches reg from every servo in one sync read and returns the values
// in group order.
func (g *SyncGroup) Read(ctx context.Context, reg Register) ([]int32, error) {
	data, err := g.bus.SyncRead(ctx, reg.Address, reg.Size, g.ids)
	if err != nil {
		return nil, fmt.Errorf("sync read %s: %w", reg, err)
	}

	values := make([]int32, len(g.ids))
	for i, id := range g.ids {
		d, ok := data[id]
		if !ok {
			return nil, fmt.Errorf("sync read %s: servo %d: %w", reg, id, ErrMissingResponse)
		}
		if len(d) != reg.Size {
			return nil, fmt.Errorf("sync read %s: servo %d: %w: got %d bytes, want %d",
				reg, id, ErrMalformedResponse, len(d), reg.Size)
		}
		values[i] = decode(d)
	}

	return values, nil
}

// encode writes v little-endian into size bytes. Wider values are truncated
// to the register width.
func encode(size int, v int32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return buf[:size]
}

// decode sign-extends the little-endian bytes in d.
func decode(d []byte) int32 {
	switch len(d) {
	case 1:
		return int32(d[0])
	case 2:
		return int32(int16(binary.LittleEndian.Uint16(d)))
	default:
		return int32(binary.LittleEndian.Uint32(d))
	}
}
