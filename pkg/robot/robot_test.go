package robot

import (
	"context"
	"errors"
	"testing"

	"github.com/l3xz/dynamixel-bridge/pkg/mx28ar"
)

type syncWrite struct {
	address byte
	ids     map[int]byte
}

// recordingBus records sync writes of single-byte registers.
type recordingBus struct {
	writes   []syncWrite
	writeErr error
}

func (b *recordingBus) SyncWrite(ctx context.Context, address byte, dataLen int, servoData map[int][]byte) error {
	if b.writeErr != nil {
		return b.writeErr
	}
	w := syncWrite{address: address, ids: make(map[int]byte)}
	for id, d := range servoData {
		w.ids[id] = d[0]
	}
	b.writes = append(b.writes, w)
	return nil
}

func (b *recordingBus) SyncRead(ctx context.Context, address byte, dataLen int, ids []int) (map[int][]byte, error) {
	return nil, errors.New("not implemented")
}

func TestRobot_GroupsUseConfiguredIDs(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyUSB0")
	r := New(&recordingBus{}, cfg)

	head := r.Head.IDs()
	if head[0] != cfg.Head.Pan || head[1] != cfg.Head.Tilt {
		t.Errorf("head IDs = %v", head)
	}
	for coxa, want := range cfg.Coxa.IDs() {
		if id, _ := r.Coxa.ID(coxa); id != want {
			t.Errorf("coxa %s: got %d, want %d", coxa, id, want)
		}
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestRobot_Prepare(t *testing.T) {
	bus := &recordingBus{}
	r := New(bus, DefaultConfig("/dev/ttyUSB0"))

	if err := r.Prepare(context.Background(), mx28ar.PositionControl); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	expected := []struct {
		address byte
		value   byte
	}{
		{mx28ar.RegTorqueEnable.Address, 0},
		{mx28ar.RegTorqueEnable.Address, 0},
		{mx28ar.RegOperatingMode.Address, 3},
		{mx28ar.RegOperatingMode.Address, 3},
		{mx28ar.RegTorqueEnable.Address, 1},
		{mx28ar.RegTorqueEnable.Address, 1},
	}
	if len(bus.writes) != len(expected) {
		t.Fatalf("got %d writes, want %d", len(bus.writes), len(expected))
	}
	for i, w := range bus.writes {
		if w.address != expected[i].address {
			t.Errorf("write %d: address %d, want %d", i, w.address, expected[i].address)
		}
		for id, v := range w.ids {
			if v != expected[i].value {
				t.Errorf("write %d servo %d: value %d, want %d", i, id, v, expected[i].value)
			}
		}
	}
}

func TestRobot_DisableReportsAllGroups(t *testing.T) {
	busFailure := errors.New("bus unplugged")
	r := New(&recordingBus{writeErr: busFailure}, DefaultConfig("/dev/ttyUSB0"))

	err := r.Disable(context.Background())
	if !errors.Is(err, busFailure) || !mx28ar.IsBusError(err) {
		t.Fatalf("expected bus error, got %v", err)
	}
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig("")
	if _, err := Open(cfg); err == nil {
		t.Error("expected error for config without port")
	}
}

func TestAllJoints(t *testing.T) {
	joints := AllJoints()
	expected := []JointName{
		HeadPan, HeadTilt,
		LeftFrontCoxa, LeftMiddleCoxa, LeftBackCoxa,
		RightFrontCoxa, RightMiddleCoxa, RightBackCoxa,
	}
	if len(joints) != len(expected) {
		t.Fatalf("AllJoints returned %d joints, want %d", len(joints), len(expected))
	}
	for i := range expected {
		if joints[i] != expected[i] {
			t.Errorf("AllJoints()[%d] = %s, want %s", i, joints[i], expected[i])
		}
	}
}
