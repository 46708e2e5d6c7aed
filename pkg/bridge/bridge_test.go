package bridge

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/l3xz/dynamixel-bridge/pkg/mx28ar"
	"github.com/l3xz/dynamixel-bridge/pkg/robot"
)

type busWrite struct {
	address byte
	data    map[int][]byte
}

// echoBus stores written registers and answers present position reads with
// the last goal position.
type echoBus struct {
	mu       sync.Mutex
	writes   []busWrite
	mem      map[int]map[byte][]byte
	writeErr error
}

func newEchoBus() *echoBus {
	return &echoBus{mem: make(map[int]map[byte][]byte)}
}

func (b *echoBus) SyncWrite(ctx context.Context, address byte, dataLen int, servoData map[int][]byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeErr != nil {
		return b.writeErr
	}
	w := busWrite{address: address, data: make(map[int][]byte)}
	for id, d := range servoData {
		w.data[id] = slices.Clone(d)
		if b.mem[id] == nil {
			b.mem[id] = make(map[byte][]byte)
		}
		b.mem[id][address] = slices.Clone(d)
	}
	b.writes = append(b.writes, w)
	return nil
}

func (b *echoBus) SyncRead(ctx context.Context, address byte, dataLen int, ids []int) (map[int][]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if address == mx28ar.RegPresentPosition.Address {
		address = mx28ar.RegGoalPosition.Address
	}
	result := make(map[int][]byte)
	for _, id := range ids {
		if d, ok := b.mem[id][address]; ok {
			result[id] = slices.Clone(d)
		}
	}
	return result, nil
}

func (b *echoBus) writesTo(address byte) []busWrite {
	b.mu.Lock()
	defer b.mu.Unlock()
	var result []busWrite
	for _, w := range b.writes {
		if w.address == address {
			result = append(result, w)
		}
	}
	return result
}

func raw(d []byte) int32 {
	if len(d) == 1 {
		return int32(d[0])
	}
	return int32(binary.LittleEndian.Uint32(d))
}

func allLegs(v float64) map[mx28ar.CoxaID]float64 {
	m := make(map[mx28ar.CoxaID]float64)
	for _, id := range mx28ar.AllCoxae() {
		m[id] = v
	}
	return m
}

func runFor(t *testing.T, ctrl *Controller, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	if err := ctrl.Start(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Start returned %v, want deadline exceeded", err)
	}
}

func TestController_FlushesTargetsAndPublishesState(t *testing.T) {
	bus := newEchoBus()
	cfg := robot.DefaultConfig("/dev/ttyUSB0")
	ctrl := NewController(robot.New(bus, cfg), Config{Hz: 100})

	ctrl.SetHeadTarget(HeadTarget{PanDeg: 90, TiltDeg: -45, PanRPM: 22.9, TiltRPM: 22.9, Velocity: true})
	if err := ctrl.SetCoxaTarget(CoxaTarget{AnglesDeg: allLegs(180)}); err != nil {
		t.Fatalf("SetCoxaTarget failed: %v", err)
	}

	runFor(t, ctrl, 100*time.Millisecond)

	goals := bus.writesTo(mx28ar.RegGoalPosition.Address)
	if len(goals) != 2 {
		t.Fatalf("got %d goal position writes, want 2 (head and coxa once)", len(goals))
	}
	if raw(goals[0].data[cfg.Head.Pan]) != 1024 || raw(goals[0].data[cfg.Head.Tilt]) != -512 {
		t.Errorf("head goal: pan=%d tilt=%d", raw(goals[0].data[cfg.Head.Pan]), raw(goals[0].data[cfg.Head.Tilt]))
	}
	for _, id := range cfg.Coxa.IDs() {
		if got := raw(goals[1].data[id]); got != 2048 {
			t.Errorf("coxa servo %d goal: got %d, want 2048", id, got)
		}
	}

	velocities := bus.writesTo(mx28ar.RegGoalVelocity.Address)
	if len(velocities) != 1 || raw(velocities[0].data[cfg.Head.Pan]) != 100 {
		t.Errorf("head velocity writes: %+v", velocities)
	}

	select {
	case s := <-ctrl.States():
		if s.Error != nil {
			t.Fatalf("state error: %v", s.Error)
		}
		if math.Abs(s.Pan-90) > 1e-3 || math.Abs(s.Tilt+45) > 1e-3 {
			t.Errorf("state = (%f, %f), want (90, -45)", s.Pan, s.Tilt)
		}
	default:
		t.Fatal("no state published")
	}

	torque := bus.writesTo(mx28ar.RegTorqueEnable.Address)
	last := torque[len(torque)-1]
	for id, d := range last.data {
		if raw(d) != int32(mx28ar.TorqueOff) {
			t.Errorf("servo %d torque after shutdown: %d", id, raw(d))
		}
	}
}

func TestController_PrepareFailure(t *testing.T) {
	bus := newEchoBus()
	bus.writeErr = errors.New("bus unplugged")
	ctrl := NewController(robot.New(bus, robot.DefaultConfig("/dev/ttyUSB0")), Config{})

	err := ctrl.Start(context.Background())
	if !errors.Is(err, bus.writeErr) {
		t.Fatalf("expected bus error, got %v", err)
	}
	if ctrl.Hz() != robot.DefaultHz {
		t.Errorf("Hz() = %d, want %d", ctrl.Hz(), robot.DefaultHz)
	}
}

func TestController_ReadErrorPublished(t *testing.T) {
	// Nothing written to goal position, so the echo has nothing to answer with.
	bus := newEchoBus()
	ctrl := NewController(robot.New(bus, robot.DefaultConfig("/dev/ttyUSB0")), Config{Hz: 100})

	runFor(t, ctrl, 50*time.Millisecond)

	select {
	case s := <-ctrl.States():
		if !mx28ar.IsBusError(s.Error) {
			t.Errorf("state error = %v, want bus error", s.Error)
		}
	default:
		t.Fatal("no state published")
	}
}

func TestController_SetCoxaTargetRejectsIncomplete(t *testing.T) {
	ctrl := NewController(robot.New(newEchoBus(), robot.DefaultConfig("/dev/ttyUSB0")), Config{})

	angles := allLegs(0)
	delete(angles, mx28ar.RightBack)
	err := ctrl.SetCoxaTarget(CoxaTarget{AnglesDeg: angles})
	if !errors.Is(err, mx28ar.ErrMissingCoxa) {
		t.Errorf("expected ErrMissingCoxa, got %v", err)
	}

	err = ctrl.SetCoxaTarget(CoxaTarget{AnglesDeg: allLegs(0), VelocitiesRPM: map[mx28ar.CoxaID]float64{}})
	if !errors.Is(err, mx28ar.ErrMissingCoxa) {
		t.Errorf("expected ErrMissingCoxa for velocities, got %v", err)
	}
}

func TestController_SetCoxaTargetRejectsUnknownLeg(t *testing.T) {
	ctrl := NewController(robot.New(newEchoBus(), robot.DefaultConfig("/dev/ttyUSB0")), Config{})

	angles := allLegs(0)
	angles[mx28ar.CoxaID(9)] = 1
	err := ctrl.SetCoxaTarget(CoxaTarget{AnglesDeg: angles})
	if !errors.Is(err, mx28ar.ErrUnknownCoxa) {
		t.Errorf("expected ErrUnknownCoxa, got %v", err)
	}

	velocities := allLegs(1)
	velocities[mx28ar.CoxaID(-1)] = 1
	err = ctrl.SetCoxaTarget(CoxaTarget{AnglesDeg: allLegs(0), VelocitiesRPM: velocities})
	if !errors.Is(err, mx28ar.ErrUnknownCoxa) {
		t.Errorf("expected ErrUnknownCoxa for velocities, got %v", err)
	}
}

func TestController_SetCoxaTargetCopiesMaps(t *testing.T) {
	bus := newEchoBus()
	cfg := robot.DefaultConfig("/dev/ttyUSB0")
	ctrl := NewController(robot.New(bus, cfg), Config{Hz: 100})

	angles := allLegs(90)
	velocities := allLegs(22.9)
	if err := ctrl.SetCoxaTarget(CoxaTarget{AnglesDeg: angles, VelocitiesRPM: velocities}); err != nil {
		t.Fatalf("SetCoxaTarget failed: %v", err)
	}

	// Reusing the maps after the call must not change the pending target.
	delete(angles, mx28ar.RightBack)
	angles[mx28ar.LeftFront] = -90
	clear(velocities)

	runFor(t, ctrl, 100*time.Millisecond)

	goals := bus.writesTo(mx28ar.RegGoalPosition.Address)
	if len(goals) != 1 {
		t.Fatalf("got %d goal position writes, want 1", len(goals))
	}
	for _, id := range cfg.Coxa.IDs() {
		if got := raw(goals[0].data[id]); got != 1024 {
			t.Errorf("coxa servo %d goal: got %d, want 1024", id, got)
		}
	}

	speeds := bus.writesTo(mx28ar.RegGoalVelocity.Address)
	if len(speeds) != 1 {
		t.Fatalf("got %d goal velocity writes, want 1", len(speeds))
	}
	for _, id := range cfg.Coxa.IDs() {
		if got := raw(speeds[0].data[id]); got != 100 {
			t.Errorf("coxa servo %d velocity: got %d, want 100", id, got)
		}
	}
}
