package robot

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/l3xz/dynamixel-bridge/pkg/mx28ar"
	"github.com/l3xz/dynamixel-bridge/pkg/servobus"
)

// Robot holds the head and coxa sync groups, which share one bus.
type Robot struct {
	Head *mx28ar.HeadSyncGroup
	Coxa *mx28ar.CoxaSyncGroup

	closer io.Closer
}

// Open opens the serial bus named in cfg and binds the servo groups to it.
//
// The bus speaks Protocol 1.0 framing with the STS sync read/write
// instructions (0x82/0x83). Servos running stock MX-28AR Protocol 2.0 firmware
// do not answer these frames; they need a 1.0-frame compatible bus adapter or
// must be reached through New with a Protocol 2.0 servobus.Bus.
func Open(cfg *Config) (*Robot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: cfg.BaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  cfg.Timeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	r := New(bus, cfg)
	r.closer = bus
	return r, nil
}

// New binds the servo groups described by cfg to an already open bus.
// The caller keeps ownership of bus.
func New(bus servobus.Bus, cfg *Config) *Robot {
	c := cfg.Coxa
	return &Robot{
		Head: mx28ar.NewHeadSyncGroup(bus, cfg.Head.Pan, cfg.Head.Tilt),
		Coxa: mx28ar.NewCoxaSyncGroup(bus,
			c.LeftFront, c.LeftMiddle, c.LeftBack,
			c.RightFront, c.RightMiddle, c.RightBack),
	}
}

// Close closes the bus if it was opened by Open.
func (r *Robot) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Groups returns the head and coxa groups.
func (r *Robot) Groups() []mx28ar.Group {
	return []mx28ar.Group{r.Head, r.Coxa}
}

// Enable enables torque on all servos.
func (r *Robot) Enable(ctx context.Context) error {
	return r.setTorque(ctx, mx28ar.TorqueOn)
}

// Disable disables torque on all servos.
func (r *Robot) Disable(ctx context.Context) error {
	return r.setTorque(ctx, mx28ar.TorqueOff)
}

// Prepare switches every servo to mode and enables torque. Servos only
// accept a mode change with torque off, so torque is released first.
func (r *Robot) Prepare(ctx context.Context, mode mx28ar.OperatingMode) error {
	if err := r.Disable(ctx); err != nil {
		return err
	}
	for _, g := range r.Groups() {
		if err := g.SetOperatingMode(ctx, mode); err != nil {
			return fmt.Errorf("set operating mode %s on %v: %w", mode, g.IDs(), err)
		}
	}
	return r.Enable(ctx)
}

// setTorque tries every group and reports all failures.
func (r *Robot) setTorque(ctx context.Context, torque mx28ar.TorqueEnable) error {
	var errs []error
	for _, g := range r.Groups() {
		if err := g.SetTorqueEnable(ctx, torque); err != nil {
			errs = append(errs, fmt.Errorf("torque %s on %v: %w", torque, g.IDs(), err))
		}
	}
	return errors.Join(errs...)
}
