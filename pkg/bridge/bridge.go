// Package bridge runs the servo control loop: it publishes head position
// snapshots and flushes the latest head and coxa setpoints to the bus.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/l3xz/dynamixel-bridge/pkg/mx28ar"
	"github.com/l3xz/dynamixel-bridge/pkg/robot"
)

// State is one head position snapshot.
type State struct {
	Pan       float64
	Tilt      float64
	Timestamp time.Time
	Error     error
}

// HeadTarget is a head setpoint. Velocity is only written when set.
type HeadTarget struct {
	PanDeg, TiltDeg float64
	PanRPM, TiltRPM float64
	Velocity        bool
}

// CoxaTarget is a coxa setpoint for all six legs.
type CoxaTarget struct {
	AnglesDeg     map[mx28ar.CoxaID]float64
	VelocitiesRPM map[mx28ar.CoxaID]float64 // nil leaves velocities untouched
}

// Config holds configuration for the controller.
type Config struct {
	Hz   int
	Mode mx28ar.OperatingMode // Defaults to mx28ar.PositionControl
}

// Controller owns the control loop over one robot.
type Controller struct {
	robot *robot.Robot
	hz    int
	mode  mx28ar.OperatingMode

	mu      sync.Mutex
	running bool
	head    *HeadTarget
	coxa    *CoxaTarget
	stateCh chan State
	logCh   chan string
}

// NewController creates a controller for r.
func NewController(r *robot.Robot, cfg Config) *Controller {
	if cfg.Hz <= 0 {
		cfg.Hz = robot.DefaultHz
	}
	if cfg.Mode == 0 {
		cfg.Mode = mx28ar.PositionControl
	}

	return &Controller{
		robot:   r,
		hz:      cfg.Hz,
		mode:    cfg.Mode,
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
	}
}

// States returns a channel that receives head position snapshots.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// SetHeadTarget replaces the pending head setpoint.
func (c *Controller) SetHeadTarget(t HeadTarget) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = &t
}

// SetCoxaTarget replaces the pending coxa setpoint. The maps must hold exactly
// the six legs; anything else is rejected without touching the pending one.
// The maps are copied, so the caller may reuse them afterwards.
func (c *Controller) SetCoxaTarget(t CoxaTarget) error {
	if err := complete(t.AnglesDeg); err != nil {
		return fmt.Errorf("coxa angles: %w", err)
	}
	if t.VelocitiesRPM != nil {
		if err := complete(t.VelocitiesRPM); err != nil {
			return fmt.Errorf("coxa velocities: %w", err)
		}
	}

	t.AnglesDeg = maps.Clone(t.AnglesDeg)
	t.VelocitiesRPM = maps.Clone(t.VelocitiesRPM)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.coxa = &t
	return nil
}

func complete(m map[mx28ar.CoxaID]float64) error {
	for id := range m {
		if !id.Valid() {
			return fmt.Errorf("%w: %d", mx28ar.ErrUnknownCoxa, int(id))
		}
	}
	for _, id := range mx28ar.AllCoxae() {
		if _, ok := m[id]; !ok {
			return fmt.Errorf("%w: %s", mx28ar.ErrMissingCoxa, id)
		}
	}
	return nil
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start prepares the servos and runs the control loop until ctx is done.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("already running")
	}
	c.running = true
	c.mu.Unlock()

	if err := c.robot.Prepare(ctx, c.mode); err != nil {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return fmt.Errorf("prepare servos: %w", err)
	}
	c.log("Servos in %s mode, torque enabled", c.mode)
	c.log("Bridge started at %d Hz", c.hz)

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.step(ctx)
		}
	}
}

func (c *Controller) step(ctx context.Context) {
	c.flush(ctx)

	pan, tilt, err := c.robot.Head.PresentPosition(ctx)
	if err != nil {
		c.log("Read error: %v", err)
		c.sendState(State{Error: err, Timestamp: time.Now()})
		return
	}

	c.sendState(State{
		Pan:       pan,
		Tilt:      tilt,
		Timestamp: time.Now(),
	})
}

// flush writes the pending setpoints. A setpoint is cleared once taken,
// failed writes are logged and not retried.
func (c *Controller) flush(ctx context.Context) {
	c.mu.Lock()
	head, coxa := c.head, c.coxa
	c.head, c.coxa = nil, nil
	c.mu.Unlock()

	if head != nil {
		if head.Velocity {
			if err := c.robot.Head.SetGoalVelocity(ctx, head.PanRPM, head.TiltRPM); err != nil {
				c.log("Head velocity write error: %v", err)
			}
		}
		if err := c.robot.Head.SetGoalPosition(ctx, head.PanDeg, head.TiltDeg); err != nil {
			c.log("Head position write error: %v", err)
		}
	}

	if coxa != nil {
		if coxa.VelocitiesRPM != nil {
			if err := c.robot.Coxa.SetGoalVelocities(ctx, coxa.VelocitiesRPM); err != nil {
				c.log("Coxa velocity write error: %v", err)
			}
		}
		if err := c.robot.Coxa.SetGoalPositions(ctx, coxa.AnglesDeg); err != nil {
			c.log("Coxa position write error: %v", err)
		}
	}
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	ctx := context.Background()
	if err := c.robot.Disable(ctx); err != nil {
		c.log("Warning: failed to disable servos: %v", err)
	} else {
		c.log("Servos: torque disabled")
	}
	c.log("Bridge stopped")
}
