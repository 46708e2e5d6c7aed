package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/l3xz/dynamixel-bridge/pkg/mx28ar"
	"github.com/l3xz/dynamixel-bridge/pkg/robot"
)

const commandTimeout = 2 * time.Second

func openRobot() (*robot.Robot, error) {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		return nil, fmt.Errorf("%w (run 'dynamixel-bridge setup' first)", err)
	}
	return robot.Open(cfg)
}

// explain adds a hint on whether retrying makes sense.
func explain(err error) error {
	switch {
	case mx28ar.IsPrecondition(err):
		return fmt.Errorf("invalid command: %w", err)
	case mx28ar.IsBusError(err):
		return fmt.Errorf("bus failure, check wiring and power: %w", err)
	default:
		return err
	}
}

type HeadCommand struct {
	Pan     *float64 `long:"pan" description:"Pan angle in degrees"`
	Tilt    *float64 `long:"tilt" description:"Tilt angle in degrees"`
	PanRPM  *float64 `long:"pan-rpm" description:"Pan velocity in RPM"`
	TiltRPM *float64 `long:"tilt-rpm" description:"Tilt velocity in RPM"`
}

func (c *HeadCommand) Execute(args []string) error {
	if (c.Pan == nil) != (c.Tilt == nil) {
		return errors.New("--pan and --tilt must be given together")
	}
	if (c.PanRPM == nil) != (c.TiltRPM == nil) {
		return errors.New("--pan-rpm and --tilt-rpm must be given together")
	}

	r, err := openRobot()
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if c.PanRPM != nil {
		if err := r.Head.SetGoalVelocity(ctx, *c.PanRPM, *c.TiltRPM); err != nil {
			return explain(err)
		}
		fmt.Printf("Head velocity: pan %.1f rpm, tilt %.1f rpm\n", *c.PanRPM, *c.TiltRPM)
	}
	if c.Pan != nil {
		if err := r.Head.SetGoalPosition(ctx, *c.Pan, *c.Tilt); err != nil {
			return explain(err)
		}
		fmt.Printf("Head goal: pan %.2f°, tilt %.2f°\n", *c.Pan, *c.Tilt)
	}

	pan, tilt, err := r.Head.PresentPosition(ctx)
	if err != nil {
		return explain(err)
	}
	fmt.Printf("Head present: pan %.2f°, tilt %.2f°\n", pan, tilt)
	return nil
}

type CoxaCommand struct {
	All  *float64           `long:"all" description:"Angle in degrees for all six legs"`
	Legs map[string]float64 `long:"leg" description:"Per-leg angle as name:degrees, e.g. left_front:10 (all six legs required)"`
	RPM  *float64           `long:"rpm" description:"Velocity in RPM for all six legs"`
}

func (c *CoxaCommand) Execute(args []string) error {
	if c.All != nil && len(c.Legs) > 0 {
		return errors.New("--all and --leg are mutually exclusive")
	}
	if c.All == nil && len(c.Legs) == 0 && c.RPM == nil {
		return errors.New("nothing to do: give --all, --leg or --rpm")
	}

	angles := make(map[mx28ar.CoxaID]float64, len(c.Legs))
	for name, deg := range c.Legs {
		id, err := mx28ar.ParseCoxaID(name)
		if err != nil {
			return explain(err)
		}
		angles[id] = deg
	}

	r, err := openRobot()
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if c.RPM != nil {
		if err := r.Coxa.SetAllGoalVelocities(ctx, *c.RPM); err != nil {
			return explain(err)
		}
		fmt.Printf("Coxa velocity: %.1f rpm\n", *c.RPM)
	}

	switch {
	case c.All != nil:
		if err := r.Coxa.SetAllGoalPositions(ctx, *c.All); err != nil {
			return explain(err)
		}
		fmt.Printf("Coxa goal: %.2f° on all legs\n", *c.All)
	case len(angles) > 0:
		if err := r.Coxa.SetGoalPositions(ctx, angles); err != nil {
			return explain(err)
		}
		for _, id := range mx28ar.AllCoxae() {
			fmt.Printf("  %-12s %.2f°\n", id, angles[id])
		}
	}
	return nil
}

type TorqueCommand struct {
	Mode string `long:"mode" choice:"position" choice:"extended" choice:"velocity" description:"Switch operating mode before enabling torque"`

	Args struct {
		State string `positional-arg-name:"on|off" required:"yes"`
	} `positional-args:"yes"`
}

var modeByName = map[string]mx28ar.OperatingMode{
	"position": mx28ar.PositionControl,
	"extended": mx28ar.ExtendedPositionControl,
	"velocity": mx28ar.VelocityControl,
}

func (c *TorqueCommand) Execute(args []string) error {
	r, err := openRobot()
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch c.Args.State {
	case "on":
		if c.Mode != "" {
			err = r.Prepare(ctx, modeByName[c.Mode])
		} else {
			err = r.Enable(ctx)
		}
	case "off":
		err = r.Disable(ctx)
	default:
		return fmt.Errorf("unknown torque state %q (want on or off)", c.Args.State)
	}
	if err != nil {
		return explain(err)
	}

	fmt.Printf("Torque %s on servos %v\n", c.Args.State, append(r.Head.IDs(), r.Coxa.IDs()...))
	return nil
}
