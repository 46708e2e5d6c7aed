package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/l3xz/dynamixel-bridge/pkg/mx28ar"
	"github.com/l3xz/dynamixel-bridge/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct {
	BaudRate int `long:"baud" default:"1000000" description:"Bus baud rate"`
	MaxID    int `long:"max-id" default:"20" description:"Highest servo ID to scan for"`
}

type busInfo struct {
	port string
	ids  []int
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("L3XZ Dynamixel Bridge Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println()

	// Step 1: Find the servo bus
	buses := c.findBuses()
	if len(buses) == 0 {
		fmt.Println("No servos found on any serial port.")
		fmt.Println("Make sure the bus adapter is connected and the servos are powered.")
		os.Exit(1)
	}

	bus := buses[0]
	if len(buses) > 1 {
		bus = selectBus(buses)
	}

	// Step 2: Check the expected wiring
	cfg := robot.DefaultConfig(bus.port)
	cfg.BaudRate = c.BaudRate

	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Servo wiring ━━━"))
	fmt.Println()
	fmt.Println(wiringTable(cfg, bus.ids))
	fmt.Println()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Step 3: Optionally move the head to verify pan/tilt
	if containsAll(bus.ids, cfg.Head.Pan, cfg.Head.Tilt) && confirm("Nudge the head to verify pan and tilt?") {
		if err := nudgeHead(cfg); err != nil {
			fmt.Println(warnStyle.Render(fmt.Sprintf("Head check failed: %v", err)))
		}
	}

	if !confirm(fmt.Sprintf("Save configuration to %s?", opts.Config)) {
		fmt.Println("Nothing saved.")
		return nil
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start the bridge with: " + headerStyle.Render("dynamixel-bridge run"))

	return nil
}

func (c *SetupCommand) findBuses() []busInfo {
	fmt.Println("Scanning serial ports for servos...")

	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var buses []busInfo

	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		ids, err := c.scanPort(port)
		if err != nil || len(ids) == 0 {
			continue
		}

		fmt.Printf("  Found %d servo(s) on %s: %v\n", len(ids), port, ids)
		buses = append(buses, busInfo{port: port, ids: ids})
	}

	return buses
}

func (c *SetupCommand) scanPort(port string) ([]int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: c.BaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  50 * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	defer bus.Close()

	servos, err := bus.Scan(ctx, 1, c.MaxID)
	if err != nil {
		return nil, err
	}

	ids := make([]int, len(servos))
	for i, s := range servos {
		ids[i] = s.ID
	}
	return ids, nil
}

func selectBus(buses []busInfo) busInfo {
	options := make([]huh.Option[int], len(buses))
	for i, b := range buses {
		options[i] = huh.NewOption(fmt.Sprintf("%s (%d servos)", b.port, len(b.ids)), i)
	}

	var choice int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Which port is the L3XZ servo bus?").
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return buses[choice]
}

func confirm(title string) bool {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return ok
}

func containsAll(ids []int, want ...int) bool {
	for _, id := range want {
		if !slices.Contains(ids, id) {
			return false
		}
	}
	return true
}

func wiringTable(cfg *robot.Config, found []int) string {
	foundStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	missingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)

	jointIDs := cfg.JointIDs()
	joints := robot.AllJoints()
	rows := make([][]string, 0, len(joints))
	present := make([]bool, 0, len(joints))
	for _, name := range joints {
		id := jointIDs[name]
		ok := slices.Contains(found, id)
		status := "missing"
		if ok {
			status = "found"
		}
		rows = append(rows, []string{string(name), fmt.Sprintf("%d", id), status})
		present = append(present, ok)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Joint", "ID", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 2 && row >= 0 && row < len(present) {
				if present[row] {
					return foundStyle
				}
				return missingStyle
			}
			return cellStyle
		})

	return t.Render()
}

// nudgeHead moves pan and tilt a few degrees and back, then releases torque.
func nudgeHead(cfg *robot.Config) error {
	r, err := robot.Open(cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx := context.Background()
	head := r.Head

	pan, tilt, err := head.PresentPosition(ctx)
	if err != nil {
		return err
	}

	if err := head.SetTorqueEnable(ctx, mx28ar.TorqueOff); err != nil {
		return err
	}
	if err := head.SetOperatingMode(ctx, mx28ar.PositionControl); err != nil {
		return err
	}
	if err := head.SetTorqueEnable(ctx, mx28ar.TorqueOn); err != nil {
		return err
	}
	defer func() {
		if err := head.SetTorqueEnable(ctx, mx28ar.TorqueOff); err != nil {
			fmt.Println(warnStyle.Render(fmt.Sprintf("  Warning: failed to release head torque: %v", err)))
		}
	}()

	fmt.Println("  Nudging pan, then tilt...")
	const nudgeDeg = 10.0
	steps := [][2]float64{
		{pan + nudgeDeg, tilt},
		{pan, tilt},
		{pan, tilt + nudgeDeg},
		{pan, tilt},
	}
	for _, s := range steps {
		if err := head.SetGoalPosition(ctx, s[0], s[1]); err != nil {
			return err
		}
		time.Sleep(600 * time.Millisecond)
	}

	return nil
}
