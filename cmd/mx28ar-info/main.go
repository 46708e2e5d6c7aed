package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"github.com/jessevdk/go-flags"
	"go.bug.st/serial"

	"github.com/l3xz/dynamixel-bridge/pkg/mx28ar"
	"github.com/l3xz/dynamixel-bridge/pkg/robot"
)

type Options struct {
	Port     string `short:"p" long:"port" description:"Serial port (default: scan all ports)"`
	BaudRate int    `long:"baud" default:"1000000" description:"Bus baud rate"`
	MaxID    int    `long:"max-id" default:"20" description:"Highest servo ID to scan for"`
	Config   string `short:"c" long:"config" default:"l3xz.json" description:"Configuration file used to label joints"`
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func main() {
	var opts Options
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	fmt.Println(headerStyle.Render("MX-28AR Servo Info"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━"))
	fmt.Println()

	ports := []string{opts.Port}
	if opts.Port == "" {
		var err error
		ports, err = serial.GetPortsList()
		if err != nil {
			fmt.Printf("Error listing ports: %v\n", err)
			os.Exit(1)
		}
	}

	// Joint labels are optional
	cfg, _ := robot.LoadConfigFrom(opts.Config)

	found := 0
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		n, err := showPort(port, opts, cfg)
		if err != nil {
			fmt.Printf("  %s: %v\n", port, err)
			continue
		}
		found += n
	}

	if found == 0 {
		fmt.Println("No servos found.")
		fmt.Println("Make sure the bus adapter is connected and the servos are powered.")
		os.Exit(1)
	}
}

// showPort scans port and prints one row per servo, with all positions taken
// from a single sync read.
func showPort(port string, opts Options, cfg *robot.Config) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: opts.BaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  50 * time.Millisecond,
	})
	if err != nil {
		return 0, err
	}
	defer bus.Close()

	servos, err := bus.Scan(ctx, 1, opts.MaxID)
	if err != nil {
		return 0, err
	}
	if len(servos) == 0 {
		return 0, nil
	}

	ids := make([]int, len(servos))
	for i, s := range servos {
		ids[i] = s.ID
	}

	group := mx28ar.NewSyncGroup(bus, ids...)
	angles, err := group.PresentPosition(ctx)
	if err != nil {
		return 0, fmt.Errorf("read positions of %v: %w", ids, err)
	}

	rows := make([][]string, len(ids))
	for i, id := range group.IDs() {
		joint := "-"
		if cfg != nil {
			if name, ok := cfg.ByID(id); ok {
				joint = string(name)
			}
		}
		rows[i] = []string{
			fmt.Sprintf("%d", id),
			joint,
			fmt.Sprintf("%d", mx28ar.DegreesToRaw(angles[i])),
			fmt.Sprintf("%.2f°", angles[i]),
		}
	}

	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("ID", "Joint", "Raw", "Position").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})

	fmt.Printf("%s\n%s\n\n", port, t.Render())
	return len(ids), nil
}
