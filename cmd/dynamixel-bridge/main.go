package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `short:"c" long:"config" default:"l3xz.json" description:"Configuration file"`

	Setup  SetupCommand  `command:"setup" description:"Scan for servos and write the configuration"`
	Run    RunCommand    `command:"run" description:"Run the bridge control loop with a live head position view"`
	Head   HeadCommand   `command:"head" description:"Command the head pan/tilt servos once"`
	Coxa   CoxaCommand   `command:"coxa" description:"Command the six coxa servos once"`
	Torque TorqueCommand `command:"torque" description:"Enable or disable torque on all servos"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "dynamixel-bridge - synchronous MX-28AR head and coxa control for L3XZ"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
