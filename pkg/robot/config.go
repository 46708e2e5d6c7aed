package robot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/l3xz/dynamixel-bridge/pkg/mx28ar"
)

const DefaultConfigFile = "l3xz.json"

// Defaults applied to zero config values.
const (
	DefaultBaudRate = 1_000_000
	DefaultTimeout  = 100 * time.Millisecond
	DefaultHz       = 50
)

// Config holds the bus and servo ID configuration
type Config struct {
	Port      string     `json:"port"`
	BaudRate  int        `json:"baud_rate,omitempty"`
	TimeoutMs int        `json:"timeout_ms,omitempty"`
	Hz        int        `json:"hz,omitempty"`
	Head      HeadConfig `json:"head"`
	Coxa      CoxaConfig `json:"coxa"`
}

// HeadConfig holds the servo IDs of the head
type HeadConfig struct {
	Pan  int `json:"pan"`
	Tilt int `json:"tilt"`
}

// CoxaConfig holds the servo IDs of the six coxa joints
type CoxaConfig struct {
	LeftFront   int `json:"left_front"`
	LeftMiddle  int `json:"left_middle"`
	LeftBack    int `json:"left_back"`
	RightFront  int `json:"right_front"`
	RightMiddle int `json:"right_middle"`
	RightBack   int `json:"right_back"`
}

// IDs returns the coxa servo IDs keyed by leg.
func (c CoxaConfig) IDs() map[mx28ar.CoxaID]int {
	return map[mx28ar.CoxaID]int{
		mx28ar.LeftFront:   c.LeftFront,
		mx28ar.LeftMiddle:  c.LeftMiddle,
		mx28ar.LeftBack:    c.LeftBack,
		mx28ar.RightFront:  c.RightFront,
		mx28ar.RightMiddle: c.RightMiddle,
		mx28ar.RightBack:   c.RightBack,
	}
}

// DefaultConfig returns the wiring of the L3XZ robot: coxae on IDs 1-6,
// head pan and tilt on 7 and 8.
func DefaultConfig(port string) *Config {
	return &Config{
		Port:      port,
		BaudRate:  DefaultBaudRate,
		TimeoutMs: int(DefaultTimeout / time.Millisecond),
		Hz:        DefaultHz,
		Head:      HeadConfig{Pan: 7, Tilt: 8},
		Coxa: CoxaConfig{
			LeftFront:   1,
			LeftMiddle:  2,
			LeftBack:    3,
			RightFront:  4,
			RightMiddle: 5,
			RightBack:   6,
		},
	}
}

// Timeout returns the bus timeout, or DefaultTimeout if unset.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// JointIDs returns the servo ID of every joint.
func (c *Config) JointIDs() map[JointName]int {
	ids := map[JointName]int{
		HeadPan:  c.Head.Pan,
		HeadTilt: c.Head.Tilt,
	}
	for coxa, id := range c.Coxa.IDs() {
		ids[CoxaJoint(coxa)] = id
	}
	return ids
}

// ServoIDs returns the servo IDs of all joints in AllJoints order.
func (c *Config) ServoIDs() []int {
	jointIDs := c.JointIDs()
	ids := make([]int, 0, len(jointIDs))
	for _, name := range AllJoints() {
		ids = append(ids, jointIDs[name])
	}
	return ids
}

// ByID returns the joint driven by the servo with the given ID.
func (c *Config) ByID(id int) (JointName, bool) {
	for _, name := range AllJoints() {
		if c.JointIDs()[name] == id {
			return name, true
		}
	}
	return "", false
}

// Validate checks that the port is set and every joint has its own valid ID.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port not set"))
	}
	if c.Hz < 0 {
		errs = append(errs, fmt.Errorf("invalid hz: %d", c.Hz))
	}

	owner := make(map[int]JointName)
	jointIDs := c.JointIDs()
	for _, name := range AllJoints() {
		id := jointIDs[name]
		if id < 0 || id > feetech.MaxServoID {
			errs = append(errs, fmt.Errorf("%s: invalid servo ID %d (valid range: 0-%d)", name, id, feetech.MaxServoID))
			continue
		}
		if other, ok := owner[id]; ok {
			errs = append(errs, fmt.Errorf("%s: servo ID %d already used by %s", name, id, other))
			continue
		}
		owner[id] = name
	}

	return errors.Join(errs...)
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config JSON: %w", err)
	}
	return &cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
