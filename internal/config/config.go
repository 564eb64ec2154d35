// Package config loads and validates the lamp's YAML settings file and
// persists single-field updates requested over the control topic.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/friendship-lamp/internal/color"
	"github.com/sweeney/friendship-lamp/internal/fault"
	"github.com/sweeney/friendship-lamp/internal/logic"
	"github.com/sweeney/friendship-lamp/internal/mqtt"
)

// DefaultPath is where the daemon looks for its settings.
const DefaultPath = "/etc/friendlamp/config.yaml"

// RGB is a colour setting. It decodes from a [r, g, b] sequence or from a
// "(r, g, b)" string.
type RGB [3]int

// Color converts the setting to a pixel value. Validate guarantees range.
func (c RGB) Color() color.Color {
	return color.RGB(byte(c[0]), byte(c[1]), byte(c[2]))
}

func (c *RGB) UnmarshalYAML(node *yaml.Node) error {
	var parts []string
	switch node.Kind {
	case yaml.SequenceNode:
		for _, n := range node.Content {
			parts = append(parts, n.Value)
		}
	case yaml.ScalarNode:
		s := strings.NewReplacer("(", "", ")", "", " ", "").Replace(node.Value)
		parts = strings.Split(s, ",")
	default:
		return fmt.Errorf("line %d: colour must be [r, g, b]", node.Line)
	}
	if len(parts) != 3 {
		return fmt.Errorf("line %d: colour needs 3 components, got %d", node.Line, len(parts))
	}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("line %d: colour component %q: %w", node.Line, p, err)
		}
		c[i] = v
	}
	return nil
}

func (c RGB) MarshalYAML() (any, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range c {
		seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)})
	}
	return seq, nil
}

// Config is the complete settings file. Periods and durations are seconds.
type Config struct {
	Name       string `yaml:"name"`
	FriendName string `yaml:"friend_name"`

	SensorTick   float64 `yaml:"sensor_tick_length"`
	LEDFastTick  float64 `yaml:"led_fast_tick_length"`
	LEDSlowTick  float64 `yaml:"led_slow_tick_length"`
	MessageCheck float64 `yaml:"message_check_interval"`

	PlacedSensitivity  int     `yaml:"sensor_placed_sensitivity"`
	RemovedSensitivity int     `yaml:"sensor_removed_sensitivity"`
	SleepWindow        float64 `yaml:"sleep_command_window"`
	HoldThreshold      float64 `yaml:"hold_command_threshold"`

	ActiveDuration float64 `yaml:"active_duration"`
	SleepDuration  float64 `yaml:"sleep_duration"`
	ActiveColor    RGB     `yaml:"active_color"`
	SleepColor     RGB     `yaml:"sleep_color"`

	WifiSSID          string `yaml:"wifi_ssid"`
	WifiPass          string `yaml:"wifi_pass"`
	BackupWifiSSID    string `yaml:"backup_wifi_ssid"`
	BackupWifiPass    string `yaml:"backup_wifi_pass"`
	ConnectToInternet bool   `yaml:"connect_to_internet"`
	InternetCheckAddr string `yaml:"internet_check_addr"`

	ServerAddr       string  `yaml:"server_addr"`
	ServerPort       int     `yaml:"server_port"`
	ServerUser       string  `yaml:"server_user"`
	ServerPass       string  `yaml:"server_pass"`
	PingInterval     int     `yaml:"ping_interval"`
	DroppedPingLimit int     `yaml:"dropped_ping_limit"`
	Timeout          float64 `yaml:"timeout"`
	QueueLimit       int     `yaml:"queue_limit"`

	SPISpeed      int        `yaml:"spi_speed"`
	SensorChannel int        `yaml:"sensor_channel"`
	NumLEDs       int        `yaml:"num_leds"`
	LEDCorrection [3]float64 `yaml:"led_correction,flow"`
	StatusPin     int        `yaml:"status_pin"`

	HTTPAddr string `yaml:"http_addr"`
}

// Defaults returns the stock settings. Name, FriendName and ServerAddr
// have no sensible default and must come from the file.
func Defaults() Config {
	return Config{
		SensorTick:         0.05,
		LEDFastTick:        0.02,
		LEDSlowTick:        0.1,
		MessageCheck:       0.5,
		PlacedSensitivity:  2000,
		RemovedSensitivity: -2000,
		SleepWindow:        0.5,
		HoldThreshold:      2,
		ActiveDuration:     600,
		SleepDuration:      1800,
		ActiveColor:        RGB{255, 60, 0},
		SleepColor:         RGB{40, 0, 120},
		InternetCheckAddr:  "1.1.1.1:53",
		ServerPort:         1883,
		PingInterval:       20,
		DroppedPingLimit:   5,
		Timeout:            10,
		QueueLimit:         64,
		SPISpeed:           1_000_000,
		NumLEDs:            12,
		LEDCorrection:      [3]float64{1, 1, 1},
		StatusPin:          17,
		HTTPAddr:           ":80",
	}
}

// Load decodes a settings document on top of Defaults and validates it.
// Unknown keys, mistyped values and out-of-range settings are SetupFaults.
func Load(r io.Reader) (Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, &fault.SetupFault{Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile is Load for a path. A missing file is a SetupFault.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fault.Setupf("config", "read %s: %v", path, err)
	}
	return Load(bytes.NewReader(data))
}

// Validate checks ranges and cross-field consistency.
func (c Config) Validate() error {
	if c.Name == "" {
		return fault.Setupf("name", "required")
	}
	if c.FriendName == "" {
		return fault.Setupf("friend_name", "required")
	}
	if c.Name == c.FriendName {
		return fault.Setupf("friend_name", "must differ from name")
	}
	for field, v := range map[string]string{"name": c.Name, "friend_name": c.FriendName} {
		if strings.ContainsAny(v, "/+#- ") {
			return fault.Setupf(field, "%q may not contain '/', '+', '#', '-' or spaces", v)
		}
	}

	for field, v := range map[string]float64{
		"sensor_tick_length":     c.SensorTick,
		"led_fast_tick_length":   c.LEDFastTick,
		"led_slow_tick_length":   c.LEDSlowTick,
		"message_check_interval": c.MessageCheck,
		"active_duration":        c.ActiveDuration,
		"sleep_duration":         c.SleepDuration,
		"timeout":                c.Timeout,
	} {
		if !(v > 0) {
			return fault.Setupf(field, "must be > 0, got %v", v)
		}
	}

	if c.PlacedSensitivity < 1 || c.PlacedSensitivity > 65535 {
		return fault.Setupf("sensor_placed_sensitivity", "must be in [1, 65535], got %d", c.PlacedSensitivity)
	}
	if c.RemovedSensitivity > -1 || c.RemovedSensitivity < -65535 {
		return fault.Setupf("sensor_removed_sensitivity", "must be in [-65535, -1], got %d", c.RemovedSensitivity)
	}
	if _, ok := wholeTicks(c.SleepWindow, c.SensorTick); !ok {
		return fault.Setupf("sleep_command_window", "%v is not a multiple of the sensor tick %v", c.SleepWindow, c.SensorTick)
	}
	if n, ok := wholeTicks(c.HoldThreshold, c.SensorTick); !ok || n < 1 {
		return fault.Setupf("hold_command_threshold", "%v is not a positive multiple of the sensor tick %v", c.HoldThreshold, c.SensorTick)
	}

	for field, rgb := range map[string]RGB{"active_color": c.ActiveColor, "sleep_color": c.SleepColor} {
		for _, v := range rgb {
			if v < 0 || v > 255 {
				return fault.Setupf(field, "component %d out of [0, 255]", v)
			}
		}
	}

	if c.BackupWifiSSID != "" && c.WifiSSID == "" {
		return fault.Setupf("wifi_ssid", "required when backup_wifi_ssid is set")
	}
	if c.ConnectToInternet {
		if _, _, err := net.SplitHostPort(c.InternetCheckAddr); err != nil {
			return fault.Setupf("internet_check_addr", "%v", err)
		}
	}
	if c.ServerAddr == "" {
		return fault.Setupf("server_addr", "required")
	}
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return fault.Setupf("server_port", "out of range: %d", c.ServerPort)
	}
	if c.PingInterval < 1 {
		return fault.Setupf("ping_interval", "must be >= 1, got %d", c.PingInterval)
	}
	if c.DroppedPingLimit < 0 {
		return fault.Setupf("dropped_ping_limit", "must be >= 0, got %d", c.DroppedPingLimit)
	}
	if c.QueueLimit < 1 {
		return fault.Setupf("queue_limit", "must be >= 1, got %d", c.QueueLimit)
	}

	if c.SPISpeed <= 0 {
		return fault.Setupf("spi_speed", "must be > 0")
	}
	if c.SensorChannel < 0 || c.SensorChannel > 7 {
		return fault.Setupf("sensor_channel", "must be in [0, 7], got %d", c.SensorChannel)
	}
	if c.NumLEDs < 1 {
		return fault.Setupf("num_leds", "must be >= 1, got %d", c.NumLEDs)
	}
	for _, f := range c.LEDCorrection {
		if f < 0 || f > 1 {
			return fault.Setupf("led_correction", "factor %v out of [0, 1]", f)
		}
	}
	if c.StatusPin < 0 {
		return fault.Setupf("status_pin", "must be >= 0")
	}
	return nil
}

// wholeTicks converts seconds to sensor ticks, reporting whether the
// division came out integral.
func wholeTicks(seconds, tick float64) (int, bool) {
	if seconds < 0 || tick <= 0 {
		return 0, false
	}
	n := seconds / tick
	r := math.Round(n)
	return int(r), math.Abs(n-r) < 1e-6
}

// Classifier returns the gesture thresholds in sensor ticks.
func (c Config) Classifier() logic.ClassifierConfig {
	window, _ := wholeTicks(c.SleepWindow, c.SensorTick)
	hold, _ := wholeTicks(c.HoldThreshold, c.SensorTick)
	return logic.ClassifierConfig{
		PlacedSensitivity:  c.PlacedSensitivity,
		RemovedSensitivity: c.RemovedSensitivity,
		SleepWindow:        window,
		HoldThreshold:      hold,
	}
}

// Palette returns the configured base colours.
func (c Config) Palette() logic.Palette {
	return logic.Palette{
		Active: c.ActiveColor.Color(),
		Sleep:  c.SleepColor.Color(),
	}
}

// BrokerURL is the paho broker address. Port 0 means the default 1883.
func (c Config) BrokerURL() string {
	port := c.ServerPort
	if port == 0 {
		port = 1883
	}
	if strings.Contains(c.ServerAddr, "://") {
		return fmt.Sprintf("%s:%d", c.ServerAddr, port)
	}
	return fmt.Sprintf("tcp://%s", net.JoinHostPort(c.ServerAddr, strconv.Itoa(port)))
}

// Link returns the peer link settings.
func (c Config) Link() mqtt.LinkConfig {
	return mqtt.LinkConfig{
		Name:       c.Name,
		Friend:     c.FriendName,
		Broker:     c.BrokerURL(),
		Username:   c.ServerUser,
		Password:   c.ServerPass,
		Timeout:    c.Timeout,
		QueueLimit: c.QueueLimit,
	}
}

// Supervisor returns the connection supervisor settings with the default
// back-off policy.
func (c Config) Supervisor() mqtt.SupervisorConfig {
	return mqtt.SupervisorConfig{
		Primary:          mqtt.Credentials{SSID: c.WifiSSID, Password: c.WifiPass},
		Backup:           mqtt.Credentials{SSID: c.BackupWifiSSID, Password: c.BackupWifiPass},
		CheckInternet:    c.ConnectToInternet,
		PingInterval:     c.PingInterval,
		DroppedPingLimit: c.DroppedPingLimit,
		Policy:           mqtt.DefaultPolicy(),
	}
}
