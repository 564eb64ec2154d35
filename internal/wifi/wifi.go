// Package wifi attaches the device to a wireless network through
// NetworkManager and checks general internet reachability.
package wifi

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/sweeney/friendship-lamp/internal/fault"
	"github.com/sweeney/friendship-lamp/internal/mqtt"
)

// Runner runs a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command on the host.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// NMCLI joins networks with the nmcli tool.
type NMCLI struct {
	Run     Runner
	Timeout time.Duration
}

// NewNMCLI returns an attacher running the real nmcli binary.
func NewNMCLI(timeout time.Duration) *NMCLI {
	return &NMCLI{Run: ExecRunner, Timeout: timeout}
}

// Attach joins creds.SSID unless it is already the active network.
// Failures are NetworkFaults with code LocalNetwork.
func (n *NMCLI) Attach(ctx context.Context, creds mqtt.Credentials) error {
	if n.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.Timeout)
		defer cancel()
	}

	out, err := n.Run(ctx, "nmcli", "-t", "-f", "ACTIVE,SSID", "device", "wifi")
	if err != nil {
		return fault.Network(fault.LocalNetwork, "wifi scan", commandError(err, out))
	}
	if activeSSID(out) == creds.SSID {
		return nil
	}

	args := []string{"device", "wifi", "connect", creds.SSID}
	if creds.Password != "" {
		args = append(args, "password", creds.Password)
	}
	out, err = n.Run(ctx, "nmcli", args...)
	if err != nil {
		return fault.Network(fault.LocalNetwork, "wifi attach "+creds.SSID, commandError(err, out))
	}
	return nil
}

// activeSSID picks the active network from terse nmcli output, where
// colons inside fields are escaped as "\:".
func activeSSID(out []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		active, ssid, ok := strings.Cut(sc.Text(), ":")
		if ok && active == "yes" {
			return strings.ReplaceAll(ssid, `\:`, ":")
		}
	}
	return ""
}

func commandError(err error, out []byte) error {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, msg)
}

// DialFunc opens a network connection.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// DialChecker reports the internet reachable when a TCP connection to
// Addr succeeds.
type DialChecker struct {
	Addr    string
	Timeout time.Duration
	Dial    DialFunc
}

// NewDialChecker returns a checker for addr ("host:port").
func NewDialChecker(addr string, timeout time.Duration) *DialChecker {
	d := &net.Dialer{}
	return &DialChecker{Addr: addr, Timeout: timeout, Dial: d.DialContext}
}

// Check dials Addr once. Failures are NetworkFaults with code Internet.
func (c *DialChecker) Check(ctx context.Context) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	conn, err := c.Dial(ctx, "tcp", c.Addr)
	if err != nil {
		return fault.Network(fault.Internet, "dial "+c.Addr, err)
	}
	return conn.Close()
}
