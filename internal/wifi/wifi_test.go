package wifi

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/friendship-lamp/internal/fault"
	"github.com/sweeney/friendship-lamp/internal/mqtt"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	calls   []call
	outputs map[string][]byte
	errs    map[string]error
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name, args})
	key := args[len(args)-1]
	if len(args) > 2 && args[2] == "connect" {
		key = "connect"
	}
	return f.outputs[key], f.errs[key]
}

func TestAttachAlreadyActive(t *testing.T) {
	r := &fakeRunner{outputs: map[string][]byte{
		"wifi": []byte("no:neighbour\nyes:home\\:net\n"),
	}}
	n := &NMCLI{Run: r.run}

	require.NoError(t, n.Attach(context.Background(), mqtt.Credentials{SSID: "home:net", Password: "pw"}))
	assert.Len(t, r.calls, 1)
	assert.Equal(t, "nmcli", r.calls[0].name)
}

func TestAttachConnects(t *testing.T) {
	r := &fakeRunner{outputs: map[string][]byte{"wifi": []byte("yes:other\n")}}
	n := &NMCLI{Run: r.run, Timeout: time.Second}

	require.NoError(t, n.Attach(context.Background(), mqtt.Credentials{SSID: "home", Password: "secret"}))
	require.Len(t, r.calls, 2)
	assert.Equal(t, []string{"device", "wifi", "connect", "home", "password", "secret"}, r.calls[1].args)
}

func TestAttachOpenNetwork(t *testing.T) {
	r := &fakeRunner{}
	n := &NMCLI{Run: r.run}

	require.NoError(t, n.Attach(context.Background(), mqtt.Credentials{SSID: "cafe"}))
	require.Len(t, r.calls, 2)
	assert.Equal(t, []string{"device", "wifi", "connect", "cafe"}, r.calls[1].args)
}

func TestAttachFailures(t *testing.T) {
	tests := []struct {
		name string
		errs map[string]error
		out  map[string][]byte
		want string
	}{
		{
			name: "scan",
			errs: map[string]error{"wifi": errors.New("exit status 8")},
			want: "wifi scan",
		},
		{
			name: "connect",
			errs: map[string]error{"connect": errors.New("exit status 10")},
			out:  map[string][]byte{"connect": []byte("Error: No network with SSID 'home' found.\n")},
			want: "No network with SSID",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{errs: tt.errs, outputs: tt.out}
			err := (&NMCLI{Run: r.run}).Attach(context.Background(), mqtt.Credentials{SSID: "home"})
			require.Error(t, err)
			assert.Equal(t, fault.LocalNetwork, fault.CodeOf(err))
			assert.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}

func TestDialCheckerReachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	c := NewDialChecker(ln.Addr().String(), time.Second)
	assert.NoError(t, c.Check(context.Background()))
}

func TestDialCheckerUnreachable(t *testing.T) {
	c := &DialChecker{
		Addr: "192.0.2.1:53",
		Dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return nil, errors.New("no route to host")
		},
	}
	err := c.Check(context.Background())
	require.Error(t, err)
	assert.Equal(t, fault.Internet, fault.CodeOf(err))
}
