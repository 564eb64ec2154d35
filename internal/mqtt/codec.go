package mqtt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sweeney/friendship-lamp/internal/color"
	"github.com/sweeney/friendship-lamp/internal/logic"
)

// ErrMalformed is returned for message bodies that cannot be decoded.
var ErrMalformed = errors.New("malformed message")

// Message is a decoded inbound message: one of PeerUpdate, RebootRequest
// or ConfigUpdate.
type Message interface {
	isMessage()
}

// PeerUpdate carries the paired device's new state and colour.
type PeerUpdate struct {
	State logic.State
	Color color.Color
}

// RebootRequest asks the device to restart.
type RebootRequest struct{}

// ConfigUpdate asks the device to persist one setting.
type ConfigUpdate struct {
	Setting string
	Value   string
}

func (PeerUpdate) isMessage()    {}
func (RebootRequest) isMessage() {}
func (ConfigUpdate) isMessage()  {}

const rebootCommand = "reboot"

// EncodeState renders a state update body: "<state>:(<r>, <g>, <b>)".
func EncodeState(state logic.State, c color.Color) []byte {
	return []byte(string(state) + ":" + c.String())
}

// DecodeState parses a state update body. Whitespace inside the colour
// tuple is optional.
func DecodeState(body string) (PeerUpdate, error) {
	name, tuple, ok := strings.Cut(body, ":")
	if !ok {
		return PeerUpdate{}, fmt.Errorf("%w: state body %q has no colour", ErrMalformed, body)
	}
	state, err := logic.ParseState(strings.TrimSpace(name))
	if err != nil {
		return PeerUpdate{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	c, err := parseTuple(tuple)
	if err != nil {
		return PeerUpdate{}, err
	}
	return PeerUpdate{State: state, Color: c}, nil
}

func parseTuple(s string) (color.Color, error) {
	s = strings.NewReplacer("(", "", ")", "", " ", "").Replace(s)
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return color.Off, fmt.Errorf("%w: colour %q needs three channels", ErrMalformed, s)
	}
	var ch [3]byte
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return color.Off, fmt.Errorf("%w: channel %q out of range", ErrMalformed, p)
		}
		ch[i] = byte(v)
	}
	return color.RGB(ch[0], ch[1], ch[2]), nil
}

// EncodeControl renders a control body. An empty setting encodes a reboot.
func EncodeControl(setting, value string) []byte {
	if setting == "" {
		return []byte(rebootCommand)
	}
	return []byte(setting + ":" + value)
}

// DecodeControl parses a control body: the literal "reboot" or
// "<setting>:<value>". The value may itself contain colons.
func DecodeControl(body string) (Message, error) {
	if body == rebootCommand {
		return RebootRequest{}, nil
	}
	setting, value, ok := strings.Cut(body, ":")
	if !ok || strings.TrimSpace(setting) == "" {
		return nil, fmt.Errorf("%w: control body %q", ErrMalformed, body)
	}
	return ConfigUpdate{Setting: strings.TrimSpace(setting), Value: strings.TrimSpace(value)}, nil
}
