package logic

import (
	"errors"
	"fmt"

	"github.com/sweeney/friendship-lamp/internal/color"
)

// ErrInvalidState is returned when a local or peer state lies outside the
// four defined states. It indicates a bug, not a runtime condition.
var ErrInvalidState = errors.New("invalid lamp state")

// Palette is the pair of configured base colours.
type Palette struct {
	Active color.Color
	Sleep  color.Color
}

// ComputeAnimation picks the animation for a local/peer state pair.
// ok is false when the pair calls for no change.
func ComputeAnimation(local, peer State) (anim Animation, ok bool) {
	switch {
	case local == StateSleep:
		return AnimSleep, true
	case local == StateHolding || peer == StateHolding:
		return AnimHolding, true
	case local == StateActive || peer == StateActive:
		return AnimActive, true
	case peer == StateSleep:
		// Lights up again when only the peer went to sleep.
		return AnimActive, true
	}
	return "", false
}

// ComputeColor picks the base colour for a local/peer state pair.
func ComputeColor(local, peer State, peerColor color.Color, p Palette) (color.Color, error) {
	if !local.Valid() || !peer.Valid() {
		return color.Off, fmt.Errorf("%w: local=%q peer=%q", ErrInvalidState, local, peer)
	}

	lit := func(s State) bool { return s == StateActive || s == StateHolding }

	switch {
	case lit(local) && lit(peer):
		return color.Mix(p.Active, peerColor), nil
	case lit(local) && peer == StateSleep:
		return peerColor, nil
	case lit(local) && peer == StateInactive:
		return p.Active, nil
	case local == StateSleep && peer == StateSleep:
		return color.Mix(p.Sleep, peerColor), nil
	case local == StateSleep && lit(peer):
		return peerColor, nil
	case local == StateSleep && peer == StateInactive:
		return p.Sleep, nil
	case local == StateInactive && peer != StateInactive:
		return peerColor, nil
	case local == StateInactive && peer == StateInactive:
		return color.Off, nil
	}
	return color.Off, fmt.Errorf("%w: local=%q peer=%q", ErrInvalidState, local, peer)
}

// OutgoingColor is the colour published alongside the local state.
func OutgoingColor(local State, p Palette) (color.Color, error) {
	switch local {
	case StateActive, StateHolding:
		return p.Active, nil
	case StateSleep:
		return p.Sleep, nil
	case StateInactive:
		return color.Off, nil
	}
	return color.Off, fmt.Errorf("%w: local=%q", ErrInvalidState, local)
}
