package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Phase         string     `json:"phase"`
	Local         string     `json:"local"`
	Peer          PeerJSON   `json:"peer"`
	Fault         *FaultJSON `json:"fault,omitempty"`
	RebootPending bool       `json:"reboot_pending"`
	RebootReason  string     `json:"reboot_reason,omitempty"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	Config        ConfigJSON `json:"config"`
}

// PeerJSON describes the paired device.
type PeerJSON struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Color [3]int `json:"color"`
}

// FaultJSON describes the last reported fault.
type FaultJSON struct {
	Code    int    `json:"code,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
	RetryAt string `json:"retry_at,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Name       string `json:"name"`
	Broker     string `json:"broker"`
	HTTPAddr   string `json:"http_addr"`
	ConfigPath string `json:"config_path"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Phase: string(snap.Phase),
		Local: string(snap.Local),
		Peer: PeerJSON{
			Name:  snap.Config.Friend,
			State: string(snap.Peer),
			Color: [3]int{int(snap.PeerColor.Red), int(snap.PeerColor.Green), int(snap.PeerColor.Blue)},
		},
		RebootPending: snap.RebootPending,
		RebootReason:  snap.RebootReason,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Config: ConfigJSON{
			Name:       snap.Config.Name,
			Broker:     snap.Config.Broker,
			HTTPAddr:   snap.Config.HTTPAddr,
			ConfigPath: snap.Config.ConfigPath,
		},
	}

	switch snap.Phase {
	case PhaseConnectionFault:
		inner.Fault = &FaultJSON{Code: int(snap.FaultCode), Kind: snap.FaultCode.String()}
		if !snap.RetryAt.IsZero() {
			inner.Fault.RetryAt = snap.RetryAt.UTC().Format(time.RFC3339)
		}
	case PhaseSetupFault, PhaseOtherFault:
		inner.Fault = &FaultJSON{Message: snap.FaultMessage}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}
