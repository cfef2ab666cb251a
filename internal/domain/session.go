package domain

// Credential is the ephemeral session secret minted by the broker.
// It is used once for the signaling exchange and then dropped.
type Credential struct {
	Token string
	Model string
}

type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// MediaConfig selects which audio directions are negotiated.
type MediaConfig struct {
	SendMic      bool
	ReceiveAudio bool
}

type ConnectOptions struct {
	Model string
	Media MediaConfig
}
