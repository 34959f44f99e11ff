package exchange

import (
	"context"
	"fmt"

	"github.com/srediag/shmx/pkg/wire"
)

// Role selects which of the two configured segment names an Endpoint writes.
type Role int

const (
	// RoleHost sends on the inbound segment and receives on the outbound one.
	RoleHost Role = iota
	// RoleGuest sends on the outbound segment and receives on the inbound one.
	RoleGuest
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleGuest:
		return "guest"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Endpoint is one side of a host/guest pair. Both channels share a Manager,
// Metrics and Tracker.
type Endpoint struct {
	role Role
	send *Channel
	recv *Channel
}

// NewEndpoint returns the role side of the pair described by config.
func NewEndpoint(role Role, config *Config, opts Options) (*Endpoint, error) {
	if role != RoleHost && role != RoleGuest {
		return nil, fmt.Errorf("%w: unknown role %v", ErrInvalidConfig, role)
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := VerifyConfig(config); err != nil {
		return nil, err
	}
	deps, err := resolveOptions(config, opts)
	if err != nil {
		return nil, err
	}
	deps.Logger = deps.Logger.Named(role.String())
	sendName, recvName := config.InboundName, config.OutboundName
	if role == RoleGuest {
		sendName, recvName = recvName, sendName
	}
	return &Endpoint{
		role: role,
		send: deps.channel(sendName, config),
		recv: deps.channel(recvName, config),
	}, nil
}

func (e *Endpoint) Role() Role { return e.role }

// SendChannel is the channel this side exports to.
func (e *Endpoint) SendChannel() *Channel { return e.send }

// ReceiveChannel is the channel this side imports from.
func (e *Endpoint) ReceiveChannel() *Channel { return e.recv }

// Tracker is shared by both channels.
func (e *Endpoint) Tracker() *Tracker { return e.send.tracker }

// Send exports v for the other side.
func (e *Endpoint) Send(ctx context.Context, v wire.Value) error {
	return e.send.Export(ctx, v)
}

// SendNative exports a native Go value for the other side.
func (e *Endpoint) SendNative(ctx context.Context, v any) error {
	return e.send.ExportNative(ctx, v)
}

// Receive consumes the value the other side sent.
func (e *Endpoint) Receive(ctx context.Context, expected wire.TypeTag) (wire.Value, error) {
	return e.recv.Import(ctx, expected)
}

// ReceiveAs consumes a value of kind T sent by the other side of e.
func ReceiveAs[T wire.Kind](ctx context.Context, e *Endpoint) (T, error) {
	return ImportAs[T](ctx, e.recv)
}
