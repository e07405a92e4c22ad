package provider

import (
	"errors"

	"github.com/hotspotlabs/ms-go-vouchers/app/entity"
)

var ErrGatewayNotSupported = errors.New("gateway is not supported")

// Builder constructs a Gateway from one tenant's credential row. Gateways are
// built per request because credentials live in the database, not in process
// configuration.
type Builder func(settings *entity.GatewaySettings) Gateway

type Registry struct {
	builders map[int32]Builder
}

func NewRegistry() *Registry {
	return &Registry{builders: map[int32]Builder{}}
}

func (r *Registry) Register(code int32, builder Builder) {
	r.builders[code] = builder
}

func (r *Registry) Build(settings *entity.GatewaySettings) (Gateway, error) {
	builder, ok := r.builders[settings.Provider]
	if !ok {
		return nil, ErrGatewayNotSupported
	}
	return builder(settings), nil
}
