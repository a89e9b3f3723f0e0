package gateway

import (
	"context"

	"github.com/obarth/ogate/internal/object"
	"github.com/obarth/ogate/internal/registry"
)

// SelfName is the gateway's own management object.
var SelfName = object.MustParseName("ogate:type=Config")

// RegisterSelf exposes the gateway itself as a management object, so its
// version and effective bounds are readable through its own protocol.
func (s *Service) RegisterSelf(ctx context.Context) error {
	obj := registry.NewObject("gateway configuration and build information").
		WithAttribute("Version", registry.Attribute{Value: s.version, Type: "string"}).
		WithAttribute("ProtocolVersion", registry.Attribute{Value: ProtocolVersion, Type: "string"}).
		WithAttribute("MaxDepth", registry.Attribute{
			Value: registry.Getter(func() any { d, _ := s.Profiles(); return d.MaxDepth }),
			Type:  "int",
		}).
		WithAttribute("MaxCollectionSize", registry.Attribute{
			Value: registry.Getter(func() any { d, _ := s.Profiles(); return d.MaxCollectionSize }),
			Type:  "int",
		}).
		WithAttribute("MaxObjects", registry.Attribute{
			Value: registry.Getter(func() any { d, _ := s.Profiles(); return d.MaxObjects }),
			Type:  "int",
		}).
		WithAttribute("HistoryEnabled", registry.Attribute{Value: s.history != nil, Type: "boolean"}).
		WithAttribute("Registries", registry.Attribute{
			Value: registry.Getter(func() any { return s.dispatcher.Descriptions() }),
			Type:  "list",
		})

	_, err := s.dispatcher.Register(ctx, obj, &SelfName)
	return err
}
