package ipc

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
)

// ChannelContract is the request and response shape of one channel.
type ChannelContract struct {
	ChannelInfo
	Request  *jsonschema.Schema `json:"request,omitempty"`
	Response *jsonschema.Schema `json:"response,omitempty"`
}

// Contract is the full renderer-facing API description.
type Contract struct {
	Version  string             `json:"version"`
	Channels []ChannelContract  `json:"channels"`
	Envelope *jsonschema.Schema `json:"envelope"`
}

var rawMessageType = reflect.TypeOf(json.RawMessage(nil))

func newReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == rawMessageType {
				return &jsonschema.Schema{} // any JSON value
			}
			return nil
		},
	}
}

// Contract reflects JSON schemas for every typed channel.
func (r *Registry) Contract(version string) *Contract {
	reflector := newReflector()
	infos := r.Channels()

	contract := &Contract{
		Version:  version,
		Channels: make([]ChannelContract, 0, len(infos)),
		Envelope: reflector.Reflect(&Envelope{}),
	}
	for _, info := range infos {
		ch, ok := r.lookup(info.Channel)
		if !ok {
			continue
		}
		cc := ChannelContract{ChannelInfo: info}
		if t := ch.route.Endpoint.Request; t != nil && t != reflect.TypeOf(NoArgs{}) {
			cc.Request = reflector.ReflectFromType(t)
		}
		if t := ch.route.Endpoint.Response; t != nil {
			cc.Response = reflector.ReflectFromType(t)
		}
		contract.Channels = append(contract.Channels, cc)
	}
	return contract
}
