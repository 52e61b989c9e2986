package rpcbridge

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// rawMessage carries an already-encoded OperationEnvelope through gRPC
// without round-tripping it through a generated proto.Message type.
type rawMessage struct {
	data []byte
}

// rawCodec is registered under its own content-subtype name so it never
// shadows the default "proto" codec other services on the same process
// might still rely on.
type rawCodec struct{}

const codecName = "vaf-raw-envelope"

func (rawCodec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(*rawMessage)
	if !ok {
		return nil, fmt.Errorf("rpcbridge: codec cannot marshal %T", v)
	}
	return m.data, nil
}

func (rawCodec) Unmarshal(data []byte, v interface{}) error {
	m, ok := v.(*rawMessage)
	if !ok {
		return fmt.Errorf("rpcbridge: codec cannot unmarshal into %T", v)
	}
	m.data = append([]byte(nil), data...)
	return nil
}

func (rawCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(rawCodec{})
}
