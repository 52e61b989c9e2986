// Package rpcbridge implements the operation half of the External bridge
// adapter: a gRPC service carrying hand-encoded operation envelopes. The
// runtime has no protoc build step, so OperationEnvelope is encoded with
// google.golang.org/protobuf/encoding/protowire directly instead of a
// generated .pb.go (see DESIGN.md).
package rpcbridge

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	fieldRequestID protowire.Number = 1
	fieldInterface protowire.Number = 2
	fieldOperation protowire.Number = 3
	fieldInstance  protowire.Number = 4
	fieldPayload   protowire.Number = 5
	fieldOK        protowire.Number = 6
	fieldErrorKind protowire.Number = 7
	fieldErrorMsg  protowire.Number = 8
)

// OperationEnvelope is the request/response frame exchanged over the
// WireOperations gRPC service, per spec.md §6's "length-prefixed byte
// vectors carrying a serialized message" wire contract.
type OperationEnvelope struct {
	RequestID string
	Interface string
	Operation string
	Instance  string
	Payload   []byte

	// Response-only fields.
	OK        bool
	ErrorKind int32
	ErrorMsg  string
}

// Marshal encodes the envelope as a protobuf-compatible byte string.
func (e OperationEnvelope) Marshal() []byte {
	var b []byte
	b = appendString(b, fieldRequestID, e.RequestID)
	b = appendString(b, fieldInterface, e.Interface)
	b = appendString(b, fieldOperation, e.Operation)
	b = appendString(b, fieldInstance, e.Instance)
	b = appendBytes(b, fieldPayload, e.Payload)
	b = protowire.AppendTag(b, fieldOK, protowire.VarintType)
	b = protowire.AppendVarint(b, boolToVarint(e.OK))
	b = protowire.AppendTag(b, fieldErrorKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.ErrorKind))
	b = appendString(b, fieldErrorMsg, e.ErrorMsg)
	return b
}

// UnmarshalOperationEnvelope decodes bytes produced by Marshal.
func UnmarshalOperationEnvelope(b []byte) (OperationEnvelope, error) {
	var e OperationEnvelope
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return e, fmt.Errorf("rpcbridge: invalid tag at offset %d", len(b))
		}
		b = b[n:]

		switch {
		case typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return e, fmt.Errorf("rpcbridge: invalid length-delimited field %d", num)
			}
			b = b[n:]
			switch num {
			case fieldRequestID:
				e.RequestID = string(v)
			case fieldInterface:
				e.Interface = string(v)
			case fieldOperation:
				e.Operation = string(v)
			case fieldInstance:
				e.Instance = string(v)
			case fieldPayload:
				e.Payload = append([]byte(nil), v...)
			case fieldErrorMsg:
				e.ErrorMsg = string(v)
			}
		case typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return e, fmt.Errorf("rpcbridge: invalid varint field %d", num)
			}
			b = b[n:]
			switch num {
			case fieldOK:
				e.OK = v != 0
			case fieldErrorKind:
				e.ErrorKind = int32(v)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return e, fmt.Errorf("rpcbridge: unsupported wire type for field %d", num)
			}
			b = b[n:]
		}
	}
	return e, nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func boolToVarint(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}
