package event

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// MarshalPayload encodes e as a JSON object holding its kind and every field.
// The same encoding is streamed to websocket clients and stored in the
// replay log.
//
// Postcondition: Returns the JSON bytes or an error if a field value cannot
// be represented.
func MarshalPayload(e Event) ([]byte, error) {
	s, err := structpb.NewStruct(payloadMap(e))
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", e.Kind(), err)
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", e.Kind(), err)
	}
	return data, nil
}

// MarshalFrame encodes the events of one tick as a single JSON object
// {"tick", "simTimeMs", "events": [...]}, each event encoded as by
// MarshalPayload. events may be empty.
func MarshalFrame(tick uint64, simTime time.Duration, events []Event) ([]byte, error) {
	list := make([]any, len(events))
	for i, e := range events {
		list[i] = payloadMap(e)
	}
	s, err := structpb.NewStruct(map[string]any{
		"tick":      tick,
		"simTimeMs": simTime.Milliseconds(),
		"events":    list,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding tick %d frame: %w", tick, err)
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling tick %d frame: %w", tick, err)
	}
	return data, nil
}

func payloadMap(e Event) map[string]any {
	fields := e.Fields()
	m := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		m[k] = v
	}
	m["kind"] = string(e.Kind())
	return m
}

// Payload is a decoded event payload.
type Payload struct {
	Kind   Kind
	Fields map[string]any
}

// UnmarshalPayload decodes bytes produced by MarshalPayload. Numeric fields
// decode as float64.
//
// Postcondition: Returns the payload or an error when data is not a JSON
// object or carries no kind.
func UnmarshalPayload(data []byte) (Payload, error) {
	var s structpb.Struct
	if err := protojson.Unmarshal(data, &s); err != nil {
		return Payload{}, fmt.Errorf("unmarshaling payload: %w", err)
	}
	fields := s.AsMap()
	kind, ok := fields["kind"].(string)
	if !ok || kind == "" {
		return Payload{}, fmt.Errorf("payload has no kind")
	}
	delete(fields, "kind")
	return Payload{Kind: Kind(kind), Fields: fields}, nil
}
