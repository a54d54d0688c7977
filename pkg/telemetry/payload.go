package telemetry

import (
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes"
	structpb "github.com/golang/protobuf/ptypes/struct"
)

// Event kinds, also the last topic level.
const (
	KindReading = "reading"
	KindDuty    = "duty"
	KindLink    = "link"
)

// Event is a telemetry message.
type Event struct {
	Kind   string
	Time   time.Time
	Fields map[string]interface{}
}

// Reading is a decoded thermistor reading.
type Reading struct {
	Name        string
	Resistance  uint32
	Temperature float64
	Valid       bool
	Time        time.Time
}

func stringValue(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}

func numberValue(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

func boolValue(v bool) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_BoolValue{BoolValue: v}}
}

// Encode serializes the event as a protobuf Struct.
func (e *Event) Encode() ([]byte, error) {
	ts, err := ptypes.TimestampProto(e.Time)
	if err != nil {
		return nil, err
	}
	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		"kind": stringValue(e.Kind),
		"time": stringValue(ptypes.TimestampString(ts)),
	}}
	for key, val := range e.Fields {
		switch v := val.(type) {
		case string:
			s.Fields[key] = stringValue(v)
		case bool:
			s.Fields[key] = boolValue(v)
		case float64:
			s.Fields[key] = numberValue(v)
		case int:
			s.Fields[key] = numberValue(float64(v))
		case uint8:
			s.Fields[key] = numberValue(float64(v))
		case uint32:
			s.Fields[key] = numberValue(float64(v))
		default:
			return nil, fmt.Errorf("unsupported field %s of type %T", key, val)
		}
	}
	return proto.Marshal(s)
}

// DecodeEvent parses an event encoded by Encode.
func DecodeEvent(payload []byte) (*Event, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(payload, &s); err != nil {
		return nil, err
	}
	e := &Event{Fields: make(map[string]interface{})}
	for key, val := range s.Fields {
		switch key {
		case "kind":
			e.Kind = val.GetStringValue()
		case "time":
			t, err := time.Parse(time.RFC3339Nano, val.GetStringValue())
			if err != nil {
				return nil, fmt.Errorf("invalid time: %w", err)
			}
			e.Time = t
		default:
			e.Fields[key] = val.AsInterface()
		}
	}
	if e.Kind == "" {
		return nil, fmt.Errorf("missing kind")
	}
	return e, nil
}

// Event converts the reading to an Event.
func (r *Reading) Event() *Event {
	return &Event{
		Kind: KindReading,
		Time: r.Time,
		Fields: map[string]interface{}{
			"name":        r.Name,
			"resistance":  r.Resistance,
			"temperature": r.Temperature,
			"valid":       r.Valid,
		},
	}
}

// DecodeReading parses a reading event.
func DecodeReading(payload []byte) (*Reading, error) {
	e, err := DecodeEvent(payload)
	if err != nil {
		return nil, err
	}
	if e.Kind != KindReading {
		return nil, fmt.Errorf("not a reading: %s", e.Kind)
	}
	r := &Reading{Time: e.Time}
	r.Name, _ = e.Fields["name"].(string)
	if v, ok := e.Fields["resistance"].(float64); ok {
		r.Resistance = uint32(v)
	}
	r.Temperature, _ = e.Fields["temperature"].(float64)
	r.Valid, _ = e.Fields["valid"].(bool)
	return r, nil
}
