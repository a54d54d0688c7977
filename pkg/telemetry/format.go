package telemetry

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Format renders a telemetry message received on topic for display.
// Topics are <id>/<kind>; meta payloads are JSON and printed as is.
func Format(topic string, payload []byte) (string, error) {
	if strings.HasSuffix(topic, "/meta") {
		if len(payload) == 0 {
			return fmt.Sprintf("%s: offline", topic), nil
		}
		return fmt.Sprintf("%s: %s", topic, string(payload)), nil
	}
	e, err := DecodeEvent(payload)
	if err != nil {
		return "", fmt.Errorf("%s: bad message: %w", topic, err)
	}
	if e.Kind == KindReading {
		r, err := DecodeReading(payload)
		if err != nil {
			return "", err
		}
		valid := ""
		if !r.Valid {
			valid = " (invalid)"
		}
		return fmt.Sprintf("%s: [%s] %s %dΩ %.2f°C%s", topic,
			r.Time.Format(time.RFC3339), r.Name, r.Resistance, r.Temperature, valid), nil
	}
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	fields := make([]string, len(keys))
	for n, key := range keys {
		fields[n] = fmt.Sprintf("%s=%v", key, e.Fields[key])
	}
	return fmt.Sprintf("%s: [%s] %s %s", topic,
		e.Time.Format(time.RFC3339), e.Kind, strings.Join(fields, " ")), nil
}
