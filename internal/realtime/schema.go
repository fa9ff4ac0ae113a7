package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const eventSchemaURL = "https://roommate.local/schemas/realtime-event.json"

const eventSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "source", "table", "operation", "occurred_at"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "source": {"type": "string", "minLength": 1},
    "table": {"enum": ["student_profiles", "rooms", "attendance", "complaints", "transactions", "notifications"]},
    "operation": {"enum": ["INSERT", "UPDATE", "DELETE"]},
    "row_id": {"type": "string"},
    "student_id": {"type": "string"},
    "hostel_name": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  }
}`

// EventDecoder validates raw change events received from other nodes.
type EventDecoder struct {
	schema *jsonschema.Schema
}

// NewEventDecoder compiles the embedded event schema.
func NewEventDecoder() (*EventDecoder, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(eventSchemaURL, bytes.NewReader([]byte(eventSchema))); err != nil {
		return nil, fmt.Errorf("failed to load event schema: %w", err)
	}
	schema, err := compiler.Compile(eventSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile event schema: %w", err)
	}
	return &EventDecoder{schema: schema}, nil
}

// Decode validates payload against the schema and converts it into an Event.
func (d *EventDecoder) Decode(payload []byte) (Event, error) {
	var document interface{}
	if err := json.Unmarshal(payload, &document); err != nil {
		return Event{}, fmt.Errorf("invalid event json: %w", err)
	}
	if err := d.schema.Validate(document); err != nil {
		return Event{}, fmt.Errorf("event rejected by schema: %w", err)
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return Event{}, fmt.Errorf("invalid event payload: %w", err)
	}
	return event, nil
}
