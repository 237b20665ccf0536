// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldCorrelationID = "correlation_id"
	FieldTraceID       = "trace_id"
	FieldStopKey       = "stop_key"
	FieldBodyID        = "body_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldRole      = "role"

	// Relay fields
	FieldCmd      = "cmd"
	FieldStatus   = "status"
	FieldTopic    = "topic"
	FieldInbound  = "inbound"
	FieldOutbound = "outbound"

	// Remote query fields
	FieldRequestType = "request_type"
	FieldTarget      = "target"
	FieldPage        = "page"
	FieldCount       = "count"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Channel fields
	FieldStationID = "station_id"
	FieldScore     = "score"
)
