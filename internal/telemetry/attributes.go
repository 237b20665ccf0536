// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the relay.
const (
	// Command attributes
	CommandNameKey    = "command.name"
	CommandOutcomeKey = "command.outcome"
	CommandItemsKey   = "command.items"

	// Remote procedure attributes
	RPCRequestTypeKey = "rpc.request_type"
	RPCBodyIDKey      = "rpc.body_id"
	RPCPagesKey       = "rpc.pages"

	// Transport attributes
	TransportInboundKey  = "transport.inbound"
	TransportOutboundKey = "transport.outbound"

	// Channel attributes
	ChannelStationIDKey = "channel.station_id"
	ChannelScoreKey     = "channel.match_score"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// CommandAttributes creates dispatcher span attributes.
func CommandAttributes(name, outcome string, items int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(CommandNameKey, name)}
	if outcome != "" {
		attrs = append(attrs, attribute.String(CommandOutcomeKey, outcome))
	}
	if items >= 0 {
		attrs = append(attrs, attribute.Int(CommandItemsKey, items))
	}
	return attrs
}

// RPCAttributes creates remote procedure span attributes.
func RPCAttributes(requestType, bodyID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(RPCRequestTypeKey, requestType)}
	if bodyID != "" {
		attrs = append(attrs, attribute.String(RPCBodyIDKey, bodyID))
	}
	return attrs
}

// TransportAttributes creates duplex transport span attributes.
func TransportAttributes(inbound, outbound string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(TransportInboundKey, inbound),
		attribute.String(TransportOutboundKey, outbound),
	}
}

// ChannelAttributes records a channel match.
func ChannelAttributes(stationID string, score int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ChannelStationIDKey, stationID),
		attribute.Int(ChannelScoreKey, score),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
