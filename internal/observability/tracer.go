package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan starts an internal span for an executor call, store write,
// or pathfinder lookup.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartServerSpan starts a span for an inbound HTTP or gRPC request.
func StartServerSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// SetSpanError marks span as failed and records err.
func SetSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanOK marks span as successful.
func SetSpanOK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// Attribute keys used across the execution core's spans.
var (
	AttrTeamID       = attribute.Key("vpt.team_id")
	AttrTreeID       = attribute.Key("vpt.tree_id")
	AttrEdgeID       = attribute.Key("vpt.edge_id")
	AttrNodeID       = attribute.Key("vpt.node_id")
	AttrDeviceKey    = attribute.Key("vpt.device_key")
	AttrHostName     = attribute.Key("vpt.host_name")
	AttrTaskID       = attribute.Key("vpt.task_id")
	AttrCampaignID   = attribute.Key("vpt.campaign_execution_id")
	AttrScriptResult = attribute.Key("vpt.script_result_id")
)
