package main

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// startDTMMsgSpan cria o span da submissão de uma mensagem de duas fases ao DTM
func startDTMMsgSpan(ctx context.Context, gid, actionURL string) (context.Context, trace.Span) {
	tracer := otel.Tracer("dtm-msg")
	ctx, span := tracer.Start(ctx, "dtm.msg.submit", trace.WithSpanKind(trace.SpanKindProducer))

	span.SetAttributes(
		attribute.String("dtm.gid", gid),
		attribute.String("dtm.action.url", actionURL),
		attribute.String("component", "dtm-coordinator"),
	)

	return ctx, span
}
