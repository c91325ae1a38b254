package ctxutil

import (
	"context"
	"testing"
)

func TestContextData(t *testing.T) {
	ctx := WithTraceData(nil, &TraceData{TraceID: "t1", RequestID: "r1"})
	ctx = WithCallerData(ctx, &CallerData{Subject: "ops"})

	if td := GetTraceData(ctx); td == nil || td.TraceID != "t1" || td.RequestID != "r1" {
		t.Fatalf("GetTraceData: got %+v", td)
	}
	if cd := GetCallerData(ctx); cd == nil || cd.Subject != "ops" {
		t.Fatalf("GetCallerData: got %+v", cd)
	}
	if GetTraceData(context.Background()) != nil || GetCallerData(nil) != nil {
		t.Fatalf("expected nil data on bare contexts")
	}
}
