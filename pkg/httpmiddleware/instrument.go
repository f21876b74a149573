package httpmiddleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instrument traces and measures every request with otelhttp. Probe
// endpoints are filtered out.
func Instrument(serverName string, tp trace.TracerProvider, mp metric.MeterProvider) Middleware {
	return otelhttp.NewMiddleware(serverName,
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithMeterProvider(mp),
		otelhttp.WithServerName(serverName),
		otelhttp.WithFilter(isNotProbe),
	)
}

func isNotProbe(r *http.Request) bool {
	return r.URL.Path != "/livez" && r.URL.Path != "/readyz"
}
