// Package observability provides logging, metrics, and tracing
// functionality for the policy administration point.
//
// # Logging
//
// The Logger interface provides structured logging backed by zap:
//
//	logger, err := observability.NewLogger(observability.DefaultLogConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("policy published",
//	    observability.String("policy_id", "eindhoven"),
//	    observability.Int("constraints", 2),
//	)
//
// The level can be changed at runtime with SetLevel, which the
// configuration watcher uses on reload.
//
// # Metrics
//
// HTTP request metrics on a dedicated Prometheus registry:
//
//	metrics := observability.NewMetrics("pap")
//	router.GET("/metrics", gin.WrapH(metrics.Handler()))
//
// Component packages (pdp, credential, backend) register their own
// collectors on the same registry through metrics.Registry().
//
// # Tracing
//
// OpenTelemetry tracing with an optional OTLP gRPC exporter:
//
//	tracer, err := observability.NewTracer(observability.TracerConfig{
//	    ServiceName: "pap",
//	    Enabled:     true,
//	})
package observability
