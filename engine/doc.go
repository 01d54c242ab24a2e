// Package engine wires all subsystems together and provides the primary
// application-level API for executing request tasks.
//
// The engine package exists to break a fundamental import cycle: the root
// taskapi package defines the shared vocabulary (errors, result slots,
// configuration) imported by ref, task, get, list, search and action, and
// therefore cannot import those packages back. Engine sits above all
// subsystem packages and below the HTTP layer.
//
// # Building an Engine
//
//	g, err := taskapi.New(
//	    taskapi.WithStore(pgStore),
//	    taskapi.WithConcurrency(20),
//	)
//
//	eng, err := engine.Build(g,
//	    engine.WithExtension(myExtension),
//	    engine.WithMiddleware(middleware.Logging(logger)),
//	)
//
// # Executing Requests
//
//	resp, err := eng.Execute(ctx, body)   // raw JSON request body
//	out, _ := json.Marshal(resp)
//
// A non-nil error is a request-level failure and maps to a single error
// envelope; per-item failures ride inside the response's result slots.
//
// # Options
//
//   - [WithExtension] — register a lifecycle extension
//   - [WithMiddleware] — add a middleware to the execution chain
//   - [WithTracerProvider] — set the OpenTelemetry tracer provider
//   - [WithMeterProvider] — set the OpenTelemetry meter provider
package engine
