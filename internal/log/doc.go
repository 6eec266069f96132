// Package log provides slog loggers that redact credentials before they
// reach the output.
//
// The statistics service is written to with a bearer token, and the token
// travels through configuration, HTTP headers and error messages. The
// SecureHandler masks attributes whose key names a credential and string
// values that look like one, so even debug output can be shared.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("publishing", "dataset", "info-statistics", "token", token)
//	// token=***REDACTED***
//
// NewSecureJSONLogger produces the same records as JSON lines for log
// collectors when the job runs under a scheduler.
package log
