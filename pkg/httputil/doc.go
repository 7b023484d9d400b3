// Package httputil holds the JSON reply helpers, request parsing and the
// middleware shared by every HTTP handler.
//
// Errors are always {"error": "..."} and bare successes {"mensaje": "..."}.
// Unexpected failures go through WriteInternalError, which logs the cause
// with the request logger and replies with a generic message.
//
//	router.Use(
//		httputil.RequestIDMiddleware(logger),
//		httputil.RecoveryMiddleware,
//		httputil.LoggingMiddleware,
//	)
package httputil
