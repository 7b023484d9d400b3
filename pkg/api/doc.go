// Package api assembles the HTTP API.
//
// NewServer mounts the handler groups of the domain packages on one
// gorilla/mux router:
//
//   - /api/news, /api/news/{id}          pkg/news
//   - /api/register, /api/login, /api/users[/{id}]  pkg/users
//   - /api/upload, /api/storage-status   pkg/media
//   - /api/permissions, /api/roles       pkg/rbac
//   - /api/config                        this package
//
// Every request passes through request ID assignment, panic recovery,
// access logging and CORS, and is traced with otelhttp. Prometheus HTTP
// metrics are recorded per matched route when Deps.Metrics is set.
//
//	srv := api.NewServer(api.Deps{Config: cfg, Logger: logger, News: newsService, Users: userService})
//	http.ListenAndServe(":5000", srv)
package api
