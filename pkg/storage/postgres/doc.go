// Package postgres builds the clients for the backing services: the
// PostgreSQL pool, the optional Redis client used by the distributed rate
// limiter, and the S3 client that stores uploaded news images.
package postgres
