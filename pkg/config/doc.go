// Package config loads the server configuration.
//
// Values start from Default, are overlaid by the YAML file named in
// NOTICIAS_CONFIG_FILE when set, and finally by NOTICIAS_* environment
// variables. LoadConfig validates the result.
//
// Server settings:
//
//	NOTICIAS_HOST="0.0.0.0"
//	NOTICIAS_PORT="5000"
//	NOTICIAS_HEALTH_PORT="9090"
//	NOTICIAS_CORS_ORIGINS="https://noticias.example.edu,http://localhost:3000"
//
// Storage settings:
//
//	NOTICIAS_DATABASE_URL="postgres://noticias@localhost/noticias?sslmode=disable"
//	NOTICIAS_S3_BUCKET="noticias-imagenes"
//	NOTICIAS_S3_ENDPOINT="http://localhost:9000"
//	NOTICIAS_REDIS_URL="redis://localhost:6379"
//
// Cache settings:
//
//	NOTICIAS_CACHE_TTL="30s"
//	NOTICIAS_CACHE_CLEANUP_SCHEDULE="@every 1m"
//
// The same settings in a file:
//
//	server:
//	  port: "5000"
//	database:
//	  url: postgres://noticias@localhost/noticias
//	cache:
//	  default_ttl: 30s
//	observability:
//	  log_level: debug
package config
