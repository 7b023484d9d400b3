// Package cli implements the noticias-admin command.
//
//	noticias-admin migrate [-status]
//	noticias-admin seed [-password secret]
//	noticias-admin create-user -username ana -password secret -role maestro
//	noticias-admin version
//
// seed and create-user migrate the database first. Every command reads the
// same NOTICIAS_* environment as the server.
package cli
