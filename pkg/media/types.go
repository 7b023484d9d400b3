package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ObjectStore holds uploaded images. It is implemented by the S3 client in
// pkg/storage/postgres.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, key string) error
	PublicURL(key string) string
	KeyFromURL(url string) (string, bool)
	HealthCheck(ctx context.Context) error
	Bucket() string
	Endpoint() string
}

// KeyPrefix is prepended to every uploaded object key
const KeyPrefix = "noticias/"

// FormField is the multipart field carrying the image
const FormField = "imagen"

// ErrStorageNotConfigured is returned when no object store is available
var ErrStorageNotConfigured = errors.New("object storage is not configured")

// UploadResponse is the body of a successful upload
type UploadResponse struct {
	URL string `json:"url"`
}

// StatusResponse reports whether uploads are available
type StatusResponse struct {
	Initialized bool   `json:"initialized"`
	Bucket      string `json:"bucket"`
	Endpoint    string `json:"endpoint"`
}

// Messages returned to clients
const (
	MsgStorageNotConfigured = "El almacenamiento de imágenes no está configurado. Verifica la configuración S3 del servidor."
	MsgNoFile               = "No se proporcionó ningún archivo"
	MsgNoFileSelected       = "No se seleccionó ningún archivo"
	MsgUploadFailed         = "Error al subir la imagen. Verifica los logs del servidor para más detalles."
)

// msgExtension lists allowed extensions the way clients expect, e.g.
// "PNG, JPG y GIF"
func msgExtension(allowed []string) string {
	upper := make([]string, len(allowed))
	for i, ext := range allowed {
		upper[i] = strings.ToUpper(ext)
	}
	list := strings.Join(upper, "")
	if n := len(upper); n > 1 {
		list = strings.Join(upper[:n-1], ", ") + " y " + upper[n-1]
	}
	return fmt.Sprintf("Tipo de archivo no permitido. Solo se aceptan %s.", list)
}

func msgTooLarge(maxBytes int64) string {
	return fmt.Sprintf("El archivo es demasiado grande. Máximo permitido: %dMB.", maxBytes>>20)
}
