package news

import (
	"errors"
	"strings"

	"github.com/platinummonkey/noticias/pkg/storage"
)

// Kind classifies an article and selects its content validator
type Kind string

const (
	KindGeneral    Kind = "general"
	KindImportante Kind = "importante"
	KindEvento     Kind = "evento"
	KindAnuncio    Kind = "anuncio"
)

// PriorityHigh is stored on importante articles
const PriorityHigh = "alta"

// ParseKind lower-cases s; empty means general
func ParseKind(s string) Kind {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindGeneral
	}
	return Kind(s)
}

// Article is a published news item
type Article struct {
	ID         int64             `json:"id"`
	Title      string            `json:"titulo"`
	Body       string            `json:"contenido"`
	Author     string            `json:"autor"`
	AuthorName string            `json:"nombre_autor"`
	Kind       Kind              `json:"tipo"`
	ImageURL   string            `json:"imagen"`
	Priority   string            `json:"prioridad,omitempty"`
	EventDate  string            `json:"fecha_evento,omitempty"`
	CreatedAt  storage.Timestamp `json:"fecha"`
}

// CreateRequest is the body of POST /api/news
type CreateRequest struct {
	Title     string `json:"titulo"`
	Body      string `json:"contenido"`
	Author    string `json:"autor"`
	ImageURL  string `json:"imagen"`
	Kind      string `json:"tipo"`
	EventDate string `json:"fecha_evento"`
}

// UpdateRequest is the body of PUT /api/news/{id}. Nil fields are left
// unchanged.
type UpdateRequest struct {
	Title    *string `json:"titulo"`
	Body     *string `json:"contenido"`
	ImageURL *string `json:"imagen"`
}

// Empty reports whether the request changes nothing
func (u UpdateRequest) Empty() bool {
	return u.Title == nil && u.Body == nil && u.ImageURL == nil
}

// ArticleResponse is returned by create and update
type ArticleResponse struct {
	Message string   `json:"mensaje"`
	Article *Article `json:"noticia"`
}

var (
	ErrNotFound      = errors.New("article not found")
	ErrMissingFields = errors.New("missing required fields")
	ErrEmptyUpdate   = errors.New("no fields to update")
	ErrNotAllowed    = errors.New("role may not modify this article")
)

// ValidationError carries a client facing content validation message
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// Messages returned to clients
const (
	MsgNotFound      = "Noticia no encontrada"
	MsgMissingFields = "Faltan campos requeridos: titulo, contenido, autor"
	MsgEmptyUpdate   = "No se proporcionaron campos para actualizar"
	MsgNotAllowed    = "No tienes permisos para modificar esta noticia"

	MsgCreated = "Noticia creada exitosamente"
	MsgUpdated = "Noticia actualizada exitosamente"
	MsgDeleted = "Noticia eliminada exitosamente"
)
