package news

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/platinummonkey/noticias/pkg/rbac"
)

// Draft is the content checked by a KindValidator
type Draft struct {
	Title    string
	Body     string
	Author   string
	ImageURL string
}

// KindValidator checks a draft against the rules of the author's role and
// the requirements of one kind. It returns a *ValidationError on failure.
type KindValidator func(d Draft, rules rbac.ValidationRules) error

func length(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ValidateCommon applies the role thresholds shared by every kind
func ValidateCommon(d Draft, rules rbac.ValidationRules) error {
	switch {
	case blank(d.Title):
		return invalid("El título es requerido")
	case length(d.Title) < rules.MinTitleLength:
		return invalid(fmt.Sprintf("El título debe tener al menos %d caracteres", rules.MinTitleLength))
	case rules.MaxTitleLength > 0 && length(d.Title) > rules.MaxTitleLength:
		return invalid(fmt.Sprintf("El título no puede exceder %d caracteres", rules.MaxTitleLength))
	case blank(d.Body):
		return invalid("El contenido es requerido")
	case length(d.Body) < rules.MinBodyLength:
		return invalid(fmt.Sprintf("El contenido debe tener al menos %d caracteres", rules.MinBodyLength))
	case blank(d.Author):
		return invalid("El autor es requerido")
	case rules.RequireImage && blank(d.ImageURL):
		return invalid("La imagen es requerida")
	}
	return nil
}

func validateGeneral(d Draft, rules rbac.ValidationRules) error {
	if err := ValidateCommon(d, rules); err != nil {
		return err
	}
	if length(d.Body) < 50 {
		return invalid("El contenido de una noticia general debe tener al menos 50 caracteres")
	}
	return nil
}

var importantKeywords = []string{"importante", "urgente", "anuncio", "aviso", "notificación"}

func validateImportante(d Draft, rules rbac.ValidationRules) error {
	if err := ValidateCommon(d, rules); err != nil {
		return err
	}
	if length(d.Body) < 100 {
		return invalid("Las noticias importantes deben tener al menos 100 caracteres de contenido")
	}
	if blank(d.ImageURL) {
		return invalid("Las noticias importantes deben incluir una imagen")
	}

	title := strings.ToLower(d.Title)
	for _, kw := range importantKeywords {
		if strings.Contains(title, kw) {
			return nil
		}
	}
	return invalid("Las noticias importantes deben incluir palabras clave como 'importante', 'urgente', 'anuncio', etc.")
}

var eventDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`),
	regexp.MustCompile(`\d{1,2}\s+(de\s+)?(enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|octubre|noviembre|diciembre)`),
	regexp.MustCompile(`(lunes|martes|miércoles|jueves|viernes|sábado|domingo)`),
	regexp.MustCompile(`\d{1,2}:\d{2}`),
}

// MentionsDate reports whether text names a date, weekday or time of day
func MentionsDate(text string) bool {
	text = strings.ToLower(text)
	for _, p := range eventDatePatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func validateEvento(d Draft, rules rbac.ValidationRules) error {
	if err := ValidateCommon(d, rules); err != nil {
		return err
	}
	if !MentionsDate(d.Title + " " + d.Body) {
		return invalid("Las noticias de eventos deben incluir fecha y/o hora del evento")
	}
	if blank(d.ImageURL) {
		return invalid("Las noticias de eventos deben incluir una imagen")
	}
	return nil
}

func validateAnuncio(d Draft, rules rbac.ValidationRules) error {
	if err := ValidateCommon(d, rules); err != nil {
		return err
	}
	if length(d.Body) > 500 {
		return invalid("Los anuncios deben ser concisos (máximo 500 caracteres)")
	}
	return nil
}

// KindRegistry maps kinds to validators. Unknown kinds use the general
// validator.
type KindRegistry struct {
	mu         sync.RWMutex
	validators map[Kind]KindValidator
}

// NewKindRegistry returns a registry with the four built-in kinds
func NewKindRegistry() *KindRegistry {
	return &KindRegistry{
		validators: map[Kind]KindValidator{
			KindGeneral:    validateGeneral,
			KindImportante: validateImportante,
			KindEvento:     validateEvento,
			KindAnuncio:    validateAnuncio,
		},
	}
}

// For returns the validator for kind
func (kr *KindRegistry) For(kind Kind) KindValidator {
	kr.mu.RLock()
	defer kr.mu.RUnlock()
	if v, ok := kr.validators[ParseKind(string(kind))]; ok {
		return v
	}
	return validateGeneral
}

// Known reports whether kind has its own validator
func (kr *KindRegistry) Known(kind Kind) bool {
	kr.mu.RLock()
	defer kr.mu.RUnlock()
	_, ok := kr.validators[ParseKind(string(kind))]
	return ok
}

// Register adds or replaces the validator for kind
func (kr *KindRegistry) Register(kind Kind, v KindValidator) error {
	kind = ParseKind(string(kind))
	if v == nil {
		return fmt.Errorf("validator for kind %q must not be nil", kind)
	}
	kr.mu.Lock()
	defer kr.mu.Unlock()
	kr.validators[kind] = v
	return nil
}

// Kinds returns the registered kinds, sorted
func (kr *KindRegistry) Kinds() []string {
	kr.mu.RLock()
	defer kr.mu.RUnlock()
	out := make([]string, 0, len(kr.validators))
	for k := range kr.validators {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}
