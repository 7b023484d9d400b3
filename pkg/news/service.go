package news

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/noticias/pkg/cache"
	"github.com/platinummonkey/noticias/pkg/observability"
	"github.com/platinummonkey/noticias/pkg/rbac"
)

// Cache layout. Every key shares keyPrefix so one DeletePrefix drops all
// list pages and details after a write.
const (
	keyPrefix     = "news_"
	listCacheTTL  = 30 * time.Second
	detailTTL     = 60 * time.Second
	DefaultLimit  = 50
	MaxLimit      = 100
	cacheFamily   = "news"
	detailKeyForm = keyPrefix + "detail_%d"
	listKeyForm   = keyPrefix + "%d_%d"
)

// ImageStore removes stored images referenced by articles
type ImageStore interface {
	KeyFromURL(url string) (string, bool)
	DeleteObject(ctx context.Context, key string) error
}

// Service implements the article operations with a read-through cache
type Service struct {
	store   *Store
	cache   *cache.Store
	roles   *rbac.ValidatorRegistry
	kinds   *KindRegistry
	images  ImageStore
	metrics *observability.OTelMetrics
	logger  *observability.Logger
}

// Option configures a Service
type Option func(*Service)

// WithImageStore enables image removal when an article is deleted
func WithImageStore(images ImageStore) Option {
	return func(s *Service) { s.images = images }
}

// WithMetrics records article operations and cache lookups
func WithMetrics(m *observability.OTelMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the fallback logger used outside request scope
func WithLogger(l *observability.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates an article service
func NewService(store *Store, c *cache.Store, roles *rbac.ValidatorRegistry, opts ...Option) *Service {
	s := &Service{
		store: store,
		cache: c,
		roles: roles,
		kinds: NewKindRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.roles == nil {
		s.roles = rbac.NewValidatorRegistry()
	}
	if s.logger == nil {
		s.logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return s
}

func (s *Service) log(ctx context.Context) *observability.Logger {
	return observability.FromContextOr(ctx, s.logger)
}

// ClampPage bounds limit to 1..MaxLimit and offset to >= 0
func ClampPage(limit, offset int) (int, int) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *Service) invalidate() {
	s.cache.DeletePrefix(keyPrefix)
}

// List returns a page of articles, newest first
func (s *Service) List(ctx context.Context, limit, offset int) (_ []Article, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordArticleOperation(ctx, "list", "", time.Since(start), err) }()

	limit, offset = ClampPage(limit, offset)
	key := fmt.Sprintf(listKeyForm, limit, offset)

	var cached []Article
	if cache.GetJSON(s.cache, key, &cached) == nil {
		s.metrics.RecordCacheLookup(ctx, cacheFamily, true)
		return cached, nil
	}
	s.metrics.RecordCacheLookup(ctx, cacheFamily, false)

	list, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(s.cache, key, list, listCacheTTL); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to cache news page")
	}
	return list, nil
}

// Get returns article id
func (s *Service) Get(ctx context.Context, id int64) (_ *Article, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordArticleOperation(ctx, "get", "", time.Since(start), err) }()

	key := fmt.Sprintf(detailKeyForm, id)

	var cached Article
	if cache.GetJSON(s.cache, key, &cached) == nil {
		s.metrics.RecordCacheLookup(ctx, cacheFamily, true)
		return &cached, nil
	}
	s.metrics.RecordCacheLookup(ctx, cacheFamily, false)

	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(s.cache, key, a, detailTTL); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to cache article")
	}
	return a, nil
}

// Create validates and stores a new article on behalf of role
func (s *Service) Create(ctx context.Context, role string, req CreateRequest) (_ *Article, err error) {
	kind := ParseKind(req.Kind)
	if !s.kinds.Known(kind) {
		kind = KindGeneral
	}

	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "news.Create",
		attribute.String("news.kind", string(kind)),
		attribute.String("user.role", role),
	)
	defer func() {
		s.metrics.RecordArticleOperation(ctx, "create", string(kind), time.Since(start), err)
		observability.EndSpan(span, err)
	}()

	validator := s.roles.For(role)
	if !validator.CanCreateNews() {
		return nil, ErrNotAllowed
	}
	if req.Title == "" || req.Body == "" || req.Author == "" {
		return nil, ErrMissingFields
	}

	draft := Draft{Title: req.Title, Body: req.Body, Author: req.Author, ImageURL: req.ImageURL}
	if err := s.kinds.For(kind)(draft, validator.Rules()); err != nil {
		return nil, err
	}

	a := &Article{
		Title:    req.Title,
		Body:     req.Body,
		Author:   req.Author,
		Kind:     kind,
		ImageURL: req.ImageURL,
	}
	switch kind {
	case KindImportante:
		a.Priority = PriorityHigh
	case KindEvento:
		a.EventDate = req.EventDate
	}

	id, err := s.store.Create(ctx, a)
	if err != nil {
		return nil, err
	}
	s.invalidate()

	s.log(ctx).WithFields(map[string]interface{}{
		"article_id": id,
		"autor":      a.Author,
		"tipo":       string(kind),
	}).Info("Article created")

	return s.store.Get(ctx, id)
}

// Update applies req to article id on behalf of role and actor
func (s *Service) Update(ctx context.Context, role, actor string, id int64, req UpdateRequest) (_ *Article, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "news.Update", attribute.Int64("news.id", id))
	kind := ""
	defer func() {
		s.metrics.RecordArticleOperation(ctx, "update", kind, time.Since(start), err)
		observability.EndSpan(span, err)
	}()

	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	kind = string(existing.Kind)

	validator := s.roles.For(role)
	if !validator.CanEditNews(existing.Author, actor) {
		return nil, ErrNotAllowed
	}
	if req.Empty() {
		return nil, ErrEmptyUpdate
	}

	merged := Draft{Title: existing.Title, Body: existing.Body, Author: existing.Author, ImageURL: existing.ImageURL}
	if req.Title != nil {
		merged.Title = *req.Title
	}
	if req.Body != nil {
		merged.Body = *req.Body
	}
	if req.ImageURL != nil {
		merged.ImageURL = *req.ImageURL
	}
	if err := ValidateCommon(merged, validator.Rules()); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, id, req); err != nil {
		return nil, err
	}
	s.invalidate()

	s.log(ctx).WithField("article_id", id).Info("Article updated")
	return s.store.Get(ctx, id)
}

// Delete removes article id on behalf of role and actor. The stored image
// is removed best effort; failures are only logged.
func (s *Service) Delete(ctx context.Context, role, actor string, id int64) (err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "news.Delete", attribute.Int64("news.id", id))
	kind := ""
	defer func() {
		s.metrics.RecordArticleOperation(ctx, "delete", kind, time.Since(start), err)
		observability.EndSpan(span, err)
	}()

	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	kind = string(existing.Kind)

	if !s.roles.For(role).CanDeleteNews(existing.Author, actor) {
		return ErrNotAllowed
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate()
	s.removeImage(ctx, existing.ImageURL)

	s.log(ctx).WithField("article_id", id).Info("Article deleted")
	return nil
}

func (s *Service) removeImage(ctx context.Context, url string) {
	if s.images == nil || url == "" {
		return
	}
	key, ok := s.images.KeyFromURL(url)
	if !ok {
		return
	}
	if err := s.images.DeleteObject(ctx, key); err != nil {
		s.log(ctx).WithError(err).WithField("key", key).Warn("Failed to delete article image")
	}
}

// IsValidationError reports whether err is a content validation failure
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
