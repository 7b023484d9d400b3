// Package news stores and serves news articles.
//
// Writes go through two validation layers. The caller's role decides
// whether it may create, edit or delete a given article and supplies the
// length and image thresholds; the article kind (general, importante,
// evento, anuncio) adds its own content rules on creation.
//
// Reads are cached: list pages for 30 seconds and single articles for
// 60 seconds. Any write drops every news_ cache entry.
package news
