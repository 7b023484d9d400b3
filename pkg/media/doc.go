// Package media accepts image uploads for news articles and stores them in
// an ObjectStore under noticias/<uuid>.<ext>. The returned public URL is what
// clients put in an article's imagen field.
package media
