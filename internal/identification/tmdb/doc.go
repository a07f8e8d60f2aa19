// Package tmdb implements a minimal TMDB API client covering movie, TV, and
// person search plus person credits. Rate limiting and server errors are
// retried with exponential backoff; authentication rejections surface
// immediately as ErrAuth.
package tmdb
