// Package tmdb provides the minimal TMDB API client used for catalog
// metadata enrichment.
//
// It exposes movie search with an optional release-year filter and a details
// lookup that appends credits and external ids in one request. Requests are
// paced by a token-bucket limiter. Failures are tagged with the services
// sentinels: 429 and 5xx are transient, client timeouts are timeouts, 404 is
// not found, and anything else is a collaborator failure.
package tmdb
