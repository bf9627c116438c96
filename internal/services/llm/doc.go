// Package llm provides an OpenRouter chat client for excerpt extraction.
//
// Extract sends a guest name, a numbered list of known picks, and a
// time-coded transcript, and expects a JSON array with one
// {film_title, start_timestamp, quote, confidence} object per pick. Code
// fences and leading prose are tolerated; any other shape is discarded whole
// with ErrMalformedResponse.
//
// # Retry Behaviour
//
// The client retries HTTP 408/429/5xx, network timeouts, and empty content
// once by default, honouring Retry-After. When attempts are exhausted the
// error is tagged services.ErrCollaborator so callers record no enrichment
// instead of retrying again. Context cancellation aborts immediately and is
// returned unwrapped.
//
// Requests can be paced with WithRateLimit.
package llm
