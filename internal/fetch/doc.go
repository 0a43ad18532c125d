// Package fetch retrieves synthesized audio over HTTP for the playback
// scheduler, with client-side rate limiting and an optional persistent
// cache of raw responses.
package fetch
