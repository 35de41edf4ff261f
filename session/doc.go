// Package session carries the per-visitor authentication state across
// requests. The login core mutates a [State]; a [Store] persists it, either
// inside a signed cookie ([CookieStore]) or in Redis behind a session-id
// cookie ([RedisStore]).
package session
