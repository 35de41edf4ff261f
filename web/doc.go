// Package web mounts the login, two-factor and logout routes on a gin
// router. It owns request parsing, session persistence and response
// rendering; every authentication decision is delegated to the engine.
//
// Two boundary modes exist, selected by config. HTML mode renders views
// and answers successes with 302 redirects. REST mode prefixes all paths,
// speaks JSON and answers successes with bare status codes.
package web
