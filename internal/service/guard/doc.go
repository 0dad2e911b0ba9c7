// Package guard decides whether a lead may be mailed and keeps the sending
// reputation signals up to date.
//
// It owns the eligibility rules, engagement scoring with decay, the
// campaign health monitor, the soft-bounce retry queue transitions, the
// domain authentication check and the deliverability score. Persistence is
// reached only through the interfaces in repository.go; the package never
// imports database/sql or net/http.
//
// Policy outcomes (unsubscribed, hard bounce, frequency cap) are verdicts,
// not errors. Errors are returned only when a backing store fails, and
// callers should treat them as "unknown, retry later".
package guard
