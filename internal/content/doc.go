// Package content varies and personalizes outbound message text.
//
// Spintax picks one alternative from every {a|b|c} span; PickVariant draws
// a weighted subject or body variant; Renderer combines spintax with Liquid
// merge tags such as {{ first_name }}.
//
// All randomized functions take a Rand so callers can pin the outcome.
package content
