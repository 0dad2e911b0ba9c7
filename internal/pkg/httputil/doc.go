// Package httputil holds the JSON envelope helpers shared by the API handlers.
package httputil
