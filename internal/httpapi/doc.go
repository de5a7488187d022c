// Package httpapi is the HTTP surface of fangauth-server: a chi router that
// decodes and validates JSON bodies, calls the fangauth.Engine and maps its
// error taxonomy onto status codes.
//
// Handlers hold no authentication logic of their own.
package httpapi
