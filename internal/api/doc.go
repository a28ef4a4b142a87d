// Package api is the HTTP query service of the track.
//
// Every route is a GET; any other method or path answers 400 with
// {"error":"method not implemented"}. All responses carry the configured
// Access-Control-Allow-Origin header.
//
//	/get/state           current snapshot
//	/get/previous-state  last completed race from the result log, or {}
//	/set/led             toggle the indicator
//	/set/reset[?lanes=N] reset, optionally changing lanes in use
package api
