// Package rest is the HTTP transport of maritime-alarm.
//
// It serves the receive endpoint used by feeders and displays (POST and GET
// /receive with a ships or alarms type tag), the recent alarm list, the
// tracked vessel count, the websocket alarm feed, health and Prometheus
// metrics. Cross-origin requests are accepted from any origin.
package rest
