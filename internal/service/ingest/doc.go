// Package ingest implements the ingest command.
//
// It authenticates against the AIS provider with OAuth2 client credentials,
// reads the newline delimited JSON stream, keeps the vessels of interest and
// publishes them to the snapshot store, either directly or through a remote
// receive endpoint. A broken stream is reopened after a pause.
package ingest
