// Package `chatsrv` implements chat relay server over TCP.
//
// Usage:
//
//	chatsrv [port]
//
// Port defaults to 8888. Other settings are taken from CHATRELAY_* environment variables
// or from optional chatrelay.yaml file, see internal/config.
// Type "stop" into server terminal or send SIGINT/SIGTERM to shut the server down.
//
// To compile chat server locally, run from package directory:
//
//	go install .
//
// Or quickly launch server with command:
//
//	go run . 9000
package main
