// Package ragway is the Go client for the ragway HTTP API.
//
// A Client is constructed with option functions and talks to a running
// gateway over HTTP:
//
//	client := ragway.New(
//		ragway.WithBaseURL("http://localhost:8080"),
//		ragway.WithAPIKey("secret"),
//	)
//	answer, err := client.Chat(ctx, "what is a vector index?")
package ragway
