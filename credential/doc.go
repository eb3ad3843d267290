// Package credential inspects Subnet Agent API keys on the client side.
//
// Keys are opaque strings, except that some agents hand out signed tokens
// (JWT compact form). For those, Inspect exposes the expiry so that an
// expired key can be rejected before it is sent anywhere. Signatures are
// never verified here; that is the agent's job.
package credential
