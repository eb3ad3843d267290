// Package session tracks the console's session with a Subnet Agent: which
// API key is active and whether the agent is reachable and accepts it.
//
// A Monitor owns the key lifecycle. Start loads the persisted key, runs an
// immediate check and then re-checks on a fixed interval until Stop. Each
// check settles into one of four statuses:
//
//	checking       a check is in flight
//	healthy        the agent is reachable and accepts the key
//	unhealthy      the agent could not be reached
//	needs-api-key  there is no key, or the agent rejected it
//
// SaveKey validates a candidate with the agent before persisting it, so an
// unverified key never replaces the active one. Operations are serialized:
// a check requested while another operation is running is ignored, and
// SaveKey waits for its turn.
//
// The Monitor is also a health.Checker and can serve its state over HTTP
// with RegisterHandlers.
package session
