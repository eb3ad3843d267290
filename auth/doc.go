// Package auth verifies Subnet Agent API keys on the agent side.
//
// Two key shapes are accepted: opaque keys, stored only as SHA-256 hashes in
// a KeyStore, and signed tokens issued by a TokenIssuer. KeyVerifier accepts
// either and reports rejections through sentinel errors so that HTTP layers
// can map them to 401 responses.
package auth
