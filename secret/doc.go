// Package secret resolves the fallback Subnet Agent API key configured at
// deploy time.
//
// A configured value is either a literal, an environment expansion
// ("${SUBNET_AGENT_API_KEY}") or a secret reference:
//   - secretref:env:SUBNET_AGENT_API_KEY
//   - secretref:file:/run/secrets/subnet_agent_api_key
//
// Values are resolved on every call so that rotated secret files are picked
// up without a restart.
package secret
