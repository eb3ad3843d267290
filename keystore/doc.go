// Package keystore persists small string values on the console host, the
// way a browser keeps values in local storage.
//
// The session monitor stores the agent API key under AgentAPIKey. Three
// backends are provided: MemoryStore for tests and ephemeral runs, FileStore
// (a JSON object written atomically with 0600 permissions) and SQLiteStore.
package keystore
