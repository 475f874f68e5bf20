// Package api defines the shared types exchanged between the script
// compiler, the dialogue engine, bridges, and storage: compiled steps,
// inbound updates, sessions, parcels, and keyboard payloads
package api
