// Package engine implements the dialogue state machine: it resolves
// which step applies to an inbound update, runs validators and
// actions, renders outbound content, and follows chained transitions,
// persisting the net session mutation at the end of each event.
package engine
