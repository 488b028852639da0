// Package negotiation is the orchestration core of the gateway.
//
// # Overview
//
// The negotiation package sits between the HTTP/WebSocket handlers and the
// connection registry. It owns session lifecycle and decides, for every
// inbound message, what is appended to history and which side receives what.
//
// # Service
//
// The Service coordinates all session operations:
//
//	svc := negotiation.New(sessions, registry, generator, store, cfg, logger)
//
// Key operations:
//
//   - Start(ctx, params): Validate parameters and open a session
//   - End(ctx, id, outcome): Complete a session and notify both sides
//   - Get(ctx, id): Consistent session snapshot (live or persisted)
//   - OnSellerMessage(ctx, id, content): One seller turn, including the
//     buyer-agent reply attempt
//   - OnUserMessage(ctx, id, content): A manual override from the
//     supervising side, bypassing generation
//
// # Turn Handling
//
// When a seller message arrives:
//
//  1. Append the seller message to the session history
//  2. Relay the raw text to the user side (sender "seller")
//  3. Call the text-generation collaborator, bounded by a timeout
//  4. On success, append the agent message, deliver it to the seller as
//     sender "buyer" and to the user side as an "ai_response" event
//  5. On failure, deliver an "error" event to the user side only
//
// History is recorded before delivery is attempted. An absent peer never
// loses a message: it is caught up from history when it reconnects.
//
// # Concurrency
//
// Each session has its own turn lock. A second seller message for the same
// session queues behind an outstanding generation call; traffic for other
// sessions is unaffected. Ending a session while generation is in flight is
// safe: the late result fails to append and is discarded.
package negotiation
