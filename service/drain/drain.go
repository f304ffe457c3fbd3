// Package drain empties a message queue, or its dead-letter sub-queue,
// by pulling batches of messages and acknowledging them until the queue
// is observed empty.
//
// Drainer owns the outer loop: query the remaining count, acquire a receiver,
// read it to exhaustion, repeat. Negotiator decides once per run whether the
// queue needs session-scoped receiving and hands out receivers accordingly.
// Backends (Service Bus, SQS, in-memory) live under the backend directory
// and implement the Backend interface.
//
// See the LICENSE file.
package drain
