// Package realtime implements the websocket side of the gateway: a Hub that
// tracks connected clients, a Broadcaster that turns task events into push
// notifications for their owners, and the per-connection session that speaks
// the JSON message protocol.
//
// Delivery is best effort. A notification for a client that is gone, or
// whose outbound buffer is full, is dropped and counted; nothing is queued
// for a later reconnect. Clients recover missed updates by polling with
// get_task_status or get_my_tasks.
package realtime
