// Package domain contains the core entities of the gateway: analysis tasks,
// their lifecycle statuses and the text-or-event payload they carry. It is
// independent of transport, storage and the inference provider in use.
package domain
