// Package stream defines the canonical message model shared by all engine
// adapters (claude, codex, gemini).
//
// Each engine emits events in its own wire format. The adapter packages
// translate those events into stream.Message values, so the orchestrator and
// everything above it only ever sees one vocabulary. A Message is a flat
// struct discriminated by Kind rather than an interface hierarchy: adapters
// produce at most one message per raw event, and downstream code switches on
// Kind with a default drop arm for anything it does not render.
//
// Two behaviors live here because every engine needs them:
//
//   - Fingerprinting. Engines may deliver the same logical event on
//     overlapping channels (generic and session-scoped). Fingerprint returns
//     the engine-stable id when one exists and a content hash otherwise, so
//     the listener layer can drop duplicates without knowing the wire format.
//
//   - Delta merging. Streaming assistant and thinking chunks arrive as
//     partial messages that belong to the previous timeline entry. MergeDelta
//     concatenates them in place; everything else on the timeline is
//     immutable once appended.
package stream
