// Package progress defines the snapshot events emitted by the harvest
// orchestrator and the reporters that render them.
package progress
