// Package sink provides durable destinations for harvested records: an
// incremental CSV writer, a Postgres store, and an in-memory sink for
// tests.
package sink
