// Package harvest implements the harvest pipeline: a resumable,
// rate-limited, cancellable run that drives a platform fetcher through
// per-record extraction, normalization, and durable incremental writes.
package harvest
