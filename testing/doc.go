// Package testing provides test utilities for feedsync.
//
// It follows the net/http/httptest convention of shipping helpers in a
// dedicated package:
//   - StartEmbeddedNATS: single in-process NATS server with JetStream
//   - CreateJetStreamKV: KV bucket with test defaults
//   - NewTestLogger: types.Logger writing to the test log
//   - FaultyLeaseManager: LeaseManager decorator that injects failures
//
// Example usage:
//
//	import (
//	    "testing"
//	    fstest "github.com/arloliu/feedsync/testing"
//	)
//
//	func TestLeases(t *testing.T) {
//	    _, nc := fstest.StartEmbeddedNATS(t)
//	    kv := fstest.CreateJetStreamKV(t, nc, "leases")
//	    // ...
//	}
package testing
