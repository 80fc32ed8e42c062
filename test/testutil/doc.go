// Package testutil provides shared helpers for feedsync integration tests.
//
// It contains lease invariant assertions and polling helpers that several
// integration scenarios need.
//
// Note: For NATS server setup, use the github.com/arloliu/feedsync/testing package.
package testutil
