// Package eventbus provides a typed publish/subscribe fan-out with
// per-subscriber buffering.
//
// Producers publish without blocking: each subscriber owns a bounded
// buffer, and when it falls behind the oldest undelivered event is
// dropped to make room for the newest. Subscribers therefore always see
// fresh events at the cost of possibly missing intermediate ones, which
// suits progress reporting and log streaming where only the latest state
// matters.
package eventbus
