// Package kvstore provides durable key-value text storage with a byte quota,
// the local equivalent of a browser origin's storage area.
package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// DefaultQuota matches the common per-origin local storage limit.
const DefaultQuota int64 = 5 << 20

// ErrQuotaExceeded is wrapped by every QuotaError.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// QuotaError reports a write refused because it would exceed the quota.
// The previously stored value is left intact.
type QuotaError struct {
	Key   string
	Need  int64
	Quota int64
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("write %q: needs %s of %s quota",
		e.Key, humanize.IBytes(uint64(e.Need)), humanize.IBytes(uint64(e.Quota)))
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }

// Backend stores text values by key. Set replaces the whole value atomically.
type Backend interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Usage(ctx context.Context) (used, quota int64, err error)
	Close() error
}

func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}
