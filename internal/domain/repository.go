package domain

import "context"

// SnapshotRepository persists the full ordered item list. Loads are
// permissive: a missing or unreadable snapshot yields an empty list.
type SnapshotRepository interface {
	LoadSnapshot(ctx context.Context) []Item
	StoreSnapshot(ctx context.Context, items []Item) error
}

// StateRepository persists per-feed conditional-fetch metadata.
type StateRepository interface {
	LoadState(ctx context.Context) FeedState
	StoreState(ctx context.Context, state FeedState) error
}
