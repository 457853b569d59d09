package reconcile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/example/calendar-bridge/internal/calendar"
	"github.com/example/calendar-bridge/internal/gateway"
)

// reflectionTimeLayout renders block bounds the way they appear in the
// daily-note summary, e.g. "9:00 AM".
const reflectionTimeLayout = "3:04 PM"

// SyncReflections rewrites the availability markers on an owner's calendar
// to match the given blocks: existing reflections in the covered range are
// deleted, then one daily-note event per merged block is stored. The rewrite
// is idempotent; running it twice with the same blocks converges to the same
// calendar state.
//
// Deletion continues past individual failures so a single stuck UID cannot
// strand the rest of the markers; failures are logged and the store still
// proceeds.
func (e *Engine) SyncReflections(ctx context.Context, gw *gateway.Gateway, owner Owner, blocks []AvailableBlock) error {
	if len(blocks) == 0 {
		return nil
	}

	start, end := reflectionRange(blocks)
	existing, err := gw.FetchReflections(ctx, owner.Account.LoginID(), start, end)
	if err != nil {
		return fmt.Errorf("fetch existing reflections: %w", err)
	}

	if err := e.deleteReflections(ctx, gw, owner, existing.UIDs()); err != nil {
		return err
	}

	doc := calendar.Document{}
	for _, block := range MergeBlocks(blocks) {
		doc.Events = append(doc.Events, reflectionEvent(block))
	}
	if _, err := gw.Store(ctx, gateway.ReflectionStoreFlags(), doc); err != nil {
		return fmt.Errorf("store reflections: %w", err)
	}

	e.logger.InfoContext(ctx, "synchronized availability reflections",
		"owner", owner.Account.Username, "removed", len(existing.Events), "stored", len(doc.Events))
	return nil
}

// PurgeReflections removes every availability marker in the range without
// storing replacements.
func (e *Engine) PurgeReflections(ctx context.Context, gw *gateway.Gateway, owner Owner, start, end time.Time) error {
	existing, err := gw.FetchReflections(ctx, owner.Account.LoginID(), start, end)
	if err != nil {
		return fmt.Errorf("fetch reflections to purge: %w", err)
	}
	return e.deleteReflections(ctx, gw, owner, existing.UIDs())
}

func (e *Engine) deleteReflections(ctx context.Context, gw *gateway.Gateway, owner Owner, uids []string) error {
	result, err := gw.Delete(ctx, uids, true)
	if err != nil {
		return fmt.Errorf("delete reflections: %w", err)
	}
	for uid, deleteErr := range result.Failed {
		e.logger.WarnContext(ctx, "leaving stale reflection behind",
			"owner", owner.Account.Username, "uid", uid, "error", deleteErr)
	}
	return nil
}

// MergeBlocks coalesces overlapping and back-to-back blocks that fall on the
// same day, so an owner advertising 9-12 and 12-3 shows one marker. Blocks
// on different days never merge. The input is not modified.
func MergeBlocks(blocks []AvailableBlock) []AvailableBlock {
	if len(blocks) == 0 {
		return nil
	}

	sorted := append([]AvailableBlock(nil), blocks...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []AvailableBlock{sorted[0]}
	for _, block := range sorted[1:] {
		last := &merged[len(merged)-1]
		if sameDay(last.Start, block.Start) && !block.Start.After(last.End) {
			if block.End.After(last.End) {
				last.End = block.End
			}
			continue
		}
		merged = append(merged, block)
	}
	return merged
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// reflectionEvent builds the daily-note marker for one merged block.
func reflectionEvent(block AvailableBlock) calendar.Event {
	return calendar.Event{
		Summary: fmt.Sprintf("Available %s - %s",
			block.Start.Format(reflectionTimeLayout),
			block.End.Format(reflectionTimeLayout)),
		Start:      block.Start,
		End:        block.End,
		EventType:  calendar.EventTypeDailyNote,
		Reflection: true,
	}
}

// reflectionRange spans from the start of the earliest block's day to the
// end of the latest block's day, so stale markers anywhere in the advertised
// window are found.
func reflectionRange(blocks []AvailableBlock) (time.Time, time.Time) {
	min, max := blocks[0].Start, blocks[0].End
	for _, block := range blocks[1:] {
		if block.Start.Before(min) {
			min = block.Start
		}
		if block.End.After(max) {
			max = block.End
		}
	}
	return startOfDay(min), endOfDay(max)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Second)
}
