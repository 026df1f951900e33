package client

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noveldesk/internal/novel"
)

type fireRecorder struct {
	mu    sync.Mutex
	trees []*novel.DocumentTree
}

func (f *fireRecorder) fire(tree *novel.DocumentTree) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trees = append(f.trees, tree)
}

func (f *fireRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.trees)
}

func (f *fireRecorder) last() *novel.DocumentTree {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.trees) == 0 {
		return nil
	}
	return f.trees[len(f.trees)-1]
}

func TestScheduleFiresTrailingTreeOnce(t *testing.T) {
	rec := &fireRecorder{}
	d := newDebouncer(15*time.Millisecond, rec.fire)

	d.schedule(editedTree("one"))
	d.schedule(editedTree("two"))
	d.schedule(editedTree("three"))

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "three", rec.last().Books[0].Title)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestFlushFiresImmediately(t *testing.T) {
	rec := &fireRecorder{}
	d := newDebouncer(time.Minute, rec.fire)

	d.schedule(editedTree("pending"))
	d.flush()

	require.Equal(t, 1, rec.count())
	assert.Equal(t, "pending", rec.last().Books[0].Title)

	// The cancelled timer must not fire a second copy later.
	d.flush()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestFlushWithNothingPendingIsNoop(t *testing.T) {
	rec := &fireRecorder{}
	d := newDebouncer(time.Millisecond, rec.fire)
	d.flush()
	assert.Zero(t, rec.count())
}

func TestCancelDropsPendingTree(t *testing.T) {
	rec := &fireRecorder{}
	d := newDebouncer(10*time.Millisecond, rec.fire)

	d.schedule(editedTree("doomed"))
	d.cancel()

	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, rec.count())
}

func TestScheduleAfterFlushStartsFresh(t *testing.T) {
	rec := &fireRecorder{}
	d := newDebouncer(10*time.Millisecond, rec.fire)

	d.schedule(editedTree("first"))
	d.flush()
	d.schedule(editedTree("second"))

	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, "second", rec.last().Books[0].Title)
}
