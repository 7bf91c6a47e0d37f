package ledger

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aleister1102/pagewatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(i int) models.ChangeRecord {
	return models.ChangeRecord{
		Type:        models.ChangeTypeTextChange,
		Description: fmt.Sprintf("change %d", i),
		DetectedAt:  time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC),
	}
}

func TestLedger_AppendAndRecent(t *testing.T) {
	l := NewLedger(10)
	l.Append(record(0), record(1), record(2))

	recent := l.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "change 2", recent[0].Description)
	assert.Equal(t, "change 1", recent[1].Description)
	assert.Equal(t, 3, l.Len())
}

func TestLedger_EvictsOldestAtCap(t *testing.T) {
	l := NewLedger(3)
	for i := 0; i < 5; i++ {
		l.Append(record(i))
	}

	assert.Equal(t, 3, l.Len())
	all := l.Snapshot()
	require.Len(t, all, 3)
	assert.Equal(t, "change 2", all[0].Description)
	assert.Equal(t, "change 4", all[2].Description)
}

func TestLedger_BulkAppendBeyondCap(t *testing.T) {
	l := NewLedger(2)
	l.Append(record(0), record(1), record(2), record(3))

	require.Equal(t, 2, l.Len())
	recent := l.Recent(0)
	assert.Equal(t, "change 3", recent[0].Description)
	assert.Equal(t, "change 2", recent[1].Description)
}

func TestLedger_RecentLimitLargerThanLen(t *testing.T) {
	l := NewLedger(5)
	l.Append(record(0))

	assert.Len(t, l.Recent(50), 1)
}

func TestLedger_NonPositiveCapacity(t *testing.T) {
	l := NewLedger(0)
	l.Append(record(0), record(1))

	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 1, l.Cap())
}

func TestLedger_ConcurrentReadersAndWriter(t *testing.T) {
	l := NewLedger(100)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			l.Append(record(i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			recent := l.Recent(10)
			assert.LessOrEqual(t, len(recent), 10)
			assert.LessOrEqual(t, l.Len(), 100)
		}
	}()
	wg.Wait()

	assert.Equal(t, 100, l.Len())
}
