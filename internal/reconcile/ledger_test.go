package reconcile

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerAppend(t *testing.T) {
	l := NewLedger()
	require.Zero(t, l.Len())

	l.Append(Record{Serial: "A1", Code: "INVALID_SERIAL", Description: "not in DEP"})
	l.Append(Record{Serial: "B2", Code: "TRANSFER_FAILED", Description: "attempts exhausted"})

	assert.Equal(t, 2, l.Len())

	records := l.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "A1", records[0].Serial)
	assert.Equal(t, "B2", records[1].Serial)
}

func TestLedgerRecords_Copy(t *testing.T) {
	l := NewLedger()
	l.Append(Record{Serial: "A1"})

	records := l.Records()
	records[0].Serial = "mutated"

	assert.Equal(t, "A1", l.Records()[0].Serial)
}

func TestLedgerConcurrentAppend(t *testing.T) {
	l := NewLedger()

	const writers = 8
	const perWriter = 100

	var wg sync.WaitGroup

	for range writers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range perWriter {
				l.Append(Record{Serial: "X", Code: "TRANSFER_FAILED"})
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, writers*perWriter, l.Len())
}
