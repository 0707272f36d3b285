package bookkeeping

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	store := openTestStore(t)

	period := 2
	err := store.Record(FillRecord{
		IntentID:    7,
		Kind:        KindTaker,
		PeriodIndex: &period,
		TxHash:      "0xaa11",
		Amount:      "250000000",
		OutputSeen:  "249000000",
		Status:      StatusConfirmed,
		SubmittedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	records, err := store.ListByIntent(7)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(7), records[0].IntentID)
	require.NotNil(t, records[0].PeriodIndex)
	assert.Equal(t, 2, *records[0].PeriodIndex)
	assert.Equal(t, KindTaker, records[0].Kind)
	assert.Equal(t, StatusConfirmed, records[0].Status)
}

func TestRecordIsIdempotentPerTxHash(t *testing.T) {
	store := openTestStore(t)

	record := FillRecord{
		IntentID:    1,
		TxHash:      "0xdeadbeef",
		Amount:      "100",
		Status:      StatusConfirmed,
		SubmittedAt: time.Now().UTC(),
	}

	require.NoError(t, store.Record(record))
	require.NoError(t, store.Record(record))

	records, err := store.ListByIntent(1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestListByIntentIsolation(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Record(FillRecord{IntentID: 1, TxHash: "0x01", Status: StatusConfirmed}))
	require.NoError(t, store.Record(FillRecord{IntentID: 2, TxHash: "0x02", Status: StatusReverted}))

	records, err := store.ListByIntent(2)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "0x02", records[0].TxHash)
}

func TestCountByStatus(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Record(FillRecord{IntentID: 1, TxHash: "0x01", Status: StatusConfirmed}))
	require.NoError(t, store.Record(FillRecord{IntentID: 1, TxHash: "0x02", Status: StatusConfirmed}))
	require.NoError(t, store.Record(FillRecord{IntentID: 2, TxHash: "0x03", Status: StatusReverted}))

	confirmed, err := store.CountByStatus(StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, int64(2), confirmed)

	reverted, err := store.CountByStatus(StatusReverted)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reverted)
}
