package state

import (
	"context"
	"os"
	"slices"
	"testing"

	dotdtesting "github.com/rotblauer/dotd/testing"
	"github.com/rotblauer/dotd/testing/testdata"
	"github.com/rotblauer/dotd/types/activity"
)

func newTestStore(t *testing.T) *RecordStore {
	t.Helper()
	if err := os.MkdirAll(dotdtesting.DefaultTestDir(), 0770); err != nil {
		t.Fatal(err)
	}
	dir, err := os.MkdirTemp(dotdtesting.DefaultTestDir(), "records-")
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewRecordStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		s.Close()
		os.RemoveAll(dir)
	})
	return s
}

func TestRecordStoreWriteRead(t *testing.T) {
	s := newTestStore(t)

	rec := testdata.NewRideRecord(42, 44.98, -93.25, 20, 10)
	if err := s.Write(rec); err != nil {
		t.Fatal(err)
	}

	// Cache hit: the same decoded record comes straight back.
	got, err := s.Read(42)
	if err != nil {
		t.Fatal(err)
	}
	if got != rec {
		t.Error("cached read should return the written record")
	}

	// Cold read: purge the cache and decode from disk.
	s.cache.Purge()
	got, err = s.Read(42)
	if err != nil {
		t.Fatal(err)
	}
	if got == rec {
		t.Error("cold read should decode a fresh record")
	}
	if got.ID != rec.ID || got.Polyline != rec.Polyline || got.N != rec.N {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Time.Len() != rec.Time.Len() {
		t.Errorf("time list len got=%d, want=%d", got.Time.Len(), rec.Time.Len())
	}
}

func TestRecordStoreReadMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Read(1); err == nil {
		t.Error("expected error reading from an empty store")
	}
	if err := s.Write(testdata.NewRideRecord(1, 44.98, -93.25, 5, 10)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Read(2); err == nil {
		t.Error("expected error for an absent id")
	}
}

func TestRecordStoreCount(t *testing.T) {
	s := newTestStore(t)
	if n, err := s.Count(); err != nil || n != 0 {
		t.Errorf("empty count got=%d err=%v", n, err)
	}
	for i := int64(1); i <= 3; i++ {
		if err := s.Write(testdata.NewRideRecord(i, 44.98, -93.25, 5, 10)); err != nil {
			t.Fatal(err)
		}
	}
	// Overwrite is not a new key.
	if err := s.Write(testdata.NewRideRecord(2, 45.00, -93.25, 5, 10)); err != nil {
		t.Fatal(err)
	}
	if n, err := s.Count(); err != nil || n != 3 {
		t.Errorf("count got=%d err=%v", n, err)
	}
}

func TestRecordStoreWriteBatch(t *testing.T) {
	s := newTestStore(t)
	batch := []*activity.RawRecord{
		testdata.NewRideRecord(1, 44.98, -93.25, 5, 10),
		testdata.NewRideRecord(2, 45.00, -93.25, 5, 10),
		testdata.NewRideRecord(3, 45.02, -93.25, 5, 10),
	}
	if err := s.WriteBatch(batch); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteBatch(nil); err != nil {
		t.Errorf("empty batch err=%v", err)
	}
	if n, err := s.Count(); err != nil || n != 3 {
		t.Errorf("count got=%d err=%v", n, err)
	}
	for _, rec := range batch {
		got, err := s.Read(int64(rec.ID))
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != rec.ID {
			t.Errorf("id got=%d, want=%d", got.ID, rec.ID)
		}
	}
}

func TestRecordStoreScan(t *testing.T) {
	s := newTestStore(t)
	// Insert out of order; the scan comes back in key order.
	for _, id := range []int64{3, 1, 2} {
		if err := s.Write(testdata.NewRideRecord(id, 44.98, -93.25, 5, 10)); err != nil {
			t.Fatal(err)
		}
	}

	out, errs := s.Scan(context.Background())
	ids := []int64{}
	for rec := range out {
		ids = append(ids, int64(rec.ID))
	}
	if err := <-errs; err != nil {
		t.Fatal(err)
	}
	if !slices.Equal([]int64{1, 2, 3}, ids) {
		t.Errorf("scan order got=%v, want ascending ids", ids)
	}
}

func TestRecordStoreScanCancel(t *testing.T) {
	s := newTestStore(t)
	for i := int64(1); i <= 10; i++ {
		if err := s.Write(testdata.NewRideRecord(i, 44.98, -93.25, 5, 10)); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	out, errs := s.Scan(ctx)
	<-out
	cancel()
	// Drain; the scan aborts with the context's error.
	for range out {
	}
	if err := <-errs; err == nil {
		t.Error("cancelled scan should report an error")
	}
}

func TestRecordStoreReopen(t *testing.T) {
	if err := os.MkdirAll(dotdtesting.DefaultTestDir(), 0770); err != nil {
		t.Fatal(err)
	}
	dir, err := os.MkdirTemp(dotdtesting.DefaultTestDir(), "records-")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	s, err := NewRecordStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(testdata.NewRideRecord(5, 44.98, -93.25, 5, 10)); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = NewRecordStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	rec, err := s.Read(5)
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != 5 {
		t.Errorf("id got=%d, want=5", rec.ID)
	}
}
