package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "synergies.db"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestSQLiteStoreSynergySetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	set := SynergySet{
		Name:          "walk_r",
		Source:        "excitations.csv",
		Actuators:     []string{"soleus_r", "tibant_r"},
		Vectors:       [][]float64{{0.3, 0.7}, {1, 0}},
		Iterations:    120,
		RelativeError: 0.01,
		VAF:           0.99,
		Converged:     true,
	}
	id, err := store.SaveSynergySet(ctx, set)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	loaded, ok, err := store.GetSynergySet(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("expected synergy set %s", id)
	}
	if loaded.Name != set.Name || loaded.Rank() != 2 || loaded.Vectors[0][1] != 0.7 || !loaded.Converged {
		t.Fatalf("unexpected synergy set loaded: %+v", loaded)
	}

	loaded.VAF = 0.5
	if _, err := store.SaveSynergySet(ctx, loaded); err != nil {
		t.Fatalf("update: %v", err)
	}
	updated, _, err := store.GetSynergySet(ctx, id)
	if err != nil || updated.VAF != 0.5 {
		t.Fatalf("update not applied: %+v, %v", updated, err)
	}

	_, ok, err = store.GetSynergySet(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("expected missing set, got ok=%v err=%v", ok, err)
	}
}

func TestSQLiteStoreListFindDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"left", "right", "left"} {
		_, err := store.SaveSynergySet(ctx, SynergySet{
			Name:      name,
			Actuators: []string{"a"},
			Vectors:   [][]float64{{float64(i)}},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	sets, err := store.ListSynergySets(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sets) != 3 || sets[0].Name != "left" || sets[1].Name != "right" {
		t.Fatalf("unexpected listing: %+v", sets)
	}

	latest, ok, err := store.FindSynergySet(ctx, "left")
	if err != nil || !ok {
		t.Fatalf("find: ok=%v err=%v", ok, err)
	}
	if latest.Vectors[0][0] != 2 {
		t.Errorf("expected most recent left set, got %+v", latest)
	}

	deleted, err := store.DeleteSynergySet(ctx, latest.ID)
	if err != nil || !deleted {
		t.Fatalf("delete: %v %v", deleted, err)
	}
	sets, _ = store.ListSynergySets(ctx)
	if len(sets) != 2 {
		t.Errorf("expected 2 sets after delete, got %d", len(sets))
	}
}

func TestSQLiteStoreErrors(t *testing.T) {
	ctx := context.Background()

	if err := NewSQLiteStore("").Init(ctx); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := NewSQLiteStore("x.db").SaveSynergySet(ctx, SynergySet{Name: "a"}); err == nil {
		t.Error("expected error before init")
	}

	store := newTestSQLiteStore(t)
	if _, err := store.SaveSynergySet(ctx, SynergySet{}); err == nil {
		t.Error("expected error for unnamed set")
	}
	bad := SynergySet{Name: "bad", Actuators: []string{"a", "b"}, Vectors: [][]float64{{1}}}
	if _, err := store.SaveSynergySet(ctx, bad); err == nil {
		t.Error("expected error for ragged vectors")
	}
}
