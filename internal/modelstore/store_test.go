package modelstore

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "models.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sq,
	}
}

func TestLoadAbsentIsNotAnError(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			payload, ok, err := store.Load(context.Background(), "never_saved")
			if err != nil {
				t.Fatalf("absence must not error: %v", err)
			}
			if ok || payload != nil {
				t.Errorf("expected (nil, false), got (%v, %v)", payload, ok)
			}
		})
	}
}

func TestSaveLoadReplace(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Save(ctx, "model", []byte(`{"v":1}`)); err != nil {
				t.Fatal(err)
			}
			payload, ok, err := store.Load(ctx, "model")
			if err != nil || !ok {
				t.Fatalf("load: ok=%v err=%v", ok, err)
			}
			if !bytes.Equal(payload, []byte(`{"v":1}`)) {
				t.Errorf("payload = %s", payload)
			}

			// Save replaces wholesale.
			if err := store.Save(ctx, "model", []byte(`{"v":2}`)); err != nil {
				t.Fatal(err)
			}
			payload, ok, err = store.Load(ctx, "model")
			if err != nil || !ok {
				t.Fatalf("reload: ok=%v err=%v", ok, err)
			}
			if !bytes.Equal(payload, []byte(`{"v":2}`)) {
				t.Errorf("payload after replace = %s", payload)
			}
		})
	}
}

func TestMemoryStoreCopiesPayloads(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	original := []byte("abc")
	if err := store.Save(ctx, "m", original); err != nil {
		t.Fatal(err)
	}
	original[0] = 'x'

	payload, _, _ := store.Load(ctx, "m")
	if !bytes.Equal(payload, []byte("abc")) {
		t.Errorf("stored payload mutated through caller slice: %s", payload)
	}
}
