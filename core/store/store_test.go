package store

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/madrasa-app/madrasa/storage"
	memstore "github.com/madrasa-app/madrasa/storage/memory"
)

type record struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Marks int    `json:"marks"`
	Class string `json:"class,omitempty"`
}

func (r record) Key() string { return r.ID }

func newTestStore(t *testing.T) (*Store[record], storage.Backend) {
	t.Helper()
	backend := memstore.New()
	t.Cleanup(func() { _ = backend.Close() })
	return New[record]("records", backend, nil), backend
}

func TestStore_AddAndGet(t *testing.T) {
	st, _ := newTestStore(t)

	if got := st.GetAll(); len(got) != 0 {
		t.Fatalf("GetAll() on empty store = %v, want empty", got)
	}

	recs := []record{
		{ID: "1", Name: "Rafiq", Marks: 80},
		{ID: "2", Name: "Kamal", Marks: 65},
		{ID: "3", Name: "Ayesha", Marks: 92},
	}
	for _, r := range recs {
		if !st.Add(r) {
			t.Fatalf("Add(%s) failed", r.ID)
		}
	}

	// insertion order is preserved
	got := st.GetAll()
	if len(got) != len(recs) {
		t.Fatalf("GetAll() len = %d, want %d", len(got), len(recs))
	}
	for i, r := range recs {
		if got[i] != r {
			t.Errorf("GetAll()[%d] = %v, want %v", i, got[i], r)
		}
	}

	if r, ok := st.GetByID("2"); !ok || r.Name != "Kamal" {
		t.Errorf("GetByID(2) = %v, %v", r, ok)
	}
	if _, ok := st.GetByID("nope"); ok {
		t.Error("GetByID(nope) found a record")
	}
	if n := st.Count(); n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}

func TestStore_AddDuplicateKey(t *testing.T) {
	st, _ := newTestStore(t)

	if !st.Add(record{ID: "1", Name: "Rafiq"}) {
		t.Fatal("Add() failed")
	}
	if st.Add(record{ID: "1", Name: "Imposter"}) {
		t.Error("Add() accepted a duplicate key")
	}
	if r, _ := st.GetByID("1"); r.Name != "Rafiq" {
		t.Errorf("record was overwritten: %v", r)
	}
}

func TestStore_Update(t *testing.T) {
	st, _ := newTestStore(t)
	st.Add(record{ID: "1", Name: "Rafiq", Marks: 80})

	if !st.Update("1", func(r record) record { r.Marks = 95; return r }) {
		t.Fatal("Update() failed")
	}
	if r, _ := st.GetByID("1"); r.Marks != 95 || r.Name != "Rafiq" {
		t.Errorf("Update() result = %v", r)
	}
	if st.Update("nope", func(r record) record { return r }) {
		t.Error("Update() on missing key succeeded")
	}
}

func TestStore_Patch(t *testing.T) {
	st, _ := newTestStore(t)
	st.Add(record{ID: "1", Name: "Rafiq", Marks: 80, Class: "Alim 1st Year"})

	tests := []struct {
		name   string
		id     string
		fields map[string]interface{}
		want   record
		wantOK bool
	}{
		{
			name:   "listed fields overwrite, others retained",
			id:     "1",
			fields: map[string]interface{}{"marks": 90},
			want:   record{ID: "1", Name: "Rafiq", Marks: 90, Class: "Alim 1st Year"},
			wantOK: true,
		},
		{
			name:   "key field cannot be patched",
			id:     "1",
			fields: map[string]interface{}{"id": "2", "name": "Kamal"},
			want:   record{ID: "1", Name: "Kamal", Marks: 90, Class: "Alim 1st Year"},
			wantOK: true,
		},
		{
			name:   "missing record",
			id:     "nope",
			fields: map[string]interface{}{"marks": 1},
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ok := st.Patch(tt.id, tt.fields); ok != tt.wantOK {
				t.Fatalf("Patch() = %v, want %v", ok, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}
			if got, _ := st.GetByID(tt.id); got != tt.want {
				t.Errorf("Patch() result = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStore_Delete(t *testing.T) {
	st, _ := newTestStore(t)
	st.Add(record{ID: "1", Name: "Rafiq"})
	st.Add(record{ID: "2", Name: "Kamal"})

	if !st.Delete("1") {
		t.Fatal("Delete() failed")
	}
	if _, ok := st.GetByID("1"); ok {
		t.Error("record still present after Delete()")
	}
	// deleting an absent key reports persistence success
	if !st.Delete("nope") {
		t.Error("Delete() on absent key = false")
	}
	if n := st.Count(); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestStore_Search(t *testing.T) {
	st, _ := newTestStore(t)
	st.Add(record{ID: "1", Name: "Rafiq", Class: "Alim 1st Year"})
	st.Add(record{ID: "2", Name: "Kamal", Class: "Hifz"})
	st.Add(record{ID: "3", Name: "Ayesha", Class: "Alim 1st Year"})

	got := st.Search(func(r record) bool { return r.Class == "Alim 1st Year" })
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "3" {
		t.Errorf("Search() = %v", got)
	}
}

func TestStore_Clear(t *testing.T) {
	st, _ := newTestStore(t)
	st.Add(record{ID: "1", Name: "Rafiq"})

	if !st.Clear() {
		t.Fatal("Clear() failed")
	}
	if n := st.Count(); n != 0 {
		t.Errorf("Count() after Clear() = %d", n)
	}
}

func TestStore_CorruptSlot(t *testing.T) {
	st, backend := newTestStore(t)
	st.Add(record{ID: "1", Name: "Rafiq"})

	if err := backend.Set("records", []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if got := st.GetAll(); got != nil {
		t.Errorf("GetAll() on corrupt slot = %v, want nil", got)
	}
	// writes start over from an empty collection
	if !st.Add(record{ID: "2", Name: "Kamal"}) {
		t.Fatal("Add() after corruption failed")
	}
	if n := st.Count(); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

// failingBackend rejects all writes.
type failingBackend struct {
	storage.Backend
}

func (b failingBackend) Set(string, []byte) error { return errors.New("disk full") }

func TestStore_PersistenceFault(t *testing.T) {
	inner := memstore.New()
	t.Cleanup(func() { _ = inner.Close() })
	st := New[record]("records", failingBackend{Backend: inner}, nil)

	if st.Add(record{ID: "1", Name: "Rafiq"}) {
		t.Error("Add() succeeded despite write fault")
	}
	if st.Delete("1") {
		t.Error("Delete() succeeded despite write fault")
	}
	if got := st.GetAll(); len(got) != 0 {
		t.Errorf("GetAll() = %v, want empty", got)
	}
}
