package memstore

import (
	"testing"

	"github.com/lodestone-games/stride/access"
)

const (
	position access.ComponentID = iota
	velocity
	health
)

type vec2 struct{ X, Y float64 }

func TestStore_CreateAssignsComposition(t *testing.T) {
	t.Parallel()

	s := NewStore(4)
	e := s.Create(position, velocity)

	if got, want := s.Len(), 1; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
	if !s.IsAlive(e) {
		t.Fatalf("IsAlive(%v) = false, want true", e)
	}
	if got := s.CountMatching(access.NewQuery(position, velocity)); got != 1 {
		t.Errorf("CountMatching(position, velocity) = %d, want 1", got)
	}
	if got := s.CountMatching(access.NewQuery(health)); got != 0 {
		t.Errorf("CountMatching(health) = %d, want 0", got)
	}
}

func TestStore_DestroyRecyclesSlotWithNewVersion(t *testing.T) {
	t.Parallel()

	s := NewStore(4)
	a := s.Create(position)
	b := s.Create(position)

	if !s.Destroy(a) {
		t.Fatal("Destroy(a) = false, want true")
	}
	if s.Destroy(a) {
		t.Error("second Destroy(a) = true, want false")
	}
	if s.IsAlive(a) {
		t.Error("IsAlive(a) = true after destroy, want false")
	}

	c := s.Create(position)
	if c.ID != a.ID {
		t.Errorf("recycled slot %d, want %d", c.ID, a.ID)
	}
	if c.Version == a.Version {
		t.Error("recycled slot kept the old version")
	}
	if s.IsAlive(a) {
		t.Error("stale handle came back to life after recycle")
	}
	if !s.IsAlive(b) || !s.IsAlive(c) {
		t.Error("live handles reported dead")
	}
}

func TestStore_ScanIntoRespectsExclusion(t *testing.T) {
	t.Parallel()

	s := NewStore(8)
	s.Create(position, velocity)
	want := s.Create(position)
	s.Create(velocity)

	q := access.NewQuery(position).Without(velocity)
	buf := make([]access.Entity, 8)
	n := s.ScanInto(q, buf)
	if n != 1 {
		t.Fatalf("ScanInto wrote %d handles, want 1", n)
	}
	if buf[0] != want {
		t.Errorf("ScanInto wrote %v, want %v", buf[0], want)
	}
}

func TestStore_RefReadsAndWritesColumn(t *testing.T) {
	t.Parallel()

	s := NewStore(4)
	AddColumn[vec2](s, position)
	e := s.Create(position)

	ref := Ref[vec2](s, position)
	ref(e).X = 3.5
	ref(e).Y = -1

	if got := *ref(e); got != (vec2{X: 3.5, Y: -1}) {
		t.Errorf("ref(e) = %+v, want {3.5 -1}", got)
	}
}

func TestStore_ColumnsGrowWithEntities(t *testing.T) {
	t.Parallel()

	s := NewStore(1)
	AddColumn[int](s, health)

	ref := Ref[int](s, health)
	for i := 0; i < 100; i++ {
		e := s.Create(health)
		*ref(e) = i
	}
	if got := s.CountMatching(access.NewQuery(health)); got != 100 {
		t.Fatalf("CountMatching(health) = %d, want 100", got)
	}
}

func TestRef_PanicsOnMissingColumn(t *testing.T) {
	t.Parallel()

	s := NewStore(1)
	defer func() {
		if recover() == nil {
			t.Error("Ref on an unregistered column did not panic")
		}
	}()
	Ref[vec2](s, position)
}

func TestAddColumn_RejectsReferenceTypes(t *testing.T) {
	t.Parallel()

	type tagged struct {
		Name string
	}
	s := NewStore(1)
	defer func() {
		if recover() == nil {
			t.Error("AddColumn accepted a column type carrying a string")
		}
	}()
	AddColumn[tagged](s, position)
}
