package access

import "testing"

const (
	position ComponentID = iota
	velocity
	health
	target
)

func TestNewSet_WriteDominates(t *testing.T) {
	t.Parallel()
	// Position declared as both read and written collapses to write-only.
	s := NewSet([]ComponentID{position, velocity}, []ComponentID{position})

	if s.Reads().Has(position) {
		t.Error("position should not remain in the read mask")
	}
	if !s.Writes().Has(position) {
		t.Error("position should be in the write mask")
	}
	if !s.Reads().Has(velocity) {
		t.Error("velocity should be in the read mask")
	}
	if !s.Touches().Has(position) || !s.Touches().Has(velocity) {
		t.Error("Touches should cover both declared types")
	}
}

func TestSet_ConflictsWith(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a, b Set
		want bool
	}{
		{
			name: "two readers never conflict",
			a:    ReadOnly(position),
			b:    ReadOnly(position),
			want: false,
		},
		{
			name: "writer conflicts with reader of same type",
			a:    WriteOnly(position),
			b:    ReadOnly(position),
			want: true,
		},
		{
			name: "reader conflicts with writer of same type",
			a:    ReadOnly(position),
			b:    WriteOnly(position),
			want: true,
		},
		{
			name: "two writers of same type conflict",
			a:    WriteOnly(health),
			b:    WriteOnly(health),
			want: true,
		},
		{
			name: "disjoint writers do not conflict",
			a:    WriteOnly(position),
			b:    WriteOnly(velocity),
			want: false,
		},
		{
			name: "empty footprint conflicts with nothing",
			a:    Set{},
			b:    NewSet([]ComponentID{position}, []ComponentID{velocity}),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.a.ConflictsWith(tt.b); got != tt.want {
				t.Errorf("ConflictsWith = %v, want %v", got, tt.want)
			}
			// Conflict is symmetric.
			if got := tt.b.ConflictsWith(tt.a); got != tt.want {
				t.Errorf("reversed ConflictsWith = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSet_String(t *testing.T) {
	t.Parallel()
	s := NewSet([]ComponentID{velocity}, []ComponentID{position, target})
	if got, want := s.String(), "r:{1} w:{0 3}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := (Set{}).String(), "r:{} w:{}"; got != want {
		t.Errorf("empty String() = %q, want %q", got, want)
	}
}

func TestQuery_Matches(t *testing.T) {
	t.Parallel()
	q := NewQuery(position, velocity).Without(health)

	if !q.Matches(MaskOf(position, velocity, target)) {
		t.Error("composition with both includes should match")
	}
	if q.Matches(MaskOf(position)) {
		t.Error("composition missing velocity should not match")
	}
	if q.Matches(MaskOf(position, velocity, health)) {
		t.Error("composition carrying excluded health should not match")
	}
}
