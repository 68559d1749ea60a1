package utils

import "testing"

func TestMergeLabel(t *testing.T) {
	cases := []struct {
		name     string
		existing Label
		incoming Label
		want     Label
	}{
		{
			name:     "both empty value keeps incoming",
			existing: Label{},
			incoming: Label{Value: "a", Source: "s1"},
			want:     Label{Value: "a", Source: "s1"},
		},
		{
			name:     "incoming empty keeps existing",
			existing: Label{Value: "a", Source: "s1"},
			incoming: Label{},
			want:     Label{Value: "a", Source: "s1"},
		},
		{
			name:     "values accumulate with pipe",
			existing: Label{Value: "a", Source: "s1"},
			incoming: Label{Value: "b", Source: "s2"},
			want:     Label{Value: "a|b", Source: "s1,s2"},
		},
		{
			name:     "missing existing source takes incoming",
			existing: Label{Value: "a"},
			incoming: Label{Value: "b", Source: "s2"},
			want:     Label{Value: "a|b", Source: "s2"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := MergeLabel(c.existing, c.incoming); got != c.want {
				t.Fatalf("MergeLabel = %+v, want %+v", got, c.want)
			}
		})
	}
}
