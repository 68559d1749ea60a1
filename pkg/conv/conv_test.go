package conv

import (
	"reflect"
	"testing"
)

func TestToFloat64(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{3.14, 3.14, true},
		{float32(2), 2, true},
		{7, 7, true},
		{int64(8), 8, true},
		{int32(9), 9, true},
		{true, 1, true},
		{false, 0, true},
		{"3.14", 0, false},
		{nil, 0, false},
	}
	for _, c := range cases {
		got, ok := ToFloat64(c.in)
		if got != c.want || ok != c.ok {
			t.Fatalf("ToFloat64(%v) = (%v, %v), want (%v, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestToString(t *testing.T) {
	if s, ok := ToString("amber"); !ok || s != "amber" {
		t.Fatalf("ToString(string) = (%q, %v)", s, ok)
	}
	if _, ok := ToString(42); ok {
		t.Fatal("ToString(int) should fail")
	}
	if _, ok := ToString(nil); ok {
		t.Fatal("ToString(nil) should fail")
	}
}

func TestSliceAnyToString(t *testing.T) {
	in := []any{"bergamot", 42.0, true, []int{1}}
	got := SliceAnyToString(in)
	// 数字（含 bool）格式化为整数字符串，无法转换的元素被跳过
	want := []string{"bergamot", "42", "1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SliceAnyToString = %v, want %v", got, want)
	}

	if SliceAnyToString(nil) != nil {
		t.Fatal("nil input should return nil")
	}
	if SliceAnyToString("not-a-slice") != nil {
		t.Fatal("non-slice input should return nil")
	}
}
