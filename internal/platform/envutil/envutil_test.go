package envutil

import (
	"reflect"
	"testing"
	"time"
)

func TestBool(t *testing.T) {
	cases := []struct {
		raw  string
		def  bool
		want bool
	}{
		{"", true, true},
		{"yes", false, true},
		{"ON", false, true},
		{"0", true, false},
		{"off", true, false},
		{"maybe", true, true},
	}
	for _, tc := range cases {
		t.Setenv("ENVUTIL_BOOL", tc.raw)
		if got := Bool("ENVUTIL_BOOL", tc.def); got != tc.want {
			t.Fatalf("Bool(%q, %v) = %v", tc.raw, tc.def, got)
		}
	}
}

func TestDuration(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"", time.Minute},
		{"90s", 90 * time.Second},
		{"30", 30 * time.Second},
		{"soon", time.Minute},
	}
	for _, tc := range cases {
		t.Setenv("ENVUTIL_DURATION", tc.raw)
		if got := Duration("ENVUTIL_DURATION", time.Minute); got != tc.want {
			t.Fatalf("Duration(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestListAndFirst(t *testing.T) {
	t.Setenv("ENVUTIL_LIST", " http://a.test, ,http://b.test ")
	if got := List("ENVUTIL_LIST"); !reflect.DeepEqual(got, []string{"http://a.test", "http://b.test"}) {
		t.Fatalf("List = %#v", got)
	}

	t.Setenv("ENVUTIL_A", "")
	t.Setenv("ENVUTIL_B", " second ")
	if got := First("ENVUTIL_A", "ENVUTIL_B"); got != "second" {
		t.Fatalf("First = %q", got)
	}
}

func TestIntAndFloat(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "7")
	t.Setenv("ENVUTIL_FLOAT", "x")
	if got := Int("ENVUTIL_INT", 1); got != 7 {
		t.Fatalf("Int = %d", got)
	}
	if got := Float("ENVUTIL_FLOAT", 0.5); got != 0.5 {
		t.Fatalf("Float = %v", got)
	}
}
