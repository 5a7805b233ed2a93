package confstore

import (
	"testing"
)

func TestParsePath(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []segment
	}{
		{
			name: "single field",
			in:   "endpoint_data",
			want: []segment{{field: "endpoint_data"}},
		},
		{
			name: "dotted fields",
			in:   "endpoint_data.endpoint_name",
			want: []segment{{field: "endpoint_data"}, {field: "endpoint_name"}},
		},
		{
			name: "indexed field",
			in:   "monitor_data[2].monitor_name",
			want: []segment{{field: "monitor_data"}, {index: 2, isIndex: true}, {field: "monitor_name"}},
		},
		{
			name: "double index",
			in:   "grid[0][3]",
			want: []segment{{field: "grid"}, {index: 0, isIndex: true}, {index: 3, isIndex: true}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parsePath(tc.in)
			if err != nil {
				t.Fatalf("parsePath(%q): %v", tc.in, err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d segments got %d (%v)", len(tc.want), len(got), got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("segment %d: expected %+v got %+v", i, tc.want[i], got[i])
				}
			}
		})
	}
}

func TestParsePathErrors(t *testing.T) {
	cases := []string{
		"",
		"  ",
		".leading",
		"trailing.",
		"double..dot",
		"arr[",
		"arr[x]",
		"arr[-1]",
	}
	for _, in := range cases {
		if _, err := parsePath(in); err == nil {
			t.Fatalf("expected error for path %q", in)
		}
	}
}

func TestResolve(t *testing.T) {
	doc, err := Parse([]byte(`{
  "endpoint_data": {"endpoint_name": "Host1"},
  "monitor_data": [
    {"monitor_id": "001", "monitor_name": "Primary"},
    {"monitor_id": "002", "monitor_name": "Backup"}
  ]
}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	segs, err := parsePath("monitor_data[1].monitor_name")
	if err != nil {
		t.Fatalf("parsePath: %v", err)
	}
	val, ok := resolve(doc, segs)
	if !ok || val.Text() != "Backup" {
		t.Fatalf("expected Backup got ok=%v %q", ok, val.Text())
	}

	for _, missing := range []string{
		"endpoint_data.absent",
		"monitor_data[9].monitor_name",
		"website_data[0]",
		"endpoint_data.endpoint_name.too_deep",
	} {
		segs, err := parsePath(missing)
		if err != nil {
			t.Fatalf("parsePath(%q): %v", missing, err)
		}
		if _, ok := resolve(doc, segs); ok {
			t.Fatalf("expected %q not to resolve", missing)
		}
	}
}
