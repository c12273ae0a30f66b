package batch

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lehigh-university-libraries/ezid-batch/transform"
)

func TestParseColumns(t *testing.T) {
	got := ParseColumns(" _n, _id ,_error,,erc.who ")
	want := []string{"_n", "_id", "_error", "erc.who"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildRow(t *testing.T) {
	rec := &transform.Record{Elements: map[string]string{
		"_target": "http://example.org",
		"erc.who": "Smith, Jane",
	}}
	row := []string{"col1", "col2"}

	tests := []struct {
		name    string
		columns []string
		want    []string
	}{
		{
			name:    "defaults",
			columns: DefaultColumns(),
			want:    []string{"7", "ark:/99999/fk4x", "oops"},
		},
		{
			name:    "record elements",
			columns: []string{"_target", "erc.who"},
			want:    []string{"http://example.org", "Smith, Jane"},
		},
		{
			name:    "numeric input column passthrough",
			columns: []string{"2", "1"},
			want:    []string{"col2", "col1"},
		},
		{
			name:    "unknown and out of range emit empty",
			columns: []string{"nope", "0", "9"},
			want:    []string{"", "", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildRow(tt.columns, 7, row, rec, "ark:/99999/fk4x", "oops")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("row mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
