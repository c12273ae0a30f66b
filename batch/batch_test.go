package batch

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/ezid-batch/mapping"
)

type fakeRegistrar struct {
	register func(op, shoulder string, elements map[string]string, id string) (string, error)
	calls    int
}

func (f *fakeRegistrar) Register(ctx context.Context, op, shoulder string, elements map[string]string, id string) (string, error) {
	f.calls++
	return f.register(op, shoulder, elements, id)
}

func mustParse(t *testing.T, text string) []mapping.Mapping {
	t.Helper()
	mappings, err := mapping.Parse(strings.NewReader(text), "test.cfg")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	return mappings
}

func TestRunPreview(t *testing.T) {
	reg := &fakeRegistrar{register: func(op, shoulder string, elements map[string]string, id string) (string, error) {
		return "ark:/99999/fk4x", nil
	}}
	r := &Runner{
		Mappings:  mustParse(t, "_profile = datacite\n/resource/titles/title = $1\n_target = $2\n"),
		Operation: "mint",
		Shoulder:  "ark:/99999/fk4",
		Registrar: reg,
		Preview:   true,
	}

	var out strings.Builder
	in := strings.NewReader("My Title,http://example.org\n")
	if err := r.Run(context.Background(), in, &out); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if reg.calls != 0 {
		t.Errorf("registrar called %d times in preview mode", reg.calls)
	}
	got := out.String()
	for _, want := range []string{
		"_profile: datacite\n",
		"_target: http://example.org\n",
		"<titles><title>My Title</title></titles>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("preview output missing %q:\n%s", want, got)
		}
	}
}

func TestRunLive(t *testing.T) {
	n := 0
	reg := &fakeRegistrar{register: func(op, shoulder string, elements map[string]string, id string) (string, error) {
		n++
		if op != "mint" {
			t.Errorf("op = %q, want mint", op)
		}
		if shoulder != "ark:/99999/fk4" {
			t.Errorf("shoulder = %q", shoulder)
		}
		return fmt.Sprintf("ark:/99999/fk4x%d", n), nil
	}}
	r := &Runner{
		Mappings:  mustParse(t, "_target = $1\n"),
		Operation: "mint",
		Shoulder:  "ark:/99999/fk4",
		Registrar: reg,
	}

	var out strings.Builder
	in := strings.NewReader("http://a.example\nhttp://b.example\n")
	if err := r.Run(context.Background(), in, &out); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	want := "1,ark:/99999/fk4x1,\n2,ark:/99999/fk4x2,\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestRunRowFailureContinues(t *testing.T) {
	reg := &fakeRegistrar{register: func(op, shoulder string, elements map[string]string, id string) (string, error) {
		return "ark:/99999/fk4ok", nil
	}}
	r := &Runner{
		Mappings:  mustParse(t, "_target = $2\n"),
		Operation: "mint",
		Shoulder:  "ark:/99999/fk4",
		Registrar: reg,
	}

	// The first row is too short for $2; the batch must continue.
	var out strings.Builder
	in := strings.NewReader("only-one-column\n\"a\",\"b\"\n")
	if err := r.Run(context.Background(), in, &out); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("output lines = %d, want 2:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "1,,") || !strings.Contains(lines[0], "column reference") {
		t.Errorf("failed row output = %q", lines[0])
	}
	if lines[1] != "2,ark:/99999/fk4ok," {
		t.Errorf("succeeding row output = %q", lines[1])
	}
	if reg.calls != 1 {
		t.Errorf("registrar calls = %d, want 1", reg.calls)
	}
}

func TestRunRegistrationFailure(t *testing.T) {
	reg := &fakeRegistrar{register: func(op, shoulder string, elements map[string]string, id string) (string, error) {
		return "", fmt.Errorf("error: bad request - no such shoulder")
	}}
	r := &Runner{
		Mappings:  mustParse(t, "_target = $1\n"),
		Operation: "mint",
		Shoulder:  "ark:/99999/fk4",
		Registrar: reg,
	}

	var out strings.Builder
	if err := r.Run(context.Background(), strings.NewReader("http://a.example\n"), &out); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	want := "1,,error: bad request - no such shoulder\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestRunUpdatePassesID(t *testing.T) {
	var gotID string
	var gotElements map[string]string
	reg := &fakeRegistrar{register: func(op, shoulder string, elements map[string]string, id string) (string, error) {
		gotID = id
		gotElements = elements
		return id, nil
	}}
	r := &Runner{
		Mappings:  mustParse(t, "_id = $1\n_target = $2\n"),
		Operation: "update",
		Registrar: reg,
	}

	var out strings.Builder
	in := strings.NewReader("ark:/99999/fk4abc,http://a.example\n")
	if err := r.Run(context.Background(), in, &out); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if gotID != "ark:/99999/fk4abc" {
		t.Errorf("id = %q", gotID)
	}
	if _, ok := gotElements["_id"]; ok {
		t.Error("_id sent as a metadata element")
	}
}

func TestRunTabMode(t *testing.T) {
	reg := &fakeRegistrar{register: func(op, shoulder string, elements map[string]string, id string) (string, error) {
		return "ark:/99999/fk4x", nil
	}}
	r := &Runner{
		Mappings:  mustParse(t, "_target = $2\n"),
		Operation: "mint",
		Shoulder:  "ark:/99999/fk4",
		Registrar: reg,
		Columns:   []string{"_n", "_target"},
		TabMode:   true,
	}

	var out strings.Builder
	if err := r.Run(context.Background(), strings.NewReader("a\thttp://a.example\n"), &out); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out.String() != "1,http://a.example\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestStripIDMappings(t *testing.T) {
	mappings := mustParse(t, "_id = $1\n_target = $2\n_id = $3\n")
	stripped := StripIDMappings(mappings)

	if len(stripped) != 1 || stripped[0].Destination != "_target" {
		t.Errorf("stripped = %+v, want only _target", stripped)
	}
	if HasIDMapping(stripped) {
		t.Error("HasIDMapping true after strip")
	}
	if !HasIDMapping(mappings) {
		t.Error("HasIDMapping false on original mappings")
	}
}
