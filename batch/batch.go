// Package batch drives registration over an input table: one
// transformation and one registration call per row, sequentially, with
// per-row failures recorded in the output rather than aborting the run.
package batch

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/lehigh-university-libraries/ezid-batch/ezid"
	"github.com/lehigh-university-libraries/ezid-batch/mapping"
	"github.com/lehigh-university-libraries/ezid-batch/transform"
)

// Registrar is the registration backend seam. ezid.Client implements
// it; tests substitute fakes.
type Registrar interface {
	Register(ctx context.Context, op, shoulder string, elements map[string]string, id string) (string, error)
}

// Runner processes one batch. Mappings and Funcs are immutable for the
// run; all per-row state lives inside Run.
type Runner struct {
	Mappings  []mapping.Mapping
	Funcs     *transform.FuncRegistry
	Operation string
	Shoulder  string

	// Registrar performs live registrations. Unused in preview mode.
	Registrar Registrar

	// Columns selects the output columns; nil means DefaultColumns.
	Columns []string

	// Preview emits transformed records instead of registering.
	Preview bool

	// TabMode reads tab-separated input without quoting.
	TabMode bool
}

// Run reads rows from in, processes each, and writes output rows (or
// preview records) to out. Row-level failures are recorded in the
// _error column and never stop the batch; only input-level read
// failures abort.
func (r *Runner) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	tr := &transform.Transformer{
		Mappings:  r.Mappings,
		Funcs:     r.Funcs,
		Operation: r.Operation,
		Shoulder:  r.Shoulder,
	}
	if tr.Funcs == nil {
		tr.Funcs = transform.NewFuncRegistry()
	}

	columns := r.Columns
	if len(columns) == 0 {
		columns = DefaultColumns()
	}

	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	if r.TabMode {
		reader.Comma = '\t'
		reader.LazyQuotes = true
	}

	writer := csv.NewWriter(out)
	defer writer.Flush()

	n := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading input row %d: %w", n+1, err)
		}
		n++

		rec, err := tr.Transform(row)
		if err != nil {
			if r.Preview {
				slog.Warn("row failed", "row", n, "error", err)
				continue
			}
			empty := &transform.Record{Elements: map[string]string{}}
			if werr := writer.Write(BuildRow(columns, n, row, empty, "", err.Error())); werr != nil {
				return werr
			}
			writer.Flush()
			continue
		}

		if r.Preview {
			if _, err := fmt.Fprintf(out, "\n%s", ezid.FormatANVL(previewElements(rec))); err != nil {
				return err
			}
			continue
		}

		id, regErr := r.Registrar.Register(ctx, r.Operation, r.Shoulder, rec.Elements, rec.ID)
		errMsg := ""
		if regErr != nil {
			id = ""
			errMsg = regErr.Error()
		}
		if err := writer.Write(BuildRow(columns, n, row, rec, id, errMsg)); err != nil {
			return err
		}
		// Flush per row so progress is visible on long batches.
		writer.Flush()
	}

	return writer.Error()
}

// previewElements includes the mapped _id in preview output, since no
// registration call will consume it.
func previewElements(rec *transform.Record) map[string]string {
	if rec.ID == "" {
		return rec.Elements
	}
	elements := make(map[string]string, len(rec.Elements)+1)
	for k, v := range rec.Elements {
		elements[k] = v
	}
	elements["_id"] = rec.ID
	return elements
}

// StripIDMappings removes any mapping to _id, for the -r flag. The
// remaining mappings keep their file order.
func StripIDMappings(mappings []mapping.Mapping) []mapping.Mapping {
	out := make([]mapping.Mapping, 0, len(mappings))
	for _, m := range mappings {
		if m.Kind == mapping.KindElement && m.Destination == "_id" {
			continue
		}
		out = append(out, m)
	}
	return out
}

// HasIDMapping reports whether any mapping targets _id. The create and
// update operations require one.
func HasIDMapping(mappings []mapping.Mapping) bool {
	for _, m := range mappings {
		if m.Kind == mapping.KindElement && m.Destination == "_id" {
			return true
		}
	}
	return false
}
