// Package importer loads prospects from CSV files into a store.
package importer

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-enrich/internal/model"
	"github.com/sells-group/prospect-enrich/internal/store"
)

// DefaultBatchSize is the number of prospects written per ImportProspects call.
const DefaultBatchSize = 500

// Options configures CSV parsing and import.
type Options struct {
	Delimiter rune // default ','
	// BatchSize bounds each store write. Defaults to DefaultBatchSize.
	BatchSize int
	// AutoEnrich is used for rows without an auto_enrich column value.
	AutoEnrich bool
}

// columnAliases maps accepted header spellings to prospect fields.
var columnAliases = map[string]string{
	"name":         "name",
	"full_name":    "name",
	"contact_name": "name",
	"company":      "company",
	"company_name": "company",
	"organization": "company",
	"city":         "city",
	"address":      "address",
	"street":       "address",
	"email":        "email",
	"phone":        "phone",
	"telephone":    "phone",
	"website":      "website",
	"url":          "website",
	"auto_enrich":  "auto_enrich",
}

// Summary reports what an import did.
type Summary struct {
	Rows     int   `json:"rows"`
	Skipped  int   `json:"skipped"`
	Imported int64 `json:"imported"`
}

// StreamCSV reads records and sends them on the returned channel, skipping
// the header row, which is sent on headerCh when non-nil. Both returned
// channels are closed when reading completes.
func StreamCSV(ctx context.Context, r io.Reader, delimiter rune, headerCh chan<- []string) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if delimiter != 0 {
			reader.Comma = delimiter
		}
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true

		first := true
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "importer: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "importer: read row")
				return
			}
			for i, field := range record {
				record[i] = strings.TrimSpace(field)
			}

			if first {
				first = false
				if headerCh != nil {
					select {
					case headerCh <- record:
					case <-ctx.Done():
						errCh <- eris.Wrap(ctx.Err(), "importer: context cancelled sending header")
						return
					}
				}
				continue
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "importer: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// header maps prospect fields to column indexes.
type header map[string]int

func parseHeader(cols []string) (header, error) {
	h := make(header, len(cols))
	for i, c := range cols {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(c, "\ufeff"), " ", "_"))
		if field, ok := columnAliases[key]; ok {
			if _, dup := h[field]; !dup {
				h[field] = i
			}
		}
	}
	_, hasName := h["name"]
	_, hasCompany := h["company"]
	if !hasName && !hasCompany {
		return nil, eris.New("importer: header needs a name or company column")
	}
	return h, nil
}

func (h header) get(row []string, field string) string {
	i, ok := h[field]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// prospect builds a prospect from row. ok is false when the row has neither
// a name nor a company.
func (h header) prospect(row []string, autoEnrich bool) (model.Prospect, bool) {
	p := model.Prospect{
		Name:    h.get(row, "name"),
		Company: h.get(row, "company"),
		City:    h.get(row, "city"),
		Address: h.get(row, "address"),
		Contact: model.ContactInfo{
			Email:   h.get(row, "email"),
			Phone:   h.get(row, "phone"),
			Website: h.get(row, "website"),
		},
		Enrichment: model.EnrichmentState{AutoEnrichEnabled: autoEnrich},
	}
	if raw := h.get(row, "auto_enrich"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			p.Enrichment.AutoEnrichEnabled = v
		}
	}
	return p, p.Name != "" || p.Company != ""
}

// Parse reads all prospects from r. Rows with neither a name nor a company
// are counted as skipped.
func Parse(ctx context.Context, r io.Reader, opts Options) ([]model.Prospect, Summary, error) {
	var out []model.Prospect
	sum, err := each(ctx, r, opts, func(batch []model.Prospect) error {
		out = append(out, batch...)
		return nil
	})
	return out, sum, err
}

// Import streams prospects from r into st in batches.
func Import(ctx context.Context, st store.Store, r io.Reader, opts Options) (Summary, error) {
	var imported int64
	sum, err := each(ctx, r, opts, func(batch []model.Prospect) error {
		n, err := st.ImportProspects(ctx, batch)
		if err != nil {
			return eris.Wrap(err, "importer: write batch")
		}
		imported += n
		zap.L().Debug("importer: batch written", zap.Int64("count", n))
		return nil
	})
	sum.Imported = imported
	return sum, err
}

func each(ctx context.Context, r io.Reader, opts Options, flush func([]model.Prospect) error) (Summary, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamCSV(ctx, r, opts.Delimiter, headerCh)

	var (
		sum   Summary
		h     header
		batch []model.Prospect
	)
	for row := range rowCh {
		if h == nil {
			var err error
			if h, err = parseHeader(<-headerCh); err != nil {
				return sum, err
			}
		}
		sum.Rows++
		p, ok := h.prospect(row, opts.AutoEnrich)
		if !ok {
			sum.Skipped++
			zap.L().Warn("importer: skipping row without name or company", zap.Int("row", sum.Rows))
			continue
		}
		batch = append(batch, p)
		if len(batch) >= opts.BatchSize {
			if err := flush(batch); err != nil {
				return sum, err
			}
			batch = nil
		}
	}
	if err := <-errCh; err != nil {
		return sum, err
	}
	if len(batch) > 0 {
		if err := flush(batch); err != nil {
			return sum, err
		}
	}
	return sum, nil
}
