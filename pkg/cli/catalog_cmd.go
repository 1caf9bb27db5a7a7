package cli

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"spt3g-viewer/internal/catalog"
	"spt3g-viewer/internal/domain"
	"spt3g-viewer/internal/filter"
	"spt3g-viewer/internal/notes"
	"spt3g-viewer/internal/table"
)

func newCatalogCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the source catalog",
	}
	cmd.AddCommand(newCatalogSummaryCmd(rt))
	cmd.AddCommand(newCatalogFilterCmd(rt))
	cmd.AddCommand(newCatalogImagesCmd(rt))
	return cmd
}

type columnStats struct {
	Column  domain.Column `json:"column"`
	Min     *float64      `json:"min"`
	Max     *float64      `json:"max"`
	Missing int           `json:"missing"`
}

type catalogSummary struct {
	Sources int           `json:"sources"`
	Notes   int           `json:"notes"`
	Columns []columnStats `json:"columns"`
}

func summarize(set *domain.RecordSet, noteCount int) catalogSummary {
	out := catalogSummary{Sources: len(set.Records), Notes: noteCount}
	for _, col := range domain.NumericColumns {
		if !set.Columns.Has(col) {
			continue
		}
		st := columnStats{Column: col}
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, rec := range set.Records {
			v, _ := rec.Value(col)
			if math.IsNaN(v) {
				st.Missing++
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		if lo <= hi {
			st.Min, st.Max = &lo, &hi
		}
		out.Columns = append(out.Columns, st)
	}
	return out
}

func newCatalogSummaryCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show source counts and value ranges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return rt.withCatalog(ctx, func(store *catalog.Store) error {
				set, err := store.Load(ctx)
				if err != nil {
					return err
				}
				return rt.withNotes(ctx, func(svc *notes.Service) error {
					s := summarize(set, len(svc.All()))
					out := cmd.OutOrStdout()
					if getOutputFormat(cmd) == "json" {
						return PrintJSON(out, s)
					}
					_, _ = fmt.Fprintf(out, "%s sources, %s with notes\n\n", humanize.Comma(int64(s.Sources)), humanize.Comma(int64(s.Notes)))
					rows := make([][]string, 0, len(s.Columns))
					for _, st := range s.Columns {
						rows = append(rows, []string{string(st.Column), formatOptional(st.Min), formatOptional(st.Max), strconv.Itoa(st.Missing)})
					}
					PrintTable(out, []string{"column", "min", "max", "missing"}, rows)
					return nil
				})
			})
		},
	}
}

func newCatalogFilterCmd(rt *runtime) *cobra.Command {
	var (
		search string
		sort   string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "List sources matching a search and value ranges",
		Example: `  spt3g catalog filter --z 0.4:1.5 --sort z:desc
  spt3g catalog filter --search j0012 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			q.Set("search", search)
			q.Set("sort", sort)
			cmd.Flags().Visit(func(f *pflag.Flag) {
				if _, ok := filter.RangeParams[f.Name]; ok {
					q.Set(f.Name, f.Value.String())
				}
			})
			crit, err := filter.ParseQuery(q)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			rows, err := filteredRows(ctx, rt, crit)
			if err != nil {
				return err
			}
			if limit > 0 && len(rows.Rows) > limit {
				rows.Rows = rows.Rows[:limit]
			}

			out := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(out, recordsJSON(rows.Rows))
			}
			headers := make([]string, len(table.Columns))
			for i, c := range table.Columns {
				headers[i] = string(c.ID)
			}
			cells := make([][]string, len(rows.Rows))
			for i, rec := range rows.Rows {
				cells[i] = recordCells(rec)
			}
			PrintTable(out, headers, cells)
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive substring of the source name")
	cmd.Flags().StringVar(&sort, "sort", "", "Sort order, e.g. z:desc,s220:asc")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows to print (0 = all)")
	for param, col := range filter.RangeParams {
		cmd.Flags().String(param, "", fmt.Sprintf("Inclusive range min:max on %s", col))
	}
	return cmd
}

func filteredRows(ctx context.Context, rt *runtime, crit domain.Criteria) (domain.RowSet, error) {
	var rows domain.RowSet
	err := rt.withCatalog(ctx, func(store *catalog.Store) error {
		set, err := store.Load(ctx)
		if err != nil {
			return err
		}
		return rt.withNotes(ctx, func(svc *notes.Service) error {
			rows = filter.Apply(table.Project(*set, svc.All()), crit)
			return nil
		})
	})
	return rows, err
}

func recordCells(rec domain.SourceRecord) []string {
	cells := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		switch c.ID {
		case domain.ColSourceName:
			cells[i] = rec.SourceName
		case domain.ColHasNote:
			if rec.HasNote {
				cells[i] = "✓"
			}
		default:
			v, _ := rec.Value(c.ID)
			if !math.IsNaN(v) {
				cells[i] = strconv.FormatFloat(v, 'f', c.Places, 64)
			}
		}
	}
	return cells
}

// recordsJSON keys every row by column id; missing values are null.
func recordsJSON(rows []domain.SourceRecord) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, rec := range rows {
		m := map[string]any{
			string(domain.ColSourceName): rec.SourceName,
			string(domain.ColHasNote):    rec.HasNote,
		}
		for _, col := range domain.NumericColumns {
			v, _ := rec.Value(col)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				m[string(col)] = nil
			} else {
				m[string(col)] = v
			}
		}
		out[i] = m
	}
	return out
}

func newCatalogImagesCmd(rt *runtime) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "images",
		Short: "List cutout images whose source is in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				dir = rt.cfg.AssetsDir
			}
			return rt.withCatalog(cmd.Context(), func(store *catalog.Store) error {
				known := store.Redshifts()
				files, err := catalog.SortedImages(dir, known)
				if err != nil {
					return err
				}

				type image struct {
					File     string   `json:"file"`
					Source   string   `json:"source_name"`
					Redshift *float64 `json:"z"`
				}
				images := make([]image, 0, len(files))
				for _, f := range files {
					src := catalog.SourceFromImage(f)
					z := known[src]
					img := image{File: f, Source: src}
					if !math.IsNaN(z) {
						img.Redshift = &z
					}
					images = append(images, img)
				}

				out := cmd.OutOrStdout()
				if getOutputFormat(cmd) == "json" {
					return PrintJSON(out, images)
				}
				rows := make([][]string, len(images))
				for i, img := range images {
					rows[i] = []string{img.Source, formatOptional(img.Redshift), img.File}
				}
				PrintTable(out, []string{"source_name", "z", "file"}, rows)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Directory to scan (default: the assets directory)")
	return cmd
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', 6, 64)
}
