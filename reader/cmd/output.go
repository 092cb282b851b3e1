package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"gopkg.in/yaml.v3"

	"github.com/DeafMist/news-reader/internal/presenter"
	"github.com/DeafMist/news-reader/internal/processing"
)

const (
	headlineWidth = 60
	authorWidth   = 24
)

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header(headers)
	return table
}

func renderRows(w io.Writer, rows []presenter.Row) error {
	table := newTable(w, []string{"#", "Section", "Headline", "By", "Published"})
	for _, row := range rows {
		author := ""
		if row.ShowAuthor {
			author = processing.TruncateWidth(row.Author, authorWidth)
		}
		published := row.Date
		if row.ShowDateTime {
			published = row.Date + " " + row.Time
		}
		if err := table.Append([]string{
			fmt.Sprintf("%d", row.Index),
			row.Section,
			processing.TruncateWidth(row.Headline, headlineWidth),
			author,
			published,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func renderPairs(w io.Writer, pairs [][]string) error {
	table := newTable(w, []string{"Key", "Value"})
	if err := table.Bulk(pairs); err != nil {
		return err
	}
	return table.Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func printNotice(w io.Writer, format string, args ...any) {
	color.New(color.FgYellow).Fprintf(w, format+"\n", args...)
}

func printSuccess(w io.Writer, format string, args ...any) {
	color.New(color.FgGreen).Fprintf(w, format+"\n", args...)
}

func printHeader(w io.Writer, title string) {
	color.New(color.Bold).Fprintf(w, "%s\n", title)
}
