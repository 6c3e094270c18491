package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/jdholdren/bazaar/internal/market"
)

// printer writes to the command's output, colored when asked to.
type printer struct {
	out       io.Writer
	useColors bool
}

func (p printer) header(format string, args ...any) {
	title := fmt.Sprintf(format, args...)
	if p.useColors {
		color.New(color.FgWhite, color.Bold).Fprintf(p.out, "\n%s\n", title)
		return
	}
	fmt.Fprintf(p.out, "\n%s\n%s\n", title, strings.Repeat("-", len([]rune(title))))
}

func (p printer) info(format string, args ...any) {
	if p.useColors {
		color.New(color.FgCyan).Fprintf(p.out, format+"\n", args...)
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p printer) price(l market.ListingSummary) string {
	if p.useColors {
		return color.GreenString(l.Price.Format())
	}
	return l.Price.Format()
}

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader: tw.Off,
				},
			},
		}),
	)
}

const maxTitleWidth = 40

// listingTable prints one row per listing, numbered from start.
func (p printer) listingTable(items []market.ListingSummary, start int) error {
	rows := make([][]string, 0, len(items))
	for i, l := range items {
		title := l.Title
		if r := []rune(title); len(r) > maxTitleWidth {
			title = string(r[:maxTitleWidth-1]) + "…"
		}
		rows = append(rows, []string{
			strconv.Itoa(start + i + 1),
			l.ID,
			title,
			p.price(l),
			l.Category,
			strconv.Itoa(len(l.Images)),
		})
	}

	table := newTable(p.out)
	table.Header([]string{"#", "ID", "TITLE", "PRICE", "CATEGORY", "IMAGES"})
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("error building table: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("error rendering table: %w", err)
	}

	return nil
}
