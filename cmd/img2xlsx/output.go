package main

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/bodgit/img2xlsx"
	"github.com/bodgit/img2xlsx/palette"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}

// renderColumns renders rows under headers, the columns numbered in right
// (counting from 1) are right-aligned.
func renderColumns(headers []string, rows [][]string, right ...int) string {
	tw := newTable()

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, v := range row {
			r[i] = v
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(right))
	for _, n := range right {
		configs = append(configs, table.ColumnConfig{
			Number:      n,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func renderFields(fields [][2]string) string {
	tw := newTable()
	for _, f := range fields {
		tw.AppendRow(table.Row{f[0], f[1]})
	}
	return tw.Render()
}

func renderSummary(res *img2xlsx.Result, source string) string {
	return renderFields([][2]string{
		{"Workbook", res.Output},
		{"Frames found", printer.Sprintf("%d", res.Found)},
		{"Sheets written", printer.Sprintf("%d", res.Frames)},
		{"Palette", printer.Sprintf("%s (%d colors)", source, res.Colors)},
		{"Cache hits", printer.Sprintf("%d", res.CacheHits)},
		{"Elapsed", res.Elapsed.Round(time.Millisecond).String()},
		{"Run", res.RunID},
	})
}

func renderPalette(p *palette.Palette) string {
	rows := make([][]string, 0, p.Len())
	for i, c := range p.Colors() {
		rows = append(rows, []string{
			strconv.Itoa(i),
			c.String(),
			strconv.Itoa(int(c.R)),
			strconv.Itoa(int(c.G)),
			strconv.Itoa(int(c.B)),
		})
	}
	return renderColumns([]string{"Index", "Color", "R", "G", "B"}, rows, 1, 3, 4, 5)
}

func renderBuiltins() string {
	names := palette.BuiltinNames()
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		p, _ := palette.Builtin(name)
		rows = append(rows, []string{palette.BuiltinPrefix + name, printer.Sprintf("%d", p.Len())})
	}
	return renderColumns([]string{"Palette", "Colors"}, rows, 2)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type progress struct {
	bar *progressbar.ProgressBar
}

func newProgress(w io.Writer) *progress {
	return &progress{
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("converting"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionThrottle(100*time.Millisecond),
		),
	}
}

func (p *progress) update(done, total int) {
	if p.bar.GetMax() != total {
		p.bar.ChangeMax(total)
	}
	_ = p.bar.Set(done)
}

func (p *progress) finish() {
	_ = p.bar.Clear()
}
