package marketdata

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"sectorflow/internal/exporter"
)

// RawTable is one parsed Min_ or TAMin_ telemetry file.
type RawTable struct {
	Symbol    string
	TradeDate string
	Fields    []string
	Rows      [][]string
}

var (
	headerID    = regexp.MustCompile(`ID=([^;]+)`)
	headerDate  = regexp.MustCompile(`TDate=([^;]+)`)
	headerField = regexp.MustCompile(`Field=([^;]+)`)
	minFileName = regexp.MustCompile(`^Min_(\d{8})\.txt$`)
)

// ParseRawFile reads a telemetry file: a '#' header line carrying ID, TDate
// and Field, followed by comma-separated rows.
func ParseRawFile(r io.Reader) (*RawTable, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		return nil, fmt.Errorf("%w: empty file", ErrMalformedRaw)
	}

	header := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
	if !strings.HasPrefix(header, "#") {
		return nil, fmt.Errorf("%w: header must start with #", ErrMalformedRaw)
	}

	id := headerID.FindStringSubmatch(header)
	date := headerDate.FindStringSubmatch(header)
	fields := headerField.FindStringSubmatch(header)
	if id == nil || date == nil || fields == nil {
		return nil, fmt.Errorf("%w: header lacks ID, TDate or Field", ErrMalformedRaw)
	}

	table := &RawTable{
		Symbol:    strings.TrimSpace(id[1]),
		TradeDate: strings.TrimSpace(date[1]),
		Fields:    splitTrim(fields[1]),
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		table.Rows = append(table.Rows, splitTrim(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrMalformedRaw)
	}

	return table, nil
}

// ParseRawPath opens and parses a telemetry file.
func ParseRawPath(path string) (*RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raw file: %w", err)
	}
	defer f.Close()

	table, err := ParseRawFile(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return table, nil
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// column returns the value of field in row, or "" when absent.
func (t *RawTable) column(row []string, field string) string {
	for i, f := range t.Fields {
		if f == field && i < len(row) {
			return row[i]
		}
	}
	return ""
}

// ConvertedColumns is the header of a converted bar file.
var ConvertedColumns = []string{
	"symbol", "date", "time", "close_price", "volume", "volume_ratio", "price_change_pct",
	"med_buy", "large_buy", "xlarge_buy", "med_sell", "large_sell", "xlarge_sell",
	"med_buy_cum", "large_buy_cum", "xlarge_buy_cum", "med_sell_cum", "large_sell_cum", "xlarge_sell_cum",
}

// flowSources maps the six flow columns to their TAMin fields.
var flowSources = [6]string{
	"MOrderInVolume", "LOrderInVolume", "XLOrderInVolume",
	"MOrderOutVolume", "LOrderOutVolume", "XLOrderOutVolume",
}

// ConvertedRow is one joined minute of a Min and TAMin file.
type ConvertedRow struct {
	Symbol         string
	Date           string
	Time           string
	Close          float64
	Volume         float64
	VolumeRatio    float64
	PriceChangePct float64
	Flows          [6]float64 // med/large/xlarge buy, med/large/xlarge sell
	Cumulative     [6]float64
}

// Record renders the row in ConvertedColumns order.
func (r ConvertedRow) Record() []string {
	rec := []string{
		r.Symbol, r.Date, r.Time,
		exporter.FormatNumber(r.Close), exporter.FormatNumber(r.Volume), exporter.FormatNumber(r.VolumeRatio), exporter.FormatNumber(r.PriceChangePct),
	}
	for _, v := range r.Flows {
		rec = append(rec, exporter.FormatNumber(v))
	}
	for _, v := range r.Cumulative {
		rec = append(rec, exporter.FormatNumber(v))
	}
	return rec
}

// parseNumber returns 0 for values that do not parse.
func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// JoinRaw inner-joins a Min and a TAMin table on Date and Time, in the Min
// file's row order.
func JoinRaw(minute, ta *RawTable) []ConvertedRow {
	taRows := make(map[string][]string, len(ta.Rows))
	for _, row := range ta.Rows {
		key := ta.column(row, "Date") + " " + ta.column(row, "Time")
		if _, dup := taRows[key]; !dup {
			taRows[key] = row
		}
	}

	var (
		out       []ConvertedRow
		cum       [6]float64
		prevClose float64
	)
	for _, row := range minute.Rows {
		date, tm := minute.column(row, "Date"), minute.column(row, "Time")
		taRow, ok := taRows[date+" "+tm]
		if !ok {
			continue
		}

		r := ConvertedRow{
			Symbol:      minute.Symbol,
			Date:        date,
			Time:        tm,
			Close:       parseNumber(minute.column(row, "Close")),
			Volume:      parseNumber(minute.column(row, "Vol")),
			VolumeRatio: parseNumber(ta.column(taRow, "VolumeRatio")),
		}
		if len(out) > 0 && prevClose != 0 {
			r.PriceChangePct = (r.Close - prevClose) / prevClose * 100
		}
		prevClose = r.Close

		for i, field := range flowSources {
			r.Flows[i] = parseNumber(ta.column(taRow, field))
			cum[i] += r.Flows[i]
		}
		r.Cumulative = cum

		out = append(out, r)
	}
	return out
}

// ConvertStock converts every Min_<date>.txt in stockDir that has a matching
// TAMin_<date>.txt into <outDir>/<stock>_<date>.csv and returns the count.
func ConvertStock(ctx context.Context, stockDir, outDir string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	stock := filepath.Base(stockDir)

	entries, err := os.ReadDir(stockDir)
	if err != nil {
		return 0, fmt.Errorf("read stock directory: %w", err)
	}

	var dates []string
	for _, e := range entries {
		if m := minFileName.FindStringSubmatch(e.Name()); m != nil {
			dates = append(dates, m[1])
		}
	}
	sort.Strings(dates)

	writer := exporter.NewCSVWriter(outDir, logger)
	converted := 0

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return converted, fmt.Errorf("convert %s: %w", stock, err)
		}

		taPath := filepath.Join(stockDir, "TAMin_"+date+".txt")
		if _, err := os.Stat(taPath); err != nil {
			continue
		}

		minute, err := ParseRawPath(filepath.Join(stockDir, "Min_"+date+".txt"))
		if err != nil {
			logger.WarnContext(ctx, "skipping raw file", "stock", stock, "date", date, "error", err)
			continue
		}
		ta, err := ParseRawPath(taPath)
		if err != nil {
			logger.WarnContext(ctx, "skipping raw file", "stock", stock, "date", date, "error", err)
			continue
		}

		rows := JoinRaw(minute, ta)
		if len(rows) == 0 {
			continue
		}

		records := make([][]string, len(rows))
		for i, r := range rows {
			records[i] = r.Record()
		}
		name := fmt.Sprintf("%s_%s.csv", stock, date)
		if err := writer.WriteCSV(name, exporter.WriteOptions{Headers: ConvertedColumns, Records: records}); err != nil {
			return converted, fmt.Errorf("write %s: %w", name, err)
		}
		converted++
	}

	logger.InfoContext(ctx, "stock converted", "stock", stock, "files", converted)
	return converted, nil
}
