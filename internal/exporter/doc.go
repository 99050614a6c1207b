// Package exporter writes tabular output files.
//
// CSVWriter writes CSV files below a base directory, optionally with a UTF-8
// BOM so spreadsheet tools open Chinese text correctly, and can stream large
// files row by row. WriteWorkbook saves a multi-sheet .xlsx file.
//
// Example usage:
//
//	w := exporter.NewCSVWriter("output/IC基板", logger)
//	err := w.WriteSimpleCSV("leader_rankings.csv", headers, records)
package exporter
