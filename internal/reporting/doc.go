// Package reporting renders and persists the results of a leader-follower
// run: the plain-text report, the pair and ranking CSV files (UTF-8 with BOM),
// per-day signal tables and an .xlsx workbook.
package reporting
