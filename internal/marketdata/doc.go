// Package marketdata reads minute-level bar data from disk.
//
// Raw telemetry arrives as paired Min_YYYYMMDD.txt and TAMin_YYYYMMDD.txt
// files per stock; ConvertStock joins them into one CSV per stock and day.
// Loader.LoadSector then reads the converted files of every stock in a
// sector list for a range of months and returns a leaderflow.Dataset.
package marketdata
