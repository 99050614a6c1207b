// Package config loads the sectorflow configuration.
//
// Values come from three layers, later layers winning:
//
//	1. Default()
//	2. a YAML file (sectorflow.yaml or configs/sectorflow.yaml, or an explicit path)
//	3. SECTORFLOW_* environment variables, after .env has been loaded
//
// Environment keys follow the section and field names, for example
// SECTORFLOW_ANALYSIS_MIN_GAIN=0.8 or SECTORFLOW_BATCH_SECTOR_TIMEOUT=10m.
//
// Paths are kept relative in the file and resolved against paths.base_dir
// with PathsConfig.Resolve.
package config
