package config

import "time"

// Application constants
const (
	AppName   = "sectorflow"
	EnvPrefix = "SECTORFLOW"

	// Config file names searched when no explicit path is given
	ConfigFileName = "sectorflow.yaml"
	DotEnvFileName = ".env"

	// Directory defaults, relative to paths.base_dir
	DefaultRawDir    = "TASave"
	DefaultCSVDir    = "csv"
	DefaultSectorDir = "sectorInfo"
	DefaultOutputDir = "output"
	DefaultLogsDir   = "logs"

	// Taiwan continuous session
	DefaultSessionOpen  = "09:01"
	DefaultSessionClose = "13:30"
	DefaultTimezone     = "Asia/Taipei"

	// Downloader
	DefaultDownloadCommand = "DJFile"
	DefaultDownloadServer  = "s-vgtick01"
	DefaultTickBase        = `D:\SHARE\TICkSave\TW`
	DefaultTABase          = `D:\SHARE\TASave\TW`
	DefaultDownloadTimeout = 300 * time.Second

	// Batch
	DefaultSectorTimeout = 5 * time.Minute
)

// DefaultDownloadArgs is the argument template of the downloader; {server},
// {remote} and {dir} are substituted per job.
var DefaultDownloadArgs = []string{"get", "{server}", "{remote}", "{dir}"}
