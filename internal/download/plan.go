package download

import (
	"fmt"
	"path/filepath"
	"strings"

	"sectorflow/internal/marketdata"
)

// Kind is the archive family on the tick server.
type Kind string

const (
	KindMin Kind = "Min"   // minute bars
	KindTA  Kind = "TAMin" // minute order-flow statistics
)

// Job is one archive to fetch.
type Job struct {
	Stock  string            `json:"stock"`
	Period marketdata.Period `json:"period"`
	Kind   Kind              `json:"kind"`
	Remote string            `json:"remote"`
	Local  string            `json:"local"`
}

// Dir is the stock folder the archive lands in.
func (j Job) Dir() string {
	return filepath.Dir(j.Local)
}

// FileName is the archive name, e.g. Min_202406.zip.
func FileName(kind Kind, period marketdata.Period) string {
	return fmt.Sprintf("%s_%s.zip", kind, period)
}

// Planner maps stocks and periods to jobs.
type Planner struct {
	TickBase string // remote root of Min archives
	TABase   string // remote root of TAMin archives
	RawDir   string // local root, one folder per stock
}

// RemotePath is <base>\<prefix>\<stock>\<yyyy>\<mm>\<file>, where prefix is
// the first two characters of the stock id.
func (p Planner) RemotePath(stock string, period marketdata.Period, kind Kind) string {
	base := p.TickBase
	if kind == KindTA {
		base = p.TABase
	}
	prefix := stock
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return strings.Join([]string{
		strings.TrimRight(base, `\`),
		prefix,
		stock,
		fmt.Sprintf("%04d", period.Year),
		fmt.Sprintf("%02d", period.Month),
		FileName(kind, period),
	}, `\`)
}

// Plan lists a Min and a TAMin job per stock and period. Stocks are
// deduplicated, keeping their first position.
func (p Planner) Plan(stocks []string, periods []marketdata.Period) []Job {
	seen := make(map[string]bool, len(stocks))
	var jobs []Job
	for _, stock := range stocks {
		stock = marketdata.NormalizeSymbol(stock)
		if stock == "" || seen[stock] {
			continue
		}
		seen[stock] = true
		for _, period := range periods {
			for _, kind := range []Kind{KindMin, KindTA} {
				jobs = append(jobs, Job{
					Stock:  stock,
					Period: period,
					Kind:   kind,
					Remote: p.RemotePath(stock, period, kind),
					Local:  filepath.Join(p.RawDir, stock, FileName(kind, period)),
				})
			}
		}
	}
	return jobs
}

// SectorStocks reads and merges the stock lists of several sectors.
func SectorStocks(sectorDir string, sectors []string) ([]string, error) {
	var stocks []string
	for _, sector := range sectors {
		list, err := marketdata.ReadSectorFile(marketdata.SectorPath(sectorDir, sector))
		if err != nil {
			return nil, fmt.Errorf("sector %s: %w", sector, err)
		}
		stocks = append(stocks, list...)
	}
	return stocks, nil
}

// Command is the external download tool and its argument template.
// {server}, {remote}, {local} and {dir} are replaced per job.
type Command struct {
	Name   string
	Args   []string
	Server string
}

// Expand returns the argument list for one job.
func (c Command) Expand(job Job) []string {
	r := strings.NewReplacer(
		"{server}", c.Server,
		"{remote}", job.Remote,
		"{local}", job.Local,
		"{dir}", job.Dir(),
	)
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = r.Replace(a)
	}
	return args
}

// CommandLines renders the jobs as shell lines, grouped under a comment per
// stock.
func CommandLines(cmd Command, jobs []Job) []string {
	var lines []string
	last := ""
	for i, job := range jobs {
		if job.Stock != last {
			if last != "" {
				lines = append(lines, "")
			}
			lines = append(lines, fmt.Sprintf("# [%d/%d] %s", i+1, len(jobs), job.Stock))
			last = job.Stock
		}
		lines = append(lines, strings.Join(append([]string{cmd.Name}, quoteAll(cmd.Expand(job))...), " "))
	}
	return lines
}

func quoteAll(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if strings.ContainsAny(a, " \t") {
			a = `"` + a + `"`
		}
		out[i] = a
	}
	return out
}
