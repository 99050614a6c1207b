package reporting

import (
	"strconv"
	"strings"

	"sectorflow/internal/exporter"
	"sectorflow/internal/leaderflow"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	summaryLayout   = "2006/01/02 15:04"
	clockLayout     = "15:04"
)

// DetailedHeaders are the columns of leader_follower_pairs_detailed.csv.
var DetailedHeaders = []string{
	"leader_symbol", "follower_symbol", "leader_time", "follower_time", "time_lag_minutes",
	"leader_close", "leader_large_total", "leader_large_net", "leader_return_1min",
	"follower_base_price", "follower_trigger_price", "follower_gain_pct", "is_enhanced_signal",
}

// SummaryHeaders are the columns of leader_follower_summary.csv.
var SummaryHeaders = []string{"領漲股", "跟漲股", "信號時間", "時間差(分鐘)", "跟漲幅度(%)", "大單金額(百萬)", "強化信號"}

// LeaderHeaders are the columns of leader_rankings.csv.
var LeaderHeaders = []string{"symbol", "跟漲次數", "平均時間差", "平均跟漲幅度", "平均大單金額"}

// FollowerHeaders are the columns of follower_rankings.csv.
var FollowerHeaders = []string{"symbol", "跟隨次數", "平均反應時間", "平均漲幅"}

// PairHeaders are the columns of pair_rankings.csv.
var PairHeaders = []string{"leader_symbol", "follower_symbol", "配對次數", "平均時間差", "平均漲幅"}

// SignalTableHeaders are the columns of signal_table_<date>.csv.
var SignalTableHeaders = []string{"No", "Leader", "Lead_Time", "Follower", "Follow_Time", "Time_Lag", "Follow_Gain"}

// DisplaySymbol strips the exchange suffix for presentation.
func DisplaySymbol(symbol string) string {
	return strings.TrimSuffix(symbol, ".TW")
}

func f(v float64, decimals int) string {
	return exporter.FormatFloat(v, decimals)
}

// pythonBool matches the True/False spelling of the legacy output files.
func pythonBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// DetailedRecords renders every pair with its full leader snapshot.
func DetailedRecords(pairs []leaderflow.Pair) [][]string {
	records := make([][]string, len(pairs))
	for i, p := range pairs {
		records[i] = []string{
			p.LeaderSymbol,
			p.FollowerSymbol,
			p.LeaderTime.Format(timestampLayout),
			p.FollowerTime.Format(timestampLayout),
			f(p.TimeLagMinutes, 1),
			f(p.LeaderClose, 2),
			f(p.Leader.LargeTotal, 0),
			f(p.Leader.LargeNet, 0),
			f(p.LeaderReturnPct, 4),
			f(p.FollowerBasePrice, 2),
			f(p.FollowerTriggerPrice, 2),
			f(p.FollowerGainPct, 4),
			pythonBool(p.IsEnhanced),
		}
	}
	return records
}

// SummaryRecords renders the compact pair table: symbols without suffix,
// minute timestamps and large totals in millions.
func SummaryRecords(pairs []leaderflow.Pair) [][]string {
	records := make([][]string, len(pairs))
	for i, p := range pairs {
		records[i] = []string{
			DisplaySymbol(p.LeaderSymbol),
			DisplaySymbol(p.FollowerSymbol),
			p.LeaderTime.Format(summaryLayout),
			f(p.TimeLagMinutes, 1),
			f(p.FollowerGainPct, 2),
			f(p.Leader.LargeTotal/1_000_000, 1),
			pythonBool(p.IsEnhanced),
		}
	}
	return records
}

// LeaderRecords renders the leader ranking.
func LeaderRecords(s *leaderflow.Summary) [][]string {
	records := make([][]string, len(s.Leaders))
	for i, l := range s.Leaders {
		records[i] = []string{
			DisplaySymbol(l.Symbol),
			strconv.Itoa(l.Count),
			f(l.MeanLag, 2),
			f(l.MeanGain, 2),
			f(l.MeanLargeTotal, 2),
		}
	}
	return records
}

// FollowerRecords renders the follower ranking.
func FollowerRecords(s *leaderflow.Summary) [][]string {
	records := make([][]string, len(s.Followers))
	for i, fl := range s.Followers {
		records[i] = []string{
			DisplaySymbol(fl.Symbol),
			strconv.Itoa(fl.Count),
			f(fl.MeanLag, 2),
			f(fl.MeanGain, 2),
		}
	}
	return records
}

// PairRecords renders the pair ranking.
func PairRecords(s *leaderflow.Summary) [][]string {
	records := make([][]string, len(s.Pairs))
	for i, p := range s.Pairs {
		records[i] = []string{
			DisplaySymbol(p.Leader),
			DisplaySymbol(p.Follower),
			strconv.Itoa(p.Count),
			f(p.MeanLag, 2),
			f(p.MeanGain, 2),
		}
	}
	return records
}

// SignalTableRecords renders one day's numbered signal table.
func SignalTableRecords(rows []leaderflow.SignalRow) [][]string {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = []string{
			strconv.Itoa(r.No),
			DisplaySymbol(r.Leader),
			r.LeaderTime.Format(clockLayout),
			DisplaySymbol(r.Follower),
			r.FollowerTime.Format(clockLayout),
			f(r.TimeLagMinutes, 0) + "min",
			f(r.GainPct, 2) + "%",
		}
	}
	return records
}
