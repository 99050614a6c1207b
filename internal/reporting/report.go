package reporting

import (
	"fmt"
	"strings"
	"time"

	"sectorflow/internal/leaderflow"
)

// topN is the length of each ranking in the text report.
const topN = 5

// Meta identifies the analysis a report belongs to.
type Meta struct {
	Sector      string    `json:"sector"`
	Start       string    `json:"start"` // YYYYMM
	End         string    `json:"end"`   // YYYYMM
	GeneratedAt time.Time `json:"generated_at"`
}

// BuildReport renders the plain-text analysis report. A run without pairs
// gets a "no relationships found" section instead of rankings and advice.
func BuildReport(meta Meta, result *leaderflow.Result) string {
	var b strings.Builder
	rule := strings.Repeat("=", 80)
	sub := strings.Repeat("-", 40)

	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("%s", rule)
	line("領漲跟漲分析報告")
	line("%s", rule)
	line("分析期間: %s - %s", meta.Start, meta.End)
	line("分析類股: %s", meta.Sector)
	if result != nil {
		line("執行編號: %s", result.RunID)
		line("領漲信號: %d (強化 %d)", result.Stats.Signals, result.Stats.Enhanced)
	}
	line("")

	var summary *leaderflow.Summary
	if result != nil {
		summary = result.Summary
	}

	if summary.Empty() {
		line("💡 實戰操作建議")
		line("%s", sub)
		line("1. 當前數據未發現明顯領漲跟漲關係")
		line("2. 建議降低信號門檻重新分析")
		line("3. 或增加更多歷史數據進行分析")
		line("")
		line("⚠️  風險提醒: 此分析僅基於歷史數據，實際操作請謹慎評估風險")
		return b.String()
	}

	g := summary.Global
	line("📊 基本統計")
	line("%s", sub)
	line("總配對數: %d", g.TotalPairs)
	line("平均時間差: %.2f 分鐘", g.MeanLag)
	line("中位數時間差: %.2f 分鐘", g.MedianLag)
	line("平均跟漲幅度: %.2f%%", g.MeanGain)
	line("最大跟漲幅度: %.2f%%", g.MaxGain)
	line("")

	line("👑 領漲股排行榜 (TOP %d)", topN)
	line("%s", sub)
	for i, l := range head(summary.Leaders) {
		line("%d. %s", i+1, DisplaySymbol(l.Symbol))
		line("   觸發跟漲: %d 次", l.Count)
		line("   平均時間差: %.1f 分鐘", l.MeanLag)
		line("   平均跟漲幅度: %.2f%%", l.MeanGain)
		line("   平均大單金額: %.1f 百萬", l.MeanLargeTotal/1_000_000)
		line("")
	}

	line("🎯 跟漲股排行榜 (TOP %d)", topN)
	line("%s", sub)
	for i, fl := range head(summary.Followers) {
		line("%d. %s", i+1, DisplaySymbol(fl.Symbol))
		line("   跟隨次數: %d 次", fl.Count)
		line("   平均反應時間: %.1f 分鐘", fl.MeanLag)
		line("   平均漲幅: %.2f%%", fl.MeanGain)
		line("")
	}

	line("⭐ 最佳領漲跟漲配對 (TOP %d)", topN)
	line("%s", sub)
	for i, p := range head(summary.Pairs) {
		line("%d. %s → %s", i+1, DisplaySymbol(p.Leader), DisplaySymbol(p.Follower))
		line("   配對次數: %d 次", p.Count)
		line("   平均時間差: %.1f 分鐘", p.MeanLag)
		line("   平均漲幅: %.2f%%", p.MeanGain)
		line("")
	}

	leader, _ := summary.TopLeader()
	best := DisplaySymbol(leader.Symbol)
	line("💡 實戰操作建議")
	line("%s", sub)
	line("1. 重點監控領漲股: %s", best)
	line("2. 當%s出現大單買進且急漲時，立即關注跟漲股", best)
	line("3. 預期跟漲反應時間: %.0f 分鐘內", g.MeanLag)
	line("4. 建議停利設定: 1.5-2.5%%")
	line("5. 建議停損設定: -1%%")
	line("6. 操作時間窗口: 信號後 %d 分鐘內", int(g.MeanLag*2))
	line("")
	line("⚠️  風險提醒: 此分析僅基於歷史數據，實際操作請謹慎評估風險")

	return b.String()
}

func head[T any](items []T) []T {
	if len(items) > topN {
		return items[:topN]
	}
	return items
}
