// Package leaderflow detects intra-sector leader-follower relationships in
// minute-level market data.
//
// A leader signal is a minute where a stock shows a surge of institutional
// buying (large plus extra-large orders) above its trailing baseline, net
// institutional buying, a positive 1-minute return and a new short-term or
// daily high. For every signal the engine looks for the first bar of every
// other stock in the sector whose price, within a bounded window, has risen by
// at least a threshold percentage over its last price at signal time.
//
// # Pipeline
//
//   - validate.go: data-contract checks on the input bars
//   - series.go: per-bar rolling state (moving average, daily and 30-bar highs)
//   - signal.go: the leader predicate and signal identification
//   - matcher.go: first-passage follower matching, optionally partitioned
//   - aggregate.go: global, leader, follower and pair statistics
//   - engine.go: the orchestrator with tracing, metrics and logging
//
// The package is pure computation: it reads no files and writes no output.
// Loading lives in internal/marketdata and persistence in internal/reporting.
//
// # Usage Example
//
//	engine := leaderflow.NewEngine(leaderflow.DefaultParams(), logger)
//	result, err := engine.Run(ctx, dataset)
//	if err != nil {
//	    return fmt.Errorf("run analysis: %w", err)
//	}
//	if result.Summary.Empty() {
//	    fmt.Println("no relationships found")
//	}
//
// Results are deterministic: the same dataset and parameters produce the
// same signals and pairs in the same order, whatever the worker count.
package leaderflow
