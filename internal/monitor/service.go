package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stock-backtester/internal/backtest"
	"stock-backtester/internal/log"
	"stock-backtester/internal/store"
)

// timeLayout 为定宽时间格式，保证 created_at 按字符串排序即按时间排序。
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Service 负责持久化与查询回测记录。
type Service struct {
	store  *store.Store
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewService 初始化回测记录服务，创建所需表结构。
func NewService(st *store.Store, logger *zap.Logger) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("monitor: store 不能为空")
	}

	s := &Service{
		store:  st,
		db:     st.DB(),
		logger: log.OrNop(logger),
		now:    func() time.Time { return time.Now().UTC() },
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS backtest_runs (
	id TEXT PRIMARY KEY,
	strategy TEXT NOT NULL,
	label TEXT NOT NULL,
	symbol TEXT NOT NULL,
	params TEXT NOT NULL,
	summary TEXT NOT NULL,
	bars INTEGER NOT NULL,
	initial_cash REAL NOT NULL,
	fee_rate REAL NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_backtest_runs_strategy ON backtest_runs(strategy);
CREATE TABLE IF NOT EXISTS backtest_trades (
	run_id TEXT NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	entry_time TEXT NOT NULL,
	exit_time TEXT NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	quantity REAL NOT NULL,
	pnl_pct REAL NOT NULL,
	exit_reason TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("monitor: 初始化表失败: %w", err)
	}
	return nil
}

// RecordRun 在单个事务中写入回测汇总与全部交易，返回记录 ID。
func (s *Service) RecordRun(ctx context.Context, in RunInput) (string, error) {
	if in.Result == nil {
		return "", fmt.Errorf("monitor: %w", backtest.ErrState)
	}

	params, err := json.Marshal(in.Params)
	if err != nil {
		return "", fmt.Errorf("monitor: 序列化参数失败: %w", err)
	}
	summary, err := json.Marshal(in.Summary)
	if err != nil {
		return "", fmt.Errorf("monitor: 序列化汇总失败: %w", err)
	}

	id := uuid.NewString()
	createdAt := s.now().Format(timeLayout)
	trades := in.Result.Journal.Trades()

	err = s.store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO backtest_runs (id, strategy, label, symbol, params, summary, bars, initial_cash, fee_rate, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, in.Strategy, in.Label, in.Symbol, string(params), string(summary),
			in.Result.Bars.Len(), in.Result.Config.InitialCash, in.Result.Config.FeeRate, createdAt,
		); err != nil {
			return fmt.Errorf("monitor: 写入回测记录失败: %w", err)
		}

		if len(trades) == 0 {
			return nil
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO backtest_trades (run_id, seq, entry_time, exit_time, entry_price, exit_price, quantity, pnl_pct, exit_reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("monitor: 预编译交易写入失败: %w", err)
		}
		defer stmt.Close()

		for i, trade := range trades {
			if _, err := stmt.ExecContext(ctx,
				id, i,
				trade.EntryTime.UTC().Format(timeLayout),
				trade.ExitTime.UTC().Format(timeLayout),
				trade.EntryPrice, trade.ExitPrice, trade.Quantity, trade.PnLPct, trade.ExitReason,
			); err != nil {
				return fmt.Errorf("monitor: 写入第 %d 笔交易失败: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug("已记录回测结果",
		zap.String("id", id),
		zap.String("strategy", in.Strategy),
		zap.String("label", in.Label),
		zap.Int("trades", len(trades)),
	)
	return id, nil
}

// RecordOutcomes 记录一次参数扫描的全部结果，任一写入失败即返回。
func (s *Service) RecordOutcomes(ctx context.Context, strategy, symbol string, outcomes []backtest.Outcome) ([]string, error) {
	ids := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		id, err := s.RecordRun(ctx, RunInput{
			Strategy: strategy,
			Label:    o.Candidate.Label,
			Symbol:   symbol,
			Params:   o.Candidate.Params,
			Result:   o.Result,
			Summary:  o.Summary,
		})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ListRuns 按时间倒序列出回测记录，strategy 为空时不过滤。
func (s *Service) ListRuns(ctx context.Context, strategy string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, strategy, label, symbol, params, summary, bars, initial_cash, fee_rate, created_at FROM backtest_runs`
	args := make([]interface{}, 0, 2)
	if strategy != "" {
		query += ` WHERE strategy = ?`
		args = append(args, strategy)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询回测记录失败: %w", err)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 读取回测记录失败: %w", err)
	}
	return runs, nil
}

// GetRun 返回单条回测记录及其交易明细。
func (s *Service) GetRun(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, strategy, label, symbol, params, summary, bars, initial_cash, fee_rate, created_at
		 FROM backtest_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return RunRecord{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_time, exit_time, entry_price, exit_price, quantity, pnl_pct, exit_reason
		 FROM backtest_trades WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return RunRecord{}, fmt.Errorf("monitor: 查询交易明细失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			trade           backtest.Trade
			entryAt, exitAt string
		)
		if err := rows.Scan(&entryAt, &exitAt, &trade.EntryPrice, &trade.ExitPrice,
			&trade.Quantity, &trade.PnLPct, &trade.ExitReason); err != nil {
			return RunRecord{}, fmt.Errorf("monitor: 解析交易明细失败: %w", err)
		}
		trade.EntryTime, _ = time.Parse(timeLayout, entryAt)
		trade.ExitTime, _ = time.Parse(timeLayout, exitAt)
		run.Trades = append(run.Trades, trade)
	}
	if err := rows.Err(); err != nil {
		return RunRecord{}, fmt.Errorf("monitor: 读取交易明细失败: %w", err)
	}
	return run, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		run             RunRecord
		params, summary string
		created         string
	)
	if err := row.Scan(&run.ID, &run.Strategy, &run.Label, &run.Symbol, &params, &summary,
		&run.Bars, &run.InitialCash, &run.FeeRate, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, err
		}
		return RunRecord{}, fmt.Errorf("monitor: 解析回测记录失败: %w", err)
	}
	if err := json.Unmarshal([]byte(params), &run.Params); err != nil {
		return RunRecord{}, fmt.Errorf("monitor: 解析参数失败: %w", err)
	}
	if err := json.Unmarshal([]byte(summary), &run.Summary); err != nil {
		return RunRecord{}, fmt.Errorf("monitor: 解析汇总失败: %w", err)
	}

	ts, err := time.Parse(timeLayout, created)
	if err != nil {
		ts = time.Time{}
	}
	run.CreatedAt = ts
	return run, nil
}
