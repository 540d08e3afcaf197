// Package logging provides EventListener implementations that persist a
// run's Event stream to disk: one CSV file per event family, matching the
// columns a spreadsheet-driven post-mortem expects, plus a combined
// newline-delimited JSON log for tooling that wants the full Event struct.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/eugenway/perpsim/simkernel"
)

func openCSVWithHeader(dir, filename, header string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, filename), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if _, err := f.WriteString(header + "\n"); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// CSVOrderLogger writes every EventOrderLog event to orders.csv in dir.
// Write failures are reported on errc if non-nil; a nil errc means a
// failed write is silently dropped, matching the teacher's tolerant
// logging policy.
type CSVOrderLogger struct {
	mu   sync.Mutex
	file *os.File
	errc chan<- error
}

// NewCSVOrderLogger creates (or truncates) dir/orders.csv and writes its
// header row immediately.
func NewCSVOrderLogger(dir string) (*CSVOrderLogger, error) {
	f, err := openCSVWithHeader(dir, "orders.csv", "ts,from,to,msg_type,symbol,side,price,qty")
	if err != nil {
		return nil, err
	}
	return &CSVOrderLogger{file: f}, nil
}

// OnErrors routes write failures to errc instead of dropping them.
func (l *CSVOrderLogger) OnErrors(errc chan<- error) { l.errc = errc }

func (l *CSVOrderLogger) OnEvent(e simkernel.Event) {
	if e.Kind != simkernel.EventOrderLog {
		return
	}
	side, price, qty := "", "", ""
	if e.Side != nil {
		side = e.Side.String()
	}
	if e.Price != nil {
		price = fmt.Sprintf("%d", *e.Price)
	}
	if e.Qty != nil {
		qty = fmt.Sprintf("%g", *e.Qty)
	}
	line := fmt.Sprintf("%d,%d,%d,%s,%s,%s,%s,%s\n", e.Timestamp, e.From, e.To, e.MsgType, e.Symbol, side, price, qty)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.WriteString(line); err != nil && l.errc != nil {
		l.errc <- fmt.Errorf("csv order logger: %w", err)
	}
}

// Close flushes and closes the underlying file.
func (l *CSVOrderLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// CSVOracleLogger writes every EventOracleTick event to oracle.csv in dir.
type CSVOracleLogger struct {
	mu   sync.Mutex
	file *os.File
	errc chan<- error
}

// NewCSVOracleLogger creates (or truncates) dir/oracle.csv and writes its
// header row immediately.
func NewCSVOracleLogger(dir string) (*CSVOracleLogger, error) {
	f, err := openCSVWithHeader(dir, "oracle.csv", "ts,symbol,price_min,price_max")
	if err != nil {
		return nil, err
	}
	return &CSVOracleLogger{file: f}, nil
}

func (l *CSVOracleLogger) OnErrors(errc chan<- error) { l.errc = errc }

func (l *CSVOracleLogger) OnEvent(e simkernel.Event) {
	if e.Kind != simkernel.EventOracleTick {
		return
	}
	line := fmt.Sprintf("%d,%s,%d,%d\n", e.Timestamp, e.Symbol, e.PriceMin, e.PriceMax)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.WriteString(line); err != nil && l.errc != nil {
		l.errc <- fmt.Errorf("csv oracle logger: %w", err)
	}
}

func (l *CSVOracleLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// CSVExecutionLogger writes every EventOrderExecuted and
// EventPositionLiquidated event to executions.csv in dir. These two event
// kinds share enough columns (account, size, pnl) to warrant one combined
// file rather than two near-duplicate ones.
type CSVExecutionLogger struct {
	mu   sync.Mutex
	file *os.File
	errc chan<- error
}

// NewCSVExecutionLogger creates (or truncates) dir/executions.csv and
// writes its header row immediately.
func NewCSVExecutionLogger(dir string) (*CSVExecutionLogger, error) {
	f, err := openCSVWithHeader(dir, "executions.csv",
		"ts,kind,account,symbol,side,order_type,size_usd,execution_price,collateral,collateral_lost,liquidation_price,pnl")
	if err != nil {
		return nil, err
	}
	return &CSVExecutionLogger{file: f}, nil
}

func (l *CSVExecutionLogger) OnErrors(errc chan<- error) { l.errc = errc }

func (l *CSVExecutionLogger) OnEvent(e simkernel.Event) {
	var kind, side, orderType, liqPrice string

	switch e.Kind {
	case simkernel.EventOrderExecuted:
		kind = "executed"
		orderType = fmt.Sprintf("%d", e.OrderType)
	case simkernel.EventPositionLiquidated:
		kind = "liquidated"
		liqPrice = fmt.Sprintf("%d", e.LiquidationPrice)
	default:
		return
	}
	if e.Side != nil {
		side = e.Side.String()
	}

	line := fmt.Sprintf("%d,%s,%d,%s,%s,%s,%d,%d,%d,%d,%s,%d\n",
		e.Timestamp, kind, e.Account, e.Symbol, side, orderType,
		e.SizeUsd, e.ExecutionPrice, e.Collateral, e.CollateralLost, liqPrice, e.Pnl)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.WriteString(line); err != nil && l.errc != nil {
		l.errc <- fmt.Errorf("csv execution logger: %w", err)
	}
}

func (l *CSVExecutionLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
