package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tradedeck/dashfeed/internal/model"
)

// GetSignals fetches current trading signals.
func (c *Client) GetSignals(ctx context.Context, limit int) ([]model.Signal, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var signals []model.Signal
	if err := c.get(ctx, "/api/signals", query, &signals); err != nil {
		return nil, fmt.Errorf("get signals: %w", err)
	}
	return signals, nil
}

// GetOpportunities fetches the latest scan opportunities.
func (c *Client) GetOpportunities(ctx context.Context) ([]model.Opportunity, error) {
	var opps []model.Opportunity
	if err := c.get(ctx, "/api/opportunities", nil, &opps); err != nil {
		return nil, fmt.Errorf("get opportunities: %w", err)
	}
	return opps, nil
}

// GetPositions fetches open positions, optionally filtered by mode ("paper" or "real").
func (c *Client) GetPositions(ctx context.Context, mode string) ([]model.Position, error) {
	query := url.Values{}
	if mode != "" {
		query.Set("mode", mode)
	}

	var positions []model.Position
	if err := c.get(ctx, "/api/positions", query, &positions); err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}
	return positions, nil
}

// GetPerformance fetches the aggregate performance summary.
func (c *Client) GetPerformance(ctx context.Context) (*model.PerformanceSummary, error) {
	var perf model.PerformanceSummary
	if err := c.get(ctx, "/api/performance", nil, &perf); err != nil {
		return nil, fmt.Errorf("get performance: %w", err)
	}
	return &perf, nil
}

// GetStrategies fetches status for all strategies.
func (c *Client) GetStrategies(ctx context.Context) ([]model.StrategyStatus, error) {
	var strategies []model.StrategyStatus
	if err := c.get(ctx, "/api/strategies", nil, &strategies); err != nil {
		return nil, fmt.Errorf("get strategies: %w", err)
	}
	return strategies, nil
}

// GetScalpingSummary fetches the scalping engine summary.
func (c *Client) GetScalpingSummary(ctx context.Context) (*model.ScalpingSummary, error) {
	var summary model.ScalpingSummary
	if err := c.get(ctx, "/api/scalping/status", nil, &summary); err != nil {
		return nil, fmt.Errorf("get scalping summary: %w", err)
	}
	return &summary, nil
}

// GetLearningInsights fetches recommendations from the adaptive layer.
func (c *Client) GetLearningInsights(ctx context.Context) ([]model.LearningInsight, error) {
	var insights []model.LearningInsight
	if err := c.get(ctx, "/api/learning/insights", nil, &insights); err != nil {
		return nil, fmt.Errorf("get learning insights: %w", err)
	}
	return insights, nil
}

// GetFlowTradingStatus fetches the order-flow engine summary.
func (c *Client) GetFlowTradingStatus(ctx context.Context) (*model.FlowTradingStatus, error) {
	var status model.FlowTradingStatus
	if err := c.get(ctx, "/api/flow-trading/status", nil, &status); err != nil {
		return nil, fmt.Errorf("get flow trading status: %w", err)
	}
	return &status, nil
}

// GetSettings fetches the backend's settings document. Its shape is owned by
// the backend; dashfeed passes it through untouched.
func (c *Client) GetSettings(ctx context.Context) (json.RawMessage, error) {
	var settings json.RawMessage
	if err := c.get(ctx, "/api/settings", nil, &settings); err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// GetScanStatus fetches whether a market scan is in progress.
func (c *Client) GetScanStatus(ctx context.Context) (*model.ScanStatus, error) {
	var status model.ScanStatus
	if err := c.get(ctx, "/api/scan/status", nil, &status); err != nil {
		return nil, fmt.Errorf("get scan status: %w", err)
	}
	return &status, nil
}

// GetTradingStatus fetches the status of one trading engine.
// mode must be "paper" or "real".
func (c *Client) GetTradingStatus(ctx context.Context, mode string) (*model.TradingStatus, error) {
	var status model.TradingStatus
	if err := c.get(ctx, "/api/"+mode+"-trading/status", nil, &status); err != nil {
		return nil, fmt.Errorf("get %s trading status: %w", mode, err)
	}
	return &status, nil
}

// StartTrading asks the backend to start a trading engine.
func (c *Client) StartTrading(ctx context.Context, mode string) (*ActionResponse, error) {
	resp, err := c.post(ctx, "/api/"+mode+"-trading/start", nil)
	if err != nil {
		return resp, fmt.Errorf("start %s trading: %w", mode, err)
	}
	return resp, nil
}

// StopTrading asks the backend to stop a trading engine.
func (c *Client) StopTrading(ctx context.Context, mode string) (*ActionResponse, error) {
	resp, err := c.post(ctx, "/api/"+mode+"-trading/stop", nil)
	if err != nil {
		return resp, fmt.Errorf("stop %s trading: %w", mode, err)
	}
	return resp, nil
}

// ExecuteTradeRequest asks the backend to execute a signal manually.
type ExecuteTradeRequest struct {
	SignalID string `json:"signal_id"`
	Mode     string `json:"mode"` // "paper" or "real"
}

// ExecuteTrade submits a manual trade execution for a signal.
func (c *Client) ExecuteTrade(ctx context.Context, req ExecuteTradeRequest) (*ActionResponse, error) {
	resp, err := c.post(ctx, "/api/trades/execute", req)
	if err != nil {
		return resp, fmt.Errorf("execute trade: %w", err)
	}
	return resp, nil
}
