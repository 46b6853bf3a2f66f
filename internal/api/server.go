// Package api exposes position analytics over a small REST surface.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"positionScope/internal/analytics"
	"positionScope/internal/chain"
	"positionScope/internal/model"
)

// PositionStore is the read surface the API serves from.
type PositionStore interface {
	GetPositionByNFT(ctx context.Context, nftID string) (model.Position, bool, error)
	ListPositionsByOwner(ctx context.Context, owner string) ([]model.Position, error)
	SwapsForPoolSince(ctx context.Context, poolID string, since time.Time) ([]model.Swap, error)
	SnapshotsForPosition(ctx context.Context, positionID int64, start, end time.Time) ([]model.PositionSnapshot, error)
}

// PoolObserver reads live pool state for requests that do not supply a
// price and tick explicitly.
type PoolObserver interface {
	ObservePool(ctx context.Context, pool common.Address) (chain.PoolState, error)
}

// Server wires the HTTP handlers to their dependencies.
type Server struct {
	store      PositionStore
	observer   PoolObserver
	calc       *analytics.Calculator
	classifier analytics.Classifier
	lookback   time.Duration
	logger     *zap.Logger
}

// NewServer builds a Server. The observer is optional; without it,
// requests must carry current_price and current_tick query parameters
// or fall back to their defaults.
func NewServer(
	store PositionStore,
	observer PoolObserver,
	calc *analytics.Calculator,
	classifier analytics.Classifier,
	lookback time.Duration,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if calc == nil {
		calc = analytics.NewCalculator(nil)
	}
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &Server{
		store:      store,
		observer:   observer,
		calc:       calc,
		classifier: classifier,
		lookback:   lookback,
		logger:     logger,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /positions/{owner}", s.handleListPositions)
	mux.HandleFunc("GET /positions/{owner}/{nft}/pnl", s.handlePnL)
	mux.HandleFunc("GET /positions/{owner}/{nft}/health", s.handleHealth)
	mux.HandleFunc("GET /positions/{owner}/{nft}/snapshots", s.handleSnapshots)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")

	positions, err := s.store.ListPositionsByOwner(r.Context(), owner)
	if err != nil {
		s.internalError(w, "list positions", err)
		return
	}
	if positions == nil {
		positions = []model.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

type pnlResponse struct {
	PositionID      int64           `json:"position_id"`
	NFTID           string          `json:"nft_id"`
	InitialPrice    decimal.Decimal `json:"initial_price"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	FeesEarned      decimal.Decimal `json:"fees_earned"`
	ImpermanentLoss decimal.Decimal `json:"impermanent_loss"`
	GasSpent        decimal.Decimal `json:"gas_spent"`
	NetPnL          decimal.Decimal `json:"net_pnl"`
}

func (s *Server) handlePnL(w http.ResponseWriter, r *http.Request) {
	position, ok := s.loadOwnedPosition(w, r)
	if !ok {
		return
	}

	params, err := s.evalParams(r, position)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pnl, err := s.positionPnL(r.Context(), position, params)
	if err != nil {
		s.internalError(w, "compute pnl", err)
		return
	}

	writeJSON(w, http.StatusOK, pnlResponse{
		PositionID:      position.ID,
		NFTID:           position.NFTID,
		InitialPrice:    params.initialPrice,
		CurrentPrice:    params.currentPrice,
		FeesEarned:      pnl.FeesEarned,
		ImpermanentLoss: pnl.ImpermanentLoss,
		GasSpent:        pnl.GasSpent,
		NetPnL:          pnl.NetPnL,
	})
}

type healthResponse struct {
	PositionID     int64              `json:"position_id"`
	NFTID          string             `json:"nft_id"`
	Status         model.HealthStatus `json:"status"`
	Description    string             `json:"description"`
	InRange        bool               `json:"in_range"`
	CurrentTick    int32              `json:"current_tick"`
	DistanceToEdge int32              `json:"distance_to_edge"`
	RangeWidthPct  decimal.Decimal    `json:"range_width_percent"`
	NetPnL         decimal.Decimal    `json:"net_pnl"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	position, ok := s.loadOwnedPosition(w, r)
	if !ok {
		return
	}

	params, err := s.evalParams(r, position)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pnl, err := s.positionPnL(r.Context(), position, params)
	if err != nil {
		s.internalError(w, "compute pnl", err)
		return
	}

	status := s.classifier.PositionHealth(position, params.currentTick, pnl.NetPnL)
	writeJSON(w, http.StatusOK, healthResponse{
		PositionID:     position.ID,
		NFTID:          position.NFTID,
		Status:         status,
		Description:    status.Description(),
		InRange:        analytics.IsInRange(params.currentTick, position.TickLower, position.TickUpper),
		CurrentTick:    params.currentTick,
		DistanceToEdge: analytics.DistanceToRangeEdge(params.currentTick, position.TickLower, position.TickUpper),
		RangeWidthPct:  analytics.RangeWidthPercent(position.TickLower, position.TickUpper),
		NetPnL:         pnl.NetPnL,
	})
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	position, ok := s.loadOwnedPosition(w, r)
	if !ok {
		return
	}

	end := time.Now().UTC()
	start := end.Add(-30 * 24 * time.Hour)
	var err error
	if raw := r.URL.Query().Get("start"); raw != "" {
		if start, err = time.Parse(time.RFC3339, raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid start: "+err.Error())
			return
		}
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		if end, err = time.Parse(time.RFC3339, raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid end: "+err.Error())
			return
		}
	}

	snapshots, err := s.store.SnapshotsForPosition(r.Context(), position.ID, start, end)
	if err != nil {
		s.internalError(w, "list snapshots", err)
		return
	}
	if snapshots == nil {
		snapshots = []model.PositionSnapshot{}
	}
	writeJSON(w, http.StatusOK, snapshots)
}

// loadOwnedPosition resolves the {owner}/{nft} pair, writing the error
// response itself when the position is missing or owned by someone
// else.
func (s *Server) loadOwnedPosition(w http.ResponseWriter, r *http.Request) (model.Position, bool) {
	owner := r.PathValue("owner")
	nftID := r.PathValue("nft")

	position, found, err := s.store.GetPositionByNFT(r.Context(), nftID)
	if err != nil {
		s.internalError(w, "load position", err)
		return model.Position{}, false
	}
	if !found {
		writeError(w, http.StatusNotFound, "position not found")
		return model.Position{}, false
	}
	if !equalFoldAddress(position.Owner, owner) {
		writeError(w, http.StatusForbidden, "position not owned by requester")
		return model.Position{}, false
	}
	return position, true
}

type evalParams struct {
	initialPrice decimal.Decimal
	currentPrice decimal.Decimal
	currentTick  int32
	gasSpent     decimal.Decimal
}

// evalParams assembles the evaluation inputs. Explicit query
// parameters win; missing price and tick fall back to a live pool
// observation when an observer is configured, else to 1.0 and 0.
func (s *Server) evalParams(r *http.Request, position model.Position) (evalParams, error) {
	query := r.URL.Query()

	params := evalParams{
		initialPrice: decimal.NewFromInt(1),
		currentPrice: decimal.NewFromInt(1),
		gasSpent:     decimal.Zero,
	}

	var err error
	if raw := query.Get("initial_price"); raw != "" {
		if params.initialPrice, err = decimal.NewFromString(raw); err != nil {
			return evalParams{}, errBadParam("initial_price", err)
		}
	}
	if raw := query.Get("gas_spent"); raw != "" {
		if params.gasSpent, err = decimal.NewFromString(raw); err != nil {
			return evalParams{}, errBadParam("gas_spent", err)
		}
	}

	rawPrice := query.Get("current_price")
	rawTick := query.Get("current_tick")
	if rawPrice == "" && rawTick == "" && s.observer != nil {
		state, err := s.observer.ObservePool(r.Context(), common.HexToAddress(position.PoolID))
		if err == nil {
			params.currentPrice = analytics.PriceFromSqrtX96(decimal.NewFromBigInt(state.SqrtPriceX96, 0))
			params.currentTick = state.Tick
			return params, nil
		}
		s.logger.Warn("live pool observation failed, using defaults",
			zap.String("pool_id", position.PoolID),
			zap.Error(err),
		)
	}

	if rawPrice != "" {
		if params.currentPrice, err = decimal.NewFromString(rawPrice); err != nil {
			return evalParams{}, errBadParam("current_price", err)
		}
	}
	if rawTick != "" {
		tick, err := parseInt32(rawTick)
		if err != nil {
			return evalParams{}, errBadParam("current_tick", err)
		}
		params.currentTick = tick
	} else if rawPrice != "" {
		params.currentTick = analytics.PriceToTick(params.currentPrice)
	}

	return params, nil
}

func (s *Server) positionPnL(ctx context.Context, position model.Position, params evalParams) (model.PositionPnL, error) {
	swaps, err := s.store.SwapsForPoolSince(ctx, position.PoolID, time.Now().UTC().Add(-s.lookback))
	if err != nil {
		return model.PositionPnL{}, err
	}
	return s.calc.PositionPnL(position, swaps, params.initialPrice, params.currentPrice, params.gasSpent), nil
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func equalFoldAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func errBadParam(name string, err error) error {
	return fmt.Errorf("invalid %s: %v", name, err)
}

func parseInt32(raw string) (int32, error) {
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
