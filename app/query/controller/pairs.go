package controller

import (
	"net/http"
	"slices"

	"github.com/canopy-network/liquidityx/pkg/db/models/reducer"
	"github.com/canopy-network/liquidityx/pkg/liquidity"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type PairsResponse struct {
	Pairs []string `json:"pairs"`
}

type PairResponse struct {
	Set   string                `json:"set"`
	Pools []liquidity.PoolValue `json:"pools"`
}

type HistoryResponse struct {
	Set      string               `json:"set"`
	Commands []reducer.CommandRow `json:"commands"`
}

type ProgressResponse struct {
	Height  uint64 `json:"height"`
	Slot    uint64 `json:"slot"`
	Hash    string `json:"hash,omitempty"`
	Started bool   `json:"started"`
	// Set only when the command log is available.
	LastReduced *uint64       `json:"last_reduced,omitempty"`
	Gaps        []reducer.Gap `json:"gaps,omitempty"`
}

// ListPairs lists set names, optionally filtered by ?pattern= (Redis glob).
func (c *Controller) ListPairs(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		c.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sets, err := c.App.Store.Sets(r.Context(), r.URL.Query().Get("pattern"), limit)
	if err != nil {
		c.App.Logger.Error("Failed to list sets", zap.Error(err))
		c.writeError(w, http.StatusInternalServerError, "failed to list pairs")
		return
	}
	slices.Sort(sets)
	if len(sets) > limit {
		sets = sets[:limit]
	}
	c.writeJSON(w, http.StatusOK, PairsResponse{Pairs: sets})
}

// GetPair returns the pools currently stored under one set.
func (c *Controller) GetPair(w http.ResponseWriter, r *http.Request) {
	set := mux.Vars(r)["key"]
	members, err := c.App.Members(r.Context(), set)
	if err != nil {
		c.App.Logger.Error("Failed to read set", zap.String("set", set), zap.Error(err))
		c.writeError(w, http.StatusInternalServerError, "failed to read pair")
		return
	}
	if len(members) == 0 {
		c.writeError(w, http.StatusNotFound, "pair not found")
		return
	}

	pools := make([]liquidity.PoolValue, 0, len(members))
	for _, m := range members {
		v, err := liquidity.ParsePoolValue(m)
		if err != nil {
			c.App.Logger.Warn("Skipping malformed member", zap.String("set", set), zap.Error(err))
			continue
		}
		pools = append(pools, v)
	}
	c.writeJSON(w, http.StatusOK, PairResponse{Set: set, Pools: pools})
}

// PairHistory returns the most recent commands applied to a set.
func (c *Controller) PairHistory(w http.ResponseWriter, r *http.Request) {
	if c.App.History == nil {
		c.writeError(w, http.StatusServiceUnavailable, "history not available (ClickHouse disabled)")
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		c.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	set := mux.Vars(r)["key"]
	rows, err := c.App.History.History(r.Context(), set, limit)
	if err != nil {
		c.App.Logger.Error("Failed to query history", zap.String("set", set), zap.Error(err))
		c.writeError(w, http.StatusInternalServerError, "failed to query history")
		return
	}
	if rows == nil {
		rows = []reducer.CommandRow{}
	}
	c.writeJSON(w, http.StatusOK, HistoryResponse{Set: set, Commands: rows})
}

// Progress reports the last block applied to Redis and, with ClickHouse,
// the last reduced height and any gaps below it.
func (c *Controller) Progress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	at, ok, err := c.App.Store.LastPoint(ctx)
	if err != nil {
		c.App.Logger.Error("Failed to read progress", zap.Error(err))
		c.writeError(w, http.StatusInternalServerError, "failed to read progress")
		return
	}
	resp := ProgressResponse{Height: at.Height, Slot: at.Slot, Hash: at.Hash, Started: ok}

	if c.App.History != nil {
		last, err := c.App.History.LastReduced(ctx)
		if err != nil {
			c.App.Logger.Error("Failed to read last reduced height", zap.Error(err))
			c.writeError(w, http.StatusInternalServerError, "failed to read progress")
			return
		}
		gaps, err := c.App.History.FindGaps(ctx)
		if err != nil {
			c.App.Logger.Error("Failed to find gaps", zap.Error(err))
			c.writeError(w, http.StatusInternalServerError, "failed to read progress")
			return
		}
		resp.LastReduced = &last
		resp.Gaps = gaps
	}
	c.writeJSON(w, http.StatusOK, resp)
}
