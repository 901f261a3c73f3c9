package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/esrabs/evaluation-commerciale-be/internal/obs"
	"github.com/esrabs/evaluation-commerciale-be/internal/sales"
)

var errInvalidLimit = errors.New("limit must be an integer")

func (a *API) handleSalesCollection(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req sales.NewSale
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		sale, err := a.sales.RecordSale(r.Context(), act, req)
		if err != nil {
			handleError(w, r, err)
			return
		}
		obs.SaleRecorded(int64(sale.Amount))
		a.audit(r.Context(), "sales.record", "sale", sale.ID, map[string]any{
			"date":   sale.Date.String(),
			"amount": sale.Amount.String(),
		})
		w.Header().Set("Location", "/v1/sales/"+sale.ID)
		writeJSON(w, http.StatusCreated, sale)
	case http.MethodGet:
		rng, err := parseRange(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		list, err := a.sales.ListAll(r.Context(), act, rng)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items(list))
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleSaleResource(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := splitResource(r.URL.Path, "/v1/sales/")
	if !ok || sub != "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	act, ok := actor(w, r)
	if !ok {
		return
	}
	rng, err := parseRange(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	switch id {
	case "me":
		list, err := a.sales.ListMine(r.Context(), act, rng)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items(list))
	case "squad":
		list, err := a.sales.ListSquad(r.Context(), act, rng)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items(list))
	default:
		view, err := a.sales.GetSale(r.Context(), act, id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	report := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/stats/"), "/")
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	act, ok := actor(w, r)
	if !ok {
		return
	}
	rng, err := parseRange(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	start := time.Now()
	var out any
	switch report {
	case "me":
		out, err = a.sales.PersonalStats(r.Context(), act, rng)
	case "squad":
		out, err = a.sales.SquadStats(r.Context(), act, rng)
	case "leaderboard":
		limit, perr := parseLimit(r.URL.Query().Get("limit"))
		if perr != nil {
			writeError(w, r, http.StatusBadRequest, perr.Error())
			return
		}
		out, err = a.sales.GlobalLeaderboard(r.Context(), act, limit, rng)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if err != nil {
		handleError(w, r, err)
		return
	}
	obs.ObserveReport(report, time.Since(start))
	writeJSON(w, http.StatusOK, out)
}

// parseLimit reads the leaderboard size; out-of-range values are clamped later.
func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return sales.DefaultLeaderboardLimit, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errInvalidLimit
	}
	return v, nil
}
