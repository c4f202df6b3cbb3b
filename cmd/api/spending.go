package main

import (
	"net/http"
	"strconv"

	"github.com/angelitadias/ETL-Pipeline-API/internal/response"
	"github.com/angelitadias/ETL-Pipeline-API/internal/store"
)

type GetAggregatesResponse = response.APIResponse[[]store.SpendingAggregate]
type GetTopOrgaosResponse = response.APIResponse[[]store.OrgaoTotal]

func parseIntOrDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return v
	}
	return def
}

// handleGetAggregates lists gold aggregates, optionally narrowed by
// ano, mes and nome_orgao query parameters.
func (app *application) handleGetAggregates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.AggregateFilter{
		Ano:       parseIntOrDefault(q.Get("ano"), 0),
		Mes:       parseIntOrDefault(q.Get("mes"), 0),
		NomeOrgao: q.Get("nome_orgao"),
	}

	ctx := r.Context()
	data, err := app.store.Aggregates.GetByPeriod(ctx, filter)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to get spending aggregates: "+err.Error())
		return
	}

	response := &GetAggregatesResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved spending aggregates",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// handleGetTopOrgaos ranks organs by total spending across the selected
// period.
func (app *application) handleGetTopOrgaos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.AggregateFilter{
		Ano: parseIntOrDefault(q.Get("ano"), 0),
		Mes: parseIntOrDefault(q.Get("mes"), 0),
	}
	limit := parseIntOrDefault(q.Get("limit"), 10)

	ctx := r.Context()
	data, err := app.store.Aggregates.GetTopOrgaos(ctx, filter, limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to get top orgaos: "+err.Error())
		return
	}

	response := &GetTopOrgaosResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved top orgaos",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
