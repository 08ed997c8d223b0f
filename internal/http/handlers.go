package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

// Amounts cross the API in decimal currency units, in both directions: a
// client can re-submit an entry's own amount unchanged. Cents stay internal.
type entryJSON struct {
	ID        string      `json:"id"`
	Owner     string      `json:"owner"`
	Title     string      `json:"title"`
	Amount    json.Number `json:"amount"`
	Type      string      `json:"type"`
	Category  string      `json:"category"`
	CreatedAt time.Time   `json:"createdAt"`
}

type summaryJSON struct {
	TotalIncome  json.Number `json:"totalIncome"`
	TotalExpense json.Number `json:"totalExpense"`
	Balance      json.Number `json:"balance"`
}

type categoryStatJSON struct {
	Total json.Number `json:"total"`
	Count int         `json:"count"`
}

type monthStatJSON struct {
	Month        int         `json:"month"`
	TotalIncome  json.Number `json:"totalIncome"`
	TotalExpense json.Number `json:"totalExpense"`
	Balance      json.Number `json:"balance"`
}

type periodReportJSON struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	summaryJSON
}

func amountJSON(cents int64) json.Number {
	return json.Number(core.FormatCents(cents))
}

func toEntryJSON(e core.Entry) entryJSON {
	return entryJSON{
		ID:        e.ID,
		Owner:     e.Owner,
		Title:     e.Title,
		Amount:    amountJSON(e.Amount.Cents),
		Type:      string(e.Type),
		Category:  string(e.Category),
		CreatedAt: e.CreatedAt,
	}
}

func toEntryList(entries []core.Entry) []entryJSON {
	list := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		list = append(list, toEntryJSON(e))
	}
	return list
}

func toSummaryJSON(s core.Summary) summaryJSON {
	return summaryJSON{
		TotalIncome:  amountJSON(s.TotalIncome),
		TotalExpense: amountJSON(s.TotalExpense),
		Balance:      amountJSON(s.Balance),
	}
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.List(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toEntryList(entries))
}

type createEntryRequest struct {
	Title    string      `json:"title"`
	Amount   json.Number `json:"amount"`
	Type     string      `json:"type"`
	Category string      `json:"category"`
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, core.Invalid("body", "invalid JSON"))
		return
	}

	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		respondError(w, r, err)
		return
	}

	entry, err := s.svc.Create(r.Context(), core.NewEntry{
		Owner:    ownerFrom(r.Context()),
		Title:    req.Title,
		Amount:   amount,
		Type:     core.EntryType(req.Type),
		Category: core.Category(req.Category),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toEntryJSON(entry))
}

// updateEntryRequest is the whitelist of mutable fields. Anything else in
// the body, owner and creation timestamp included, is ignored.
type updateEntryRequest struct {
	Title    *string      `json:"title"`
	Amount   *json.Number `json:"amount"`
	Type     *string      `json:"type"`
	Category *string      `json:"category"`
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req updateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, core.Invalid("body", "invalid JSON"))
		return
	}

	var patch core.EntryPatch
	patch.Title = req.Title
	if req.Amount != nil {
		amount, err := core.ParseAmount(req.Amount.String())
		if err != nil {
			respondError(w, r, err)
			return
		}
		patch.Amount = &amount
	}
	if req.Type != nil {
		t := core.EntryType(*req.Type)
		patch.Type = &t
	}
	if req.Category != nil {
		c := core.Category(*req.Category)
		patch.Category = &c
	}

	entry, err := s.svc.Update(r.Context(), ownerFrom(r.Context()), r.PathValue("id"), patch)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toEntryJSON(entry))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), ownerFrom(r.Context()), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "entry deleted"})
}

func (s *Server) handleFilterEntries(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilterQuery(ownerFrom(r.Context()), r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	entries, err := s.svc.Filter(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toEntryList(entries))
}

// parseFilterQuery turns the raw query parameters into a core.Filter.
// Malformed numeric or date values fail here, as validation errors naming
// the parameter, before any predicate is built.
func parseFilterQuery(owner string, r *http.Request) (core.Filter, error) {
	f := core.NewFilter(owner)
	q := r.URL.Query()

	if v := q.Get("type"); v != "" {
		f = f.WithType(v)
	}
	if v := q.Get("category"); v != "" {
		f = f.WithCategory(v)
	}
	if v := q.Get("keyword"); v != "" {
		f = f.WithKeyword(v)
	}
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return core.Filter{}, core.Invalid("year", "must be a number")
		}
		f = f.WithYear(year)
	}
	if v := q.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil {
			return core.Filter{}, core.Invalid("month", "must be a number")
		}
		f = f.WithMonth(month)
	}
	if v := q.Get("minAmount"); v != "" {
		cents, err := core.ParseCents(v)
		if err != nil {
			return core.Filter{}, core.Invalid("minAmount", "not a valid amount")
		}
		f = f.WithMinAmount(cents)
	}
	if v := q.Get("maxAmount"); v != "" {
		cents, err := core.ParseCents(v)
		if err != nil {
			return core.Filter{}, core.Invalid("maxAmount", "not a valid amount")
		}
		f = f.WithMaxAmount(cents)
	}
	if v := q.Get("startDate"); v != "" {
		t, err := services.ParseDate(v)
		if err != nil {
			return core.Filter{}, core.Invalid("startDate", "not a valid date")
		}
		f = f.WithStartDate(t)
	}
	if v := q.Get("endDate"); v != "" {
		t, err := services.ParseDate(v)
		if err != nil {
			return core.Filter{}, core.Invalid("endDate", "not a valid date")
		}
		f = f.WithEndDate(t)
	}

	return f, nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Summary(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toSummaryJSON(summary))
}

func (s *Server) handleCategoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.CategoryStats(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make(map[string]categoryStatJSON, len(stats))
	for cat, stat := range stats {
		out[string(cat)] = categoryStatJSON{Total: amountJSON(stat.Total), Count: stat.Count}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query().Get("year")
	if v == "" {
		respondError(w, r, core.Invalid("year", "required"))
		return
	}
	year, err := strconv.Atoi(v)
	if err != nil {
		respondError(w, r, core.Invalid("year", "must be a number"))
		return
	}

	stats, err := s.svc.MonthlyStats(r.Context(), ownerFrom(r.Context()), year)
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]monthStatJSON, 0, len(stats))
	for _, m := range stats {
		out = append(out, monthStatJSON{
			Month:        m.Month,
			TotalIncome:  amountJSON(m.TotalIncome),
			TotalExpense: amountJSON(m.TotalExpense),
			Balance:      amountJSON(m.Balance),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handlePeriodReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := s.svc.PeriodReport(r.Context(), ownerFrom(r.Context()), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, periodReportJSON{
		StartDate:   report.StartDate,
		EndDate:     report.EndDate,
		summaryJSON: toSummaryJSON(report.Summary),
	})
}
