package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"budget/internal/core"
)

type (
	createMonthRequest struct {
		Key    string     `json:"key"`
		Income core.Money `json:"income"`
	}

	commitExpenseRequest struct {
		Category    string     `json:"category"`
		Description string     `json:"description"`
		Amount      core.Money `json:"amount"`
		Date        string     `json:"date,omitempty"`
	}

	resolveRequest struct {
		Description string     `json:"description"`
		Amount      core.Money `json:"amount"`
		Date        string     `json:"date,omitempty"`
		Category    string     `json:"category"`
		// Merchant optionally narrows the learned rule to a substring of
		// the description, e.g. "LOCAL BAKERY" for "LOCAL BAKERY #77".
		Merchant string `json:"merchant,omitempty"`
	}

	addCategoryRequest struct {
		Name          string   `json:"name"`
		Percentage    float64  `json:"percentage"`
		Subcategories []string `json:"subcategories,omitempty"`
	}

	expenseDTO struct {
		ID          string     `json:"id"`
		Date        string     `json:"date"`
		Category    string     `json:"category"`
		Amount      core.Money `json:"amount"`
		Description string     `json:"description"`
	}

	transactionDTO struct {
		Description string     `json:"description"`
		Amount      core.Money `json:"amount"`
		Date        string     `json:"date"`
	}

	categoryRowDTO struct {
		Name       string     `json:"name"`
		Percentage float64    `json:"percentage"`
		Allocated  core.Money `json:"allocated"`
		Spent      core.Money `json:"spent"`
		Remaining  core.Money `json:"remaining"`
	}

	monthDTO struct {
		Key         string           `json:"key"`
		Created     time.Time        `json:"created"`
		TotalIncome core.Money       `json:"total_income"`
		Categories  []categoryRowDTO `json:"categories"`
		Expenses    []expenseDTO     `json:"expenses"`
	}

	summaryDTO struct {
		Key            string           `json:"key"`
		TotalIncome    core.Money       `json:"total_income"`
		TotalAllocated core.Money       `json:"total_allocated"`
		TotalSpent     core.Money       `json:"total_spent"`
		TotalRemaining core.Money       `json:"total_remaining"`
		PercentageSum  float64          `json:"percentage_sum"`
		Categories     []categoryRowDTO `json:"categories"`
		ExpenseCount   int              `json:"expense_count"`
	}

	importDTO struct {
		Total                  int              `json:"total"`
		Duplicates             int              `json:"duplicates"`
		Imported               int              `json:"imported"`
		Unresolved             int              `json:"unresolved"`
		UnresolvedTransactions []transactionDTO `json:"unresolved_transactions,omitempty"`
	}

	categoryDTO struct {
		Name          string   `json:"name"`
		Percentage    float64  `json:"percentage"`
		Subcategories []string `json:"subcategories,omitempty"`
	}

	overviewDTO struct {
		MonthsTracked int        `json:"months_tracked"`
		TotalIncome   core.Money `json:"total_income"`
		AverageIncome core.Money `json:"average_income"`
	}
)

func (s *Server) handleCreateMonth(w http.ResponseWriter, r *http.Request) {
	var req createMonthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ledger, err := s.budget.CreateMonth(r.Context(), req.Key, req.Income)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, monthToDTO(ledger))
}

func (s *Server) handleListMonths(w http.ResponseWriter, r *http.Request) {
	keys, err := s.budget.ListMonths(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"months": keys})
}

func (s *Server) handleGetMonth(w http.ResponseWriter, r *http.Request) {
	ledger, err := s.budget.GetMonth(r.Context(), r.PathValue("key"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, monthToDTO(ledger))
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	if summary, ok := s.summaryCache.Get(key); ok {
		writeJSON(w, http.StatusOK, summaryToDTO(summary))
		return
	}

	summary, err := s.budget.MonthSummary(r.Context(), key)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.summaryCache.Set(key, summary)

	writeJSON(w, http.StatusOK, summaryToDTO(summary))
}

func (s *Server) handleCommitExpense(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	var req commitExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var date time.Time
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	expense, err := s.budget.CommitExpense(r.Context(), key, req.Category, req.Description, req.Amount, date)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.summaryCache.Delete(key)

	writeJSON(w, http.StatusCreated, expenseToDTO(expense))
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	body := http.MaxBytesReader(w, r.Body, s.importMaxBytes)
	defer body.Close()

	result, err := s.imports.ImportStatement(r.Context(), key, body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "statement file too large")
			return
		}
		writeDomainError(w, r, err)
		return
	}
	s.summaryCache.Delete(key)

	dto := importDTO{
		Total:      result.Total,
		Duplicates: result.Duplicates,
		Imported:   result.Imported,
		Unresolved: result.Unresolved,
	}
	for _, tx := range result.UnresolvedTransactions {
		dto.UnresolvedTransactions = append(dto.UnresolvedTransactions, transactionDTO{
			Description: tx.Description,
			Amount:      tx.Amount,
			Date:        tx.Date,
		})
	}

	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx := core.Transaction{
		Description: req.Description,
		Amount:      req.Amount,
		Date:        req.Date,
	}
	expense, err := s.imports.Resolve(r.Context(), key, tx, req.Category, req.Merchant)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.summaryCache.Delete(key)

	writeJSON(w, http.StatusCreated, expenseToDTO(expense))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.budget.Categories(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoriesToDTO(cats))
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req addCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := s.budget.AddCategory(r.Context(), core.Category{
		Name:          req.Name,
		Percentage:    req.Percentage,
		Subcategories: req.Subcategories,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, categoriesToDTO(updated))
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	updated, err := s.budget.RemoveCategory(r.Context(), r.PathValue("name"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoriesToDTO(updated))
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := s.budget.Overview(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overviewDTO{
		MonthsTracked: overview.MonthsTracked,
		TotalIncome:   overview.TotalIncome,
		AverageIncome: overview.AverageIncome,
	})
}

func monthToDTO(l core.MonthLedger) monthDTO {
	summary := core.Summarize(l)
	dto := monthDTO{
		Key:         l.Key,
		Created:     l.Created,
		TotalIncome: l.Plan.TotalIncome,
		Categories:  categoryRowsToDTO(summary.Categories),
		Expenses:    make([]expenseDTO, 0, len(l.Expenses)),
	}
	for _, e := range l.Expenses {
		dto.Expenses = append(dto.Expenses, expenseToDTO(e))
	}
	return dto
}

func summaryToDTO(s core.MonthSummary) summaryDTO {
	return summaryDTO{
		Key:            s.Key,
		TotalIncome:    s.TotalIncome,
		TotalAllocated: s.TotalAllocated,
		TotalSpent:     s.TotalSpent,
		TotalRemaining: s.TotalRemaining,
		PercentageSum:  s.PercentageSum,
		Categories:     categoryRowsToDTO(s.Categories),
		ExpenseCount:   s.ExpenseCount,
	}
}

func categoryRowsToDTO(rows []core.CategoryRow) []categoryRowDTO {
	out := make([]categoryRowDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, categoryRowDTO{
			Name:       row.Name,
			Percentage: row.Percentage,
			Allocated:  row.Allocated,
			Spent:      row.Spent,
			Remaining:  row.Remaining,
		})
	}
	return out
}

func categoriesToDTO(cats core.CategorySet) []categoryDTO {
	out := make([]categoryDTO, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryDTO{
			Name:          c.Name,
			Percentage:    c.Percentage,
			Subcategories: c.Subcategories,
		})
	}
	return out
}

func expenseToDTO(e core.Expense) expenseDTO {
	return expenseDTO{
		ID:          e.ID,
		Date:        e.Date.Format("2006-01-02"),
		Category:    e.Category,
		Amount:      e.Amount,
		Description: e.Description,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain sentinel errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrMonthExists), errors.Is(err, core.ErrDuplicateCategory):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrMonthNotFound), errors.Is(err, core.ErrCategoryNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInvalidMonthKey),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrUnknownCategory),
		errors.Is(err, core.ErrEmptyCategories),
		errors.Is(err, core.ErrEmptyCategoryName),
		errors.Is(err, core.ErrInvalidPercentage),
		errors.Is(err, core.ErrEmptyDescription):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed", "url", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}
