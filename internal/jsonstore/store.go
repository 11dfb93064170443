// Package jsonstore persists budget state as the three JSON documents the
// system has always used: budget_config.json (categories),
// budget_data.json (month ledgers), and categorization_rules.json.
//
// Files are written whole via a temp file and rename, so a month save is
// all-or-nothing. With an empty directory the store is memory-only, which
// the tests rely on.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/rules"
)

const (
	configFile = "budget_config.json"
	dataFile   = "budget_data.json"
	rulesFile  = "categorization_rules.json"
)

type Store struct {
	mu     sync.Mutex
	dir    string // empty means memory-only
	cats   core.CategorySet
	months map[string]core.MonthLedger
	rules  rules.RuleSet
}

// Open loads state from dir, creating it if needed. Missing files yield
// empty categories/months and the default rule set.
func Open(dir string) (*Store, error) {
	s := &Store{
		dir:    dir,
		months: make(map[string]core.MonthLedger),
		rules:  rules.Default(),
	}
	if dir == "" {
		return s, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if err := s.loadConfig(); err != nil {
		return nil, fmt.Errorf("load %s: %w", configFile, err)
	}
	if err := s.loadData(); err != nil {
		return nil, fmt.Errorf("load %s: %w", dataFile, err)
	}
	if err := s.loadRules(); err != nil {
		return nil, fmt.Errorf("load %s: %w", rulesFile, err)
	}
	return s, nil
}

func (s *Store) CreateMonth(_ context.Context, ledger core.MonthLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.months[ledger.Key]; ok {
		return fmt.Errorf("%w: %s", core.ErrMonthExists, ledger.Key)
	}
	s.months[ledger.Key] = ledger.Clone()
	if err := s.persistData(); err != nil {
		delete(s.months, ledger.Key)
		return err
	}
	return nil
}

func (s *Store) GetMonth(_ context.Context, key string) (core.MonthLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, ok := s.months[key]
	if !ok {
		return core.MonthLedger{}, fmt.Errorf("%w: %s", core.ErrMonthNotFound, key)
	}
	return ledger.Clone(), nil
}

func (s *Store) SaveMonth(_ context.Context, ledger core.MonthLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.months[ledger.Key]; !ok {
		return fmt.Errorf("%w: %s", core.ErrMonthNotFound, ledger.Key)
	}
	previous := s.months[ledger.Key]
	s.months[ledger.Key] = ledger.Clone()
	if err := s.persistData(); err != nil {
		s.months[ledger.Key] = previous
		return err
	}
	return nil
}

func (s *Store) ListMonthKeys(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.months))
	for key := range s.months {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) GetCategories(_ context.Context) (core.CategorySet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(core.CategorySet, len(s.cats))
	copy(out, s.cats)
	return out, nil
}

func (s *Store) SaveCategories(_ context.Context, cats core.CategorySet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.cats
	s.cats = make(core.CategorySet, len(cats))
	copy(s.cats, cats)
	if err := s.persistConfig(); err != nil {
		s.cats = previous
		return err
	}
	return nil
}

func (s *Store) GetRules(_ context.Context) (rules.RuleSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rules.Clone(), nil
}

func (s *Store) SaveRules(_ context.Context, rs rules.RuleSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.rules
	s.rules = rs.Clone()
	if err := s.persistRules(); err != nil {
		s.rules = previous
		return err
	}
	return nil
}

// ---- on-disk documents ----

type categoryDoc struct {
	Percentage    float64  `json:"percentage"`
	Subcategories []string `json:"subcategories"`
}

type configDoc struct {
	Categories    map[string]categoryDoc `json:"categories"`
	FixedExpenses map[string]float64     `json:"fixed_expenses"`
}

type allocationDoc struct {
	Percentage float64 `json:"percentage"`
	Allocated  float64 `json:"allocated"`
	Spent      float64 `json:"spent"`
	Remaining  float64 `json:"remaining"`
}

type budgetDoc struct {
	TotalIncome float64                  `json:"total_income"`
	Categories  map[string]allocationDoc `json:"categories"`
}

type expenseDoc struct {
	ID          string  `json:"id,omitempty"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

type monthDoc struct {
	Created  string       `json:"created"`
	Budget   budgetDoc    `json:"budget"`
	Expenses []expenseDoc `json:"expenses"`
}

type dataDoc struct {
	Months map[string]monthDoc `json:"months"`
}

func (s *Store) loadConfig() error {
	var doc configDoc
	ok, err := s.readJSON(configFile, &doc)
	if err != nil || !ok {
		return err
	}
	names := make([]string, 0, len(doc.Categories))
	for name := range doc.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := doc.Categories[name]
		s.cats = append(s.cats, core.Category{
			Name:          name,
			Percentage:    c.Percentage,
			Subcategories: c.Subcategories,
		})
	}
	return nil
}

func (s *Store) loadData() error {
	var doc dataDoc
	ok, err := s.readJSON(dataFile, &doc)
	if err != nil || !ok {
		return err
	}
	for key, m := range doc.Months {
		ledger := core.MonthLedger{
			Key:     key,
			Created: parseTimestamp(m.Created),
			Plan: core.BudgetPlan{
				TotalIncome: core.FromDollars(m.Budget.TotalIncome),
				Categories:  make(map[string]*core.Allocation, len(m.Budget.Categories)),
			},
		}
		for name, a := range m.Budget.Categories {
			ledger.Plan.Categories[name] = &core.Allocation{
				Percentage: a.Percentage,
				Allocated:  core.FromDollars(a.Allocated),
				Spent:      core.FromDollars(a.Spent),
				Remaining:  core.FromDollars(a.Remaining),
			}
		}
		for _, e := range m.Expenses {
			ledger.Expenses = append(ledger.Expenses, core.Expense{
				ID:          e.ID,
				Date:        parseTimestamp(e.Date),
				Category:    e.Category,
				Amount:      core.FromDollars(e.Amount),
				Description: e.Description,
			})
		}
		s.months[key] = ledger
	}
	return nil
}

func (s *Store) loadRules() error {
	var doc rules.RuleSet
	ok, err := s.readJSON(rulesFile, &doc)
	if err != nil {
		return err
	}
	if ok {
		// The defaults apply only when no persisted rule store exists.
		s.rules = doc
	}
	return nil
}

func (s *Store) persistConfig() error {
	doc := configDoc{
		Categories:    make(map[string]categoryDoc, len(s.cats)),
		FixedExpenses: map[string]float64{},
	}
	for _, c := range s.cats {
		subs := c.Subcategories
		if subs == nil {
			subs = []string{}
		}
		doc.Categories[c.Name] = categoryDoc{Percentage: c.Percentage, Subcategories: subs}
	}
	return s.writeJSON(configFile, doc)
}

func (s *Store) persistData() error {
	doc := dataDoc{Months: make(map[string]monthDoc, len(s.months))}
	for key, ledger := range s.months {
		m := monthDoc{
			Created: ledger.Created.Format(time.RFC3339),
			Budget: budgetDoc{
				TotalIncome: ledger.Plan.TotalIncome.Dollars(),
				Categories:  make(map[string]allocationDoc, len(ledger.Plan.Categories)),
			},
			Expenses: []expenseDoc{},
		}
		for name, a := range ledger.Plan.Categories {
			m.Budget.Categories[name] = allocationDoc{
				Percentage: a.Percentage,
				Allocated:  a.Allocated.Dollars(),
				Spent:      a.Spent.Dollars(),
				Remaining:  a.Remaining.Dollars(),
			}
		}
		for _, e := range ledger.Expenses {
			m.Expenses = append(m.Expenses, expenseDoc{
				ID:          e.ID,
				Date:        e.Date.Format(time.RFC3339),
				Category:    e.Category,
				Amount:      e.Amount.Dollars(),
				Description: e.Description,
			})
		}
		doc.Months[key] = m
	}
	return s.writeJSON(dataFile, doc)
}

func (s *Store) persistRules() error {
	return s.writeJSON(rulesFile, s.rules)
}

// readJSON reads and decodes a document, reporting whether the file existed.
func (s *Store) readJSON(name string, v any) (bool, error) {
	if s.dir == "" {
		return false, nil
	}
	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode: %w", err)
	}
	return true, nil
}

// writeJSON marshals v and replaces the named file atomically.
func (s *Store) writeJSON(name string, v any) error {
	if s.dir == "" {
		return nil
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
