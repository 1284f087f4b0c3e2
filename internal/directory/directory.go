// Package directory holds the employee roster and the expense approval
// ladder. Both are loaded once from JSON files and served read-only.
package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// ErrNotFound is returned when an employee ID has no roster entry.
var ErrNotFound = errors.New("employee not found")

// Employee is a single roster entry.
type Employee struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	Title      string `json:"title"`
	Department string `json:"department"`
	ManagerID  string `json:"manager_id,omitempty"`
}

// LevelCategory maps a numeric level to its seniority band.
func LevelCategory(level int) string {
	switch {
	case level <= 3:
		return "Individual Contributor"
	case level <= 6:
		return "Senior Individual Contributor"
	case level <= 8:
		return "Senior Manager"
	case level <= 10:
		return "Director"
	case level <= 12:
		return "VP"
	default:
		return "SVP and above"
	}
}

// Store serves employee lookups and approval checks.
type Store struct {
	employees map[string]Employee
	ids       []string
	rules     RuleSet
}

type employeesFile struct {
	Employees []Employee `json:"employees"`
}

// Load reads the roster and the approval rule set from disk.
func Load(employeesPath, rulesPath string) (*Store, error) {
	raw, err := os.ReadFile(employeesPath)
	if err != nil {
		return nil, fmt.Errorf("read employees: %w", err)
	}
	var ef employeesFile
	if err := json.Unmarshal(raw, &ef); err != nil {
		return nil, fmt.Errorf("parse employees: %w", err)
	}
	if len(ef.Employees) == 0 {
		return nil, fmt.Errorf("no employees in %s", employeesPath)
	}

	rules, err := LoadRules(rulesPath)
	if err != nil {
		return nil, err
	}
	return NewStore(ef.Employees, rules), nil
}

// NewStore builds a store from in-memory data.
func NewStore(employees []Employee, rules RuleSet) *Store {
	s := &Store{
		employees: make(map[string]Employee, len(employees)),
		rules:     rules,
	}
	for _, e := range employees {
		s.employees[e.ID] = e
		s.ids = append(s.ids, e.ID)
	}
	sort.Strings(s.ids)
	return s
}

// Employee looks up a roster entry by ID.
func (s *Store) Employee(id string) (Employee, error) {
	e, ok := s.employees[id]
	if !ok {
		return Employee{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// ValidIDs returns every known employee ID in sorted order.
func (s *Store) ValidIDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Rules returns the loaded approval rule set.
func (s *Store) Rules() RuleSet {
	return s.rules
}
