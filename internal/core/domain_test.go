package core

import (
	"errors"
	"testing"
)

func TestCategoryValidate(t *testing.T) {
	cases := []struct {
		c  Category
		ok bool
	}{
		{Category{Name: "Necessities", Percentage: 60}, true},
		{Category{Name: "  ", Percentage: 60}, false},
		{Category{Name: "Fun", Percentage: 0}, false},
		{Category{Name: "Fun", Percentage: -5}, false},
	}
	for i, tc := range cases {
		err := tc.c.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCategorySetAddRemove(t *testing.T) {
	var cs CategorySet

	cs, err := cs.Add(Category{Name: "Necessities", Percentage: 60})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	cs, err = cs.Add(Category{Name: "Discretionary", Percentage: 40})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := cs.Add(Category{Name: "Necessities", Percentage: 10}); !errors.Is(err, ErrDuplicateCategory) {
		t.Fatalf("expected ErrDuplicateCategory, got %v", err)
	}
	if sum := cs.PercentageSum(); sum != 100 {
		t.Fatalf("expected sum 100, got %v", sum)
	}

	cs, err = cs.Remove("Necessities")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := cs.Lookup("Necessities"); ok {
		t.Fatal("category should be gone after remove")
	}
	if _, err := cs.Remove("Necessities"); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestValidMonthKey(t *testing.T) {
	cases := []struct {
		key string
		ok  bool
	}{
		{"2026-08", true},
		{"1999-12", true},
		{"2026-13", false},
		{"2026-8", false},
		{"202608", false},
		{"abcd-ef", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidMonthKey(tc.key); got != tc.ok {
			t.Fatalf("%q: expected %v, got %v", tc.key, tc.ok, got)
		}
	}
}
