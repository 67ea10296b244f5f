package task

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Strob0t/tbd/internal/domain"
)

var testNow = time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)

func TestStoreAddActive(t *testing.T) {
	s := NewStore()

	a, err := s.AddActive(Task{Title: "Write report", Factor: 1}, Days(3), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := testNow.Add(72 * time.Hour); !a.Due.Equal(want) {
		t.Fatalf("expected due %v, got %v", want, a.Due)
	}

	got := s.Actives()
	if len(got) != 1 || got[0].Title != "Write report" {
		t.Fatalf("expected [Write report], got %+v", got)
	}
}

func TestStoreAddActiveDuplicate(t *testing.T) {
	s := NewStore()
	if _, err := s.AddActive(Task{Title: "a"}, Days(1), testNow); err != nil {
		t.Fatal(err)
	}

	_, err := s.AddActive(Task{Title: "a", Factor: 2}, Days(5), testNow)
	if !errors.Is(err, domain.ErrDuplicateTitle) {
		t.Fatalf("expected ErrDuplicateTitle, got %v", err)
	}

	got, _ := s.Active("a")
	if got.Factor != 0 {
		t.Fatalf("duplicate insert must not overwrite, got factor %v", got.Factor)
	}
}

func TestStoreNamespacesAreIndependent(t *testing.T) {
	s := NewStore()
	if _, err := s.AddActive(Task{Title: "same"}, Days(1), testNow); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddPooled(Task{Title: "same"}, 0.5, Days(1), Days(1), testNow); err != nil {
		t.Fatalf("pooled insert with active title should succeed, got %v", err)
	}

	active, pooled := s.Len()
	if active != 1 || pooled != 1 {
		t.Fatalf("expected 1/1, got %d/%d", active, pooled)
	}
}

func TestStoreAddPooledEligibleImmediately(t *testing.T) {
	s := NewStore()
	p, err := s.AddPooled(Task{Title: "Clean desk"}, 0.3, Days(4), Days(2), testNow)
	if err != nil {
		t.Fatal(err)
	}
	if !p.CoolingUntil.Equal(testNow) {
		t.Fatalf("expected cooling_until %v, got %v", testNow, p.CoolingUntil)
	}
	if !p.Eligible(testNow) {
		t.Fatal("expected pooled task to be eligible at creation time")
	}
}

func TestStoreValidation(t *testing.T) {
	tests := []struct {
		name string
		add  func(s *Store) error
	}{
		{
			name: "empty title",
			add: func(s *Store) error {
				_, err := s.AddActive(Task{Title: "  "}, Days(1), testNow)
				return err
			},
		},
		{
			name: "NaN factor",
			add: func(s *Store) error {
				_, err := s.AddActive(Task{Title: "x", Factor: math.NaN()}, Days(1), testNow)
				return err
			},
		},
		{
			name: "probability above one",
			add: func(s *Store) error {
				_, err := s.AddPooled(Task{Title: "x"}, 1.5, 0, 0, testNow)
				return err
			},
		},
		{
			name: "negative probability",
			add: func(s *Store) error {
				_, err := s.AddPooled(Task{Title: "x"}, -0.1, 0, 0, testNow)
				return err
			},
		},
		{
			name: "negative cool down",
			add: func(s *Store) error {
				_, err := s.AddPooled(Task{Title: "x"}, 0.5, -Days(1), 0, testNow)
				return err
			},
		},
		{
			name: "negative due days",
			add: func(s *Store) error {
				_, err := s.AddPooled(Task{Title: "x"}, 0.5, 0, -Days(1), testNow)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			if err := tt.add(s); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if a, p := s.Len(); a != 0 || p != 0 {
				t.Fatalf("expected empty store, got %d/%d", a, p)
			}
		})
	}
}

func TestStoreComplete(t *testing.T) {
	s := NewStore()
	if _, err := s.AddActive(Task{Title: "a"}, Days(1), testNow); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.Complete("missing"); ok {
		t.Fatal("expected miss for unknown title")
	}
	a, ok := s.Complete("a")
	if !ok || a.Title != "a" {
		t.Fatalf("expected to complete a, got %+v ok=%v", a, ok)
	}
	if len(s.Actives()) != 0 {
		t.Fatal("expected no active tasks after completion")
	}
}

func TestStoreSnapshotsAreOrderedAndNonNil(t *testing.T) {
	s := NewStore()
	if s.Actives() == nil || s.Pooled() == nil {
		t.Fatal("expected non-nil empty snapshots")
	}

	for _, title := range []string{"charlie", "alpha", "bravo"} {
		if _, err := s.AddActive(Task{Title: title}, Days(1), testNow); err != nil {
			t.Fatal(err)
		}
		if _, err := s.AddPooled(Task{Title: title}, 0.1, 0, Days(1), testNow); err != nil {
			t.Fatal(err)
		}
	}

	actives := s.Actives()
	pooled := s.Pooled()
	for i, want := range []string{"alpha", "bravo", "charlie"} {
		if actives[i].Title != want {
			t.Errorf("actives[%d] = %q, want %q", i, actives[i].Title, want)
		}
		if pooled[i].Title != want {
			t.Errorf("pooled[%d] = %q, want %q", i, pooled[i].Title, want)
		}
	}
}

func TestRestoreRejectsDuplicates(t *testing.T) {
	actives := []ActiveTask{{Task: Task{Title: "a"}}, {Task: Task{Title: "a"}}}
	if _, err := Restore(actives, nil); !errors.Is(err, domain.ErrDuplicateTitle) {
		t.Fatalf("expected ErrDuplicateTitle, got %v", err)
	}

	pooled := []PooledTask{{Task: Task{Title: "p"}}, {Task: Task{Title: "p"}}}
	if _, err := Restore(nil, pooled); !errors.Is(err, domain.ErrDuplicateTitle) {
		t.Fatalf("expected ErrDuplicateTitle, got %v", err)
	}
}

func TestDays(t *testing.T) {
	if got := Days(2); got != 48*time.Hour {
		t.Fatalf("Days(2) = %v", got)
	}
	if got := InDays(Days(7) + time.Hour); got != 7 {
		t.Fatalf("InDays = %d, want 7", got)
	}
}

func TestDaysOfRange(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		wantErr bool
	}{
		{"zero", 0, false},
		{"overdue", -3, false},
		{"largest", MaxDays, false},
		{"smallest", -MaxDays, false},
		{"just past the limit", MaxDays + 1, true},
		{"wraps to minutes", 213504, true},
		{"wraps negative", 150000, true},
		{"far negative", -MaxDays - 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := DaysOf(tt.n)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("DaysOf(%d) = %v, %v; want ErrValidation", tt.n, d, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DaysOf(%d): %v", tt.n, err)
			}
			if InDays(d) != tt.n {
				t.Fatalf("DaysOf(%d) = %v, does not convert back", tt.n, d)
			}
		})
	}
}

func TestDaysSaturates(t *testing.T) {
	if got := Days(213504); got != Days(MaxDays) || got <= 0 {
		t.Fatalf("Days(213504) = %v, want saturation at MaxDays", got)
	}
	if got := Days(-213504); got != Days(-MaxDays) || got >= 0 {
		t.Fatalf("Days(-213504) = %v, want saturation at -MaxDays", got)
	}
}
