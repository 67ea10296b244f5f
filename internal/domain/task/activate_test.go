package task

import (
	"math/rand/v2"
	"testing"
	"time"
)

// fixedRand always returns the same value.
type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

// countingRand returns values from seq in order and counts draws.
type countingRand struct {
	seq   []float64
	draws int
}

func (r *countingRand) Float64() float64 {
	v := r.seq[r.draws%len(r.seq)]
	r.draws++
	return v
}

func TestActivateZeroProbabilityNeverPromotes(t *testing.T) {
	s := NewStore()
	if _, err := s.AddPooled(Task{Title: "never"}, 0, 0, Days(1), testNow); err != nil {
		t.Fatal(err)
	}

	sources := []Rand{fixedRand(0), fixedRand(0.999999), rand.New(rand.NewPCG(1, 2))}
	for _, src := range sources {
		for i := range 100 {
			got := s.Activate(src, testNow.Add(time.Duration(i)*time.Hour), CooldownKeep)
			if len(got) != 0 {
				t.Fatalf("probability 0 promoted %+v", got)
			}
		}
	}
	if _, pooled := s.Len(); pooled != 1 {
		t.Fatalf("expected task to stay pooled, got %d pooled", pooled)
	}
}

func TestActivateCertainPromotion(t *testing.T) {
	s := NewStore()
	if _, err := s.AddPooled(Task{Title: "Clean desk", Factor: 1}, 1, 0, Days(2), testNow); err != nil {
		t.Fatal(err)
	}

	got := s.Activate(fixedRand(0), testNow, CooldownKeep)
	if len(got) != 1 || got[0].Title != "Clean desk" {
		t.Fatalf("expected Clean desk promoted, got %+v", got)
	}
	if want := testNow.Add(48 * time.Hour); !got[0].Due.Equal(want) {
		t.Fatalf("expected due %v, got %v", want, got[0].Due)
	}
	if _, ok := s.Active("Clean desk"); !ok {
		t.Fatal("expected promoted task in active collection")
	}
	if _, pooled := s.Len(); pooled != 0 {
		t.Fatal("expected promoted task removed from pool")
	}
}

func TestActivateCoolingTaskIsSkipped(t *testing.T) {
	s := NewStore()
	if _, err := s.AddPooled(Task{Title: "cooling"}, 1, Days(3), Days(1), testNow); err != nil {
		t.Fatal(err)
	}
	// Force a future cooldown.
	p := s.pooled["cooling"]
	p.CoolingUntil = testNow.Add(Days(3))
	s.pooled["cooling"] = p

	rng := &countingRand{seq: []float64{0}}
	for _, at := range []time.Time{testNow, testNow.Add(Days(3) - time.Second)} {
		if got := s.Activate(rng, at, CooldownKeep); len(got) != 0 {
			t.Fatalf("cooling task promoted at %v", at)
		}
	}
	if rng.draws != 0 {
		t.Fatalf("cooling task must not consume draws, got %d", rng.draws)
	}

	if got := s.Activate(rng, testNow.Add(Days(3)), CooldownKeep); len(got) != 1 {
		t.Fatal("expected promotion once cooling_until <= now")
	}
}

func TestActivateOneDrawPerEligibleTaskInTitleOrder(t *testing.T) {
	s := NewStore()
	for _, title := range []string{"c", "a", "b"} {
		if _, err := s.AddPooled(Task{Title: title}, 0.5, 0, Days(1), testNow); err != nil {
			t.Fatal(err)
		}
	}

	// a draws 0.9 (miss), b draws 0.1 (hit), c draws 0.9 (miss)
	rng := &countingRand{seq: []float64{0.9, 0.1, 0.9}}
	got := s.Activate(rng, testNow, CooldownKeep)

	if rng.draws != 3 {
		t.Fatalf("expected 3 draws, got %d", rng.draws)
	}
	if len(got) != 1 || got[0].Title != "b" {
		t.Fatalf("expected only b promoted, got %+v", got)
	}
}

func TestActivateSkipsTitleAlreadyActive(t *testing.T) {
	s := NewStore()
	if _, err := s.AddActive(Task{Title: "dup", Factor: 7}, Days(1), testNow); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddPooled(Task{Title: "dup"}, 1, 0, Days(5), testNow); err != nil {
		t.Fatal(err)
	}

	rng := &countingRand{seq: []float64{0}}
	if got := s.Activate(rng, testNow, CooldownKeep); len(got) != 0 {
		t.Fatalf("expected no promotion over an active title, got %+v", got)
	}
	if rng.draws != 0 {
		t.Fatalf("expected no draw for blocked task, got %d", rng.draws)
	}
	if a, _ := s.Active("dup"); a.Factor != 7 {
		t.Fatal("active task must not be overwritten")
	}
}

func TestActivateCooldownPolicies(t *testing.T) {
	tests := []struct {
		name   string
		policy CooldownPolicy
		want   time.Time
	}{
		{"keep", CooldownKeep, testNow},
		{"advance", CooldownAdvance, testNow.Add(Days(1)).Add(Days(4))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			if _, err := s.AddPooled(Task{Title: "p"}, 0.2, Days(4), Days(1), testNow); err != nil {
				t.Fatal(err)
			}

			got := s.Activate(fixedRand(0.5), testNow.Add(Days(1)), tt.policy)
			if len(got) != 0 {
				t.Fatalf("expected miss, got %+v", got)
			}
			p := s.Pooled()[0]
			if !p.CoolingUntil.Equal(tt.want) {
				t.Fatalf("cooling_until = %v, want %v", p.CoolingUntil, tt.want)
			}
		})
	}
}

func TestActivateResultNeverNil(t *testing.T) {
	s := NewStore()
	if got := s.Activate(fixedRand(0), testNow, CooldownKeep); got == nil {
		t.Fatal("expected non-nil empty result")
	}
}

func TestActivateSeededIsReproducible(t *testing.T) {
	build := func() *Store {
		s := NewStore()
		for _, title := range []string{"a", "b", "c", "d", "e", "f"} {
			if _, err := s.AddPooled(Task{Title: title}, 0.5, 0, Days(1), testNow); err != nil {
				t.Fatal(err)
			}
		}
		return s
	}

	first := build().Activate(rand.New(rand.NewPCG(42, 7)), testNow, CooldownKeep)
	second := build().Activate(rand.New(rand.NewPCG(42, 7)), testNow, CooldownKeep)

	if len(first) != len(second) {
		t.Fatalf("expected identical results, got %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Title != second[i].Title {
			t.Fatalf("result %d differs: %q vs %q", i, first[i].Title, second[i].Title)
		}
	}
}

func TestParseCooldownPolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    CooldownPolicy
		wantErr bool
	}{
		{"", CooldownKeep, false},
		{"keep", CooldownKeep, false},
		{"advance", CooldownAdvance, false},
		{"sometimes", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCooldownPolicy(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
