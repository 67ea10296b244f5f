package tasklog

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/tbd/internal/domain"
	"github.com/Strob0t/tbd/internal/domain/task"
)

// buildMixedLog returns a log with active, pooled, completed and promoted
// tasks and non-trivial numeric fields.
func buildMixedLog(t *testing.T) *TaskLog {
	t.Helper()
	clock := testNow.Add(123456789 * time.Nanosecond)
	l := New(
		WithClock(func() time.Time { return clock }),
		WithIDGenerator(sequentialIDs()),
	)

	mustSchedule := func(title string, factor float64, days int) {
		if _, err := l.Schedule(title, "desc <"+title+"> & more", factor, task.Days(days)); err != nil {
			t.Fatal(err)
		}
	}
	mustPool := func(title string, p float64, cd, dd int) {
		if _, err := l.Pool(title, "", 0.1+0.2, p, task.Days(cd), task.Days(dd)); err != nil {
			t.Fatal(err)
		}
	}

	mustSchedule("Write report", 1.0, 3)
	mustSchedule("Pay rent", 2.75, 1)
	mustPool("Clean desk", 1.0, 0, 2)
	mustPool("Call mom", 0.333333333333, 7, 1)
	mustPool("Never", 0, 1, 1)

	clock = clock.Add(time.Hour)
	l.Activate(constRand(0.5))
	l.MarkDone("Pay rent")
	return l
}

func assertSameLog(t *testing.T, want, got *TaskLog) {
	t.Helper()
	if !reflect.DeepEqual(want.Actives(), got.Actives()) {
		t.Errorf("actives differ:\nwant %+v\ngot  %+v", want.Actives(), got.Actives())
	}
	if !reflect.DeepEqual(want.Pooled(), got.Pooled()) {
		t.Errorf("pooled differ:\nwant %+v\ngot  %+v", want.Pooled(), got.Pooled())
	}
	if !reflect.DeepEqual(want.Entries(), got.Entries()) {
		t.Errorf("entries differ:\nwant %+v\ngot  %+v", want.Entries(), got.Entries())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	l := buildMixedLog(t)

	snap, err := EncodeSnapshot(l, testNow)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeSnapshot(snap)
	if err != nil {
		t.Fatal(err)
	}

	assertSameLog(t, l, got)
	// 2 schedule, 3 pool, 1 activate, 1 complete
	if snap.Manifest.EntryCount != 7 {
		t.Fatalf("expected 7 entries in manifest, got %d", snap.Manifest.EntryCount)
	}
}

func TestSnapshotRoundTripEmpty(t *testing.T) {
	l := New()
	snap, err := EncodeSnapshot(l, testNow)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeSnapshot(snap)
	if err != nil {
		t.Fatal(err)
	}
	assertSameLog(t, l, got)
}

func TestDocumentRoundTrip(t *testing.T) {
	l := buildMixedLog(t)
	snap, err := EncodeSnapshot(l, testNow)
	if err != nil {
		t.Fatal(err)
	}

	data, err := snap.MarshalDocument()
	if err != nil {
		t.Fatal(err)
	}
	back, err := UnmarshalDocument(data)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeSnapshot(back)
	if err != nil {
		t.Fatal(err)
	}
	assertSameLog(t, l, got)
}

func TestDecodeSnapshotCorruption(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Snapshot)
	}{
		{"wrong format", func(s *Snapshot) { s.Manifest.Format = "tbd/v0" }},
		{"flipped active byte", func(s *Snapshot) { s.Active[len(s.Active)/2] ^= 0x01 }},
		{"truncated pooled", func(s *Snapshot) { s.Pooled = s.Pooled[:len(s.Pooled)-3] }},
		{"truncated log", func(s *Snapshot) { s.Log = s.Log[:len(s.Log)/2] }},
		{"count mismatch", func(s *Snapshot) { s.Manifest.EntryCount++ }},
		{"unknown field", func(s *Snapshot) {
			s.Active = []byte(`[{"title":"x","description":"","factor":1,"due":"2024-01-01T00:00:00Z","extra":1}]`)
			s.Manifest.ActiveSHA256 = checksum(s.Active)
			s.Manifest.ActiveCount = 1
		}},
		{"duplicate title", func(s *Snapshot) {
			s.Active = []byte(`[{"title":"x","description":"","factor":1,"due":"2024-01-01T00:00:00Z"},{"title":"x","description":"","factor":1,"due":"2024-01-01T00:00:00Z"}]`)
			s.Manifest.ActiveSHA256 = checksum(s.Active)
			s.Manifest.ActiveCount = 2
		}},
		{"unknown kind", func(s *Snapshot) {
			s.Log = []byte(strings.Replace(string(s.Log), `"kind":"pool"`, `"kind":"delete"`, 1))
			s.Manifest.LogSHA256 = checksum(s.Log)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := EncodeSnapshot(buildMixedLog(t), testNow)
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(snap)

			if _, err := DecodeSnapshot(snap); !errors.Is(err, domain.ErrCorrupt) {
				t.Fatalf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestUnmarshalDocumentRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "{", `{"manifest":{}} trailing`, `[1,2,3]`} {
		if _, err := UnmarshalDocument([]byte(input)); !errors.Is(err, domain.ErrCorrupt) {
			t.Errorf("input %q: expected ErrCorrupt, got %v", input, err)
		}
	}
}

func TestEncodeActionCoversAllKinds(t *testing.T) {
	samples := map[Kind]Action{
		KindSchedule: ScheduleTask{Task: task.ActiveTask{Task: task.Task{Title: "s"}, Due: testNow}},
		KindPool:     PoolTask{Task: task.PooledTask{Task: task.Task{Title: "p"}, CoolingUntil: testNow}},
		KindComplete: CompleteTask{Task: task.ActiveTask{Task: task.Task{Title: "c"}, Due: testNow}},
		KindActivate: ActivateTask{Tasks: []task.ActiveTask{{Task: task.Task{Title: "a"}, Due: testNow}}},
	}

	for _, k := range Kinds() {
		a, ok := samples[k]
		if !ok {
			t.Fatalf("no sample action for kind %s", k)
		}
		kind, payload, err := EncodeAction(a)
		if err != nil {
			t.Fatalf("%s: %v", k, err)
		}
		e, err := DecodeEntry("id", testNow, kind, payload)
		if err != nil {
			t.Fatalf("%s: %v", k, err)
		}
		if !reflect.DeepEqual(e.Action, a) {
			t.Fatalf("%s: got %+v, want %+v", k, e.Action, a)
		}
		if d := Describe(a); strings.HasPrefix(d, "unknown") {
			t.Fatalf("%s: Describe does not handle kind: %s", k, d)
		}
	}
}
