package merge

import (
	"testing"

	"github.com/jdfmerge/jdfmerge/pkg/jdf"
)

// addRouteBatch feeds the engine one batch holding a single route
// variant plus the agency it references
func addRouteBatch(t *testing.T, engine *Engine, batchID string, date string, route *jdf.Route) {
	t.Helper()

	batch := testBatch(t, batchID, date)
	batch.Agencies = []*jdf.Agency{testAgency("123", "Springfield Transit")}
	batch.Routes = []*jdf.Route{route}

	if err := engine.Add(batch); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
}

type interval struct {
	from   string
	to     string
	detour bool
}

// assertVariants resolves overlaps and checks the surviving variants of
// one license number against the expected intervals, in distinction order
func assertVariants(t *testing.T, engine *Engine, license string, expected []interval) *jdf.Batch {
	t.Helper()

	if err := engine.ResolveOverlaps(); err != nil {
		t.Fatalf("ResolveOverlaps failed: %v", err)
	}
	dataset := engine.Snapshot()

	var survivors []*jdf.Route
	for _, route := range dataset.Routes {
		if route.LicenseNumber == license {
			survivors = append(survivors, route)
		}
	}

	if len(survivors) != len(expected) {
		t.Fatalf("Expected %d surviving variants, got %d: %+v", len(expected), len(survivors), survivors)
	}

	for index, want := range expected {
		got := survivors[index]
		if got.ValidFrom.String() != want.from || got.ValidTo.String() != want.to {
			t.Errorf("Variant %d: expected %s..%s, got %s..%s", index, want.from, want.to, got.ValidFrom, got.ValidTo)
		}
		if got.Detour != want.detour {
			t.Errorf("Variant %d: expected detour=%v", index, want.detour)
		}
	}

	// No two survivors of one license may share a day
	for i := 0; i < len(survivors); i++ {
		for j := i + 1; j < len(survivors); j++ {
			a, b := survivors[i], survivors[j]
			if !a.ValidTo.Before(b.ValidFrom) && !b.ValidTo.Before(a.ValidFrom) {
				t.Errorf("Variants %d and %d overlap: %s..%s vs %s..%s", i, j,
					a.ValidFrom, a.ValidTo, b.ValidFrom, b.ValidTo)
			}
		}
	}

	return dataset
}

func TestResolveDisjointUnchanged(t *testing.T) {
	engine := New(Options{})
	addRouteBatch(t, engine, "A", "15122023", testRoute("100001", "01012024", "30062024", false))
	addRouteBatch(t, engine, "B", "15052024", testRoute("100001", "01072024", "31122024", false))

	assertVariants(t, engine, "100001", []interval{
		{"01012024", "30062024", false},
		{"01072024", "31122024", false},
	})
}

func TestResolveIdenticalIntervals(t *testing.T) {
	engine := New(Options{})
	addRouteBatch(t, engine, "A", "15122023", testRoute("100001", "01012024", "31122024", false))
	addRouteBatch(t, engine, "B", "15052024", testRoute("100001", "01012024", "31122024", false))

	// Equal detour status, so the newer batch survives - that is the
	// second variant
	dataset := assertVariants(t, engine, "100001", []interval{
		{"01012024", "31122024", false},
	})

	if dataset.Routes[0].Distinction != 2 {
		t.Errorf("Expected the newer variant to survive, got distinction %d", dataset.Routes[0].Distinction)
	}
}

func TestResolveIdenticalIntervalsFullTie(t *testing.T) {
	engine := New(Options{})

	batch := testBatch(t, "A", "15122023")
	batch.Agencies = []*jdf.Agency{testAgency("123", "Springfield Transit")}
	first := testRoute("100001", "01012024", "31122024", false)
	second := testRoute("100001", "01012024", "31122024", false)
	second.Distinction = 2
	batch.Routes = []*jdf.Route{first, second}

	if err := engine.Add(batch); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// Same detour status, same source date: insertion order decides
	dataset := assertVariants(t, engine, "100001", []interval{
		{"01012024", "31122024", false},
	})

	if dataset.Routes[0].Distinction != 1 {
		t.Errorf("Expected the first-inserted variant to survive, got distinction %d", dataset.Routes[0].Distinction)
	}
}

func TestResolvePrefixIntervals(t *testing.T) {
	// Same start; the longer variant is newer so the shorter one is
	// deleted outright
	engine := New(Options{})
	addRouteBatch(t, engine, "A", "15122023", testRoute("100001", "01012024", "30062024", false))
	addRouteBatch(t, engine, "B", "15052024", testRoute("100001", "01012024", "31122024", false))

	assertVariants(t, engine, "100001", []interval{
		{"01012024", "31122024", false},
	})
}

func TestResolvePrefixShorterHasPriority(t *testing.T) {
	// Same start; the shorter variant is newer, so the longer one keeps
	// only the tail after the shorter's end
	engine := New(Options{})
	addRouteBatch(t, engine, "A", "15122023", testRoute("100001", "01012024", "31122024", false))
	addRouteBatch(t, engine, "B", "15052024", testRoute("100001", "01012024", "30062024", false))

	assertVariants(t, engine, "100001", []interval{
		{"01072024", "31122024", false},
		{"01012024", "30062024", false},
	})
}

func TestResolveSuffixShorterHasPriority(t *testing.T) {
	// Same end; the shorter, newer variant wins the shared span and the
	// longer one is truncated to end the day before it starts
	engine := New(Options{})
	addRouteBatch(t, engine, "A", "15122023", testRoute("100001", "01012024", "31122024", false))
	addRouteBatch(t, engine, "B", "15052024", testRoute("100001", "01072024", "31122024", false))

	assertVariants(t, engine, "100001", []interval{
		{"01012024", "30062024", false},
		{"01072024", "31122024", false},
	})
}

func TestResolveStaggeredOverlap(t *testing.T) {
	// Partial overlap, older variant opens first: its end is pulled back
	// to the day before the newer one starts
	engine := New(Options{})
	addRouteBatch(t, engine, "A", "15122023", testRoute("100001", "01012024", "31082024", false))
	addRouteBatch(t, engine, "B", "15052024", testRoute("100001", "01062024", "31122024", false))

	assertVariants(t, engine, "100001", []interval{
		{"01012024", "31052024", false},
		{"01062024", "31122024", false},
	})
}

func TestResolveStaggeredPriorityFirst(t *testing.T) {
	// The earlier-opening variant is the newer one, so the later-opening
	// variant's start moves to the day after it ends
	engine := New(Options{})
	addRouteBatch(t, engine, "A", "15122023", testRoute("100001", "01062024", "31122024", false))
	addRouteBatch(t, engine, "B", "15052024", testRoute("100001", "01012024", "31082024", false))

	assertVariants(t, engine, "100001", []interval{
		{"01092024", "31122024", false},
		{"01012024", "31082024", false},
	})
}

func TestResolveContainmentDeletesContained(t *testing.T) {
	// The containing variant outranks the contained one (same detour
	// status, newer batch), so the contained variant disappears
	engine := New(Options{})
	addRouteBatch(t, engine, "A", "15122023", testRoute("100001", "01032024", "15032024", false))
	addRouteBatch(t, engine, "B", "15052024", testRoute("100001", "01012024", "30062024", false))

	assertVariants(t, engine, "100001", []interval{
		{"01012024", "30062024", false},
	})
}

func TestResolveContainmentSplitsContainer(t *testing.T) {
	// The coverage conservation case: a detour from a newer batch is cut
	// out of an older full-year variant, which splits into two remnants
	// that together cover exactly the original days
	engine := New(Options{})
	addRouteBatch(t, engine, "A", "15122023", testRoute("100001", "01012024", "30062024", false))
	addRouteBatch(t, engine, "B", "15052024", testRoute("100001", "01032024", "15032024", true))

	assertVariants(t, engine, "100001", []interval{
		{"01012024", "29022024", false},
		{"01032024", "15032024", true},
		{"16032024", "30062024", false},
	})
}

func TestResolveSplitDuplicatesDependents(t *testing.T) {
	engine := New(Options{})

	outer := testBatch(t, "A", "15122023")
	outer.Stops = []*jdf.Stop{springfieldStop(1)}
	outer.Agencies = []*jdf.Agency{testAgency("123", "Springfield Transit")}
	outer.Routes = []*jdf.Route{testRoute("100001", "01012024", "30062024", false)}
	outer.Trips = []*jdf.Trip{{LicenseNumber: "100001", TripNumber: 1, Distinction: 1}}
	outer.TripStops = []*jdf.TripStop{{
		LicenseNumber: "100001",
		TripNumber:    1,
		TariffNumber:  1,
		StopID:        1,
		Arrival:       "0800",
		Departure:     "0800",
		Distinction:   1,
	}}

	inner := testBatch(t, "B", "15052024")
	inner.Agencies = []*jdf.Agency{testAgency("123", "Springfield Transit")}
	inner.Routes = []*jdf.Route{testRoute("100001", "01032024", "15032024", true)}

	if err := engine.Add(outer); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := engine.Add(inner); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := engine.ResolveOverlaps(); err != nil {
		t.Fatalf("ResolveOverlaps failed: %v", err)
	}
	dataset := engine.Snapshot()

	if len(dataset.Routes) != 3 {
		t.Fatalf("Expected 3 surviving variants, got %d", len(dataset.Routes))
	}

	// Both remnants of the split carry the full trip pattern
	if len(dataset.Trips) != 2 {
		t.Errorf("Expected trips under both remnant distinctions, got %d", len(dataset.Trips))
	}
	if len(dataset.TripStops) != 2 {
		t.Errorf("Expected trip stops under both remnant distinctions, got %d", len(dataset.TripStops))
	}

	assertDatasetIntegrity(t, dataset)
}

func TestResolveDeletionCascades(t *testing.T) {
	engine := New(Options{})

	first := testBatch(t, "A", "15122023")
	first.Stops = []*jdf.Stop{springfieldStop(1)}
	first.Agencies = []*jdf.Agency{testAgency("123", "Springfield Transit")}
	first.Routes = []*jdf.Route{testRoute("100001", "01012024", "31122024", false)}
	first.Trips = []*jdf.Trip{{LicenseNumber: "100001", TripNumber: 1, Distinction: 1}}
	first.ServiceNotes = []*jdf.ServiceNote{{LicenseNumber: "100001", TripNumber: 1, NoteID: 1, Distinction: 1}}

	second := testBatch(t, "B", "15052024")
	second.Agencies = []*jdf.Agency{testAgency("123", "Springfield Transit")}
	second.Routes = []*jdf.Route{testRoute("100001", "01012024", "31122024", false)}

	if err := engine.Add(first); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := engine.Add(second); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := engine.ResolveOverlaps(); err != nil {
		t.Fatalf("ResolveOverlaps failed: %v", err)
	}
	dataset := engine.Snapshot()

	// The older identical variant lost, its trips and notes go with it
	if len(dataset.Routes) != 1 || dataset.Routes[0].Distinction != 2 {
		t.Fatalf("Expected only the newer variant to survive: %+v", dataset.Routes)
	}
	if len(dataset.Trips) != 0 {
		t.Errorf("Expected cascade-deleted trips, got %d", len(dataset.Trips))
	}
	if len(dataset.ServiceNotes) != 0 {
		t.Errorf("Expected cascade-deleted service notes, got %d", len(dataset.ServiceNotes))
	}
}

func TestResolveNewerRegularOverridesDetour(t *testing.T) {
	// A detour normally outranks a regular variant, but not when the
	// regular variant comes from a strictly newer batch
	engine := New(Options{})
	addRouteBatch(t, engine, "A", "15122023", testRoute("100001", "01012024", "31122024", true))
	addRouteBatch(t, engine, "B", "15052024", testRoute("100001", "01012024", "31122024", false))

	dataset := assertVariants(t, engine, "100001", []interval{
		{"01012024", "31122024", false},
	})
	if dataset.Routes[0].Detour {
		t.Errorf("Expected the regular variant to survive")
	}
}

func TestResolveDetourWinsAgainstSameDateRegular(t *testing.T) {
	engine := New(Options{})
	addRouteBatch(t, engine, "A", "15052024", testRoute("100001", "01012024", "31122024", false))
	addRouteBatch(t, engine, "B", "15052024", testRoute("100001", "01012024", "31122024", true))

	assertVariants(t, engine, "100001", []interval{
		{"01012024", "31122024", true},
	})
}

func TestResolveEndToEndScenario(t *testing.T) {
	// Two sources contribute the same stop, agencies sharing an external
	// number, and overlapping variants of one line; the detour cuts a
	// hole into the original's validity
	engine := New(Options{})

	batchA := testBatch(t, "A", "15122023")
	batchA.Stops = []*jdf.Stop{springfieldStop(4)}
	batchA.Agencies = []*jdf.Agency{testAgency("123", "Springfield Transit")}
	batchA.Routes = []*jdf.Route{testRoute("R1", "01012024", "31122024", false)}

	batchB := testBatch(t, "B", "15052024")
	batchB.Stops = []*jdf.Stop{springfieldStop(9)}
	batchB.Agencies = []*jdf.Agency{testAgency("123", "Springfield Transit Co")}
	batchB.Routes = []*jdf.Route{testRoute("R1", "01062024", "30062024", true)}

	if err := engine.Add(batchA); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := engine.Add(batchB); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	dataset := assertVariants(t, engine, "R1", []interval{
		{"01012024", "31052024", false},
		{"01062024", "30062024", true},
		{"01072024", "31122024", false},
	})

	if len(dataset.Stops) != 1 {
		t.Errorf("Expected 1 stop, got %d", len(dataset.Stops))
	}
	if len(dataset.Agencies) != 2 {
		t.Errorf("Expected 2 agencies, got %d", len(dataset.Agencies))
	}

	assertDatasetIntegrity(t, dataset)
}

func TestAddAfterResolveFails(t *testing.T) {
	engine := New(Options{})

	if err := engine.ResolveOverlaps(); err != nil {
		t.Fatalf("ResolveOverlaps failed: %v", err)
	}

	if err := engine.Add(testBatch(t, "A", "15122023")); err == nil {
		t.Fatal("Expected error adding after overlap resolution")
	}
}
