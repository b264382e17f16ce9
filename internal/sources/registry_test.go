package sources

import (
	"testing"

	"github.com/gchickering21/downballot/internal/config"
	dberrors "github.com/gchickering21/downballot/internal/errors"
)

func testRegistry() *Registry {
	return NewRegistry(nil)
}

func TestRegistryList(t *testing.T) {
	ids := testRegistry().List()
	if len(ids) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(ids))
	}
	// Sorted order.
	want := []SourceID{SourceBallotpedia, SourceElectionStats, SourceNCSBE}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("ids[%d] = %s, want %s", i, ids[i], id)
		}
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	_, err := testRegistry().Get("mystery")
	if !dberrors.IsCode(err, dberrors.UnknownSource) {
		t.Errorf("expected UNKNOWN_SOURCE, got %v", err)
	}
}

func TestProfilesAreCapabilityDescriptors(t *testing.T) {
	r := testRegistry()

	ncsbe, _ := r.Get(SourceNCSBE)
	if !ncsbe.DiscoverableUniverse {
		t.Error("ncsbe should have a discoverable universe")
	}
	cfg, err := ncsbe.StateConfigFor("NC")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RetrievalKind != KindZipArchive {
		t.Errorf("NC retrieval kind = %s", cfg.RetrievalKind)
	}
	if cfg.MinSupportedDate.String() != "2008-05-06" {
		t.Errorf("NC floor = %s", cfg.MinSupportedDate)
	}

	es, _ := r.Get(SourceElectionStats)
	if es.DiscoverableUniverse {
		t.Error("electionstats universe should be static")
	}
	va, _ := es.StateConfigFor("VA")
	if va.RetrievalKind != KindTabularHTTP {
		t.Errorf("VA kind = %s", va.RetrievalKind)
	}
	sc, _ := es.StateConfigFor("SC")
	if sc.RetrievalKind != KindBrowser {
		t.Errorf("SC kind = %s", sc.RetrievalKind)
	}
	if _, err := es.StateConfigFor("TX"); !dberrors.IsCode(err, dberrors.UnknownJurisdiction) {
		t.Errorf("uncovered jurisdiction should be UNKNOWN_JURISDICTION, got %v", err)
	}

	bp, _ := r.Get(SourceBallotpedia)
	if bp.SpecializedCategory != CategorySchoolBoard {
		t.Errorf("ballotpedia category = %s", bp.SpecializedCategory)
	}
	if tx, err := bp.StateConfigFor("TX"); err != nil || tx.BaseURL == "" {
		t.Errorf("ballotpedia should cover any state via fallback: %v", err)
	}
}

func TestRegistryJurisdictions(t *testing.T) {
	r := testRegistry()

	nc, err := r.Jurisdictions(SourceNCSBE)
	if err != nil || len(nc) != 1 || nc[0] != "NC" {
		t.Errorf("ncsbe jurisdictions = %v (%v)", nc, err)
	}

	es, err := r.Jurisdictions(SourceElectionStats)
	if err != nil || len(es) != 5 {
		t.Errorf("electionstats jurisdictions = %v (%v)", es, err)
	}

	bp, err := r.Jurisdictions(SourceBallotpedia)
	if err != nil || len(bp) != 51 {
		t.Errorf("ballotpedia should cover all jurisdictions, got %d (%v)", len(bp), err)
	}
}

func TestAvailableRange(t *testing.T) {
	r := testRegistry()

	va, err := r.AvailableRange(SourceElectionStats, "virginia")
	if err != nil {
		t.Fatal(err)
	}
	if va.StartYear != 1789 {
		t.Errorf("VA start year = %d, want 1789", va.StartYear)
	}

	all, err := r.AvailableRange(SourceElectionStats, "")
	if err != nil {
		t.Fatal(err)
	}
	if all.StartYear != 1789 {
		t.Errorf("source-wide start year = %d, want the earliest state floor", all.StartYear)
	}

	nc, err := r.AvailableRange(SourceNCSBE, "NC")
	if err != nil || nc.StartYear != 2008 {
		t.Errorf("NC range = %+v (%v)", nc, err)
	}
}

func TestRegistryOverrides(t *testing.T) {
	overrides := map[string]config.SourceOverride{
		"ncsbe": {BaseURL: "http://localhost:9090"},
		"electionstats": {
			StateBaseURLs: map[string]string{"VA": "http://localhost:8080"},
		},
	}
	r := NewRegistry(overrides)

	ncsbe, _ := r.Get(SourceNCSBE)
	cfg, _ := ncsbe.StateConfigFor("NC")
	if cfg.BaseURL != "http://localhost:9090" {
		t.Errorf("override not applied: %s", cfg.BaseURL)
	}

	es, _ := r.Get(SourceElectionStats)
	va, _ := es.StateConfigFor("VA")
	if va.BaseURL != "http://localhost:8080" {
		t.Errorf("state override not applied: %s", va.BaseURL)
	}
	ma, _ := es.StateConfigFor("MA")
	if ma.BaseURL == "http://localhost:8080" {
		t.Error("override leaked to another state")
	}
}
