package normalize

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"faa_registry/internal/manifest"
)

const masterHeader = "N-NUMBER,SERIAL NUMBER,MFR MDL CODE,ENG MFR MDL,YEAR MFR," +
	"TYPE AIRCRAFT,CERTIFICATION,STATUS CODE,LAST ACTION DATE,EXPIRATION DATE," +
	"TYPE REGISTRANT,NAME,STREET,STREET2,CITY,STATE,ZIP CODE"

const masterHeaderCoOwners = masterHeader +
	",OTHER NAMES(1),OTHER NAMES(2),OTHER NAMES(3),OTHER NAMES(4),OTHER NAMES(5)"

func writeFile(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// writeRefs writes minimal make/model and engine extracts so Run has all
// three sources.
func writeRefs(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, dir, MakeModelFilename,
		"CODE,MFR,MODEL,TYPE-ACFT,TYPE-ENG,AC-CAT,NO-SEATS",
		"05T,CESSNA,172,4,1,1,4",
	)
	writeFile(t, dir, EngineFilename,
		"CODE,MFR,MODEL,TYPE,HORSEPOWER",
		"ENG1,LYCOMING,O-320,1,150",
	)
}

func TestRunThreeRowMaster(t *testing.T) {
	dir := t.TempDir()
	writeRefs(t, dir)
	// Second row carries an unparseable manufacture year.
	writeFile(t, dir, MasterFilename,
		masterHeader,
		"100AB,S1,05T,ENG1,1998,4,1,V,20230101,20251231,3,ACME AVIATION LLC,1 HANGAR RD,,MIAMI,FL,33101",
		"200CD,S2,05T,ENG1,19XX,4,1,V,20230202,20251130,1,SMITH JOHN,2 FIELD AVE,,AUSTIN,TX,78701",
		"300EF,S3,05T,ENG1,2001,4,1,V,20230303,20251031,7,BLUE SKY LLC,3 APRON WAY,STE 9,DENVER,CO,80201",
	)

	res, err := Run(dir, Options{ErrorThreshold: 0.5})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := len(res.Snapshot.Aircraft); got != 2 {
		t.Errorf("aircraft rows = %d, want 2", got)
	}
	if got := len(res.Snapshot.Registrations); got != 2 {
		t.Errorf("registration rows = %d, want 2", got)
	}
	if got := len(res.Errors); got != 1 {
		t.Fatalf("row errors = %d, want 1: %v", got, res.Errors)
	}
	re := res.Errors[0]
	if re.SourceFile != MasterFilename || re.RowIndex != 2 || re.Field != "year_mfr" {
		t.Errorf("row error = %+v, want MASTER.txt row 2 field year_mfr", re)
	}

	// The registration rows must mirror the aircraft status fields.
	for i, a := range res.Snapshot.Aircraft {
		r := res.Snapshot.Registrations[i]
		if a.NNumber != r.NNumber {
			t.Fatalf("row %d: aircraft %q vs registration %q", i, a.NNumber, r.NNumber)
		}
		if a.RegStatus != r.RegStatus {
			t.Errorf("%s: reg_status %q != %q", a.NNumber, a.RegStatus, r.RegStatus)
		}
		if (a.StatusDate == nil) != (r.StatusDate == nil) ||
			(a.StatusDate != nil && !a.StatusDate.Equal(*r.StatusDate)) {
			t.Errorf("%s: status_date mismatch", a.NNumber)
		}
		if (a.RegExpiration == nil) != (r.RegExpiration == nil) ||
			(a.RegExpiration != nil && !a.RegExpiration.Equal(*r.RegExpiration)) {
			t.Errorf("%s: reg_expiration mismatch", a.NNumber)
		}
	}

	if res.Snapshot.Aircraft[0].YearMfr == nil || *res.Snapshot.Aircraft[0].YearMfr != 1998 {
		t.Errorf("year_mfr = %v, want 1998", res.Snapshot.Aircraft[0].YearMfr)
	}
	if res.RowsRead[MasterFilename] != 3 {
		t.Errorf("rows read = %d, want 3", res.RowsRead[MasterFilename])
	}
}

func TestRunOwnerFanOut(t *testing.T) {
	dir := t.TempDir()
	writeRefs(t, dir)
	writeFile(t, dir, MasterFilename,
		masterHeaderCoOwners,
		"100AB,S1,05T,ENG1,1998,4,1,V,20230101,20251231,4,SMITH JOHN,1 HANGAR RD,,MIAMI,FL,33101,DOE JANE,,,,",
	)

	res, err := Run(dir, Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	owners := res.Snapshot.Owners
	if len(owners) != 2 {
		t.Fatalf("owner rows = %d, want 2", len(owners))
	}
	if owners[0].NNumber != "100AB" || owners[1].NNumber != "100AB" {
		t.Errorf("owners share n_number 100AB, got %q and %q", owners[0].NNumber, owners[1].NNumber)
	}
	if owners[0].OwnerID == owners[1].OwnerID {
		t.Errorf("co-owners share fingerprint %d", owners[0].OwnerID)
	}
	if owners[0].AddressAllStd != owners[1].AddressAllStd {
		t.Errorf("co-owners should share the address block: %q vs %q",
			owners[0].AddressAllStd, owners[1].AddressAllStd)
	}
	if owners[1].OwnerNameStd != "DOE JANE" {
		t.Errorf("co-owner name = %q, want %q", owners[1].OwnerNameStd, "DOE JANE")
	}
}

func TestRunDuplicateMark(t *testing.T) {
	dir := t.TempDir()
	writeRefs(t, dir)
	writeFile(t, dir, MasterFilename,
		masterHeader,
		"100AB,S1,05T,ENG1,1998,4,1,V,20230101,20251231,3,FIRST OWNER,1 A ST,,MIAMI,FL,33101",
		"100AB,S2,05T,ENG1,1999,4,1,V,20230101,20251231,3,SECOND OWNER,2 B ST,,MIAMI,FL,33101",
	)

	res, err := Run(dir, Options{ErrorThreshold: 0.9})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := len(res.Snapshot.Aircraft); got != 1 {
		t.Fatalf("aircraft rows = %d, want 1", got)
	}
	if res.Snapshot.Aircraft[0].SerialNo != "S1" {
		t.Errorf("kept serial = %q, want first occurrence S1", res.Snapshot.Aircraft[0].SerialNo)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0].Reason, "duplicate") {
		t.Errorf("errors = %v, want one duplicate entry", res.Errors)
	}
}

func TestRunMarkShape(t *testing.T) {
	dir := t.TempDir()
	writeRefs(t, dir)
	writeFile(t, dir, MasterFilename,
		masterHeader,
		"1%3AB,S1,05T,ENG1,1998,4,1,V,20230101,20251231,3,OWNER,1 A ST,,MIAMI,FL,33101",
	)

	// Every master row fails here, so the threshold must sit at the top of
	// its range for the run to survive.
	res, err := Run(dir, Options{ErrorThreshold: 1})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(res.Snapshot.Aircraft) != 0 {
		t.Errorf("aircraft rows = %d, want 0", len(res.Snapshot.Aircraft))
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0].Reason, "shape") {
		t.Errorf("errors = %v, want one shape-check entry", res.Errors)
	}
}

func TestRunThresholdAbort(t *testing.T) {
	dir := t.TempDir()
	writeRefs(t, dir)
	writeFile(t, dir, MasterFilename,
		masterHeader,
		"100AB,S1,05T,ENG1,BAD1,4,1,V,20230101,20251231,3,OWNER,1 A ST,,MIAMI,FL,33101",
		"200CD,S2,05T,ENG1,BAD2,4,1,V,20230101,20251231,3,OWNER,1 A ST,,MIAMI,FL,33101",
		"300EF,S3,05T,ENG1,2001,4,1,V,20230101,20251231,3,OWNER,1 A ST,,MIAMI,FL,33101",
	)

	_, err := Run(dir, Options{ErrorThreshold: 0.5})
	var terr *ThresholdExceededError
	if !errors.As(err, &terr) {
		t.Fatalf("Run error = %v, want ThresholdExceededError", err)
	}
	if terr.SourceFile != MasterFilename || terr.FailedRows != 2 || terr.TotalRows != 3 {
		t.Errorf("threshold error = %+v, want 2 of 3 failed in MASTER.txt", terr)
	}
	if len(terr.Sample) == 0 {
		t.Error("threshold error carries no sample rows")
	}
	if !strings.Contains(terr.Error(), "MASTER.txt") {
		t.Errorf("message %q does not name the source file", terr.Error())
	}
}

func TestRunMissingColumn(t *testing.T) {
	dir := t.TempDir()
	writeRefs(t, dir)
	writeFile(t, dir, MasterFilename,
		strings.Replace(masterHeader, "STATUS CODE", "STATUS", 1),
		"100AB,S1,05T,ENG1,1998,4,1,V,20230101,20251231,3,OWNER,1 A ST,,MIAMI,FL,33101",
	)

	_, err := Run(dir, Options{})
	if err == nil || !strings.Contains(err.Error(), "missing required columns") {
		t.Fatalf("Run error = %v, want missing-column failure", err)
	}
	if !strings.Contains(err.Error(), "STATUS CODE") {
		t.Errorf("error %q does not name the missing column", err.Error())
	}
}

func TestRunMissingSourceFile(t *testing.T) {
	dir := t.TempDir()
	writeRefs(t, dir) // no MASTER.txt

	_, err := Run(dir, Options{})
	if err == nil || !strings.Contains(err.Error(), MasterFilename) {
		t.Fatalf("Run error = %v, want failure naming MASTER.txt", err)
	}
}

func TestMakeModelDuplicateAndBadSeats(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, MakeModelFilename,
		"CODE,MFR,MODEL,TYPE-ACFT,TYPE-ENG,AC-CAT,NO-SEATS",
		"05T,CESSNA,172,4,1,1,4",
		"05T,CESSNA,172SP,4,1,1,4",
		"06T,PIPER,PA-28,4,1,1,FOUR",
	)
	writeFile(t, dir, EngineFilename,
		"CODE,MFR,MODEL,TYPE,HORSEPOWER",
		"ENG1,LYCOMING,O-320,1,150",
	)
	writeFile(t, dir, MasterFilename,
		masterHeader,
		"100AB,S1,05T,ENG1,1998,4,1,V,20230101,20251231,3,OWNER,1 A ST,,MIAMI,FL,33101",
	)

	res, err := Run(dir, Options{ErrorThreshold: 0.9})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := len(res.Snapshot.MakeModels); got != 1 {
		t.Errorf("make_model rows = %d, want 1", got)
	}
	if res.Snapshot.MakeModels[0].Model != "172" {
		t.Errorf("kept model = %q, want first occurrence 172", res.Snapshot.MakeModels[0].Model)
	}
	if got := len(res.Errors); got != 2 {
		t.Errorf("row errors = %d, want 2 (duplicate code, bad seats)", got)
	}
}

func TestWriteOutput(t *testing.T) {
	dir := t.TempDir()
	writeRefs(t, dir)
	writeFile(t, dir, MasterFilename,
		masterHeader,
		"100AB,S1,05T,ENG1,1998,4,1,V,20230101,20251231,3,OWNER,1 A ST,,MIAMI,FL,33101",
	)

	res, err := Run(dir, Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	out := filepath.Join(dir, "normalized")
	src := &manifest.Fetch{SnapshotDate: "2025-08-20"}
	if err := WriteOutput(out, "2025-08-20", res, src); err != nil {
		t.Fatalf("WriteOutput returned error: %v", err)
	}

	for _, name := range []string{
		"aircraft.parquet", "registrations.parquet", "owners.parquet",
		"aircraft_make_model.parquet", "engines.parquet",
		"errors.json", "normalize.json",
	} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}

	n, err := manifest.ReadNormalize(filepath.Join(out, "normalize.json"))
	if err != nil {
		t.Fatalf("ReadNormalize returned error: %v", err)
	}
	if n.Generation != "2025-08-20" || n.Tables["aircraft"].Rows != 1 {
		t.Errorf("normalize manifest = %+v, want generation 2025-08-20 with 1 aircraft row", n)
	}
	if n.Source == nil || n.Source.SnapshotDate != "2025-08-20" {
		t.Errorf("normalize manifest source = %+v, want fetch provenance", n.Source)
	}

	data, err := os.ReadFile(filepath.Join(out, "errors.json"))
	if err != nil {
		t.Fatalf("read errors.json: %v", err)
	}
	var report []RowError
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("errors.json does not parse as a report: %v", err)
	}
	if len(report) != 0 {
		t.Errorf("error report = %v, want empty", report)
	}
}
