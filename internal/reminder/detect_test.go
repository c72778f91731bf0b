package reminder

import (
	"context"
	"testing"
	"time"
)

var now = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

// testTreatment has one medication line every 8 hours for 2 days, created
// so that dose index 1 lands at now+2min — inside the due window.
func testTreatment() Treatment {
	created := now.Add(-8*time.Hour + 2*time.Minute)
	return Treatment{
		ID:          "tr-1",
		UserID:      "user-1",
		PatientID:   "patient-1",
		PatientName: "Ana",
		EndDate:     created.Add(48 * time.Hour),
		IsActive:    true,
		Medications: []TreatmentMedication{{
			ID:             "tm-1",
			TreatmentID:    "tr-1",
			MedicationID:   "med-1",
			MedicationName: "Ibuprofen 400mg",
			Dosage:         "1 tablet",
			FrequencyHours: 8,
			DurationDays:   2,
			StartMode:      StartImmediate,
			CreatedAt:      created,
			IsActive:       true,
		}},
	}
}

func TestDetectDueFindsUpcomingDose(t *testing.T) {
	tr := testTreatment()
	due := DetectDue(context.Background(), now, tr, &memIntakes{}, testLogger())

	if len(due) != 1 {
		t.Fatalf("got %d due doses, want 1", len(due))
	}
	d := due[0]
	if d.DoseIndex != 1 {
		t.Errorf("dose index = %d, want 1", d.DoseIndex)
	}
	if want := now.Add(2 * time.Minute); !d.DoseAt.Equal(want) {
		t.Errorf("dose at %v, want %v", d.DoseAt, want)
	}
	if d.ConsumerID != "patient-1" {
		t.Errorf("consumer = %s, want patient-1", d.ConsumerID)
	}
}

func TestDetectDueNothingMidInterval(t *testing.T) {
	tr := testTreatment()
	mid := now.Add(3 * time.Hour)
	if due := DetectDue(context.Background(), mid, tr, &memIntakes{}, testLogger()); len(due) != 0 {
		t.Fatalf("got %d due doses mid-interval, want 0", len(due))
	}
}

func TestDetectDueSuppressedByIntake(t *testing.T) {
	tr := testTreatment()
	doseAt := now.Add(2 * time.Minute)

	cases := []struct {
		name     string
		consumer string
		taken    time.Time
		want     int
	}{
		{"patient took it 10 minutes early", "patient-1", doseAt.Add(-10 * time.Minute), 0},
		{"user registered it for the patient", "user-1", doseAt.Add(5 * time.Minute), 0},
		{"intake outside tolerance", "patient-1", doseAt.Add(-31 * time.Minute), 1},
		{"intake for another medication", "patient-1", doseAt, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			medID := "med-1"
			if tc.name == "intake for another medication" {
				medID = "med-other"
			}
			intakes := &memIntakes{byKey: map[string][]time.Time{
				intakeKey(medID, tc.consumer): {tc.taken},
			}}
			due := DetectDue(context.Background(), now, tr, intakes, testLogger())
			if len(due) != tc.want {
				t.Errorf("got %d due doses, want %d", len(due), tc.want)
			}
		})
	}
}

func TestDetectDueSkipsInactiveLine(t *testing.T) {
	tr := testTreatment()
	tr.Medications[0].IsActive = false
	if due := DetectDue(context.Background(), now, tr, &memIntakes{}, testLogger()); len(due) != 0 {
		t.Fatalf("inactive medication line reported due")
	}
}

func TestDetectDueInvalidParametersSkipped(t *testing.T) {
	tr := testTreatment()
	tr.Medications[0].FrequencyHours = 0
	// Must not panic or report; the bad line is logged and skipped.
	if due := DetectDue(context.Background(), now, tr, &memIntakes{}, testLogger()); len(due) != 0 {
		t.Fatalf("invalid medication line reported due")
	}
}

func TestDetectDueSpecificStart(t *testing.T) {
	tr := testTreatment()
	tm := &tr.Medications[0]
	tm.StartMode = StartSpecificTime
	tm.SpecificStart = now.Add(3 * time.Minute)
	tm.CreatedAt = now.Add(-10 * time.Hour)

	due := DetectDue(context.Background(), now, tr, &memIntakes{}, testLogger())
	if len(due) != 1 {
		t.Fatalf("got %d due doses, want 1 (first dose at specific start)", len(due))
	}
	if due[0].DoseIndex != 0 {
		t.Errorf("dose index = %d, want 0", due[0].DoseIndex)
	}
}

func TestDetectDueIntakeLookupFailureSkipsLine(t *testing.T) {
	tr := testTreatment()
	intakes := &memIntakes{err: context.DeadlineExceeded}
	if due := DetectDue(context.Background(), now, tr, intakes, testLogger()); len(due) != 0 {
		t.Fatalf("line with failing intake lookup reported due")
	}
}
