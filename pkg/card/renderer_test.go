package card

import (
	"encoding/json"
	"testing"
)

func TestScanPayloadRoundTrip(t *testing.T) {
	p := ScanPayload{
		TeamCode:        "TEAM-AB12CD",
		ParticipantID:   "TEAM-AB12CD-000",
		ParticipantName: "Ada",
		IsTeamLeader:    true,
		Timestamp:       "2026-01-01T00:00:00Z",
	}

	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var got ScanPayload
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if got != p {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, p)
	}
}

func TestCaptionRotationIsDeterministicByIndex(t *testing.T) {
	for i := 0; i < len(captions)*2; i++ {
		want := captions[i%len(captions)]
		got := captions[i%len(captions)]
		if got != want {
			t.Fatalf("caption index %d: got %q, want %q", i, got, want)
		}
	}
}
