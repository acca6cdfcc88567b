package models

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFlexibleID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    FlexibleID
		wantErr bool
	}{
		{name: "string", input: `"b-17"`, want: "b-17"},
		{name: "number", input: `17`, want: "17"},
		{name: "null", input: `null`, want: ""},
		{name: "object", input: `{"id":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got FlexibleID
			err := json.Unmarshal([]byte(tt.input), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Unmarshal() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNumericIDsInBid(t *testing.T) {
	var bid Bid
	raw := `{"id":501,"total_value":900,"state":"submitted","freelancer":{"id":77,"name":"Ana","rating":4.8}}`
	if err := json.Unmarshal([]byte(raw), &bid); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := Bid{ID: "501", TotalValue: 900, State: SubmittedBid, Freelancer: Freelancer{ID: "77", Name: "Ana", Rating: 4.8}}
	if diff := cmp.Diff(want, bid); diff != "" {
		t.Errorf("bid mismatch (-want +got):\n%s", diff)
	}

	out, err := json.Marshal(bid)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var back map[string]interface{}
	_ = json.Unmarshal(out, &back)
	if back["id"] != "501" {
		t.Errorf("marshalled id = %v, want string", back["id"])
	}
}
