package txpayload

import "testing"

func TestPayload_AllConsolidation(t *testing.T) {
	cases := []struct {
		name  string
		steps []Step
		want  bool
	}{
		{"empty payload", nil, false},
		{"all consolidation", []Step{{IsConsolidation: true}, {IsConsolidation: true}}, true},
		{"mixed is never expected but detected as not all", []Step{{IsConsolidation: true}, {IsConsolidation: false}}, false},
		{"single final step", []Step{{IsConsolidation: false}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Payload{Steps: tc.steps}
			if got := p.AllConsolidation(); got != tc.want {
				t.Errorf("AllConsolidation() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMarshalUnmarshalPayload_RoundTrip(t *testing.T) {
	p := &Payload{Steps: []Step{
		{StepIndex: 0, IsConsolidation: true, TxID: "batch-1-consolidation-0", Unsigned: []byte(`{"inputs":[]}`)},
		{StepIndex: 1, IsConsolidation: false, TxID: "batch-1-payout", Signed: []byte(`{"kernel_public_nonce":"abc"}`)},
	}}
	raw, err := MarshalPayload(p)
	if err != nil {
		t.Fatalf("MarshalPayload: %v", err)
	}
	got, err := UnmarshalPayload(raw)
	if err != nil {
		t.Fatalf("UnmarshalPayload: %v", err)
	}
	if len(got.Steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(got.Steps))
	}
	if got.Steps[0].TxID != "batch-1-consolidation-0" || !got.Steps[0].IsConsolidation {
		t.Errorf("step 0 = %+v, want consolidation step with matching tx_id", got.Steps[0])
	}
	if got.Steps[1].TxID != "batch-1-payout" || got.Steps[1].IsConsolidation {
		t.Errorf("step 1 = %+v, want final step with matching tx_id", got.Steps[1])
	}
}

func TestMarshalUnmarshalIntermediateContext_RoundTrip(t *testing.T) {
	c := &IntermediateContext{UTXOs: []WalletOutput{
		{Commitment: "c1", ScriptKeyID: "sk1", Value: 1000},
		{Commitment: "c2", ScriptKeyID: "sk2", Value: 2000},
	}}
	raw, err := MarshalIntermediateContext(c)
	if err != nil {
		t.Fatalf("MarshalIntermediateContext: %v", err)
	}
	got, err := UnmarshalIntermediateContext(raw)
	if err != nil {
		t.Fatalf("UnmarshalIntermediateContext: %v", err)
	}
	if len(got.UTXOs) != 2 || got.UTXOs[0].Value != 1000 || got.UTXOs[1].Commitment != "c2" {
		t.Errorf("got %+v, want round-tripped UTXOs", got.UTXOs)
	}
}
