// Package txpayload defines the opaque transaction-step envelope the core
// stores in unsigned_tx_json / signed_tx_json. The payload bodies
// themselves (StepPayload.Unsigned / Signed) are opaque strings from the
// core's perspective: they are produced and consumed by the external
// signer, and the core only ever round-trips them.
package txpayload

import "encoding/json"

// Step is one transaction within a batch's payload: either a single
// payment-out step, or one of several consolidation (self-spend) steps
// produced by the split cycle.
type Step struct {
	StepIndex      int    `json:"step_index"`
	IsConsolidation bool   `json:"is_consolidation"`
	TxID           string `json:"tx_id"`

	// Exactly one of Unsigned/Signed is populated, depending on pipeline stage.
	Unsigned json.RawMessage `json:"unsigned,omitempty"`
	Signed   json.RawMessage `json:"signed,omitempty"`
}

// Payload is the full unsigned_tx_json / signed_tx_json document: an
// ordered list of steps. Step ordering is preserved by storing it as a
// JSON array and iterating in array order (spec §5 "Ordering guarantees").
type Payload struct {
	Steps []Step `json:"steps"`
}

// AllConsolidation reports whether every step in the payload is a
// consolidation step. Spec invariant: consolidation and final steps never
// mix in one payload.
func (p *Payload) AllConsolidation() bool {
	if len(p.Steps) == 0 {
		return false
	}
	for _, s := range p.Steps {
		if !s.IsConsolidation {
			return false
		}
	}
	return true
}

// SignedPayload is the envelope of an opaque signed transaction produced
// by the Transaction Signer, including the sent-hash list used to derive
// payrefs.
//
// SentHashes is positionally aligned with the batch's active payments in
// load order: SentHashes[i] is the sent-hash for the i-th active payment
// returned by the store. This is a cross-component contract (spec §9
// open question) and the Confirmation Checker errors loudly if the
// lengths disagree rather than silently misassigning payrefs.
// SentHashes is populated on the final (non-consolidation) step only.
// Outputs is populated on consolidation steps only; the two are never
// both non-empty for the same step.
type SignedPayload struct {
	KernelPublicNonce string         `json:"kernel_public_nonce"`
	KernelSignature   string         `json:"kernel_signature"`
	SentHashes        []string       `json:"sent_hashes,omitempty"`
	Outputs           []WalletOutput `json:"outputs,omitempty"`
	Body              json.RawMessage `json:"body"`
}

// WalletOutput is a consolidated output produced by signing a
// consolidation step, annotated with the script-key id that ties it back
// to its commitment mask so Cycle 2 can spend it.
type WalletOutput struct {
	Commitment string `json:"commitment"`
	ScriptKeyID string `json:"script_key_id"`
	Value      int64  `json:"value"`
}

// IntermediateContext holds the outputs produced by signing the
// consolidation steps of a split cycle; it is what crosses the
// AWAITING_BROADCAST -> PENDING_BATCHING loop-back (spec §9).
type IntermediateContext struct {
	UTXOs []WalletOutput `json:"utxos"`
}

// Marshal/Unmarshal helpers keep the JSON string <-> struct conversion in
// one place so store callers never hand-roll it.

func MarshalPayload(p *Payload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func UnmarshalPayload(s string) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func MarshalIntermediateContext(c *IntermediateContext) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func UnmarshalIntermediateContext(s string) (*IntermediateContext, error) {
	var c IntermediateContext
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return nil, err
	}
	return &c, nil
}
