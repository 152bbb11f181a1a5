package txpayload

// UnsignedInput is one UTXO consumed by an unsigned step.
type UnsignedInput struct {
	Commitment string `json:"commitment"`
	Value      int64  `json:"value"`
}

// PayoutRecipient is one outbound transfer within a payout step.
type PayoutRecipient struct {
	PaymentID string `json:"payment_id"`
	Address   string `json:"recipient_address"`
	Amount    int64  `json:"amount"`
}

// PayoutUnsignedBody is the unsigned body of a payment-out step: the
// inputs covering the transfer and the recipients being paid.
type PayoutUnsignedBody struct {
	Inputs     []UnsignedInput   `json:"inputs"`
	Recipients []PayoutRecipient `json:"recipients"`
}

// ConsolidationUnsignedBody is the unsigned body of a self-spend step:
// several inputs paying a single output, net of fee, back to the
// sender's own address.
type ConsolidationUnsignedBody struct {
	Inputs      []UnsignedInput `json:"inputs"`
	OutputValue int64           `json:"output_value"`
	SelfAddress string          `json:"self_address"`
}
