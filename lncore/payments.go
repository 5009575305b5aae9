package lncore

import "fmt"

type PaymentStatus uint8

const (
	PaymentPending PaymentStatus = iota
	PaymentSucceeded
	PaymentFailed
)

var paymentStatusNames = map[PaymentStatus]string{
	PaymentPending:   "pending",
	PaymentSucceeded: "succeeded",
	PaymentFailed:    "failed",
}

func (s PaymentStatus) String() string {
	if n, ok := paymentStatusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

func (s PaymentStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *PaymentStatus) UnmarshalText(b []byte) error {
	for k, v := range paymentStatusNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown payment status %q", string(b))
}

// PaymentInfo is what we know about an inbound or outbound payment.
type PaymentInfo struct {
	Preimage   *PaymentPreimage `json:"preimage,omitempty"`
	Secret     *PaymentSecret   `json:"secret,omitempty"`
	Status     PaymentStatus    `json:"status"`
	AmountMsat *uint64          `json:"amount_msat,omitempty"`
}

// Balance is the on-chain wallet balance in satoshis.
type Balance struct {
	Spendable uint64 `json:"spendable"`
	Total     uint64 `json:"total"`
}
