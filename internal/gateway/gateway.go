// Package gateway is the client of the payment gateway. It speaks the authority
// token protocol: a payment is requested, the buyer is redirected to the gateway
// with the returned authority, and the gateway calls back so the payment can be verified.
package gateway

import (
	"context"

	"github.com/google/uuid"
)

// Gateway requests and verifies payments.
//
// Both methods return an error wrapping errors.ErrGatewayUnavailable when the gateway
// cannot be reached or does not answer in time, and an *errors.UpstreamError when it
// answers with a rejection.
type Gateway interface {
	Request(ctx context.Context, req PaymentRequest) (*Session, error)
	Verify(ctx context.Context, authority string, amount int64) (*Verification, error)
}

// PaymentRequest describes the payment the buyer is about to make.
type PaymentRequest struct {
	OrderID     uuid.UUID
	Amount      int64
	Description string
	Email       string
	Mobile      string
}

// Session is an accepted payment request.
type Session struct {
	Authority   string
	RedirectURL string
}

// Verification is the gateway's confirmation of a completed payment.
type Verification struct {
	Code        int
	ReferenceID int64
	CardPan     string
	Fee         int64
}

// AlreadyVerified reports whether the gateway had confirmed this payment before.
func (v *Verification) AlreadyVerified() bool {
	return v.Code == codeAlreadyVerified
}
