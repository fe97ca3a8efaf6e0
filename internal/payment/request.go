package payment

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"

	"splpay/internal/spltoken"
)

const uriScheme = "solana:"

var ErrMalformedURI = errors.New("malformed payment request URI")

// PaymentRequest is the immutable descriptor handed to the paying
// wallet. The reference is the sole correlation key between this
// request and the on-chain transfer that settles it; it must never be
// reused across two payment attempts.
type PaymentRequest struct {
	RecipientOwner        solana.PublicKey
	RecipientTokenAccount solana.PublicKey
	Mint                  solana.PublicKey
	Amount                decimal.Decimal
	Reference             solana.PublicKey
	Label                 string
	Message               string
}

// NewReference draws a fresh single-use reference address from a
// cryptographically secure source. It is not a real on-chain account,
// only a filterable tag; a predictable reference would let an attacker
// race payment confirmation across unrelated orders.
func NewReference() (solana.PublicKey, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return solana.PublicKey{}, fmt.Errorf("reference entropy: %w", err)
	}
	return solana.PublicKeyFromBytes(b[:]), nil
}

// BuildRequest derives the recipient's token account, generates a fresh
// reference and assembles the request. The amount is validated against
// the mint's precision up front, before anything reaches the network.
func BuildRequest(recipientOwner, mint solana.PublicKey, amount decimal.Decimal, mintDecimals uint8, label, message string) (PaymentRequest, error) {
	if _, err := ToBaseUnits(amount, mintDecimals); err != nil {
		return PaymentRequest{}, err
	}
	tokenAccount, err := spltoken.Derive(recipientOwner, mint)
	if err != nil {
		return PaymentRequest{}, err
	}
	reference, err := NewReference()
	if err != nil {
		return PaymentRequest{}, err
	}
	return PaymentRequest{
		RecipientOwner:        recipientOwner,
		RecipientTokenAccount: tokenAccount,
		Mint:                  mint,
		Amount:                amount,
		Reference:             reference,
		Label:                 label,
		Message:               message,
	}, nil
}

// URI encodes the request in the wallet-facing wire format. The request
// targets the token account, not the owner, which is what marks this as
// an SPL-token payment rather than a native transfer. Query order is
// fixed for testability; the amount is a plain fixed-point string.
func (r PaymentRequest) URI() string {
	var sb strings.Builder
	sb.WriteString(uriScheme)
	sb.WriteString(r.RecipientTokenAccount.String())
	sb.WriteString("?spl-token=")
	sb.WriteString(r.Mint.String())
	sb.WriteString("&amount=")
	sb.WriteString(r.Amount.String())
	sb.WriteString("&reference=")
	sb.WriteString(r.Reference.String())
	sb.WriteString("&label=")
	sb.WriteString(escapeQueryValue(r.Label))
	sb.WriteString("&message=")
	sb.WriteString(escapeQueryValue(r.Message))
	return sb.String()
}

// QRCode renders the URI as a scannable PNG of the given pixel size.
func (r PaymentRequest) QRCode(size int) ([]byte, error) {
	return qrcode.Encode(r.URI(), qrcode.Medium, size)
}

// ParseRequestURI decodes a payment request URI back into its fields.
// The recipient owner is not part of the wire format and is left zero.
func ParseRequestURI(raw string) (PaymentRequest, error) {
	rest, ok := strings.CutPrefix(raw, uriScheme)
	if !ok {
		return PaymentRequest{}, fmt.Errorf("%w: missing %q scheme", ErrMalformedURI, uriScheme)
	}
	addrPart, query, _ := strings.Cut(rest, "?")
	tokenAccount, err := solana.PublicKeyFromBase58(addrPart)
	if err != nil {
		return PaymentRequest{}, fmt.Errorf("%w: recipient: %v", ErrMalformedURI, err)
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return PaymentRequest{}, fmt.Errorf("%w: %v", ErrMalformedURI, err)
	}
	mint, err := solana.PublicKeyFromBase58(values.Get("spl-token"))
	if err != nil {
		return PaymentRequest{}, fmt.Errorf("%w: spl-token: %v", ErrMalformedURI, err)
	}
	amount, err := decimal.NewFromString(values.Get("amount"))
	if err != nil {
		return PaymentRequest{}, fmt.Errorf("%w: amount: %v", ErrMalformedURI, err)
	}
	reference, err := solana.PublicKeyFromBase58(values.Get("reference"))
	if err != nil {
		return PaymentRequest{}, fmt.Errorf("%w: reference: %v", ErrMalformedURI, err)
	}
	return PaymentRequest{
		RecipientTokenAccount: tokenAccount,
		Mint:                  mint,
		Amount:                amount,
		Reference:             reference,
		Label:                 values.Get("label"),
		Message:               values.Get("message"),
	}, nil
}

// escapeQueryValue percent-encodes without the "+" form-encoding that
// wallets do not decode as a space.
func escapeQueryValue(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
