// Package models defines the HTTP request and response shapes.
package models

// CreatePaymentRequestRequest starts a checkout attempt. Amount is a
// decimal string at the mint's precision, e.g. "12.5".
type CreatePaymentRequestRequest struct {
	Amount  string `json:"amount" binding:"required"`
	Label   string `json:"label"`
	Message string `json:"message"`
}

// CreatePaymentRequestResponse carries everything the client needs to
// render the request: the URI, its QR rendering, and the keys to poll
// status with.
type CreatePaymentRequestResponse struct {
	OrderID               string `json:"orderId"`
	Reference             string `json:"reference"`
	RecipientTokenAccount string `json:"recipientTokenAccount"`
	URI                   string `json:"uri"`
	QRPNGBase64           string `json:"qrPngBase64"`
}

// SubmitTxRequest relays a wallet-signed transaction.
type SubmitTxRequest struct {
	SerializedTx string `json:"serializedTx" binding:"required"`
}

// SubmitTxResponse reports the broadcast signature.
type SubmitTxResponse struct {
	Signature   string `json:"signature"`
	ExplorerURL string `json:"explorerUrl"`
}

// OrderResponse is the status view of one order.
type OrderResponse struct {
	OrderID     string `json:"orderId"`
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	StatusText  string `json:"statusText"`
	Amount      string `json:"amount"`
	TxSignature string `json:"txSignature,omitempty"`
	BlockHeight uint64 `json:"blockHeight,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// ProvisionRequest asks the server payer to create the associated
// token account for an owner.
type ProvisionRequest struct {
	Owner string `json:"owner" binding:"required"`
}

// ProvisionResponse reports the ensured account.
type ProvisionResponse struct {
	Account   string `json:"account"`
	Created   bool   `json:"created"`
	Signature string `json:"signature,omitempty"`
}
