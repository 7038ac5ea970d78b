// Package payments records payments against invoices and keeps the
// invoice balance and payment history in step with the backend.
package payments

// Method is how a payment was made.
type Method string

const (
	MethodCash         Method = "CASH"
	MethodCheck        Method = "CHECK"
	MethodCreditCard   Method = "CREDIT_CARD"
	MethodBankTransfer Method = "BANK_TRANSFER"
	MethodOther        Method = "OTHER"
)

// Methods lists every accepted payment method.
var Methods = []Method{MethodCash, MethodCheck, MethodCreditCard, MethodBankTransfer, MethodOther}

// Payment is a recorded payment.
type Payment struct {
	ID              string  `json:"id"`
	InvoiceID       string  `json:"invoiceId"`
	Amount          float64 `json:"amount"`
	PaymentDate     string  `json:"paymentDate"`
	PaymentMethod   Method  `json:"paymentMethod"`
	ReferenceNumber string  `json:"referenceNumber,omitempty"`
	CreatedAt       string  `json:"createdAt,omitempty"`
}

// Candidate is a payment as entered, before it is recorded.
type Candidate struct {
	Amount          float64 `json:"amount" validate:"gt=0"`
	PaymentDate     string  `json:"paymentDate" validate:"required,datetime=2006-01-02"`
	PaymentMethod   Method  `json:"paymentMethod" validate:"required,oneof=CASH CHECK CREDIT_CARD BANK_TRANSFER OTHER"`
	ReferenceNumber string  `json:"referenceNumber,omitempty"`
}
