// Package customers holds the customer service and the form and list
// view-models built on it.
package customers

// Customer is a customer record as returned by the backend. Timestamps are
// kept as the backend's strings.
type Customer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Draft is the editable part of a customer, used for create and update.
type Draft struct {
	Name    string `json:"name" validate:"notblank"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// DraftOf returns the editable fields of c.
func DraftOf(c Customer) Draft {
	return Draft{Name: c.Name, Email: c.Email, Phone: c.Phone, Address: c.Address}
}
