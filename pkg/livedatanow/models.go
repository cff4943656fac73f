package livedatanow

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a decimal that travels as a bare JSON number.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps a decimal value.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// Ref is an upstream reference that arrives either as an id string or as an embedded document.
type Ref struct {
	ID   string
	Name string
}

func (r *Ref) UnmarshalJSON(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*r = Ref{}
		return nil
	}
	if trimmed[0] == '"' {
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}
	var doc struct {
		MongoID string `json:"_id"`
		ID      string `json:"id"`
		Name    string `json:"name"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return err
	}
	r.ID = doc.MongoID
	if r.ID == "" {
		r.ID = doc.ID
	}
	r.Name = doc.Name
	return nil
}

func (r Ref) MarshalJSON() ([]byte, error) {
	if r.ID == "" && r.Name == "" {
		return []byte("null"), nil
	}
	if r.Name == "" {
		return json.Marshal(r.ID)
	}
	return json.Marshal(struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	}{r.ID, r.Name})
}

// Store is the tenant resolved from the request host.
type Store struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Subdomain   string `json:"subdomain"`
	Address     string `json:"address,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Logo        string `json:"logo,omitempty"`
	Description string `json:"description,omitempty"`
}

// User is the customer profile held by the upstream API.
type User struct {
	MongoID     string `json:"_id,omitempty"`
	ID          string `json:"id,omitempty"`
	CustomerID  string `json:"customerId,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Country     string `json:"country,omitempty"`
}

// CustomerRef resolves the identifier orders are placed under.
func (u *User) CustomerRef() string {
	if u == nil {
		return ""
	}
	for _, candidate := range []string{u.CustomerID, u.MongoID, u.ID} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

// HasPhone reports whether the profile carries a phone number.
func (u *User) HasPhone() bool {
	return u != nil && strings.TrimSpace(u.Phone) != ""
}

// ProfileUpdate is the writable subset of a profile.
type ProfileUpdate struct {
	FirstName   *string `json:"firstName,omitempty"`
	LastName    *string `json:"lastName,omitempty"`
	CompanyName *string `json:"companyName,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Address     *string `json:"address,omitempty"`
	City        *string `json:"city,omitempty"`
	State       *string `json:"state,omitempty"`
	Country     *string `json:"country,omitempty"`
}

// LoginResult is the normalized answer of a login or OTP verification.
type LoginResult struct {
	Token string
	User  *User
}

type Department struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

type Kitchen struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type Product struct {
	ID             string          `json:"_id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Price          decimal.Decimal `json:"price"`
	Image          string          `json:"image,omitempty"`
	Department     Ref             `json:"department"`
	DepartmentID   string          `json:"departmentId,omitempty"`
	Kitchen        Ref             `json:"kitchen"`
	ModifierGroups []string        `json:"modifierGroups,omitempty"`
}

// DepartmentRef resolves the department id from either the embedded reference or departmentId.
func (p Product) DepartmentRef() string {
	if p.Department.ID != "" {
		return p.Department.ID
	}
	return p.DepartmentID
}

type ModifierGroup struct {
	ID        string     `json:"_id"`
	Name      string     `json:"name"`
	Modifiers []Modifier `json:"modifiers,omitempty"`
}

type Modifier struct {
	ID              string          `json:"_id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	ModifierGroupID string          `json:"modifierGroupId,omitempty"`
}

// Order types.
const (
	OrderTypePickup   = "WEB_PICKUP"
	OrderTypeDelivery = "WEB_DELIVERY"
)

type OrderModifier struct {
	ID  string `json:"id"`
	Qty int    `json:"qty"`
}

type OrderItem struct {
	Discount  Amount          `json:"discount"`
	Modifiers []OrderModifier `json:"modifiers"`
	OrderID   string          `json:"orderId"`
	Price     Amount          `json:"price"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	SubTotal  Amount          `json:"subTotal"`
	Tax       Amount          `json:"tax"`
}

// Order is the place-order payload.
type Order struct {
	OrderItems    []OrderItem `json:"orderItems"`
	TotalDiscount string      `json:"totalDiscount"`
	CustomerID    string      `json:"customerId"`
	PaymentMethod string      `json:"paymentMethod"`
	TotalTax      Amount      `json:"totalTax"`
	SubTotal      Amount      `json:"subTotal"`
	FinalTotal    string      `json:"finalTotal"`
	Type          string      `json:"type"`
}

// PlacedOrder is the normalized place-order answer.
type PlacedOrder struct {
	ID  string          `json:"id"`
	Raw json.RawMessage `json:"raw,omitempty"`
}

// OrderRecord is one entry of the order history.
type OrderRecord struct {
	ID            string          `json:"_id"`
	OrderNumber   string          `json:"orderNumber,omitempty"`
	Type          string          `json:"type,omitempty"`
	Status        string          `json:"status,omitempty"`
	CreatedAt     string          `json:"createdAt,omitempty"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	OrderItems    json.RawMessage `json:"orderItems,omitempty"`
	SubTotal      Amount          `json:"subTotal"`
	TotalTax      Amount          `json:"totalTax"`
	FinalTotal    Amount          `json:"finalTotal"`
}

// Payment records a settled amount against an order.
type Payment struct {
	Amount        Amount `json:"amount"`
	PaymentMethod string `json:"paymentMethod"`
	OrderID       string `json:"orderId"`
	Status        string `json:"status"`
}
