// Package scholarship holds the disbursement state machine: an admin
// registers and approves students, and approved students claim a fixed
// payout exactly once.
package scholarship

import (
	"github.com/zaqqye/scholarship_backend/internal/coin"
)

// Config is the singleton written at initialization and never mutated.
type Config struct {
	Admin             string       `json:"admin"`
	ScholarshipAmount coin.Uint128 `json:"scholarship_amount"`
	Denom             string       `json:"denom"`
}

// Student is the per-address record. Claimed implies Approved.
type Student struct {
	Approved bool `json:"approved"`
	Claimed  bool `json:"claimed"`
}

// PaymentInstruction directs the payment collaborator to send Amount to
// ToAddress.
type PaymentInstruction struct {
	ToAddress string    `json:"to_address"`
	Amount    coin.Coin `json:"amount"`
}

// Attribute is a key/value pair attached to a response and its audit event.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response is the result of a successful mutating operation.
type Response struct {
	Attributes []Attribute          `json:"attributes"`
	Messages   []PaymentInstruction `json:"messages"`
}

func newResponse(action string) Response {
	return Response{
		Attributes: []Attribute{{Key: "action", Value: action}},
		Messages:   []PaymentInstruction{},
	}
}

func (r Response) addAttribute(key, value string) Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

func (r Response) addMessage(msg PaymentInstruction) Response {
	r.Messages = append(r.Messages, msg)
	return r
}

// Attribute returns the first attribute value stored under key.
func (r Response) Attribute(key string) (string, bool) {
	for _, attr := range r.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// Action returns the action attribute.
func (r Response) Action() string {
	v, _ := r.Attribute("action")
	return v
}
