package scholarship

import (
	"context"
	"errors"
)

// Empty is the payload of variants that carry no fields.
type Empty struct{}

// AddressMsg carries the target student address.
type AddressMsg struct {
	Address string `json:"address"`
}

// ExecuteMsg is the decoded mutating operation. Exactly one field is set:
//
//	{"register_student":{"address":"..."}}
//	{"approve_student":{"address":"..."}}
//	{"claim_scholarship":{}}
type ExecuteMsg struct {
	RegisterStudent  *AddressMsg `json:"register_student,omitempty"`
	ApproveStudent   *AddressMsg `json:"approve_student,omitempty"`
	ClaimScholarship *Empty      `json:"claim_scholarship,omitempty"`
}

// QueryMsg is the decoded read-only operation. Exactly one field is set.
type QueryMsg struct {
	GetStudent *AddressMsg `json:"get_student,omitempty"`
	GetConfig  *Empty      `json:"get_config,omitempty"`
}

var errOneVariant = errors.New("exactly one variant must be set")

// Execute dispatches msg on behalf of caller.
func (e *Engine) Execute(ctx context.Context, caller string, msg ExecuteMsg) (Response, error) {
	if countSet(msg.RegisterStudent != nil, msg.ApproveStudent != nil, msg.ClaimScholarship != nil) != 1 {
		return Response{}, &ValidationError{Field: "execute message", Err: errOneVariant}
	}
	switch {
	case msg.RegisterStudent != nil:
		return e.RegisterStudent(ctx, caller, msg.RegisterStudent.Address)
	case msg.ApproveStudent != nil:
		return e.ApproveStudent(ctx, caller, msg.ApproveStudent.Address)
	default:
		return e.ClaimScholarship(ctx, caller)
	}
}

// Query dispatches msg. The result is a Student or a Config.
func (e *Engine) Query(ctx context.Context, msg QueryMsg) (any, error) {
	if countSet(msg.GetStudent != nil, msg.GetConfig != nil) != 1 {
		return nil, &ValidationError{Field: "query message", Err: errOneVariant}
	}
	if msg.GetStudent != nil {
		return e.GetStudent(ctx, msg.GetStudent.Address)
	}
	return e.GetConfig(ctx)
}

func countSet(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
