package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// DTOs for requests

// CreateLoanRequest is the body of a loan creation. Known fields are bound
// leniently: a field of the wrong JSON type is left at its zero value so the
// validator reports it, instead of failing the whole body. Unknown fields are
// kept in Extra and forwarded onto the loan as attributes.
type CreateLoanRequest struct {
	Memo         string                     `json:"memo" validate:"required"`
	Principal    decimal.Decimal            `json:"principal" validate:"decimal_nonzero"`
	Borrowers    []string                   `json:"borrowers" validate:"required,min=1,dive,required"`
	InterestRate *decimal.Decimal           `json:"interest_rate,omitempty" validate:"omitempty,decimal_nonnegative"`
	Archived     bool                       `json:"archived,omitempty"`
	Extra        map[string]json.RawMessage `json:"-" validate:"-"`
}

func (r *CreateLoanRequest) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := codec.Unmarshal(data, &fields); err != nil {
		return err
	}

	var req CreateLoanRequest
	if raw, ok := fields["memo"]; ok {
		_ = codec.Unmarshal(raw, &req.Memo)
		delete(fields, "memo")
	}
	if raw, ok := fields["principal"]; ok {
		_ = req.Principal.UnmarshalJSON(raw)
		delete(fields, "principal")
	}
	if raw, ok := fields["borrowers"]; ok {
		var borrowers []string
		if err := codec.Unmarshal(raw, &borrowers); err == nil {
			req.Borrowers = borrowers
		}
		delete(fields, "borrowers")
	}
	if raw, ok := fields["interest_rate"]; ok {
		var rate decimal.Decimal
		if err := rate.UnmarshalJSON(raw); err == nil && string(raw) != "null" {
			req.InterestRate = &rate
		}
		delete(fields, "interest_rate")
	}
	if raw, ok := fields["archived"]; ok {
		_ = codec.Unmarshal(raw, &req.Archived)
		delete(fields, "archived")
	}

	if len(fields) > 0 {
		req.Extra = fields
	}

	*r = req
	return nil
}
