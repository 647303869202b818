package domain

import (
	"encoding/json"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

// Record types
const (
	RecordTypePrincipal = "principal"
	RecordTypeInterest  = "interest"
	RecordTypeFee       = "fee"
	RecordTypePayment   = "payment"
)

const (
	fieldAmount    = "amount"
	fieldType      = "type"
	fieldTimestamp = "timestamp"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is one immutable entry of a loan's ledger. Keys other than amount,
// type and timestamp are kept in Extra and written back unchanged.
type Record struct {
	Amount    decimal.Decimal
	Type      string
	Timestamp *time.Time
	Extra     map[string]json.RawMessage

	// amountRaw and timestampRaw hold the values exactly as decoded;
	// noAmount marks a decoded record that carried no amount key.
	amountRaw    json.RawMessage
	noAmount     bool
	timestampRaw json.RawMessage
}

func NewRecord(amount decimal.Decimal, recordType string, at time.Time) Record {
	ts := at.UTC()
	return Record{Amount: amount, Type: recordType, Timestamp: &ts}
}

// Effect returns how the record changes the outstanding balance.
func (r Record) Effect() decimal.Decimal {
	switch r.Type {
	case RecordTypePrincipal, RecordTypeInterest, RecordTypeFee:
		return r.Amount
	case RecordTypePayment:
		return r.Amount.Abs().Neg()
	default:
		return decimal.Zero
	}
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Extra)+3)
	for k, v := range r.Extra {
		out[k] = v
	}

	switch {
	case r.amountRaw != nil && rawAmountEquals(r.amountRaw, r.Amount):
		out[fieldAmount] = r.amountRaw
	case r.noAmount && r.Amount.IsZero():
		// sent without an amount, written back without one
	default:
		out[fieldAmount] = json.Number(r.Amount.String())
	}
	if r.Type != "" {
		out[fieldType] = r.Type
	}
	if r.Timestamp != nil {
		if r.timestampRaw != nil && rawTimestampEquals(r.timestampRaw, *r.Timestamp) {
			out[fieldTimestamp] = r.timestampRaw
		} else {
			out[fieldTimestamp] = r.Timestamp.Format(time.RFC3339Nano)
		}
	}

	return codec.Marshal(out)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := codec.Unmarshal(data, &fields); err != nil || fields == nil {
		return customError.WrapInvalidRecord("record must be a JSON object")
	}

	var rec Record
	if raw, ok := fields[fieldAmount]; ok {
		if err := rec.Amount.UnmarshalJSON(raw); err != nil {
			return customError.WrapInvalidRecord(fmt.Sprintf("amount is not a number: %s", raw))
		}
		rec.amountRaw = raw
		delete(fields, fieldAmount)
	} else {
		rec.noAmount = true
	}

	if raw, ok := fields[fieldType]; ok {
		if err := codec.Unmarshal(raw, &rec.Type); err != nil {
			return customError.WrapInvalidRecord("type must be a string")
		}
		delete(fields, fieldType)
	}

	if raw, ok := fields[fieldTimestamp]; ok {
		var ts *time.Time
		if err := codec.Unmarshal(raw, &ts); err != nil {
			return customError.WrapInvalidRecord("timestamp must be an RFC3339 time")
		}
		rec.Timestamp = ts
		if ts != nil {
			rec.timestampRaw = raw
		}
		delete(fields, fieldTimestamp)
	}

	if len(fields) > 0 {
		rec.Extra = fields
	}

	*r = rec
	return nil
}

// rawAmountEquals reports whether raw still decodes to amount, so a record
// whose amount was changed after decoding is written from the new value.
func rawAmountEquals(raw json.RawMessage, amount decimal.Decimal) bool {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return false
	}
	return d.Equal(amount)
}

func rawTimestampEquals(raw json.RawMessage, at time.Time) bool {
	var t time.Time
	if err := codec.Unmarshal(raw, &t); err != nil {
		return false
	}
	return t.Equal(at)
}
