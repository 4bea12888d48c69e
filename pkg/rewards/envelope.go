package rewards

import (
	"bytes"
	"encoding/json"

	errs "rewardsreceipts/pkg/errors"
)

// Envelope is the generic wrapper around every JSON response. Data stays
// undecoded until the caller knows which shape to expect.
type Envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []errs.APIError `json:"errors"`
}

// Sourced pairs a decoded payload with the compact JSON it was decoded from
type Sourced[T any] struct {
	Value  T
	Source []byte
}

// Page is one decoded feed page together with its source text
type Page = Sourced[RewardsActivity]

// Receipt is one resolved receipt together with its source text
type Receipt = Sourced[ReceiptDetails]

// HasData reports whether the envelope carries a non-null data value
func (e *Envelope) HasData() bool {
	return len(e.Data) > 0 && !bytes.Equal(e.Data, []byte("null"))
}

// DecodeEnvelope parses body and classifies it. A non-empty errors list
// yields an API error carrying the whole list; an envelope with neither
// data nor errors yields an unknown error carrying body.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errs.NewParseError("malformed response envelope", err)
	}

	if len(env.Errors) > 0 {
		return nil, errs.NewAPIError(env.Errors)
	}
	if !env.HasData() {
		return nil, errs.NewUnknownError(body)
	}
	return &env, nil
}

// DecodeData decodes the envelope's data as T and keeps its compact text
func DecodeData[T any](env *Envelope) (Sourced[T], error) {
	var out Sourced[T]
	if err := json.Unmarshal(env.Data, &out.Value); err != nil {
		return Sourced[T]{}, errs.NewParseError("unexpected response payload", err)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, env.Data); err != nil {
		return Sourced[T]{}, errs.NewParseError("failed to compact response payload", err)
	}
	out.Source = compact.Bytes()
	return out, nil
}

// Decode is DecodeEnvelope followed by DecodeData
func Decode[T any](body []byte) (Sourced[T], error) {
	env, err := DecodeEnvelope(body)
	if err != nil {
		return Sourced[T]{}, err
	}
	return DecodeData[T](env)
}
