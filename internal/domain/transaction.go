package domain

import (
	"fmt"
	"strings"
)

// Direction is the side of a statement line. The amount itself is never signed.
type Direction string

const (
	Debit  Direction = "Debit"
	Credit Direction = "Credit"
)

// ParseDirection maps any text onto a Direction. Only "credit" (any casing) is Credit.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), "credit") {
		return Credit
	}
	return Debit
}

// Kind tells whether a line moves fiat currency or a crypto asset.
type Kind string

const (
	Fiat   Kind = "Fiat"
	Crypto Kind = "Crypto"
)

// ParseKind maps any text onto a Kind. Only "crypto" (any casing) is Crypto.
func ParseKind(s string) Kind {
	if strings.EqualFold(strings.TrimSpace(s), "crypto") {
		return Crypto
	}
	return Fiat
}

// FlatTransaction is one normalized statement line.
type FlatTransaction struct {
	TxID        string    `json:"txid"`
	Date        string    `json:"date"`
	PostedTS    *int64    `json:"posted_ts,omitempty"`
	Source      string    `json:"source"`
	Payee       *string   `json:"payee,omitempty"`
	Memo        *string   `json:"memo,omitempty"`
	AccountID   string    `json:"account_id"`
	Direction   Direction `json:"direction"`
	Kind        Kind      `json:"kind"`
	CcyOrAsset  string    `json:"ccy_or_asset"`
	AmountOrQty float64   `json:"amount_or_qty"`
	Price       *float64  `json:"price,omitempty"`
	PriceCcy    *string   `json:"price_ccy,omitempty"`
	CategoryID  *string   `json:"category_id,omitempty"`
	Status      *string   `json:"status,omitempty"`
	TxType      *string   `json:"tx_type,omitempty"`
	Ext1Kind    *string   `json:"ext1_kind,omitempty"`
	Ext1Val     *string   `json:"ext1_val,omitempty"`
}

// Clone returns a deep copy; pointer fields are not shared with the receiver.
func (t FlatTransaction) Clone() FlatTransaction {
	c := t
	c.PostedTS = clonePtr(t.PostedTS)
	c.Payee = clonePtr(t.Payee)
	c.Memo = clonePtr(t.Memo)
	c.Price = clonePtr(t.Price)
	c.PriceCcy = clonePtr(t.PriceCcy)
	c.CategoryID = clonePtr(t.CategoryID)
	c.Status = clonePtr(t.Status)
	c.TxType = clonePtr(t.TxType)
	c.Ext1Kind = clonePtr(t.Ext1Kind)
	c.Ext1Val = clonePtr(t.Ext1Val)
	return c
}

// CloneAll deep-copies a slice of transactions. A nil input yields an empty slice.
func CloneAll(txs []FlatTransaction) []FlatTransaction {
	out := make([]FlatTransaction, len(txs))
	for i, t := range txs {
		out[i] = t.Clone()
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Amount is the kind-tagged payload of a transaction. Exactly one of Fiat or
// Crypto is set, matching Kind.
type Amount struct {
	Kind   Kind
	Fiat   *FiatAmount
	Crypto *CryptoAmount
}

// FiatAmount is a currency movement.
type FiatAmount struct {
	Currency string
	Value    float64
}

// CryptoAmount is an asset movement with the conversion rate captured at extraction.
type CryptoAmount struct {
	Asset    string
	Quantity float64
	Price    *float64
	PriceCcy *string
}

// Amount builds the tagged payload for the transaction.
func (t FlatTransaction) Amount() Amount {
	switch t.Kind {
	case Crypto:
		return Amount{
			Kind: Crypto,
			Crypto: &CryptoAmount{
				Asset:    t.CcyOrAsset,
				Quantity: t.AmountOrQty,
				Price:    clonePtr(t.Price),
				PriceCcy: clonePtr(t.PriceCcy),
			},
		}
	default:
		return Amount{
			Kind: Fiat,
			Fiat: &FiatAmount{Currency: t.CcyOrAsset, Value: t.AmountOrQty},
		}
	}
}

// Magnitude returns the unsigned size of the movement.
func (a Amount) Magnitude() float64 {
	switch a.Kind {
	case Crypto:
		return a.Crypto.Quantity
	case Fiat:
		return a.Fiat.Value
	default:
		panic(fmt.Sprintf("domain: unknown amount kind %q", a.Kind))
	}
}

// String renders the amount for display, e.g. "12.50 USD" or "0.25 BTC @ 64000 USD".
func (a Amount) String() string {
	switch a.Kind {
	case Crypto:
		s := fmt.Sprintf("%s %s", formatNumber(a.Crypto.Quantity), a.Crypto.Asset)
		if a.Crypto.Price != nil {
			ccy := ""
			if a.Crypto.PriceCcy != nil {
				ccy = " " + *a.Crypto.PriceCcy
			}
			s += fmt.Sprintf(" @ %s%s", formatNumber(*a.Crypto.Price), ccy)
		}
		return s
	case Fiat:
		return fmt.Sprintf("%.2f %s", a.Fiat.Value, a.Fiat.Currency)
	default:
		panic(fmt.Sprintf("domain: unknown amount kind %q", a.Kind))
	}
}

func formatNumber(f float64) string {
	s := fmt.Sprintf("%.8f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
