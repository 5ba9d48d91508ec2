// Package normalize turns untyped extracted or pasted records into FlatTransactions.
// It is the only place defaults for missing fields are decided.
package normalize

import (
	"github.com/dvloznov/statement-review/internal/domain"
)

// Sanitize coerces an arbitrary record into a FlatTransaction. It never fails:
// every field has a fallback, unknown direction/kind values fall to Debit/Fiat,
// and blank optional strings become absent.
func Sanitize(raw map[string]any) domain.FlatTransaction {
	if raw == nil {
		raw = map[string]any{}
	}

	return domain.FlatTransaction{
		TxID:        stringField(raw, FieldTxID, ""),
		Date:        stringField(raw, FieldDate, ""),
		PostedTS:    getOptionalInt64Field(raw, FieldPostedTS),
		Source:      stringFieldOrDefault(raw, FieldSource, DefaultSource),
		Payee:       getOptionalStringField(raw, FieldPayee),
		Memo:        getOptionalStringField(raw, FieldMemo),
		AccountID:   stringField(raw, FieldAccountID, ""),
		Direction:   domain.ParseDirection(stringField(raw, FieldDirection, string(DefaultDirection))),
		Kind:        domain.ParseKind(stringField(raw, FieldKind, string(DefaultKind))),
		CcyOrAsset:  stringFieldOrDefault(raw, FieldCcyOrAsset, DefaultCurrency),
		AmountOrQty: getFloat64Field(raw, FieldAmountOrQty),
		Price:       getOptionalFloat64Field(raw, FieldPrice),
		PriceCcy:    getOptionalStringField(raw, FieldPriceCcy),
		CategoryID:  getOptionalStringField(raw, FieldCategoryID),
		Status:      getOptionalStringField(raw, FieldStatus),
		TxType:      getOptionalStringField(raw, FieldTxType),
		Ext1Kind:    getOptionalStringField(raw, FieldExt1Kind),
		Ext1Val:     getOptionalStringField(raw, FieldExt1Val),
	}
}

// SanitizeTransaction re-applies the normalization rules to a typed row.
func SanitizeTransaction(t domain.FlatTransaction) domain.FlatTransaction {
	return Sanitize(ToRecord(t))
}

// SanitizeAll sanitizes every element of a decoded JSON list that is a record with
// a string txid. Other elements are dropped.
func SanitizeAll(items []any) []domain.FlatTransaction {
	out := make([]domain.FlatTransaction, 0, len(items))
	for _, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := rec[FieldTxID].(string); !ok {
			continue
		}
		out = append(out, Sanitize(rec))
	}
	return out
}

// ToRecord converts a row back into the untyped record shape. Absent optionals are omitted.
func ToRecord(t domain.FlatTransaction) map[string]any {
	m := map[string]any{
		FieldTxID:        t.TxID,
		FieldDate:        t.Date,
		FieldSource:      t.Source,
		FieldAccountID:   t.AccountID,
		FieldDirection:   string(t.Direction),
		FieldKind:        string(t.Kind),
		FieldCcyOrAsset:  t.CcyOrAsset,
		FieldAmountOrQty: t.AmountOrQty,
	}
	if t.PostedTS != nil {
		m[FieldPostedTS] = *t.PostedTS
	}
	if t.Price != nil {
		m[FieldPrice] = *t.Price
	}
	for key, p := range map[string]*string{
		FieldPayee:      t.Payee,
		FieldMemo:       t.Memo,
		FieldPriceCcy:   t.PriceCcy,
		FieldCategoryID: t.CategoryID,
		FieldStatus:     t.Status,
		FieldTxType:     t.TxType,
		FieldExt1Kind:   t.Ext1Kind,
		FieldExt1Val:    t.Ext1Val,
	} {
		if p != nil {
			m[key] = *p
		}
	}
	return m
}
