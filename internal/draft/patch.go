package draft

import (
	"fmt"
	"strings"

	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/dvloznov/statement-review/internal/normalize"
)

// Patch is a partial update. Nil fields are left untouched; an empty string on an
// optional field clears it.
type Patch struct {
	TxID        *string
	Date        *string
	PostedTS    *int64
	Source      *string
	Payee       *string
	Memo        *string
	AccountID   *string
	Direction   *domain.Direction
	Kind        *domain.Kind
	CcyOrAsset  *string
	AmountOrQty *float64
	Price       *float64
	PriceCcy    *string
	CategoryID  *string
	Status      *string
	TxType      *string
	Ext1Kind    *string
	Ext1Val     *string
}

// Apply returns a copy of t with the patch merged in.
func (p Patch) Apply(t domain.FlatTransaction) domain.FlatTransaction {
	out := t.Clone()
	setStr(&out.TxID, p.TxID)
	setStr(&out.Date, p.Date)
	setStr(&out.Source, p.Source)
	setStr(&out.AccountID, p.AccountID)
	setStr(&out.CcyOrAsset, p.CcyOrAsset)
	if p.Direction != nil {
		out.Direction = *p.Direction
	}
	if p.Kind != nil {
		out.Kind = *p.Kind
	}
	if p.AmountOrQty != nil {
		out.AmountOrQty = *p.AmountOrQty
	}
	if p.PostedTS != nil {
		v := *p.PostedTS
		out.PostedTS = &v
	}
	if p.Price != nil {
		v := *p.Price
		out.Price = &v
	}
	setOpt(&out.Payee, p.Payee)
	setOpt(&out.Memo, p.Memo)
	setOpt(&out.PriceCcy, p.PriceCcy)
	setOpt(&out.CategoryID, p.CategoryID)
	setOpt(&out.Status, p.Status)
	setOpt(&out.TxType, p.TxType)
	setOpt(&out.Ext1Kind, p.Ext1Kind)
	setOpt(&out.Ext1Val, p.Ext1Val)
	return out
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setOpt(dst **string, v *string) {
	if v == nil {
		return
	}
	s := *v
	*dst = &s
}

// ParsePatch builds a single-field patch from "field=value" text, using the flat
// record field names.
func ParsePatch(expr string) (Patch, error) {
	field, value, ok := strings.Cut(expr, "=")
	if !ok {
		return Patch{}, fmt.Errorf("ParsePatch: %q is not field=value", expr)
	}
	field = strings.ToLower(strings.TrimSpace(field))

	var p Patch
	switch field {
	case normalize.FieldTxID:
		p.TxID = &value
	case normalize.FieldDate:
		p.Date = &value
	case normalize.FieldSource:
		p.Source = &value
	case normalize.FieldPayee:
		p.Payee = &value
	case normalize.FieldMemo:
		p.Memo = &value
	case normalize.FieldAccountID:
		p.AccountID = &value
	case normalize.FieldDirection:
		d := domain.ParseDirection(value)
		p.Direction = &d
	case normalize.FieldKind:
		k := domain.ParseKind(value)
		p.Kind = &k
	case normalize.FieldCcyOrAsset:
		p.CcyOrAsset = &value
	case normalize.FieldAmountOrQty:
		f, ok := normalize.ToFloat(value)
		if !ok {
			return Patch{}, fmt.Errorf("ParsePatch: %s: %q is not a number", field, value)
		}
		p.AmountOrQty = &f
	case normalize.FieldPrice:
		f, ok := normalize.ToFloat(value)
		if !ok {
			return Patch{}, fmt.Errorf("ParsePatch: %s: %q is not a number", field, value)
		}
		p.Price = &f
	case normalize.FieldPostedTS:
		f, ok := normalize.ToFloat(value)
		if !ok {
			return Patch{}, fmt.Errorf("ParsePatch: %s: %q is not a number", field, value)
		}
		ts := int64(f)
		p.PostedTS = &ts
	case normalize.FieldPriceCcy:
		p.PriceCcy = &value
	case normalize.FieldCategoryID:
		p.CategoryID = &value
	case normalize.FieldStatus:
		p.Status = &value
	case normalize.FieldTxType:
		p.TxType = &value
	case normalize.FieldExt1Kind:
		p.Ext1Kind = &value
	case normalize.FieldExt1Val:
		p.Ext1Val = &value
	default:
		return Patch{}, fmt.Errorf("ParsePatch: unknown field %q", field)
	}
	return p, nil
}
