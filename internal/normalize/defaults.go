package normalize

import "github.com/dvloznov/statement-review/internal/domain"

// Defaults applied to every record that leaves Sanitize.
const (
	// DefaultSource marks rows that came out of AI-assisted extraction.
	DefaultSource = "ai_extraction"

	// DefaultCurrency is used when a record names no currency or asset.
	DefaultCurrency = "USD"

	DefaultDirection = domain.Debit
	DefaultKind      = domain.Fiat
)

// Field names of the flat record shape.
const (
	FieldTxID        = "txid"
	FieldDate        = "date"
	FieldPostedTS    = "posted_ts"
	FieldSource      = "source"
	FieldPayee       = "payee"
	FieldMemo        = "memo"
	FieldAccountID   = "account_id"
	FieldDirection   = "direction"
	FieldKind        = "kind"
	FieldCcyOrAsset  = "ccy_or_asset"
	FieldAmountOrQty = "amount_or_qty"
	FieldPrice       = "price"
	FieldPriceCcy    = "price_ccy"
	FieldCategoryID  = "category_id"
	FieldStatus      = "status"
	FieldTxType      = "tx_type"
	FieldExt1Kind    = "ext1_kind"
	FieldExt1Val     = "ext1_val"
)

// RequiredColumns are the columns a delimited bulk paste must carry, in header order.
var RequiredColumns = []string{
	FieldTxID,
	FieldDate,
	FieldAccountID,
	FieldDirection,
	FieldKind,
	FieldCcyOrAsset,
	FieldAmountOrQty,
}

// NewRow returns a pending row with conservative defaults for manual entry.
func NewRow(accountID string) domain.FlatTransaction {
	return domain.FlatTransaction{
		Source:      DefaultSource,
		AccountID:   accountID,
		Direction:   DefaultDirection,
		Kind:        DefaultKind,
		CcyOrAsset:  DefaultCurrency,
		AmountOrQty: 0,
	}
}
