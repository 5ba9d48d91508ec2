package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	bq "github.com/dvloznov/statement-review/internal/bigquery"
)

// Property names in the mirror database.
const (
	PropTitle      = "Description"
	PropKey        = "Ledger Key"
	PropDate       = "Date"
	PropAmount     = "Amount"
	PropDirection  = "Direction"
	PropCurrency   = "Currency"
	PropKind       = "Kind"
	PropAccount    = "Account"
	PropSource     = "Source"
	PropMemo       = "Memo"
	PropImportedAt = "Imported At"
)

// MirrorKey identifies a ledger row in Notion.
func MirrorKey(accountID, txID string) string {
	return accountID + "/" + txID
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

func dateProp(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t)
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
}

// LedgerRowToProperties converts a ledger row to Notion page properties.
// The title is the payee, falling back to the memo and then the txid.
func LedgerRowToProperties(row *bq.LedgerTransactionRow) notionapi.Properties {
	title := row.TxID
	switch {
	case row.Payee.Valid && row.Payee.StringVal != "":
		title = row.Payee.StringVal
	case row.Memo.Valid && row.Memo.StringVal != "":
		title = row.Memo.StringVal
	}

	amount := 0.0
	if row.AmountOrQty != nil {
		amount, _ = row.AmountOrQty.Float64()
	}

	props := notionapi.Properties{
		PropTitle:      notionapi.TitleProperty{Title: richText(title)},
		PropKey:        notionapi.RichTextProperty{RichText: richText(MirrorKey(row.AccountID, row.TxID))},
		PropAmount:     notionapi.NumberProperty{Number: amount},
		PropDirection:  notionapi.SelectProperty{Select: notionapi.Option{Name: row.Direction}},
		PropCurrency:   notionapi.SelectProperty{Select: notionapi.Option{Name: row.CcyOrAsset}},
		PropKind:       notionapi.SelectProperty{Select: notionapi.Option{Name: row.Kind}},
		PropAccount:    notionapi.RichTextProperty{RichText: richText(row.AccountID)},
		PropImportedAt: dateProp(row.ImportedTS),
	}

	if row.TxDate.Valid {
		props[PropDate] = dateProp(row.TxDate.Date.In(time.UTC))
	}
	if row.Source != "" {
		props[PropSource] = notionapi.SelectProperty{Select: notionapi.Option{Name: row.Source}}
	}
	if row.Memo.Valid && row.Memo.StringVal != "" && row.Memo.StringVal != title {
		props[PropMemo] = notionapi.RichTextProperty{RichText: richText(row.Memo.StringVal)}
	}

	return props
}

// extractMirrorKey reads the ledger key back from a page, or "" when absent.
func extractMirrorKey(page notionapi.Page) string {
	if prop, ok := page.Properties[PropKey]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok && len(rt.RichText) > 0 {
			return rt.RichText[0].PlainText
		}
	}
	return ""
}
