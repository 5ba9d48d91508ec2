package extraction

import (
	"strings"

	"github.com/dvloznov/statement-review/internal/domain"
)

const (
	// DefaultPromptID names the built-in prompt in stored model outputs.
	DefaultPromptID      = "statement-extract"
	DefaultPromptVersion = "v1"
)

const defaultPrompt = "You are a bank statement parser.\n\n" +
	"Task:\n" +
	"- Extract ALL transaction lines in the attached statement.\n" +
	"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
	"- Output a single JSON object.\n\n" +
	"The object must have these fields:\n" +
	"- \"transactions\": array of objects, each with:\n" +
	"  - \"txid\": string, a stable id for the line (statement id plus line number)\n" +
	"  - \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
	"  - \"account_id\": string, the account the line belongs to\n" +
	"  - \"payee\": string or null\n" +
	"  - \"memo\": string or null\n" +
	"  - \"direction\": \"Debit\" for money out, \"Credit\" for money in\n" +
	"  - \"kind\": \"Fiat\" or \"Crypto\"\n" +
	"  - \"ccy_or_asset\": currency or asset code (e.g. \"USD\", \"BTC\")\n" +
	"  - \"amount_or_qty\": positive number, never signed\n" +
	"  - \"price\", \"price_ccy\": conversion rate for crypto lines, else null\n" +
	"- \"audit\": {\"issues\": [], \"assumptions\": [], \"skipped_lines\": []}\n" +
	"- \"inferred_meta\": {\"opening_balance\": number, \"closing_balance\": number, \"account_id\": string or null}\n" +
	"- \"quality\": short label for how readable the statement was\n" +
	"- \"confidence\": number between 0 and 1\n\n" +
	"Rules:\n" +
	"- If the statement has separate \"paid out\" / \"paid in\" columns, set direction accordingly.\n" +
	"- Record every line you could not read in audit.skipped_lines.\n" +
	"- Record every guess you made in audit.assumptions.\n\n" +
	"Return ONLY valid raw JSON.\n" +
	"Do NOT wrap the response in code fences.\n"

// promptFor returns the prompt text, id and version to use for a request.
// A request without its own prompt gets the built-in one; the assistant name,
// when given, is prepended as a role line.
func promptFor(req domain.ExtractionRequest) (text, id, version string) {
	text, id, version = req.Prompt, req.PromptID, req.PromptVersion
	if strings.TrimSpace(text) == "" {
		text, id, version = defaultPrompt, DefaultPromptID, DefaultPromptVersion
	}
	if name := strings.TrimSpace(req.AssistantName); name != "" {
		text = "Assistant: " + name + "\n\n" + text
	}
	return text, id, version
}
