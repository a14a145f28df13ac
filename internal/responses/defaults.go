package responses

// builtin holds the replies used when no catalogue file defines a key
var builtin = map[string]Template{
	"loan": {
		Subject: "Loan recorded",
		Body: `Noted! {{user .Loan.Lender}} lent {{user .Loan.Borrower}} {{money .Loan.PrincipalCents .Loan.Currency}}.
{{- if .Loan.Memo}} Memo: "{{.Loan.Memo}}".{{end}}

Loan id: {{.Loan.ID}}. The borrower can confirm with ` + "`$confirm {{user .Loan.Lender}} {{amount .Loan.PrincipalCents}} {{.Loan.Currency}}`" + `.`,
	},
	"paid": {
		Subject: "Repayment recorded",
		Body: `{{user .Lender}} received {{money .Result.PaidCents .Result.Currency}} from {{user .Borrower}}.
{{- if gt .Result.RemainingCents 0}} Still outstanding: {{money .Result.RemainingCents .Result.Currency}}.{{else}} All {{.Result.Currency}} loans are repaid.{{end}}`,
	},
	"unpaid": {
		Subject: "Loans marked unpaid",
		Body:    `{{user .Lender}} marked {{.Count}} open loan(s) to {{user .Borrower}} as unpaid.`,
	},
	"confirm": {
		Subject: "Confirmation recorded",
		Body:    `{{user .Confirmation.Author}} confirms receiving {{money .Confirmation.AmountCents .Confirmation.Currency}} from {{user .Confirmation.Counterparty}}.`,
	},
	"check": {
		Subject: "Lending history",
		Body: `{{with .Summary}}{{if not .Known}}{{user .Username}} has no lending history.{{else -}}
{{user .Username}} borrowed {{len .AsBorrower}} time(s) and repaid {{.Repaid}}, lent {{len .AsLender}} time(s).
{{- if .Unpaid}} **{{.Unpaid}} loan(s) marked unpaid.**{{end}}
{{- range $currency, $cents := .Owed}}
Currently owes {{money $cents $currency}}.{{end}}{{end}}{{end}}`,
	},
	"check_full": {
		Subject: "Lending history",
		Body: `{{with .Summary}}{{if not .Known}}{{user .Username}} has no lending history.{{else -}}
{{user .Username}} borrowed {{len .AsBorrower}} time(s) and repaid {{.Repaid}}, lent {{len .AsLender}} time(s).

| id | lender | borrower | amount | repaid | status |
|---|---|---|---|---|---|
{{- range .AsBorrower}}
| {{.ID}} | {{.Lender}} | {{.Borrower}} | {{money .PrincipalCents .Currency}} | {{money .RepaidCents .Currency}} | {{status .}} |
{{- end}}
{{- range .AsLender}}
| {{.ID}} | {{.Lender}} | {{.Borrower}} | {{money .PrincipalCents .Currency}} | {{money .RepaidCents .Currency}} | {{status .}} |
{{- end}}{{end}}{{end}}`,
	},
	"error": {
		Subject: "Command not recorded",
		Body: `Sorry {{user .Author}}, I could not process that: {{.Error}}.

Usage: ` + "`{{.Usage}}`",
	},
}
