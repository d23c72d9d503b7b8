package sandbox

import (
	"net/url"
	"strconv"
	"strings"
)

// BankQr is a decoded bank transfer QR.
type BankQr struct {
	BankName        string
	AccountNumber   string
	BeneficiaryName string
	Amount          int64 // fiat, zero when the QR carries none
}

// ParseBankQr decodes the bank://<bank>/<account>?name=…&amount=… scheme the
// sandbox registry recognizes. Unknown payloads report ok=false.
func ParseBankQr(raw string) (BankQr, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "bank://") {
		return BankQr{}, false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return BankQr{}, false
	}

	bank := u.Host
	account := strings.Trim(u.Path, "/")
	if bank == "" || account == "" || strings.Contains(account, "/") {
		return BankQr{}, false
	}

	q := u.Query()
	out := BankQr{
		BankName:        bank,
		AccountNumber:   account,
		BeneficiaryName: q.Get("name"),
	}
	if v := q.Get("amount"); v != "" {
		amount, err := strconv.ParseInt(v, 10, 64)
		if err != nil || amount < 0 {
			return BankQr{}, false
		}
		out.Amount = amount
	}
	return out, true
}
