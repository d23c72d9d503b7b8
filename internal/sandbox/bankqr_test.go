package sandbox

import "testing"

func TestParseBankQr(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want BankQr
		ok   bool
	}{
		{
			name: "full",
			raw:  "bank://VCB/0071000123456?name=NGUYEN+VAN+A&amount=50000",
			want: BankQr{BankName: "VCB", AccountNumber: "0071000123456", BeneficiaryName: "NGUYEN VAN A", Amount: 50_000},
			ok:   true,
		},
		{
			name: "no amount",
			raw:  "bank://TCB/19036789",
			want: BankQr{BankName: "TCB", AccountNumber: "19036789"},
			ok:   true,
		},
		{name: "wrong scheme", raw: "paypath:@alice"},
		{name: "missing account", raw: "bank://VCB"},
		{name: "nested path", raw: "bank://VCB/a/b"},
		{name: "negative amount", raw: "bank://VCB/007?amount=-1"},
		{name: "junk amount", raw: "bank://VCB/007?amount=abc"},
		{name: "empty", raw: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseBankQr(tc.raw)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}
