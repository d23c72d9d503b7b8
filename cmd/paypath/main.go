// Command paypath is a terminal client for the PayPath sandbox. It drives the
// same auth, account, and send flows the web client uses, signing with a
// file-backed keystore instead of a wallet extension.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/paypath/paypath/internal/account"
	"github.com/paypath/paypath/internal/api"
	"github.com/paypath/paypath/internal/auth"
	"github.com/paypath/paypath/internal/chain"
	"github.com/paypath/paypath/internal/config"
	"github.com/paypath/paypath/internal/logging"
	"github.com/paypath/paypath/internal/money"
	"github.com/paypath/paypath/internal/qr"
	"github.com/paypath/paypath/internal/recipient"
	"github.com/paypath/paypath/internal/send"
	"github.com/paypath/paypath/internal/vault"
	"github.com/paypath/paypath/internal/wallet"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[paypath] %v\n", err)
	os.Exit(1)
}

func main() {
	app := cli.NewApp()
	app.Name = "paypath"
	app.Version = "0.1.0"
	app.Usage = "send stablecoins by handle, address, or bank QR"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "api-url",
			Usage: "sandbox base URL, overrides PAYPATH_API_URL",
		},
		cli.StringFlag{
			Name:  "keystore",
			Usage: "path to the signing key, overrides PAYPATH_KEYSTORE",
		},
		cli.StringFlag{
			Name:  "vault",
			Usage: "path to the session file, overrides PAYPATH_VAULT",
		},
		cli.Int64Flag{
			Name:  "sim-gas",
			Value: 1_000_000_000,
			Usage: "simulated SUI balance in mist",
		},
		cli.Int64Flag{
			Name:  "sim-usdc",
			Value: 100_000_000,
			Usage: "simulated USDC balance in base units",
		},
	}
	app.Commands = []cli.Command{
		loginCommand,
		logoutCommand,
		whoamiCommand,
		registerCommand,
		balanceCommand,
		methodsCommand,
		handleCommand,
		kycCommand,
		receiveCommand,
		scanCommand,
		sendCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

// env bundles everything a command needs. Commands build one up front and
// return early on any wiring error.
type env struct {
	cfg      config.Config
	logger   *slog.Logger
	signer   *wallet.Keystore
	vault    vault.Vault
	api      *api.Client
	auth     *auth.Controller
	sim      *chain.Sim
	accounts *account.Model
}

func buildEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if v := c.GlobalString("api-url"); v != "" {
		cfg.APIURL = v
	}
	if v := c.GlobalString("keystore"); v != "" {
		cfg.KeystorePath = v
	}
	if v := c.GlobalString("vault"); v != "" {
		cfg.VaultPath = v
	}

	logger := logging.New(cfg.LogLevel)

	signer, err := wallet.OpenKeystore(cfg.KeystorePath)
	if err != nil {
		return nil, err
	}
	sessions := vault.NewFile(cfg.VaultPath)

	e := &env{cfg: cfg, logger: logger, signer: signer, vault: sessions}
	e.api = api.New(cfg.APIURL, sessions, logger, api.WithUnauthorizedHook(func() {
		if e.auth != nil {
			e.auth.HandleUnauthorized()
		}
	}))
	e.auth = auth.NewController(e.api, sessions, signer, cfg.AuthStatement, logger)

	e.sim = chain.NewSim(cfg.GasCost)
	e.sim.Seed(signer.Address(), c.GlobalInt64("sim-gas"), c.GlobalInt64("sim-usdc"))
	e.accounts = account.New(e.api, e.sim, signer, cfg.FiatRate, logger)

	return e, nil
}

// requireSession fails fast when no stored session exists, so commands do not
// hit the backend just to print a 401.
func (e *env) requireSession() error {
	if _, ok := e.vault.Read(); !ok {
		return fmt.Errorf("not logged in, run `paypath login` first")
	}
	return nil
}

var loginCommand = cli.Command{
	Name:   "login",
	Usage:  "sign a challenge with the local keystore and store the session",
	Action: login,
}

func login(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.auth.LoginWithWallet(ctx); err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", wallet.ShortAddress(e.signer.Address()))

	profile, err := e.api.GetProfile(ctx)
	if err == nil && profile.Username == "" {
		fmt.Println("no handle yet, run `paypath register <handle>` to finish onboarding")
	}
	return nil
}

var logoutCommand = cli.Command{
	Name:   "logout",
	Usage:  "discard the stored session",
	Action: logout,
}

func logout(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	e.auth.Logout()
	fmt.Println("logged out")
	return nil
}

var whoamiCommand = cli.Command{
	Name:   "whoami",
	Usage:  "show the current profile",
	Action: whoami,
}

func whoami(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	if err := e.requireSession(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	profile, err := e.api.GetProfile(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("address:  %s\n", profile.WalletAddress)
	if profile.Username == "" {
		fmt.Println("handle:   (not registered)")
	} else {
		fmt.Printf("handle:   @%s\n", profile.Username)
	}
	if profile.KycStatus != "" {
		fmt.Printf("kyc:      %s\n", profile.KycStatus)
	}
	return nil
}

var registerCommand = cli.Command{
	Name:      "register",
	Usage:     "claim a handle for the connected wallet",
	ArgsUsage: "<handle>",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "email",
			Usage: "optional contact email",
		},
		cli.StringFlag{
			Name:  "referral",
			Usage: "optional referring handle",
		},
	},
	Action: register,
}

func register(c *cli.Context) error {
	handle := strings.TrimPrefix(strings.TrimSpace(c.Args().First()), "@")
	if handle == "" {
		return fmt.Errorf("usage: paypath register <handle>")
	}
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	if err := e.requireSession(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	available, err := e.api.CheckUsername(ctx, handle)
	if err != nil {
		return err
	}
	if !available {
		return fmt.Errorf("handle @%s is taken", handle)
	}
	req := api.RegisterRequest{
		Username:         handle,
		WalletAddress:    e.signer.Address(),
		Email:            c.String("email"),
		ReferralUsername: strings.TrimPrefix(c.String("referral"), "@"),
	}
	if err := e.api.Register(ctx, req); err != nil {
		return err
	}
	fmt.Printf("registered @%s\n", handle)
	return nil
}

var balanceCommand = cli.Command{
	Name:   "balance",
	Usage:  "show on-chain balances and their fiat value",
	Action: balance,
}

func balance(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	if err := e.requireSession(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := e.accounts.RefreshBalance(ctx); err != nil {
		return err
	}
	snap := e.accounts.Snapshot()
	fmt.Printf("USDC  %s\n", money.Format(snap.StablecoinUnits, money.StablecoinDecimals))
	fmt.Printf("SUI   %s\n", money.Format(snap.GasUnits, money.GasDecimals))
	fmt.Printf("~VND  %d\n", snap.FiatUnits)
	return nil
}

var methodsCommand = cli.Command{
	Name:   "methods",
	Usage:  "list and manage linked payment methods",
	Action: methods,
	Subcommands: []cli.Command{
		{
			Name:      "link-wallet",
			Usage:     "link an on-chain wallet",
			ArgsUsage: "<address>",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "label", Usage: "display label"},
			},
			Action: linkWallet,
		},
		{
			Name:      "link-bank",
			Usage:     "link a bank account from its QR payload",
			ArgsUsage: "<payload>",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "label", Usage: "display label"},
			},
			Action: linkBank,
		},
		{
			Name:      "unlink",
			Usage:     "remove a linked method by id",
			ArgsUsage: "<id>",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "bank", Usage: "the id names a bank, not a wallet"},
			},
			Action: unlinkMethod,
		},
		{
			Name:      "default",
			Usage:     "choose the default receiving method",
			ArgsUsage: "<id>",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "bank", Usage: "the id names a bank, not a wallet"},
			},
			Action: setDefaultMethod,
		},
	},
}

func methods(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	if err := e.requireSession(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := e.accounts.RefreshMethods(ctx); err != nil {
		return err
	}
	snap := e.accounts.Snapshot()

	if len(snap.Wallets) == 0 && len(snap.Banks) == 0 {
		fmt.Println("no linked methods")
		return nil
	}
	for _, w := range snap.Wallets {
		marker := " "
		if snap.DefaultMethod.WalletType == "onchain" && snap.DefaultMethod.WalletID == w.ID {
			marker = "*"
		}
		fmt.Printf("%s wallet  %-12s %s\n", marker, w.Label, wallet.ShortAddress(w.Address))
	}
	for _, b := range snap.Banks {
		marker := " "
		if snap.DefaultMethod.WalletType == "offchain" && snap.DefaultMethod.WalletID == b.ID {
			marker = "*"
		}
		fmt.Printf("%s bank    %-12s %s (%s)\n", marker, b.BankName, b.AccountNumber, b.BeneficiaryName)
	}
	return nil
}

func authedEnv(c *cli.Context) (*env, error) {
	e, err := buildEnv(c)
	if err != nil {
		return nil, err
	}
	if err := e.requireSession(); err != nil {
		return nil, err
	}
	return e, nil
}

func linkWallet(c *cli.Context) error {
	address := c.Args().First()
	e, err := authedEnv(c)
	if err != nil {
		return err
	}
	if !e.accounts.IsValidAddress(address) {
		return fmt.Errorf("usage: paypath methods link-wallet <address>")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	req := api.AddOnchainWalletRequest{
		Address: address,
		Chain:   "sui",
		Label:   c.String("label"),
	}
	if err := e.api.AddOnchainWallet(ctx, req); err != nil {
		return err
	}
	fmt.Printf("linked wallet %s\n", wallet.ShortAddress(address))
	return nil
}

func linkBank(c *cli.Context) error {
	payload := c.Args().First()
	if payload == "" {
		return fmt.Errorf("usage: paypath methods link-bank <payload>")
	}
	e, err := authedEnv(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	req := api.AddOffchainBankRequest{
		QrString: payload,
		Label:    c.String("label"),
	}
	if err := e.api.AddOffchainBankByQr(ctx, req); err != nil {
		return err
	}
	fmt.Println("linked bank account")
	return nil
}

func unlinkMethod(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("usage: paypath methods unlink <id>")
	}
	e, err := authedEnv(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if c.Bool("bank") {
		err = e.api.DeleteOffchainBank(ctx, id)
	} else {
		err = e.api.DeleteOnchainWallet(ctx, id)
	}
	if err != nil {
		return err
	}
	fmt.Println("unlinked")
	return nil
}

func setDefaultMethod(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("usage: paypath methods default <id>")
	}
	e, err := authedEnv(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	walletType := "onchain"
	if c.Bool("bank") {
		walletType = "offchain"
	}
	req := api.SetDefaultMethodRequest{WalletID: id, WalletType: walletType}
	if err := e.api.SetDefaultMethod(ctx, req); err != nil {
		return err
	}
	fmt.Printf("default method set to %s\n", id)
	return nil
}

var handleCommand = cli.Command{
	Name:      "handle",
	Usage:     "change the registered handle",
	ArgsUsage: "<new-handle>",
	Action:    changeHandle,
}

func changeHandle(c *cli.Context) error {
	handle := strings.TrimPrefix(strings.TrimSpace(c.Args().First()), "@")
	if handle == "" {
		return fmt.Errorf("usage: paypath handle <new-handle>")
	}
	e, err := authedEnv(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := e.api.ChangeUsername(ctx, handle); err != nil {
		return err
	}
	fmt.Printf("handle is now @%s\n", handle)
	return nil
}

var kycCommand = cli.Command{
	Name:  "kyc",
	Usage: "show verification status, or fetch the verification link",
	Flags: []cli.Flag{
		cli.BoolFlag{Name: "link", Usage: "request a verification link"},
	},
	Action: kycStatus,
}

func kycStatus(c *cli.Context) error {
	e, err := authedEnv(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if c.Bool("link") {
		link, err := e.api.GetKycLink(ctx, e.signer.Address())
		if err != nil {
			return err
		}
		fmt.Println(link.Link())
		return nil
	}
	status, err := e.api.GetKycStatus(ctx, e.signer.Address())
	if err != nil {
		return err
	}
	if status.KycStatus == "" {
		fmt.Println("not started")
		return nil
	}
	fmt.Println(status.KycStatus)
	return nil
}

var receiveCommand = cli.Command{
	Name:   "receive",
	Usage:  "print the QR payload other PayPath users can scan to pay you",
	Action: receive,
}

func receive(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	if err := e.requireSession(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := e.accounts.RefreshProfile(ctx); err != nil {
		return err
	}
	handle := e.accounts.Handle()
	if handle == "" {
		return fmt.Errorf("no handle registered, run `paypath register <handle>` first")
	}
	fmt.Println(qr.ReceivePayload(handle))
	return nil
}

var scanCommand = cli.Command{
	Name:      "scan",
	Usage:     "classify a QR payload without paying it",
	ArgsUsage: "<payload>",
	Action:    scan,
}

func scan(c *cli.Context) error {
	raw := c.Args().First()
	if raw == "" {
		return fmt.Errorf("usage: paypath scan <payload>")
	}
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	classified, err := qr.Classify(ctx, raw, e.api)
	if err != nil {
		return err
	}
	switch classified.Kind {
	case qr.KindInternalHandle:
		fmt.Printf("paypath user @%s\n", classified.Handle)
	case qr.KindInternalAddress:
		fmt.Printf("wallet address %s\n", classified.Address)
	case qr.KindExternalBank:
		b := classified.Bank
		fmt.Printf("bank transfer to %s at %s, account %s\n", b.BeneficiaryName, b.BankName, b.AccountNumber)
		if b.Amount > 0 {
			fmt.Printf("suggested amount: %d VND\n", b.Amount)
		}
	}
	return nil
}

var sendCommand = cli.Command{
	Name:      "send",
	Usage:     "send USDC to a handle, address, or scanned QR",
	ArgsUsage: "<recipient|-> <amount>",
	Description: `The recipient is a @handle, a 0x address, or "-" together with
--qr to pay a scanned payload. The amount is in USDC; for bank QRs that carry
a fiat amount the recipient's amount is used when none is given.`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "qr",
			Usage: "raw QR payload to pay",
		},
		cli.BoolFlag{
			Name:  "yes, y",
			Usage: "skip the confirmation prompt",
		},
	},
	Action: sendFunds,
}

func sendFunds(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	if err := e.requireSession(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := e.accounts.RefreshBalance(ctx); err != nil {
		return err
	}

	machine := send.NewMachine(e.api, e.accounts, e.cfg.GasCost, e.logger,
		send.WithPollDeadline(e.cfg.PollDeadline))
	resolver := recipient.New(e.api)

	// With --qr the amount is the only positional argument; otherwise the
	// recipient comes first and the amount second.
	amount := c.Args().Get(1)
	if raw := c.String("qr"); raw != "" {
		amount = c.Args().First()
		classified, err := qr.Classify(ctx, raw, e.api)
		if err != nil {
			return err
		}
		resolved, err := resolver.ResolveQr(ctx, classified)
		if err != nil {
			return err
		}
		machine.LoadQr(raw, resolved)
	} else {
		input := c.Args().First()
		if input == "" || input == "-" {
			return fmt.Errorf("usage: paypath send <recipient> <amount>, or paypath send --qr <payload> [amount]")
		}
		machine.SetRecipientInput(input)
		resolved, err := resolver.ResolveText(ctx, input)
		if err != nil {
			return err
		}
		machine.ApplyResolved(resolved)
	}

	if amount != "" {
		machine.SetAmount(amount)
	} else if c.String("qr") == "" {
		return fmt.Errorf("amount is required")
	}

	if err := machine.Validate(ctx); err != nil {
		return err
	}

	snap := machine.Snapshot()
	fmt.Printf("to:     %s\n", snap.Resolved.DisplayName)
	fmt.Printf("amount: %s USDC\n", money.Format(snap.Quote.GrossUnits, money.StablecoinDecimals))
	fmt.Printf("fee:    %s USDC\n", money.Format(snap.Quote.FeeUnits, money.StablecoinDecimals))
	if snap.Quote.External {
		fmt.Printf("payout: %d %s\n", snap.Quote.FiatAmount, snap.Quote.FiatCurrency)
	}

	if !c.Bool("yes") && !askConfirm() {
		machine.Edit()
		fmt.Println("aborted")
		return nil
	}

	if err := machine.Confirm(ctx); err != nil {
		return err
	}
	snap = machine.Snapshot()
	fmt.Printf("sent, digest %s\n", snap.Digest)
	if snap.OrderID != "" {
		fmt.Printf("order %s settled\n", snap.OrderID)
	}
	return nil
}

func askConfirm() bool {
	fmt.Print("confirm send? [y/N] ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
