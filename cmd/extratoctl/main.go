// Command extratoctl is a terminal client for the conversion API: account
// management, statement uploads, artifact downloads, and plan upgrades with
// payment confirmation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/pmfcarvalho/extrato/internal/client"
)

const tokenFile = ".extrato_token"

func main() {
	baseURL := flag.String("url", envOr("EXTRATO_URL", "http://localhost:8080"), "API base URL")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := client.New(*baseURL, client.WithToken(loadToken()))

	var err error
	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "register":
		err = runRegister(ctx, c, args)
	case "login":
		err = runLogin(ctx, c, args)
	case "logout":
		err = removeToken()
	case "me":
		err = runMe(ctx, c)
	case "plans":
		err = runPlans(ctx, c)
	case "current":
		err = runCurrent(ctx, c)
	case "upload":
		err = runUpload(ctx, c, args)
	case "list":
		err = runList(ctx, c)
	case "download":
		err = runDownload(ctx, c, args)
	case "subscribe":
		err = runSubscribe(ctx, c, args)
	case "watch":
		err = runWatch(ctx, c, args)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var aerr *client.AuthError
		if errors.As(err, &aerr) {
			removeToken()
			fmt.Fprintln(os.Stderr, "session expired, run: extratoctl login")
		}
		var qerr *client.QuotaExceededError
		if errors.As(err, &qerr) {
			fmt.Fprintln(os.Stderr, "upgrade your plan with: extratoctl subscribe <plan>")
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: extratoctl [-url <base>] <command> [args]

commands:
  register <email> <password> <name>   create an account
  login <email> <password>             authenticate and store the token
  logout                               discard the stored token
  me                                   show the authenticated identity
  plans                                show the plan catalog
  current                              show the active subscription and usage
  upload <file.pdf> [bank]             convert a statement (default bank Millennium)
  list                                 list conversions, most recent first
  download <id> <csv|excel> [out]      download a conversion artifact
  subscribe <starter|pro>              start a checkout session
  watch <session_id>                   poll a checkout session to a terminal state`)
}

func runRegister(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: register <email> <password> <name>")
	}
	id, err := c.Register(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}
	if err := saveToken(c.Token()); err != nil {
		return err
	}
	fmt.Printf("registered %s (%s)\n", id.Name, id.Email)
	return nil
}

func runLogin(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: login <email> <password>")
	}
	id, err := c.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if err := saveToken(c.Token()); err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%s)\n", id.Name, id.Email)
	return nil
}

func runMe(ctx context.Context, c *client.Client) error {
	id, err := c.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s> id=%s\n", id.Name, id.Email, id.ID)
	return nil
}

func runPlans(ctx context.Context, c *client.Client) error {
	plans, err := c.Plans(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAN\tNAME\tPRICE\tPAGES\tCONVERSIONS")
	for _, p := range plans {
		conv := "-"
		if p.ConversionsLimit > 0 {
			conv = fmt.Sprintf("%d/month", p.ConversionsLimit)
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f %s\t%d\t%s\n",
			p.Type, p.Name, float64(p.PriceCents)/100, p.Currency, p.PagesLimit, conv)
	}
	return tw.Flush()
}

func runCurrent(ctx context.Context, c *client.Client) error {
	sub, err := c.CurrentSubscription(ctx)
	if err != nil {
		return err
	}
	usage, ok := client.ComputeUsage(sub)
	if !ok {
		return errors.New("no subscription loaded")
	}
	fmt.Printf("plan: %s (%s)\n", sub.PlanType, sub.Status)
	fmt.Printf("usage: %d/%d %s (%.1f%%)\n", usage.Used, usage.Limit, usage.Unit, usage.Percent)
	fmt.Printf("period ends: %s\n", sub.CurrentPeriodEnd.Format("2006-01-02"))
	if usage.Exhausted() {
		fmt.Println("quota exhausted — upgrade with: extratoctl subscribe <plan>")
	}
	return nil
}

func runUpload(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: upload <file.pdf> [bank]")
	}
	bank := "Millennium"
	if len(args) == 2 {
		bank = args[1]
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	job, err := client.NewTracker(c).SubmitUpload(ctx, filepath.Base(args[0]), content, bank)
	if err != nil {
		return err
	}
	fmt.Printf("conversion %s: %s (%d pages)\n", job.ID, job.Status, job.PagesCount)
	return nil
}

func runList(ctx context.Context, c *client.Client) error {
	jobs, err := client.NewTracker(c).ListJobs(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tBANK\tPAGES\tSTATUS\tCREATED")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			j.ID, j.OriginalFilename, j.BankName, j.PagesCount, j.Status,
			j.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func runDownload(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errors.New("usage: download <id> <csv|excel> [out]")
	}

	body, name, err := client.NewTracker(c).Download(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	defer body.Close()

	out := name
	if len(args) == 3 {
		out = args[2]
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, body); err != nil {
		os.Remove(out)
		return err
	}
	fmt.Println("saved", out)
	return nil
}

func runSubscribe(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: subscribe <starter|pro>")
	}
	redirect, err := c.StartCheckout(ctx, args[0], "http://localhost:8080")
	if err != nil {
		return err
	}
	fmt.Println("open this URL to pay:")
	fmt.Println(" ", redirect.URL)
	fmt.Println("then confirm with:")
	fmt.Println("  extratoctl watch", redirect.SessionID)
	return nil
}

func runWatch(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: watch <session_id>")
	}

	fmt.Println("checking payment status...")
	result, err := client.NewPoller(c).Confirm(ctx, args[0])
	if err != nil {
		return err
	}

	switch result.State {
	case client.PollSuccess:
		fmt.Println("payment confirmed — the upgraded plan shows on the next 'current'")
	case client.PollFailed:
		fmt.Println("payment failed or session expired — start a new checkout with 'subscribe'")
	case client.PollTimeout:
		fmt.Printf("no confirmation after %d checks — verify later with 'current' or retry 'watch'\n", result.Attempts)
	}
	return nil
}

func tokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return tokenFile
	}
	return filepath.Join(home, tokenFile)
}

func loadToken() string {
	data, err := os.ReadFile(tokenPath())
	if err != nil {
		return ""
	}
	return string(data)
}

func saveToken(token string) error {
	return os.WriteFile(tokenPath(), []byte(token), 0o600)
}

func removeToken() error {
	if err := os.Remove(tokenPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
