package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/vendorhub/storefront/internal/core/domain"
	"github.com/vendorhub/storefront/internal/core/ports"
	"github.com/vendorhub/storefront/internal/core/storefront"
)

var errUsage = errors.New("usage")

const usage = `commands:
  register -name N -email E -password P [-role customer|vendor|admin]
  login -email E -password P      logout      whoami
  products                        list what your role may browse
  pending                         moderation queue (admin)
  submit -title T -description D -price 9.99 [-category C] [-quantity N] [-image URL]
  approve <id>                    reject <id>
  stats                           vendor dashboard
  shell                           interactive mode with a cart

shell only:
  add <id> [qty]   qty <id> <n>   rm <id>   cart   clear   reconcile   help   exit
`

type command struct {
	run func(ctx context.Context, args []string) error
	// view is the catalog view the command renders, if any.
	view      storefront.View
	shellOnly bool
}

type cli struct {
	app      *storefront.App
	in       *bufio.Scanner
	out      io.Writer
	commands map[string]command

	inShell bool
	view    storefront.View
}

func newCLI(app *storefront.App, in io.Reader, out io.Writer) *cli {
	c := &cli{app: app, in: bufio.NewScanner(in), out: out}
	c.commands = map[string]command{
		"register":  {run: c.register},
		"login":     {run: c.login},
		"logout":    {run: c.logout},
		"whoami":    {run: c.whoami},
		"products":  {run: c.products, view: storefront.ViewProducts},
		"pending":   {run: c.pending, view: storefront.ViewPendingQueue},
		"submit":    {run: c.submit},
		"approve":   {run: c.moderate(domain.DecisionApprove), view: storefront.ViewPendingQueue},
		"reject":    {run: c.moderate(domain.DecisionReject), view: storefront.ViewPendingQueue},
		"stats":     {run: c.stats},
		"shell":     {run: c.shell},
		"add":       {run: c.add, view: storefront.ViewProducts, shellOnly: true},
		"qty":       {run: c.setQty, shellOnly: true},
		"rm":        {run: c.remove, shellOnly: true},
		"cart":      {run: c.cart, shellOnly: true},
		"clear":     {run: c.clear, shellOnly: true},
		"reconcile": {run: c.reconcile, shellOnly: true},
		"help":      {run: c.help},
	}
	return c
}

// run executes one command. Ctrl-C cancels the command in flight; a view it
// was loading is left so the late response is discarded.
func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	cmd, ok := c.commands[args[0]]
	if !ok {
		fmt.Fprintf(c.out, "unknown command %q\n\n%s", args[0], usage)
		return errUsage
	}
	if cmd.shellOnly && !c.inShell {
		fmt.Fprintf(c.out, "%s is only available in the shell\n", args[0])
		return errUsage
	}

	c.navigate(cmd.view)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	err := cmd.run(ctx, args[1:])
	if ctx.Err() != nil && cmd.view != "" {
		c.app.Catalog.Leave(cmd.view)
	}
	return err
}

// navigate marks the previous view as left when another one is shown.
func (c *cli) navigate(to storefront.View) {
	if c.view != "" && c.view != to {
		c.app.Catalog.Leave(c.view)
	}
	c.view = to
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.out)
	return fs
}

func (c *cli) register(ctx context.Context, args []string) error {
	fs := c.flags("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "at least 8 characters")
	role := fs.String("role", string(domain.RoleCustomer), "customer, vendor or admin")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	r, ok := domain.ParseRole(*role)
	if !ok {
		return fmt.Errorf("register: %w: unknown role %q", domain.ErrValidation, *role)
	}
	id, err := c.app.Register(ctx, ports.RegisterInput{Name: *name, Email: *email, Password: *password, Role: r})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "registered %s as %s, you can log in now\n", id.Email, id.Role)
	return nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := c.flags("login")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if rest := fs.Args(); *email == "" && len(rest) == 2 {
		*email, *password = rest[0], rest[1]
	}

	s, err := c.app.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "welcome %s (%s)\n", displayName(s.Identity), s.Role())
	return nil
}

func (c *cli) logout(ctx context.Context, _ []string) error {
	if err := c.app.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "logged out")
	return nil
}

func (c *cli) whoami(context.Context, []string) error {
	s := c.app.Session()
	if !s.Authenticated() {
		fmt.Fprintln(c.out, "not logged in")
		return nil
	}
	fmt.Fprintf(c.out, "%s <%s> %s\n", displayName(s.Identity), s.Identity.Email, s.Role())
	return nil
}

func (c *cli) products(ctx context.Context, _ []string) error {
	products, err := c.app.Products(ctx)
	if err != nil {
		return err
	}
	c.printProducts(products)
	return nil
}

func (c *cli) pending(ctx context.Context, _ []string) error {
	products, err := c.app.Pending(ctx)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		fmt.Fprintln(c.out, "no products waiting for review")
		return nil
	}
	c.printProducts(products)
	return nil
}

func (c *cli) submit(ctx context.Context, args []string) error {
	fs := c.flags("submit")
	title := fs.String("title", "", "product title")
	description := fs.String("description", "", "product description")
	price := fs.String("price", "", "unit price, e.g. 19.99")
	category := fs.String("category", "", "category")
	quantity := fs.Int("quantity", 0, "available stock")
	image := fs.String("image", "", "image URL")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	amount, err := decimal.NewFromString(*price)
	if err != nil {
		return fmt.Errorf("submit: %w: price %q is not a number", domain.ErrValidation, *price)
	}
	p, err := c.app.Submit(ctx, domain.ProductSubmission{
		Title:             *title,
		Description:       *description,
		Category:          *category,
		Price:             amount,
		AvailableQuantity: *quantity,
		ImageRef:          *image,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "submitted %s %q, waiting for review\n", p.ID, p.Title)
	return nil
}

// moderate refreshes the queue once when the product is not known yet, as a
// one-shot command starts with an empty mirror.
func (c *cli) moderate(d domain.Decision) func(context.Context, []string) error {
	return func(ctx context.Context, args []string) error {
		if len(args) != 1 {
			fmt.Fprintf(c.out, "usage: %s <id>\n", d)
			return errUsage
		}
		id := args[0]
		decide := c.app.Approve
		if d == domain.DecisionReject {
			decide = c.app.Reject
		}

		p, err := decide(ctx, id)
		if errors.Is(err, domain.ErrProductNotFound) {
			if _, refreshErr := c.app.Pending(ctx); refreshErr != nil {
				return refreshErr
			}
			p, err = decide(ctx, id)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s is now %s\n", p.ID, p.Status)
		return nil
	}
}

func (c *cli) stats(ctx context.Context, _ []string) error {
	s, err := c.app.Stats(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "total\t%d\n", s.Total)
	fmt.Fprintf(tw, "approved\t%d\n", s.Approved)
	fmt.Fprintf(tw, "pending\t%d\n", s.Pending)
	fmt.Fprintf(tw, "rejected\t%d\n", s.Rejected)
	fmt.Fprintf(tw, "listed value\t%s\n", domain.FormatPrice(s.ListedValue))
	return tw.Flush()
}

func (c *cli) add(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(c.out, "usage: add <id> [qty]")
		return errUsage
	}
	qty := 1
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("add to cart: %w: quantity %q is not a number", domain.ErrValidation, args[1])
		}
		qty = n
	}

	e, err := c.app.AddToCart(args[0], qty)
	if errors.Is(err, domain.ErrProductNotFound) {
		if _, refreshErr := c.app.Products(ctx); refreshErr != nil {
			return refreshErr
		}
		e, err = c.app.AddToCart(args[0], qty)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d x %s in cart", e.Quantity, e.Title)
	if e.Quantity == e.AvailableQuantity {
		fmt.Fprint(c.out, " (all available stock)")
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *cli) setQty(_ context.Context, args []string) error {
	if len(args) != 2 {
		fmt.Fprintln(c.out, "usage: qty <id> <n>")
		return errUsage
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("set quantity: %w: %q is not a number", domain.ErrValidation, args[1])
	}
	if err := c.app.Cart.SetQuantity(args[0], n); err != nil {
		return err
	}
	return c.cart(context.Background(), nil)
}

func (c *cli) remove(_ context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "usage: rm <id>")
		return errUsage
	}
	c.app.Cart.Remove(args[0])
	return c.cart(context.Background(), nil)
}

func (c *cli) cart(context.Context, []string) error {
	entries := c.app.Cart.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(c.out, "cart is empty")
		return nil
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tQTY\tUNIT\tSUBTOTAL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", e.ProductID, e.Title, e.Quantity, domain.FormatPrice(e.UnitPrice), domain.FormatPrice(e.Subtotal()))
	}
	items, total := c.app.CartTotal()
	fmt.Fprintf(tw, "\t%d items\t\t\t%s\n", items, domain.FormatPrice(total))
	return tw.Flush()
}

func (c *cli) clear(context.Context, []string) error {
	c.app.Cart.Clear()
	fmt.Fprintln(c.out, "cart cleared")
	return nil
}

func (c *cli) reconcile(ctx context.Context, _ []string) error {
	changed, err := c.app.ReconcileCart(ctx)
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		fmt.Fprintln(c.out, "cart is up to date")
		return nil
	}
	fmt.Fprintf(c.out, "updated from current stock: %s\n", strings.Join(changed, ", "))
	return c.cart(ctx, nil)
}

func (c *cli) help(context.Context, []string) error {
	fmt.Fprint(c.out, usage)
	return nil
}

func (c *cli) printProducts(products []domain.Product) {
	if len(products) == 0 {
		fmt.Fprintln(c.out, "no products")
		return
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tSTOCK\tSTATUS")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.Title, domain.FormatPrice(p.Price), p.AvailableQuantity, p.Status)
	}
	_ = tw.Flush()
}

func displayName(id domain.Identity) string {
	if id.DisplayName != "" {
		return id.DisplayName
	}
	return id.Email
}
