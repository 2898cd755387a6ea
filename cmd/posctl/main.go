// posctl: консольный клиент аптечного API для чеков, карточек лекарств и просроченных остатков.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"pharmacy/internal/client"
)

const usage = `usage: posctl [-server URL] <command> [flags]

commands:
  receipt  -order N [-json]   print the receipt of a committed order
  medicine -id N              show a medicine card
  expired  [-at YYYY-MM-DD]   list medicines past their expiry date
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "posctl:", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func run(args []string, out io.Writer) error {
	global := flag.NewFlagSet("posctl", flag.ContinueOnError)
	server := global.String("server", getEnv("PHARMACY_SERVER", "http://localhost:8080"), "API base URL")
	global.Usage = func() { fmt.Fprint(global.Output(), usage) }
	if err := global.Parse(args); err != nil {
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return errors.New("missing command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	c := client.New(*server)

	switch rest[0] {
	case "receipt":
		return receiptCmd(ctx, c, rest[1:], out)
	case "medicine":
		return medicineCmd(ctx, c, rest[1:], out)
	case "expired":
		return expiredCmd(ctx, c, rest[1:], out)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

func receiptCmd(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("receipt", flag.ContinueOnError)
	orderID := fs.Int64("order", 0, "order id")
	asJSON := fs.Bool("json", false, "print totals instead of the text receipt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *orderID <= 0 {
		return errors.New("receipt: -order is required")
	}
	if *asJSON {
		r, err := c.Receipt(ctx, *orderID)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "order %d: subtotal %s tax %s total %s points %d\n",
			r.OrderID, r.Subtotal.StringFixed(2), r.Tax.StringFixed(2), r.GrandTotal.StringFixed(2), r.LoyaltyPoints)
		return err
	}
	text, err := c.ReceiptText(ctx, *orderID)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, text)
	return err
}

func medicineCmd(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("medicine", flag.ContinueOnError)
	id := fs.Int64("id", 0, "medicine id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("medicine: -id is required")
	}
	m, err := c.Medicine(ctx, *id)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%d\n", m.ID)
	fmt.Fprintf(tw, "Name\t%s\n", m.Name)
	fmt.Fprintf(tw, "SKU\t%s\n", m.SKU)
	fmt.Fprintf(tw, "Price\t%s\n", m.Price.StringFixed(2))
	if m.WholesalePrice.Valid {
		fmt.Fprintf(tw, "Wholesale\t%s\n", m.WholesalePrice.Decimal.StringFixed(2))
	}
	fmt.Fprintf(tw, "Stock\t%d\n", m.Stock)
	if m.ExpiryDate != nil {
		fmt.Fprintf(tw, "Expires\t%s\n", m.ExpiryDate.Format("2006-01-02"))
	}
	return tw.Flush()
}

func expiredCmd(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("expired", flag.ContinueOnError)
	atFlag := fs.String("at", "", "reference date YYYY-MM-DD (server today by default)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var at time.Time
	if *atFlag != "" {
		t, err := time.Parse("2006-01-02", *atFlag)
		if err != nil {
			return fmt.Errorf("expired: invalid -at: %w", err)
		}
		at = t
	}
	list, err := c.ExpiredMedicines(ctx, at)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		_, err := fmt.Fprintln(out, "no expired medicines")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSKU\tNAME\tSTOCK\tEXPIRED")
	for _, m := range list {
		expiry := ""
		if m.ExpiryDate != nil {
			expiry = m.ExpiryDate.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", m.ID, m.SKU, m.Name, m.Stock, expiry)
	}
	return tw.Flush()
}
