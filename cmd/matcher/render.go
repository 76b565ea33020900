package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/erain9/pricetime/pkg/core"
	"github.com/erain9/pricetime/pkg/session"
	"github.com/fatih/color"
)

type renderer struct {
	out   io.Writer
	sess  *session.Session
	cyan  func(format string, a ...interface{}) string
	red   func(format string, a ...interface{}) string
	green func(format string, a ...interface{}) string
}

func newRenderer(out io.Writer, sess *session.Session, colored bool) *renderer {
	sprintf := func(attr color.Attribute) func(string, ...interface{}) string {
		c := color.New(attr)
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintfFunc()
	}
	return &renderer{
		out:   out,
		sess:  sess,
		cyan:  sprintf(color.FgCyan),
		red:   sprintf(color.FgRed),
		green: sprintf(color.FgGreen),
	}
}

func (r *renderer) side(side core.Side) string {
	if side == core.Bid {
		return r.green("%s", side)
	}
	return r.red("%s", side)
}

// result prints one line per trade, then where the remainder went
func (r *renderer) result(res *session.Result) error {
	for _, trade := range res.Trades {
		if _, err := fmt.Fprintf(r.out, "%s %s %s x %d @ %s\n",
			r.cyan("TRADE"),
			trade.ExecutingOrderID,
			trade.MatchedOrderID,
			trade.Amount,
			r.sess.FormatPrice(trade.Price),
		); err != nil {
			return err
		}
	}
	if res.Rested {
		_, err := fmt.Fprintf(r.out, "%s %s %s %d @ %s #%d\n",
			r.cyan("REST"),
			res.OrderID,
			r.side(res.Side),
			res.Remaining,
			r.sess.FormatPrice(res.Price),
			res.Sequence,
		)
		return err
	}
	return nil
}

// book prints the aggregated depth, asks from the top down then bids
func (r *renderer) book(snap *session.BookSnapshot) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 3, ' ', tabwriter.AlignRight)

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", r.cyan("Price"), r.cyan("Amount"), r.cyan("Orders"), r.cyan("Side"))
	for i := len(snap.Asks) - 1; i >= 0; i-- {
		level := snap.Asks[i]
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t\n", r.sess.FormatPrice(level.Price), level.Amount, level.Orders, r.side(core.Ask))
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", "-----", "------", "------", "----")
	for _, level := range snap.Bids {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t\n", r.sess.FormatPrice(level.Price), level.Amount, level.Orders, r.side(core.Bid))
	}

	return w.Flush()
}
