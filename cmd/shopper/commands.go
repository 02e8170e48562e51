package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/partnest/sparesync/internal/appstate"
	"github.com/partnest/sparesync/internal/cartview"
	"github.com/partnest/sparesync/internal/failure"
	"github.com/partnest/sparesync/internal/live"
	"github.com/partnest/sparesync/internal/orders"
	"github.com/partnest/sparesync/internal/pricing"
	"github.com/partnest/sparesync/pkg/auth"
	"github.com/partnest/sparesync/pkg/enums"
	pkgerrors "github.com/partnest/sparesync/pkg/errors"
	"github.com/partnest/sparesync/pkg/types"
)

func run(ctx context.Context, a *app, out io.Writer, name string, args []string) int {
	switch name {
	case "login":
		return cmdLogin(ctx, a, out, args)
	case "logout":
		if err := a.sessions.Clear(ctx); err != nil {
			fmt.Fprintln(out, "logout failed:", err)
			return 1
		}
		fmt.Fprintln(out, "logged out")
		return 0
	case "catalog":
		return withView(ctx, a, out, "catalog", func(v *view) error {
			if err := v.catalog.Refresh(v.screen.Context()); err != nil {
				return err
			}
			printCatalog(out, v.screen.State().Catalog)
			return nil
		})
	case "wallet":
		return withView(ctx, a, out, "wallet", func(v *view) error {
			if err := v.catalog.RefreshWallet(v.screen.Context()); err != nil {
				return err
			}
			if w := v.screen.State().Wallet; w != nil {
				fmt.Fprintln(out, "balance:", w.Amount.StringFixed(pricing.Places))
			}
			return nil
		})
	case "cart":
		return withView(ctx, a, out, "cart", func(v *view) error {
			return showCart(out, v, func(ctx context.Context) error {
				_, err := v.cart.Load(ctx)
				return err
			})
		})
	case "add", "inc", "dec", "remove":
		productID, err := productArg(args, 1)
		if err != nil {
			fmt.Fprintln(out, err)
			return 2
		}
		return withView(ctx, a, out, "cart", func(v *view) error {
			return showCart(out, v, func(ctx context.Context) error {
				var err error
				switch name {
				case "add":
					_, err = v.cart.AddItem(ctx, productID)
				case "inc":
					_, err = v.cart.Increment(ctx, productID)
				case "dec":
					_, err = v.cart.Decrement(ctx, productID)
				default:
					_, err = v.cart.RemoveItem(ctx, productID)
				}
				return err
			})
		})
	case "set":
		productID, err := productArg(args, 2)
		if err != nil {
			fmt.Fprintln(out, err)
			return 2
		}
		quantity, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintln(out, "quantity must be a number")
			return 2
		}
		return withView(ctx, a, out, "cart", func(v *view) error {
			return showCart(out, v, func(ctx context.Context) error {
				_, err := v.cart.SetQuantity(ctx, productID, quantity)
				return err
			})
		})
	case "checkout":
		return cmdCheckout(ctx, a, out, args)
	case "orders":
		fs := flag.NewFlagSet("orders", flag.ContinueOnError)
		fs.SetOutput(out)
		status := fs.String("status", "", "shipment status filter")
		if err := fs.Parse(args); err != nil {
			return 2
		}
		return withView(ctx, a, out, "orders", func(v *view) error {
			var filter *enums.ShipmentStatus
			if *status != "" {
				s := enums.ShipmentStatus(strings.ToLower(*status))
				filter = &s
			}
			list, err := v.orders.List(v.screen.Context(), filter)
			if err != nil {
				return err
			}
			printOrders(out, list)
			return nil
		})
	case "cancel":
		if len(args) < 1 {
			fmt.Fprintln(out, "cancel needs an order id")
			return 2
		}
		orderID, err := uuid.Parse(args[0])
		if err != nil {
			fmt.Fprintln(out, "invalid order id")
			return 2
		}
		return withView(ctx, a, out, "orders", func(v *view) error {
			order, err := v.orders.Cancel(v.screen.Context(), orderID)
			if err != nil {
				return err
			}
			printOrders(out, []types.Order{order})
			return nil
		})
	case "watch":
		return cmdWatch(ctx, a, out)
	}
	fmt.Fprint(out, usage)
	return 2
}

// withView enters screen name, runs fn inside it and routes any failure
// through the failure policy before leaving.
func withView(ctx context.Context, a *app, out io.Writer, name string, fn func(v *view) error) int {
	v, err := a.enter(ctx, name)
	if err != nil {
		fmt.Fprintln(out, "cannot open screen:", err)
		return 1
	}
	defer func() { _ = v.screen.Leave() }()

	if err := fn(v); err != nil {
		report(out, v.failure.Handle(v.screen.Context(), err))
		return 1
	}
	return 0
}

func report(out io.Writer, outcome failure.Outcome) {
	if outcome.Kind == failure.KindDropped || outcome.Kind == failure.KindNone {
		return
	}
	n := outcome.Notice
	fmt.Fprintf(out, "error [%s]: %s\n", n.Code, n.Message)
	if ids := detailIDs(n.Details); len(ids) > 0 {
		fmt.Fprintln(out, "  affected products:", strings.Join(ids, ", "))
	}
	switch outcome.Kind {
	case failure.KindRetry:
		fmt.Fprintln(out, "  the request can be retried")
	case failure.KindLogout:
		fmt.Fprintln(out, "  session expired, log in again")
	case failure.KindRefresh:
		if outcome.ResubmitAllowed {
			fmt.Fprintln(out, "  cart and catalog refreshed, review and resubmit")
		} else {
			fmt.Fprintln(out, "  refresh failed:", outcome.RefreshErr)
		}
	}
}

func detailIDs(details any) []string {
	m, ok := details.(map[string]any)
	if !ok {
		return nil
	}
	switch ids := m["productIds"].(type) {
	case []string:
		return ids
	case []any:
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			out = append(out, fmt.Sprint(id))
		}
		return out
	}
	return nil
}

func productArg(args []string, want int) (uuid.UUID, error) {
	if len(args) < want {
		return uuid.Nil, fmt.Errorf("expected %d argument(s)", want)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid product id %q", args[0])
	}
	return id, nil
}

// showCart loads the catalog for local stock checks, runs op and prints the
// resulting cart. A catalog failure does not block the cart operation.
func showCart(out io.Writer, v *view, op func(ctx context.Context) error) error {
	ctx := v.screen.Context()
	if err := v.catalog.Refresh(ctx); err != nil {
		report(out, v.failure.Handle(ctx, err))
	}
	if err := op(ctx); err != nil {
		return err
	}
	state := v.screen.State()
	printCart(out, cartview.Build(state.Cart, state.Catalog))
	return nil
}

func cmdLogin(ctx context.Context, a *app, out io.Writer, args []string) int {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(out)
	token := fs.String("token", "", "access token issued by the backend")
	role := fs.String("role", "", "mint a development token for this role")
	user := fs.String("user", "", "user id for a minted token")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *token == "" {
		if *role == "" {
			fmt.Fprintln(out, "login needs -token or -role")
			return 2
		}
		memberRole, err := enums.ParseMemberRole(*role)
		if err != nil {
			fmt.Fprintln(out, err)
			return 2
		}
		userID := uuid.New()
		if *user != "" {
			if userID, err = uuid.Parse(*user); err != nil {
				fmt.Fprintln(out, "invalid user id")
				return 2
			}
		}
		minted, err := auth.MintAccessToken(a.cfg.JWT, time.Now(), auth.AccessTokenPayload{UserID: userID, Role: memberRole})
		if err != nil {
			fmt.Fprintln(out, "cannot mint token:", err)
			return 1
		}
		*token = minted
	}

	sess, err := a.sessions.Save(ctx, *token)
	if err != nil {
		fmt.Fprintln(out, "login failed:", err)
		return 1
	}
	fmt.Fprintf(out, "logged in as %s (%s)\n", sess.UserID, sess.Role)
	return 0
}

func cmdCheckout(ctx context.Context, a *app, out io.Writer, args []string) int {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	fs.SetOutput(out)
	payment := fs.String("payment", enums.PaymentMethodCashOnDelivery.String(), "payment method")
	var addr types.Address
	fs.StringVar(&addr.HouseNo, "house", "", "house number")
	fs.StringVar(&addr.Street, "street", "", "street")
	fs.StringVar(&addr.PostalCode, "postal", "", "postal code")
	fs.StringVar(&addr.City, "city", "", "city")
	fs.StringVar(&addr.State, "state", "", "state")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	return withView(ctx, a, out, "checkout", func(v *view) error {
		sctx := v.screen.Context()
		if err := v.catalog.Refresh(sctx); err != nil {
			report(out, v.failure.Handle(sctx, err))
		}
		if *payment == enums.PaymentMethodWallet.String() {
			if err := v.catalog.RefreshWallet(sctx); err != nil {
				return err
			}
		}
		if _, err := v.cart.Load(sctx); err != nil {
			return err
		}
		order, err := v.orders.Place(sctx, orders.PlaceInput{
			Address:       addr.Normalized(),
			PaymentMethod: enums.PaymentMethod(*payment),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "order placed")
		printOrders(out, []types.Order{order})
		return nil
	})
}

// cmdWatch mounts a live screen and prints every pushed snapshot until interrupted.
func cmdWatch(ctx context.Context, a *app, out io.Writer) int {
	sess, err := a.sessions.Load(ctx)
	if err != nil {
		fmt.Fprintln(out, "watch requires a stored session:", err)
		return 1
	}

	return withView(ctx, a, out, "live", func(v *view) error {
		sctx := v.screen.Context()
		if err := v.catalog.Refresh(sctx); err != nil {
			return err
		}
		if err := v.catalog.RefreshWallet(sctx); err != nil {
			return err
		}

		unsubscribe := a.store.Subscribe(func(state appstate.State, action appstate.Action) {
			switch action.(type) {
			case appstate.CatalogReplaced:
				fmt.Fprintf(out, "%s catalog updated\n", time.Now().Format(time.TimeOnly))
				printCatalog(out, state.Catalog)
			case appstate.WalletReplaced:
				if state.Wallet != nil {
					fmt.Fprintf(out, "%s wallet balance %s\n", time.Now().Format(time.TimeOnly), state.Wallet.Amount.StringFixed(pricing.Places))
				}
			case appstate.ConversationsReplaced:
				fmt.Fprintf(out, "%s %d conversation(s)\n", time.Now().Format(time.TimeOnly), len(state.Conversations))
			}
		})
		defer unsubscribe()

		topics := []live.Topic{
			{Class: enums.ResourceClassCatalog, UserID: sess.UserID, Role: sess.Role},
			{Class: enums.ResourceClassWallet, UserID: sess.UserID},
			{Class: enums.ResourceClassConversation, UserID: sess.UserID},
		}
		for _, topic := range topics {
			if err := v.screen.Subscribe(topic); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open live channel")
			}
		}
		fmt.Fprintln(out, "watching for updates, press Ctrl+C to stop")
		<-sctx.Done()
		return nil
	})
}

func printCatalog(out io.Writer, products []types.Product) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTOCK\tPRICE\tDISCOUNT\tUNIT")
	for _, p := range products {
		unit := p.Price.StringFixed(pricing.Places)
		if discounted, err := pricing.DiscountedUnitPrice(p.Price, p.Discount); err == nil {
			unit = discounted.StringFixed(pricing.Places)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s%%\t%s\n", p.ID, p.Name, p.Quantity, p.Price.StringFixed(pricing.Places), p.Discount.String(), unit)
	}
	_ = tw.Flush()
}

func printCart(out io.Writer, view cartview.View) {
	if len(view.Lines) == 0 {
		fmt.Fprintln(out, "cart is empty")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tNAME\tQTY\tGROSS\tDISCOUNT\tNET\tSTATUS")
	for _, line := range view.Lines {
		status := "ok"
		switch {
		case line.Missing:
			status = "unlisted"
		case line.OutOfStock:
			status = fmt.Sprintf("only %d left", line.Available)
		case line.Inconsistent:
			status = "check pricing"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n", line.ProductID, line.Name, line.Quantity, line.Gross, line.Discount, line.Net, status)
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "total %s  discount %s  payable %s\n", view.Total, view.Discount, view.Payable)
	if !view.Placeable {
		fmt.Fprintln(out, "cart cannot be placed until the flagged lines are fixed")
	}
}

func printOrders(out io.Writer, list []types.Order) {
	if len(list) == 0 {
		fmt.Fprintln(out, "no orders")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tSTATUS\tPAYMENT\tITEMS\tTOTAL\tDISCOUNT\tPLACED")
	for _, o := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			o.ID, o.ShipmentStatus, o.PaymentMethod, len(o.Items),
			o.TotalAmount.StringFixed(pricing.Places), o.DiscountAmount.StringFixed(pricing.Places),
			o.CreatedAt.Format(time.RFC3339))
	}
	_ = tw.Flush()
}
