package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"dlc_store/internal/models"
	"dlc_store/internal/session"
	"dlc_store/internal/storefront"
)

const (
	settlePollInterval = 500 * time.Millisecond
	settleWaitTimeout  = 30 * time.Second
)

const usage = `commands:
  list                          show the current catalog page
  category <name|all>           filter by category
  search [text]                 filter by text, empty clears
  find <text>                   search title, description and category
  show <id>                     product details
  add <id>                      put a product in the cart
  remove <id>                   drop a cart line
  qty <id> <n>                  set a line quantity, 0 removes
  cart                          show the cart
  checkout                      place an order for the cart
  login <email> <password>
  register <email> <username> <password>
  logout
  whoami
  orders                        order history
  order <id>                    order status
  wait <id>                     wait until an order settles
  quit`

// shell is a line-oriented front end over a Storefront.
type shell struct {
	sf  *storefront.Storefront
	out io.Writer
}

func newShell(sf *storefront.Storefront, out io.Writer) *shell {
	return &shell{sf: sf, out: out}
}

func (sh *shell) run(ctx context.Context, in io.Reader) {
	sh.printf("%s\n", usage)
	sh.prompt()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 {
			if fields[0] == "quit" || fields[0] == "exit" {
				return
			}
			if err := sh.exec(ctx, fields[0], fields[1:]); err != nil {
				sh.printf("error: %s\n", err)
			}
		}
		sh.prompt()
	}
}

func (sh *shell) exec(ctx context.Context, command string, args []string) error {
	switch command {
	case "help":
		sh.printf("%s\n", usage)
	case "list":
		sh.printCatalog()
	case "category":
		if len(args) != 1 {
			return errors.New("usage: category <name|all>")
		}
		if err := sh.sf.SetCategory(ctx, args[0]); err != nil {
			return err
		}
		sh.printCatalog()
	case "search":
		if err := sh.sf.SetSearch(ctx, strings.Join(args, " ")); err != nil {
			return err
		}
		sh.printCatalog()
	case "find":
		products, err := sh.sf.Search(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		sh.printProducts(products)
	case "show":
		id, err := intArg(args, 0)
		if err != nil {
			return err
		}
		product, err := sh.sf.Product(ctx, id)
		if err != nil {
			return err
		}
		sh.printProduct(product)
	case "add":
		id, err := intArg(args, 0)
		if err != nil {
			return err
		}
		product, err := sh.lookup(ctx, id)
		if err != nil {
			return err
		}
		sh.sf.AddToCart(product)
		sh.printf("added %s, %d item(s) in cart\n", product.Title, sh.sf.Cart().Count())
	case "remove":
		id, err := intArg(args, 0)
		if err != nil {
			return err
		}
		sh.sf.RemoveFromCart(id)
		sh.printCart()
	case "qty":
		id, err := intArg(args, 0)
		if err != nil {
			return err
		}
		quantity, err := intArg(args, 1)
		if err != nil {
			return err
		}
		sh.sf.UpdateQuantity(id, quantity)
		sh.printCart()
	case "cart":
		sh.sf.OpenCart()
		sh.printCart()
	case "checkout":
		sh.checkout(ctx)
	case "login":
		if len(args) != 2 {
			return errors.New("usage: login <email> <password>")
		}
		sh.authResult(sh.sf.Login(ctx, models.LoginRequest{Email: args[0], Password: args[1]}))
	case "register":
		if len(args) != 3 {
			return errors.New("usage: register <email> <username> <password>")
		}
		sh.authResult(sh.sf.Register(ctx, models.RegisterRequest{Email: args[0], Username: args[1], Password: args[2]}))
	case "logout":
		sh.sf.Logout(ctx)
		sh.printf("signed out\n")
	case "whoami":
		sh.printUser()
	case "orders":
		orders, err := sh.sf.Orders(ctx)
		if err != nil {
			return err
		}
		for _, order := range orders {
			sh.printOrder(order)
		}
	case "order":
		if len(args) != 1 {
			return errors.New("usage: order <id>")
		}
		order, err := sh.sf.Order(ctx, args[0])
		if err != nil {
			return err
		}
		sh.printOrder(order)
	case "wait":
		if len(args) != 1 {
			return errors.New("usage: wait <id>")
		}
		waitCtx, cancel := context.WithTimeout(ctx, settleWaitTimeout)
		defer cancel()
		order, err := sh.sf.WaitForSettlement(waitCtx, args[0], settlePollInterval)
		if err != nil {
			return err
		}
		sh.printOrder(order)
	default:
		return fmt.Errorf("unknown command %q, type help", command)
	}
	return nil
}

func (sh *shell) checkout(ctx context.Context) {
	result := sh.sf.Checkout(ctx)
	switch result.Outcome {
	case storefront.AuthRequired:
		sh.printf("sign in to complete your purchase: login <email> <password>\n")
	case storefront.OrderPlaced:
		sh.printf("%s\n", result.Message)
		sh.printOrder(*result.Order)
	default:
		sh.printf("%s\n", result.Message)
	}
}

// lookup prefers the loaded catalog page and falls back to the backend.
func (sh *shell) lookup(ctx context.Context, id int) (models.Product, error) {
	for _, product := range sh.sf.Products() {
		if product.ID == id {
			return product, nil
		}
	}
	return sh.sf.Product(ctx, id)
}

func (sh *shell) authResult(ok bool) {
	if !ok {
		message := sh.sf.Session().Error()
		if message == "" {
			message = session.MsgAuthInProgress
		}
		sh.printf("%s\n", message)
		return
	}
	sh.printUser()
}

func (sh *shell) prompt() {
	label := "guest"
	if user := sh.sf.Session().User(); user != nil {
		label = user.Username
	}
	sh.printf("%s> ", label)
}

func (sh *shell) printCatalog() {
	category, search := sh.sf.Filters()
	sh.printf("categories: %s\n", strings.Join(sh.sf.Categories(), ", "))
	sh.printf("category=%s search=%q\n", category, search)
	sh.printProducts(sh.sf.Products())
}

func (sh *shell) printProducts(products []models.Product) {
	if len(products) == 0 {
		sh.printf("no products found\n")
		return
	}
	for _, p := range products {
		stock := ""
		if !p.InStock {
			stock = " (out of stock)"
		}
		sh.printf("%3d  %-40s %-10s %6d%s\n", p.ID, p.Title, p.Category, p.Price, stock)
	}
}

func (sh *shell) printProduct(p models.Product) {
	sh.printf("%s\n%s\n", p.Title, p.Description)
	sh.printf("price %d (was %d, -%d%%), rating %.1f from %d reviews\n", p.Price, p.OriginalPrice, p.Discount, p.Rating, p.ReviewsCount)
	sh.printf("platforms: %s, size %s, released %s\n", strings.Join(p.Platform, ", "), p.DownloadSize, p.ReleaseDate)
	for _, feature := range p.Features {
		sh.printf("  * %s\n", feature)
	}
}

func (sh *shell) printCart() {
	items := sh.sf.Cart().Items()
	if len(items) == 0 {
		sh.printf("cart is empty\n")
		return
	}
	for _, item := range items {
		sh.printf("%3d  %-40s x%d %8d\n", item.ID, item.Title, item.Quantity, item.Subtotal())
	}
	sh.printf("%d item(s), total %d\n", sh.sf.Cart().Count(), sh.sf.Cart().Total())
}

func (sh *shell) printUser() {
	user := sh.sf.Session().User()
	if user == nil {
		sh.printf("not signed in\n")
		return
	}
	sh.printf("%s <%s>, balance %d, %d DLC(s) owned\n", user.Username, user.Email, user.Balance, len(user.PurchasedDLCs))
}

func (sh *shell) printOrder(order models.Order) {
	sh.printf("%s  %-10s total %d  %s\n", order.ID, order.Status, order.Total, order.CreatedAt.Format(time.DateTime))
	for productID, key := range order.Keys {
		sh.printf("  product %s: %s\n", productID, key)
	}
}

func (sh *shell) printf(format string, args ...any) {
	fmt.Fprintf(sh.out, format, args...)
}

func intArg(args []string, i int) (int, error) {
	if len(args) <= i {
		return 0, errors.New("missing numeric argument")
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", args[i])
	}
	return n, nil
}
