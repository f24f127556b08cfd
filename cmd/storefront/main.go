package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nazeru/storefront-lab-go/internal/store/auth"
	"github.com/nazeru/storefront-lab-go/internal/store/cart"
	"github.com/nazeru/storefront-lab-go/internal/store/catalog"
	"github.com/nazeru/storefront-lab-go/internal/store/checkout"
	"github.com/nazeru/storefront-lab-go/internal/store/domain"
	"github.com/nazeru/storefront-lab-go/internal/store/payment"
	"github.com/nazeru/storefront-lab-go/pkg/contracts"
	"github.com/nazeru/storefront-lab-go/pkg/metrics"
)

type screen int

const (
	screenShop screen = iota
	screenCart
	screenLogin
	screenCheckout
)

type app struct {
	catalog   *catalog.Catalog
	cart      *cart.Manager
	auth      *auth.Manager
	processor *payment.Processor
	journal   *contracts.Journal
}

type model struct {
	app  *app
	flow *checkout.Flow

	screen      screen
	products    []domain.Product
	categories  []catalog.CategoryEntry
	selected    int
	categoryIdx int
	query       string
	searching   bool

	cartSelected int
	username     string
	status       string
	busy         bool
}

func initialModel(a *app) model {
	return model{
		app:        a,
		products:   a.catalog.Products(),
		categories: a.catalog.Categories(),
		status:     "Ready",
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

type loginResult struct {
	user domain.User
	err  error
}

type paymentDone struct{}

type confirmationOver struct{}

func loginCmd(a *app, username string, sso bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		var user domain.User
		var err error
		if sso {
			// The SSO demo path omits the password on purpose; it always
			// fails until a caller supplies one.
			user, err = a.auth.LoginWithSSO(ctx, username, "")
		} else {
			user, err = a.auth.Login(ctx, username, "demo123")
		}
		return loginResult{user: user, err: err}
	}
}

func placeOrderCmd(flow *checkout.Flow) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = flow.PlaceOrder(ctx)
		return paymentDone{}
	}
}

func confirmationTimerCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d+100*time.Millisecond, func(time.Time) tea.Msg {
		return confirmationOver{}
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case loginResult:
		m.busy = false
		if msg.err != nil {
			m.status = "Login failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "Signed in as " + msg.user.Name
		m.screen = screenShop
		return m, nil
	case paymentDone:
		m.busy = false
		if m.flow == nil {
			return m, nil
		}
		if m.flow.Step() == checkout.StepConfirmation {
			m.status = "Order confirmed"
			return m, confirmationTimerCmd(checkout.DefaultResetDelay)
		}
		m.status = "Payment failed: " + m.flow.Err()
		return m, nil
	case confirmationOver:
		if m.flow != nil {
			m.flow.Close()
			m.flow = nil
		}
		m.screen = screenShop
		m.status = "Ready"
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.screen {
	case screenShop:
		return m.updateShop(msg)
	case screenCart:
		return m.updateCart(msg)
	case screenLogin:
		return m.updateLogin(msg)
	case screenCheckout:
		return m.updateCheckout(msg)
	}
	return m, nil
}

func (m model) updateShop(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.String() {
		case "enter", "esc":
			m.searching = false
		case "backspace":
			if len(m.query) > 0 {
				m.query = m.query[:len(m.query)-1]
			}
		default:
			if len(msg.String()) == 1 {
				m.query += msg.String()
			}
		}
		m.refilter()
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up":
		if m.selected > 0 {
			m.selected--
		}
	case "down":
		if m.selected < len(m.products)-1 {
			m.selected++
		}
	case "left":
		if m.categoryIdx > 0 {
			m.categoryIdx--
			m.refilter()
		}
	case "right":
		if m.categoryIdx < len(m.categories)-1 {
			m.categoryIdx++
			m.refilter()
		}
	case "/":
		m.searching = true
	case "enter":
		if len(m.products) == 0 {
			return m, nil
		}
		p := m.products[m.selected]
		if err := m.app.cart.AddItem(p, 1); err != nil {
			m.status = "Could not add to cart: " + err.Error()
		} else {
			m.status = fmt.Sprintf("Added %s (%d items, %s)", p.Name, m.app.cart.ItemCount(), domain.FormatCents(m.app.cart.TotalCents()))
		}
	case "c":
		m.screen = screenCart
		m.cartSelected = 0
	case "l":
		m.screen = screenLogin
		m.username = ""
	case "e":
		events := m.app.journal.Last(5)
		if len(events) == 0 {
			m.status = "No events yet"
			return m, nil
		}
		types := make([]string, 0, len(events))
		for _, ev := range events {
			types = append(types, ev.Type)
		}
		m.status = "Recent events: " + strings.Join(types, ", ")
	}
	return m, nil
}

func (m *model) refilter() {
	categoryID := catalog.CategoryAll
	if len(m.categories) > 0 {
		categoryID = m.categories[m.categoryIdx].ID
	}
	m.products = m.app.catalog.Search(m.query, categoryID)
	if m.selected >= len(m.products) {
		m.selected = 0
	}
}

func (m model) updateCart(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.app.cart.Items()
	switch msg.String() {
	case "b", "esc":
		m.screen = screenShop
	case "up":
		if m.cartSelected > 0 {
			m.cartSelected--
		}
	case "down":
		if m.cartSelected < len(items)-1 {
			m.cartSelected++
		}
	case "+":
		if m.cartSelected < len(items) {
			line := items[m.cartSelected]
			m.app.cart.UpdateQuantity(line.Product.ID, line.Quantity+1)
		}
	case "-":
		if m.cartSelected < len(items) {
			line := items[m.cartSelected]
			m.app.cart.UpdateQuantity(line.Product.ID, line.Quantity-1)
		}
	case "x":
		if m.cartSelected < len(items) {
			m.app.cart.RemoveItem(items[m.cartSelected].Product.ID)
			if m.cartSelected > 0 {
				m.cartSelected--
			}
		}
	case "C":
		m.app.cart.Clear()
	case "enter":
		if m.app.cart.IsEmpty() {
			m.status = "Your cart is empty"
			return m, nil
		}
		m.flow = checkout.Begin(m.app.catalog, m.app.cart, m.app.processor, checkout.WithJournal(m.app.journal))
		m.screen = screenCheckout
	}
	return m, nil
}

func (m model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.screen = screenShop
	case "backspace":
		if len(m.username) > 0 {
			m.username = m.username[:len(m.username)-1]
		}
	case "enter":
		m.busy = true
		m.status = "Signing in..."
		return m, loginCmd(m.app, m.username, false)
	case "tab":
		m.busy = true
		m.status = "Signing in with SSO..."
		return m, loginCmd(m.app, m.username, true)
	default:
		if len(msg.String()) == 1 {
			m.username += msg.String()
		}
	}
	return m, nil
}

func (m model) updateCheckout(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.flow == nil || m.busy {
		return m, nil
	}
	switch m.flow.Step() {
	case checkout.StepAddressPayment:
		switch msg.String() {
		case "p":
			m.cyclePayment()
		case "a":
			m.cycleAddress()
		case "enter":
			m.flow.ContinueToReview()
		case "b", "esc":
			if m.flow.Back() {
				m.flow.Close()
				m.flow = nil
				m.screen = screenCart
			}
		}
	case checkout.StepReview:
		switch msg.String() {
		case "enter":
			m.busy = true
			m.status = "Processing payment..."
			return m, placeOrderCmd(m.flow)
		case "b", "esc":
			m.flow.Back()
		}
	case checkout.StepConfirmation:
		// Terminal step, the reset timer takes it from here.
	}
	return m, nil
}

func (m *model) cyclePayment() {
	methods := m.app.catalog.PaymentMethods()
	current := m.flow.SelectedPaymentMethod()
	for i, pm := range methods {
		if pm.ID == current {
			m.flow.SelectPaymentMethod(methods[(i+1)%len(methods)].ID)
			return
		}
	}
}

func (m *model) cycleAddress() {
	addrs := m.app.catalog.Addresses()
	current, ok := m.flow.SelectedAddress()
	if !ok {
		m.flow.SelectAddress(addrs[0].ID)
		return
	}
	for i, a := range addrs {
		if a.ID == current {
			m.flow.SelectAddress(addrs[(i+1)%len(addrs)].ID)
			return
		}
	}
}

func (m model) View() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, "storefront-lab-go")
	fmt.Fprintln(b, "")

	switch m.screen {
	case screenShop:
		m.viewShop(b)
	case screenCart:
		m.viewCart(b)
	case screenLogin:
		m.viewLogin(b)
	case screenCheckout:
		m.viewCheckout(b)
	}

	fmt.Fprintf(b, "\nStatus: %s\n", m.status)
	return b.String()
}

func (m model) viewShop(b *strings.Builder) {
	cat := "All Fixes"
	if len(m.categories) > 0 {
		cat = m.categories[m.categoryIdx].Name
	}
	fmt.Fprintf(b, "Category (left/right): %s\n", cat)
	if m.searching {
		fmt.Fprintf(b, "Search: %s_\n", m.query)
	} else if m.query != "" {
		fmt.Fprintf(b, "Search: %s\n", m.query)
	}
	fmt.Fprintln(b, "")
	if len(m.products) == 0 {
		fmt.Fprintln(b, "No products found. Try changing your search or filter criteria.")
	}
	for i, p := range m.products {
		marker := " "
		if i == m.selected {
			marker = ">"
		}
		fmt.Fprintf(b, " %s %-28s %8s  %.1f★ (%d)\n", marker, p.Name, domain.FormatCents(p.PriceCents), p.Rating, p.Reviews)
	}
	user := "guest"
	if u, ok := m.app.auth.User(); ok {
		user = u.Name
	}
	fmt.Fprintf(b, "\nSigned in: %s | Cart: %d items %s\n", user, m.app.cart.ItemCount(), domain.FormatCents(m.app.cart.TotalCents()))
	fmt.Fprintln(b, "Controls: up/down select, enter add to cart, / search, c cart, l login, e events, q quit")
}

func (m model) viewCart(b *strings.Builder) {
	fmt.Fprintln(b, "Your Cart")
	fmt.Fprintln(b, "")
	items := m.app.cart.Items()
	if len(items) == 0 {
		fmt.Fprintln(b, "Your cart is empty. Browse our error fixes and add some items.")
	}
	for i, line := range items {
		marker := " "
		if i == m.cartSelected {
			marker = ">"
		}
		fmt.Fprintf(b, " %s %-28s x%-3d %8s\n", marker, line.Product.Name, line.Quantity, domain.FormatCents(line.TotalCents()))
	}
	fmt.Fprintf(b, "\nTotal: %s\n", domain.FormatCents(m.app.cart.TotalCents()))
	fmt.Fprintln(b, "Controls: up/down select, +/- quantity, x remove, C clear, enter checkout, b back")
}

func (m model) viewLogin(b *strings.Builder) {
	fmt.Fprintln(b, "Sign In")
	fmt.Fprintln(b, "")
	fmt.Fprintf(b, "Username: %s_\n", m.username)
	fmt.Fprintln(b, "")
	fmt.Fprintln(b, "Controls: type username, enter sign in, tab sign in with SSO, esc back")
}

func (m model) viewCheckout(b *strings.Builder) {
	if m.flow == nil {
		return
	}
	switch m.flow.Step() {
	case checkout.StepAddressPayment:
		fmt.Fprintln(b, "Checkout — Shipping & Payment")
		fmt.Fprintln(b, "")
		addrID, hasAddr := m.flow.SelectedAddress()
		for _, a := range m.app.catalog.Addresses() {
			marker := " "
			if hasAddr && a.ID == addrID {
				marker = "*"
			}
			fmt.Fprintf(b, " %s %s — %s, %s\n", marker, a.Name, a.Line1, a.City)
		}
		fmt.Fprintln(b, "")
		for _, pm := range m.app.catalog.PaymentMethods() {
			marker := " "
			if pm.ID == m.flow.SelectedPaymentMethod() {
				marker = "*"
			}
			fmt.Fprintf(b, " %s %s\n", marker, pm.Label())
		}
		fmt.Fprintln(b, "\nControls: a address, p payment, enter continue to review, b back")
	case checkout.StepReview:
		fmt.Fprintln(b, "Review Order")
		fmt.Fprintln(b, "")
		for _, line := range m.app.cart.Items() {
			fmt.Fprintf(b, "  %-28s x%-3d %8s\n", line.Product.Name, line.Quantity, domain.FormatCents(line.TotalCents()))
		}
		total := m.app.cart.TotalCents()
		fmt.Fprintf(b, "\n  Subtotal: %s\n", domain.FormatCents(total))
		fmt.Fprintf(b, "  Tax (8%%): %s\n", domain.FormatCents(total*8/100))
		fmt.Fprintln(b, "  Shipping: Free")
		fmt.Fprintf(b, "  Total:    %s\n", domain.FormatCents(total+total*8/100))
		if errMsg := m.flow.Err(); errMsg != "" {
			fmt.Fprintf(b, "\n  ! %s\n", errMsg)
		}
		fmt.Fprintln(b, "\nControls: enter place order, b back")
	case checkout.StepConfirmation:
		order, _ := m.flow.Order()
		fmt.Fprintln(b, "Order Confirmed!")
		fmt.Fprintln(b, "")
		fmt.Fprintln(b, "Your order has been placed successfully.")
		fmt.Fprintf(b, "Order #%s\n", order.Number)
		fmt.Fprintln(b, "Thank you for your purchase! Redirecting to home...")
	}
}

func newApp() (*app, error) {
	c, err := catalog.Default()
	if err != nil {
		return nil, err
	}
	journal := contracts.NewJournal()
	sm := metrics.NewStoreMetrics("storefront")
	return &app{
		catalog:   c,
		cart:      cart.NewManagerWithJournal(journal),
		auth:      auth.NewManager(auth.WithJournal(journal), auth.WithMetrics(sm)),
		processor: payment.NewProcessor(c, payment.WithJournal(journal), payment.WithMetrics(sm)),
		journal:   journal,
	}, nil
}

func runScenario(a *app, name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch name {
	case "success":
		products := a.catalog.Products()
		if err := a.cart.AddItem(products[0], 2); err != nil {
			return err
		}
		if err := a.cart.AddItem(products[1], 1); err != nil {
			return err
		}
		flow := checkout.Begin(a.catalog, a.cart, a.processor,
			checkout.WithJournal(a.journal), checkout.WithResetDelay(100*time.Millisecond))
		defer flow.Close()
		flow.ContinueToReview()
		if err := flow.PlaceOrder(ctx); err != nil {
			return err
		}
		if flow.Step() != checkout.StepConfirmation {
			return fmt.Errorf("payment declined: %s", flow.Err())
		}
		order, _ := flow.Order()
		fmt.Printf("Order confirmed: #%s total=%s\n", order.Number, domain.FormatCents(order.TotalCents))
		time.Sleep(300 * time.Millisecond)
		fmt.Printf("Cart after confirmation: %d items\n", a.cart.ItemCount())
		return nil
	case "applepay-fail":
		products := a.catalog.Products()
		if err := a.cart.AddItem(products[0], 1); err != nil {
			return err
		}
		flow := checkout.Begin(a.catalog, a.cart, a.processor, checkout.WithJournal(a.journal))
		defer flow.Close()
		for _, pm := range a.catalog.PaymentMethods() {
			if pm.Type == domain.PaymentTypeApplePay {
				flow.SelectPaymentMethod(pm.ID)
			}
		}
		flow.ClearAddressSelection()
		flow.ContinueToReview()
		if err := flow.PlaceOrder(ctx); err != nil {
			return err
		}
		fmt.Printf("Still at step %d, error: %s\n", flow.Step(), flow.Err())
		return nil
	case "sso-fail":
		_, err := a.auth.LoginWithSSO(ctx, "demo", "")
		if err != nil {
			fmt.Printf("SSO login failed as designed: %v\n", err)
			return nil
		}
		return fmt.Errorf("sso login unexpectedly succeeded")
	default:
		return fmt.Errorf("unknown scenario %q", name)
	}
}

func main() {
	runCmd := flag.String("run", "", "run scenario: success|applepay-fail|sso-fail")
	flag.Parse()

	a, err := newApp()
	if err != nil {
		log.Fatalf("catalog error: %v", err)
	}

	if addr := getenv("METRICS_ADDR", ""); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			if err := srv.ListenAndServe(); err != nil {
				log.Printf("metrics listener error: %v", err)
			}
		}()
	}

	if *runCmd != "" {
		if err := runScenario(a, *runCmd); err != nil {
			fmt.Println("error:", err)
			os.Exit(1)
		}
		return
	}

	p := tea.NewProgram(initialModel(a))
	if _, err := p.Run(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
