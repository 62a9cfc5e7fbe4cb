package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"estoque/internal/cache"
	"estoque/internal/checkout"
	"estoque/internal/client"
	"estoque/internal/config"
	"estoque/internal/domain"
	"estoque/internal/events"
	"estoque/internal/filter"
	"estoque/internal/logging"
	"estoque/internal/paging"
	"estoque/internal/pricing"
	"estoque/internal/selection"
	"estoque/internal/store"
	"estoque/internal/validation"
	"estoque/internal/view"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

// describe prefers the operator-facing text for sale and API failures.
func describe(err error) string {
	var (
		verr     *validation.ValidationError
		batchErr *checkout.BatchError
		terr     *client.TransportError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &batchErr), errors.Is(err, store.ErrConflict):
		return checkout.UserMessage(err)
	case errors.As(err, &terr):
		return fmt.Sprintf("%s (%v)", terr.Message, terr.Err)
	}
	return err.Error()
}

type env struct {
	cfg    config.Config
	logger *zap.Logger
	api    *client.Client
	out    io.Writer
}

func setup(c *cli.Context) (*env, error) {
	cfg := config.Load()
	if c.IsSet("api") {
		cfg.APIURL = c.String("api")
	}
	logger, err := logging.New(cfg.AppEnv, c.String("log-level"))
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:    cfg,
		logger: logger,
		api:    client.New(cfg.APIURL, c.Duration("timeout")),
		out:    c.App.Writer,
	}, nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "pdv",
		Usage: "terminal de vendas do estoque",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api", Usage: "base URL of the estoque API", EnvVars: []string{"API_URL"}, Value: "http://127.0.0.1:8080"},
			&cli.DurationFlag{Name: "timeout", Usage: "per-request timeout", Value: 10 * time.Second},
			&cli.StringFlag{Name: "log-level", Value: "warn", EnvVars: []string{"LOG_LEVEL"}},
		},
		Commands: []*cli.Command{
			productsCommand(),
			sellCommand(),
			salesCommand(),
			summaryCommand(),
			reposicoesCommand(),
			watchCommand(),
		},
	}
}

func periodFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "categoria", Value: domain.CategoryAll},
		&cli.StringFlag{Name: "ano", Value: "todos"},
		&cli.StringFlag{Name: "mes", Value: "todos"},
		&cli.IntFlag{Name: "pagina", Value: 1},
	}
}

func periodFilter(c *cli.Context) (filter.PeriodFilter, error) {
	f, err := filter.ParsePeriod(c.String("ano"), c.String("mes"))
	if err != nil {
		return filter.PeriodFilter{}, err
	}
	f.Category = c.String("categoria")
	return f, nil
}

func productsCommand() *cli.Command {
	return &cli.Command{
		Name:  "produtos",
		Usage: "list the catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "categoria", Value: domain.CategoryAll},
			&cli.StringFlag{Name: "busca", Usage: "search brand or description"},
			&cli.IntFlag{Name: "pagina", Value: 1},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			v := view.NewProductsView(e.api, view.ProductPageSize, e.logger)
			if err := v.Refresh(c.Context); err != nil {
				return err
			}
			v.SetFilter(filter.ProductFilter{Category: c.String("categoria"), Term: c.String("busca")})
			v.Goto(c.Int("pagina"))
			printProducts(e.out, v.Page())
			return nil
		},
	}
}

func sellCommand() *cli.Command {
	return &cli.Command{
		Name:  "vender",
		Usage: "record a sale",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "item", Usage: "unit line, id[:quantidade]"},
			&cli.StringSliceFlag{Name: "peso", Usage: "weighed line, id:valor:massa[:quantidade]"},
			&cli.StringFlag{Name: "pagamento", Value: string(domain.PaymentCash), Usage: "dinheiro, pix, debito or credito"},
			&cli.BoolFlag{Name: "troco", Usage: "customer needs change"},
			&cli.StringFlag{Name: "recebido", Usage: "cash received"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			method, err := parsePaymentMethod(c.String("pagamento"))
			if err != nil {
				return err
			}
			received, err := parseAmount(c.String("recebido"))
			if err != nil {
				return fmt.Errorf("recebido: %w", err)
			}
			policy, err := validation.ParsePolicy(e.cfg.WeightFloorPolicy)
			if err != nil {
				return err
			}
			loc, err := e.cfg.Location()
			if err != nil {
				return err
			}

			products, err := e.api.ListProducts(c.Context)
			if err != nil {
				return err
			}
			session := selection.NewSession(products)
			pay := pricing.Payment{Method: method, NeedsChange: c.Bool("troco"), AmountReceived: received}
			if err := fillSession(session, c.StringSlice("item"), c.StringSlice("peso"), pay); err != nil {
				return err
			}

			orch := checkout.New(e.api, validation.New(policy), checkout.Options{
				Timeout:     e.cfg.SubmitTimeout(),
				Concurrency: e.cfg.SubmitConcurrency,
				Location:    loc,
				Logger:      e.logger,
			})
			res, err := orch.Submit(c.Context, session)
			if res != nil {
				printOutcomes(e.out, res)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Total: %s  Lucro: %s\n", pricing.FormatBRL(res.Totals.Total), pricing.FormatBRL(res.Totals.Profit))
			if pay.Method.IsCash() && pay.NeedsChange {
				fmt.Fprintf(e.out, "Troco: %s\n", pricing.FormatBRL(res.Change))
			}
			if res.ReconcileErr != nil {
				fmt.Fprintln(e.out, "Venda registrada, mas a atualização dos dados falhou.")
			} else if res.Snapshot != nil {
				printSummary(e.out, res.Snapshot.Summary)
			}
			return nil
		},
	}
}

func salesCommand() *cli.Command {
	return &cli.Command{
		Name:  "vendas",
		Usage: "list the sales ledger",
		Flags: periodFlags(),
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			f, err := periodFilter(c)
			if err != nil {
				return err
			}
			v := view.NewSalesView(e.api, view.SalesPageSize, e.logger)
			if err := v.Refresh(c.Context); err != nil {
				return err
			}
			v.SetFilter(f)
			v.Goto(c.Int("pagina"))
			printSales(e.out, v.Page())
			printSummary(e.out, v.Summary())
			return nil
		},
	}
}

func summaryCommand() *cli.Command {
	return &cli.Command{
		Name:  "resumo",
		Usage: "sales summary and monthly totals",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "ano", Value: time.Now().Year()},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			summary, err := e.api.SalesSummary(c.Context)
			if err != nil {
				return err
			}
			printSummary(e.out, summary)

			months, err := e.api.MonthlyTotals(c.Context, c.Int("ano"))
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(e.out, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "MÊS\tVENDIDO\tCOMPRADO\tLUCRO")
			for _, m := range months {
				fmt.Fprintf(w, "%02d\t%s\t%s\t%s\n", m.Month, pricing.FormatBRL(m.Sold), pricing.FormatBRL(m.Cost), pricing.FormatBRL(m.Profit))
			}
			return w.Flush()
		},
	}
}

func reposicoesCommand() *cli.Command {
	flags := append(periodFlags(), &cli.Int64Flag{Name: "produto", Usage: "only this product"})
	return &cli.Command{
		Name:  "reposicoes",
		Usage: "list or record restocks",
		Flags: flags,
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			if id := c.Int64("produto"); id > 0 {
				reps, err := e.api.ListReposicoesByProduct(c.Context, id)
				if err != nil {
					return err
				}
				printReposicoes(e.out, paging.Paginate(reps, view.ReposicaoPageSize, c.Int("pagina")))
				return nil
			}
			f, err := periodFilter(c)
			if err != nil {
				return err
			}
			v := view.NewReposicoesView(e.api, view.ReposicaoPageSize, e.logger)
			if err := v.Refresh(c.Context); err != nil {
				return err
			}
			v.SetFilter(f)
			v.Goto(c.Int("pagina"))
			printReposicoes(e.out, v.Page())
			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:  "nova",
				Usage: "record a restock",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "produto", Required: true},
					&cli.IntFlag{Name: "quantidade", Required: true},
					&cli.StringFlag{Name: "entrada", Usage: "entry date, defaults to today"},
					&cli.StringFlag{Name: "vencimento"},
				},
				Action: func(c *cli.Context) error {
					e, err := setup(c)
					if err != nil {
						return err
					}
					rep, err := e.api.CreateReposicao(c.Context, domain.Reposicao{
						Product:    domain.Product{ID: c.Int64("produto")},
						Quantity:   c.Int("quantidade"),
						EntryDate:  c.String("entrada"),
						Expiration: c.String("vencimento"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(e.out, "Reposição %d registrada: %s agora com %d em estoque\n", rep.ID, rep.Product.Name(), rep.Product.StockQuantity)
					return nil
				},
			},
			{
				Name:      "remover",
				Usage:     "delete a restock",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					e, err := setup(c)
					if err != nil {
						return err
					}
					var id int64
					if _, err := fmt.Sscan(c.Args().First(), &id); err != nil || id < 1 {
						return errors.New("reposição id required")
					}
					return e.api.DeleteReposicao(c.Context, id)
				},
			},
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "follow sales as they happen",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			if e.cfg.RedisAddr == "" {
				return errors.New("REDIS_ADDR is required to watch events")
			}
			redisClient := cache.NewRedisClient(e.cfg.RedisAddr, e.cfg.RedisPassword, e.cfg.RedisDB)
			defer redisClient.Close()

			bus := events.NewRedisBus(redisClient, e.cfg.EventsChannel, e.logger)
			if err := bus.Start(c.Context); err != nil {
				return fmt.Errorf("subscribe %s: %w", e.cfg.EventsChannel, err)
			}
			defer bus.Close()

			sales := view.NewSalesView(e.api, view.SalesPageSize, e.logger)
			if err := sales.Refresh(c.Context); err != nil {
				return err
			}
			printSummary(e.out, sales.Summary())
			cancel := sales.Attach(bus)
			defer cancel()
			stop := bus.Subscribe(events.Only(func(_ context.Context, ev events.Event) {
				fmt.Fprintf(e.out, "[%s] %s\n", ev.At.Format(time.TimeOnly), ev.Kind)
				printSummary(e.out, sales.Summary())
			}, events.KindSaleCreated, events.KindSaleDeleted))
			defer stop()

			ctx, done := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer done()
			<-ctx.Done()
			return nil
		},
	}
}

func printProducts(w io.Writer, page paging.Page[domain.Product]) {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORIA\tMARCA\tDETALHE\tCOMPRA\tVENDA\tESTOQUE\tVENCIMENTO")
	for _, p := range page.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n", p.ID, p.Category, p.Brand, p.Description,
			pricing.FormatBRL(p.PurchasePrice), pricing.FormatBRL(p.SalePrice), p.StockQuantity, displayDate(p.Expiration))
	}
	_ = tw.Flush()
	printPager(w, page.Current, page.TotalPages, page.Window)
}

func printSales(w io.Writer, page paging.Page[domain.Sale]) {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATA\tCATEGORIA\tPRODUTO\tMARCA\tQTD\tVENDA\tPAGAMENTO\tLUCRO")
	for _, s := range page.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n", s.ID, displayDate(s.SaleDate), s.Category, s.ProductName, s.Brand,
			s.QuantitySold, pricing.FormatBRL(s.SalePrice), s.PaymentMethod, pricing.FormatBRL(s.LineProfit()))
	}
	_ = tw.Flush()
	printPager(w, page.Current, page.TotalPages, page.Window)
}

func printReposicoes(w io.Writer, page paging.Page[domain.Reposicao]) {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUTO\tCATEGORIA\tQTD\tENTRADA\tVENCIMENTO")
	for _, r := range page.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n", r.ID, r.Product.Name(), r.Product.Category, r.Quantity,
			displayDate(r.EntryDate), displayDate(r.Expiration))
	}
	_ = tw.Flush()
	printPager(w, page.Current, page.TotalPages, page.Window)
}

func printSummary(w io.Writer, s domain.SalesSummary) {
	fmt.Fprintf(w, "Vendido: %s  Comprado: %s  Lucro bruto: %s  Margem: %s%%\n",
		pricing.FormatBRL(s.TotalSold), pricing.FormatBRL(s.TotalCost), pricing.FormatBRL(s.GrossProfit), s.ProfitMargin.StringFixed(2))
}

func printOutcomes(w io.Writer, res *checkout.Result) {
	for _, o := range res.Outcomes {
		name := o.Line.Product.Name()
		if o.OK() {
			fmt.Fprintf(w, "ok    %s (venda %d)\n", name, o.Sale.ID)
			continue
		}
		fmt.Fprintf(w, "falha %s: %s\n", name, checkout.UserMessage(o.Err))
	}
}

func printPager(w io.Writer, current int, total int, window []int) {
	parts := make([]string, 0, len(window))
	for _, n := range window {
		switch {
		case n == paging.Ellipsis:
			parts = append(parts, "...")
		case n == current:
			parts = append(parts, fmt.Sprintf("[%d]", n))
		default:
			parts = append(parts, fmt.Sprint(n))
		}
	}
	fmt.Fprintf(w, "página %d de %d: %s\n", current, total, strings.Join(parts, " "))
}

func displayDate(value string) string {
	if t, ok := domain.ParseDate(value); ok {
		return t.Format(domain.DisplayDateForm)
	}
	return value
}
