// @title Pharmacy POS API
// @version 1.0
// @description Catalog, order sessions and all-or-nothing order commit for a pharmacy point of sale.
// @BasePath /api/v1
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmacy/internal/config"
	"pharmacy/internal/domain"
	httpapi "pharmacy/internal/http"
	"pharmacy/internal/logger"
	"pharmacy/internal/notify"
	"pharmacy/internal/receipt"
	"pharmacy/internal/repository"
	"pharmacy/internal/service"

	_ "pharmacy/docs"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

type stores struct {
	medicines repository.MedicineRepository
	customers repository.CustomerRepository
	employees repository.EmployeeRepository
	orders    repository.OrderRepository
	tx        repository.TxManager
	close     func() error
}

func openStores(ctx context.Context, cfg config.Store, zaplog *zap.Logger) (stores, error) {
	if cfg.Driver == config.DriverPostgres {
		pg, err := repository.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return stores{}, err
		}
		if cfg.MigrateOnStart {
			if err := pg.Migrate(); err != nil {
				pg.Close()
				return stores{}, err
			}
			zaplog.Info("database migrations applied")
		}
		return stores{
			medicines: repository.NewPostgresMedicines(pg),
			customers: repository.NewPostgresCustomers(pg),
			employees: repository.NewPostgresEmployees(pg),
			orders:    repository.NewPostgresOrders(pg),
			tx:        repository.NewPostgresTx(pg),
			close:     pg.Close,
		}, nil
	}
	mem := repository.NewMemoryStore()
	return stores{
		medicines: mem,
		customers: repository.NewMemoryCustomers(mem),
		employees: repository.NewMemoryEmployees(mem),
		orders:    repository.NewMemoryOrders(mem),
		tx:        repository.NewMemoryTx(mem),
		close:     func() error { return nil },
	}, nil
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	zaplog, err := logger.NewZapLog(cfg.Logger)
	if err != nil {
		return err
	}
	defer zaplog.Sync() //nolint:errcheck

	ctx := context.Background()
	st, err := openStores(ctx, cfg.Store, zaplog)
	if err != nil {
		return err
	}
	defer st.close()

	hub := notify.NewHub(zaplog)
	// обновление представлений после фиксации заказа
	hub.Subscribe(func(ev notify.OrderCommitted) {
		zaplog.Info("order committed: refresh views",
			zap.Int64("order_id", ev.OrderID),
			zap.Int64("customer_id", ev.CustomerID),
			zap.Int64("loyalty_balance", ev.LoyaltyBalance),
			zap.Any("stock_remaining", ev.StockRemaining),
		)
	})

	catalogSvc := service.NewCatalogService(st.medicines, st.customers, st.employees)
	ordersSvc := service.NewOrderService(st.medicines, st.customers, st.employees, st.orders, st.tx, hub, zaplog,
		service.WithTaxRate(cfg.Receipt.TaxRate))
	sessions := service.NewSessionManager(st.medicines, ordersSvc, zaplog, service.WithIdleTTL(cfg.Session.IdleTTL))
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sessions.RunSweeper(sweepCtx, cfg.Session.SweepInterval)

	if cfg.Seed.Enabled {
		if err := seedDemo(ctx, catalogSvc); err != nil {
			return err
		}
		zaplog.Info("demo catalog loaded")
	}

	srv := httpapi.NewServer(catalogSvc, ordersSvc, sessions,
		receipt.Header{StoreName: cfg.Receipt.StoreName, Address: cfg.Receipt.StoreAddress}, zaplog)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: srv.Engine(),
	}

	errCh := make(chan error, 1)
	go func() {
		zaplog.Info("HTTP server listening", zap.String("addr", httpServer.Addr), zap.String("store", cfg.Store.Driver))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zaplog.Error("shutdown error", zap.Error(err))
	}
	return nil
}

func seedDemo(ctx context.Context, catalog *service.CatalogService) error {
	expiry := time.Now().UTC().AddDate(1, 0, 0).Truncate(24 * time.Hour)
	medicines := []struct {
		name, sku, category, price, wholesale string
		stock                                 int64
	}{
		{"Paracetamol 500mg", "PCM-500", "analgesic", "2.50", "2.00", 200},
		{"Amoxicillin 500mg", "AMX-500", "antibiotic", "12.50", "10.00", 60},
		{"Vitamin C 1000mg", "VIT-C", "supplement", "5.50", "", 120},
		{"Insulin Glargine", "INS-GLA", "hormone", "25.00", "22.50", 15},
	}
	for _, m := range medicines {
		med := domain.Medicine{
			Name:       m.name,
			SKU:        m.sku,
			Category:   m.category,
			Price:      decimal.RequireFromString(m.price),
			Stock:      m.stock,
			ExpiryDate: &expiry,
		}
		if m.wholesale != "" {
			med.WholesalePrice = decimal.NewNullDecimal(decimal.RequireFromString(m.wholesale))
		}
		if _, err := catalog.CreateMedicine(ctx, med); err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
			return err
		}
	}
	if _, err := catalog.CreateCustomer(ctx, domain.Customer{Name: "Walk-in customer"}); err != nil {
		return err
	}
	if _, err := catalog.CreateEmployee(ctx, domain.Employee{Name: "Duty pharmacist", Role: "pharmacist"}); err != nil {
		return err
	}
	return nil
}
