package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/kafka"
	"app/internal/redisx"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/joho/godotenv"
)

func main() {
	//.envがあれば読む（無くてもよい）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.ProductVariant{},
		&model.Order{},
		&model.OrderItem{},
		&model.InventoryAdjustment{},
		&model.AuditLog{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//カタログキャッシュ
	rdb := redisx.New(cfg.RedisAddr)
	cache := redisx.NewProductCache(rdb)

	//注文イベント。serverのdrain中にコミットした注文のイベントも
	//送れるように、signal ctxではなく専用ctxで止める
	prodCtx, stopProducer := context.WithCancel(context.Background())
	defer stopProducer()
	producer := kafka.NewProducer(cfg.KafkaBrokers, 256)
	producer.Start(prodCtx)

	//Repository（GORM実装）生成
	txm := infraRepo.NewTxManagerGorm(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	variantRepo := infraRepo.NewVariantGormRepository(gormDB)

	//Usecase生成
	checkoutUC := usecase.NewCheckoutUsecase(txm, producer, cfg.ServiceName)
	orderUC := usecase.NewOrderUsecase(txm, producer, cfg.ServiceName)
	catalogUC := usecase.NewCatalogUsecase(productRepo, variantRepo, cache)
	sellerUC := usecase.NewSellerUsecase(txm, cache)
	adminUC := usecase.NewAdminUsecase(txm, cache)

	//Handler生成
	handlers := server.Handlers{
		Catalog:  handler.NewCatalogHandler(catalogUC),
		Checkout: handler.NewCheckoutHandler(checkoutUC),
		Orders:   handler.NewOrderHandler(orderUC),
		Seller:   handler.NewSellerHandler(sellerUC, orderUC),
		Admin:    handler.NewAdminHandler(adminUC, orderUC),
	}

	e := server.New(cfg, handlers)

	//Server起動
	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	go func() {
		if err := server.Start(e, addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()

	//serverを先に止めてから、残りのイベントをflushして落とす
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx, e); err != nil {
		log.Printf("shutdown: %v", err)
	}
	stopProducer()
	producer.WaitClosed()
}
