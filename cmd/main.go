package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/alugadireto/backend/internal"
)

func main() {
	// carrega .env (opcional em produção)
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	// conecta no Postgres; TranslateError deixa violação de índice único
	// chegar como gorm.ErrDuplicatedKey
	dsn := os.Getenv("DATABASE_URL")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalw("falha ao conectar no banco", "err", err)
	}

	// auto-migrate
	if err := internal.AutoMigrate(db); err != nil {
		log.Fatalw("falha na migração", "err", err)
	}

	internal.RegisterValidations()

	stores := internal.NewGormStores(db)
	notifier := internal.NewNotifier(stores.Notifications, log)
	contracts := internal.NewContractEngine(stores, internal.NewTxRunner(db), notifier, log)
	billing := internal.NewBillingService(stores, notifier, log)

	// servidor HTTP
	r := gin.Default()
	internal.SetupRoutes(r, db, contracts, billing, stores.Notifications)

	// porta
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalw("servidor encerrado", "err", err)
	}
}
