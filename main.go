package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/earshot-audio/earshot/api"
	"github.com/earshot-audio/earshot/config"
	"github.com/earshot-audio/earshot/db"
	"github.com/earshot-audio/earshot/events"
	"github.com/earshot-audio/earshot/migrations"
	"github.com/earshot-audio/earshot/session"
	"github.com/earshot-audio/earshot/utils"
)

func main() {

	if err := godotenv.Load(); err != nil {
		fmt.Println(err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.GetLogLevel(),
	}))
	slog.SetDefault(logger)

	if utils.GetEnv("RESET_DB", "0") == "1" {
		if err := os.Remove(cfg.Earshot.DbPath); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}

	store, err := db.NewSqliteStore(cfg.Earshot.DbPath)
	if err != nil {
		panic(err)
	}

	if err := store.ApplyMigrations(migrations.GetMigrations()); err != nil {
		panic(err)
	}

	events.Init()

	client := api.NewClient(cfg)

	sess, err := session.New(cfg.Earshot.StorageDir, client, store)
	if err != nil {
		panic(err)
	}

	if err := sess.Start(); err != nil {
		panic(err)
	}
	defer sess.Shutdown()

	router := RegisterRoutes(http.NewServeMux(), sess)

	fmt.Printf("Earshot is running at http://localhost%s\n", cfg.Earshot.ListenAddr)

	if err := http.ListenAndServe(cfg.Earshot.ListenAddr, router); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
