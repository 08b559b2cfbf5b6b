package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/moddengine/marvel"
)

func processError(err error) {
	fmt.Println(err.Error())
	os.Exit(2)
}

func main() {
	configPath := flag.String("config", "conf/config.json", "configuration file")
	envFile := flag.String("env", ".env", "dotenv file with MARVEL_* overrides")
	addUser := flag.String("adduser", "", "create or update a proxy user (password read from stdin) and exit")
	level := flag.Int("level", 1, "access level for -adduser")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *envFile)
	if err != nil {
		processError(err)
	}
	store, err := NewStore(cfg.Cache.Database)
	if err != nil {
		processError(err)
	}
	defer store.Close()

	if *addUser != "" {
		if err := store.AddUser(*addUser, readPassword(os.Stdin), *level); err != nil {
			processError(err)
		}
		log.Println("Saved user", *addUser)
		return
	}
	if cfg.Marvel.PublicKey == "" || cfg.Marvel.PrivateKey == "" {
		processError(errors.New("marvel.com public and private keys are required"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var transport http.RoundTripper = http.DefaultTransport
	if cfg.Cache.TTL > 0 {
		reqCache := NewReqCache(store, http.DefaultTransport, time.Duration(cfg.Cache.TTL)*time.Second)
		go reqCache.purgeExpired(ctx, time.Hour)
		transport = reqCache
	}
	client := marvel.New(cfg.Marvel.PublicKey, cfg.Marvel.PrivateKey,
		marvel.WithBaseURL(cfg.Marvel.BaseUrl),
		marvel.WithSentinels(marvel.SentinelsFor(cfg.Sentinels)),
		marvel.WithHTTPClient(&http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Marvel.Timeout) * time.Second,
		}),
	)

	srv := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: NewServer(&cfg, client, store).Routes(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Println("Shutdown:", err)
		}
	}()

	log.Println("Starting Server on", cfg.Server.Listen)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func readPassword(in *os.File) string {
	fmt.Fprint(os.Stderr, "Password: ")
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}
