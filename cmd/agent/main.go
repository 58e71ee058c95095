package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ellysus/Momentary/client"
	"github.com/ellysus/Momentary/logging"
)

var name = "momentary-agent"

// The agent is a headless Momentary client: it logs in, keeps the prompt
// status fresh and logs the countdown while a window is open. Push
// enrollment runs against the local platform, which on plain terminals
// reports the capability as unavailable.
func main() {
	logger, cleanup := logging.InitializeLogger(name)
	defer cleanup()

	var (
		baseURL    = flag.String("server", "http://localhost:8080", "Momentary server origin")
		username   = flag.String("username", "", "account name")
		password   = flag.String("password", "", "account password")
		register   = flag.Bool("register", false, "create the account instead of logging in")
		enablePush = flag.Bool("enable-push", false, "attempt push enrollment after login")
	)
	flag.Parse()

	if *username == "" || *password == "" {
		logger.Fatal("Both -username and -password are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api, err := client.NewAPI(logger, *baseURL)
	if err != nil {
		logger.Fatalf("Failed to create API client: %v", err)
	}

	poller := client.NewPoller(logger, api, client.DefaultPollInterval)
	session := client.NewSession(logger, api, poller)

	var message string
	if *register {
		message, err = session.Register(ctx, *username, *password)
	} else {
		message, err = session.Login(ctx, *username, *password)
	}
	if err != nil {
		logger.Fatalf("Authentication failed: %v", err)
	}
	logger.Info(message)

	if *enablePush {
		pushManager := client.NewPushManager(logger, client.UnsupportedPlatform{}, api)
		if err := pushManager.EnablePush(ctx); err != nil {
			var pushErr *client.PushError
			if errors.As(err, &pushErr) {
				logger.Warnf("Push enrollment not completed (%s step): %v", pushErr.Step, pushErr.Err)
			} else {
				logger.Warnf("Push enrollment not completed: %v", err)
			}
		}
	}

	// Report the window state until interrupted
	ticker := time.NewTicker(client.DefaultPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := session.Logout(logoutCtx); err != nil {
				logger.Warnf("Logout failed: %v", err)
			}
			logger.Info("Signed out")
			os.Exit(0)
		case <-ticker.C:
			status := poller.Status()
			switch {
			case status == nil:
				logger.Info("Prompt status unknown")
			case status.Active:
				logger.Infow("Prompt window open", "secondsRemaining", status.SecondsRemaining)
			default:
				logger.Info("No prompt window open")
			}
		}
	}
}
