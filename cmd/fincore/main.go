// Package main runs the fincore demo shell, wiring configuration, logging,
// the account store, and the authentication and ledger services behind an
// interactive prompt.
package main

import (
	"bufio"
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/okulov/fincore/internal/config"
	"github.com/okulov/fincore/internal/db"
	"github.com/okulov/fincore/internal/logger"
	"github.com/okulov/fincore/internal/models"
	"github.com/okulov/fincore/internal/otp"
	"github.com/okulov/fincore/internal/repository"
	"github.com/okulov/fincore/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	ctx := context.Background()

	// Open the account store: Postgres when a DSN is configured, the JSON
	// file store otherwise.
	var repo service.AccountRepository
	if options.DatabaseDSN != "" {
		postgresDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			zapLogger.Fatal("cannot init database", zap.Error(err))
		}
		pgRepo := repository.NewPostgresAccountRepository(postgresDB)
		if err := pgRepo.EnsureSeed(ctx); err != nil {
			zapLogger.Fatal("cannot seed accounts", zap.Error(err))
		}
		repo = pgRepo
	} else {
		fileOpts := []repository.FileOption{repository.WithLogger(zapLogger)}
		if options.ReseedOnCorrupt {
			fileOpts = append(fileOpts, repository.WithReseedOnCorrupt())
		}
		fileRepo, err := repository.NewFileAccountRepository(options.DataFile, fileOpts...)
		if err != nil {
			if errors.Is(err, models.ErrStoreCorrupt) {
				zapLogger.Fatal("account store is corrupt; rerun with -reseed to discard it and reseed demo accounts",
					zap.String("path", options.DataFile), zap.Error(err))
			}
			zapLogger.Fatal("cannot open account store", zap.Error(err))
		}
		repo = fileRepo
	}

	// Initialize business-logic services.
	verifier := otp.NewVerifier(options.Issuer, options.DriftWindow)
	authService := service.NewAuthService(repo, verifier, zapLogger)
	ledgerService := service.NewLedgerService(repo, zapLogger)

	repl(ctx, authService, ledgerService)
}

// repl runs the interactive shell loop. It holds the current session and
// the last viewed pending request locally; every failure prints a message
// and returns to the prompt.
func repl(ctx context.Context, auth *service.AuthService, ledger *service.LedgerService) {
	scanner := bufio.NewScanner(os.Stdin)

	var (
		session models.Session
		pending models.TransferRequest
	)

	for {
		fmt.Print("fincore> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, login, enroll <user>, balance, recipients, transfer <to> <amount>, balances, pending, approve, reject, logout, exit")
		case "login":
			username := prompt(scanner, "Username: ")
			password := prompt(scanner, "Password: ")
			code := prompt(scanner, "One-time code (6 digits): ")
			s, err := auth.Login(ctx, username, password, code)
			if err != nil {
				fmt.Println("Login failed:", err)
				continue
			}
			session = s
			fmt.Printf("Login successful. Welcome %s (%s).\n", s.Username, s.Role)
		case "enroll":
			if len(args) < 2 {
				fmt.Println("Usage: enroll <user>")
				continue
			}
			uri, err := auth.ProvisioningURI(ctx, args[1])
			if err != nil {
				fmt.Println("Enrollment failed:", err)
				continue
			}
			fmt.Println("Scan this URI with an authenticator app:")
			fmt.Println(uri)
		case "balance":
			balance, err := ledger.Balance(ctx, session)
			if err != nil {
				fmt.Println("Balance unavailable:", err)
				continue
			}
			fmt.Printf("Account balance: $%d\n", balance)
		case "recipients":
			recipients, err := ledger.Recipients(ctx, session)
			if err != nil {
				fmt.Println("Recipients unavailable:", err)
				continue
			}
			fmt.Println("Transfer recipients:", strings.Join(recipients, ", "))
		case "transfer":
			if len(args) < 3 {
				fmt.Println("Usage: transfer <to> <amount>")
				continue
			}
			amount, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				fmt.Println("Invalid amount:", args[2])
				continue
			}
			if err := ledger.Transfer(ctx, session, args[1], amount); err != nil {
				fmt.Println("Transfer failed:", err)
				continue
			}
			fmt.Printf("Transfer of $%d to %s successful.\n", amount, args[1])
		case "balances":
			balances, err := ledger.AllBalances(ctx, session)
			if err != nil {
				fmt.Println("Balances unavailable:", err)
				continue
			}
			usernames := make([]string, 0, len(balances))
			for username := range balances {
				usernames = append(usernames, username)
			}
			sort.Strings(usernames)
			for _, username := range usernames {
				fmt.Printf("%s -> $%d\n", username, balances[username])
			}
		case "pending":
			req, err := ledger.PendingRequest(ctx)
			if err != nil {
				fmt.Println("No pending request:", err)
				continue
			}
			pending = req
			fmt.Printf("Pending request %s: %s -> %s | $%d\n", req.ID, req.From, req.To, req.Amount)
		case "approve":
			if pending.ID == "" {
				fmt.Println("No pending request; run 'pending' first")
				continue
			}
			if err := ledger.Approve(ctx, session, pending); err != nil {
				fmt.Println("Approval failed:", err)
				continue
			}
			fmt.Println("Transfer approved and processed.")
			pending = models.TransferRequest{}
		case "reject":
			if pending.ID == "" {
				fmt.Println("No pending request; run 'pending' first")
				continue
			}
			if err := ledger.Reject(ctx, session, pending); err != nil {
				fmt.Println("Rejection failed:", err)
				continue
			}
			fmt.Println("Transfer request rejected.")
			pending = models.TransferRequest{}
		case "logout":
			session = models.Session{}
			fmt.Println("Logged out")
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

// prompt prints label and returns the next input line.
func prompt(scanner *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}
