package internal

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/config"
	"github.com/settlehq/settle/internal/domain/user"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/postgres"
	"github.com/settlehq/settle/internal/repository"
	"github.com/settlehq/settle/internal/security"
	"github.com/settlehq/settle/internal/types"
	"github.com/shopspring/decimal"
)

const tokenTTL = 24 * time.Hour

func loadConfig() (*config.Configuration, *logger.Logger, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

// AddUser creates an owner from USER_EMAIL, WALLET and the optional USER_ID and SMART_ACCOUNT
func AddUser() error {
	email := os.Getenv("USER_EMAIL")
	if email == "" {
		return fmt.Errorf("USER_EMAIL is required")
	}

	wallet, err := types.NormalizeWalletAddress(os.Getenv("WALLET"))
	if err != nil {
		return fmt.Errorf("WALLET: %w", err)
	}

	var smartAccount string
	if raw := os.Getenv("SMART_ACCOUNT"); raw != "" {
		if smartAccount, err = types.NormalizeWalletAddress(raw); err != nil {
			return fmt.Errorf("SMART_ACCOUNT: %w", err)
		}
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := postgres.NewDB(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer db.Close()

	ctx := types.SetUserID(context.Background(), types.DefaultUserID)
	u := &user.User{
		ID:                  lo.CoalesceOrEmpty(os.Getenv("USER_ID"), types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USER)),
		Email:               email,
		WalletAddress:       wallet,
		SmartAccountAddress: smartAccount,
		TotalEarned:         decimal.Zero,
		BaseModel:           types.GetDefaultBaseModel(ctx),
	}

	if err := repository.NewUserRepository(db, log).Create(ctx, u); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	log.Infow("user created",
		"user_id", u.ID,
		"email", u.Email,
		"payout_address", u.PayoutAddress())
	return nil
}

// GenerateToken prints a bearer token for USER_ID signed with auth.secret
func GenerateToken() error {
	userID := os.Getenv("USER_ID")
	if userID == "" {
		return fmt.Errorf("USER_ID is required")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	token, err := security.NewTokenValidator(cfg).GenerateToken(userID, tokenTTL)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}

// SignWebhook prints the signature header value for the body in BODY_FILE
func SignWebhook() error {
	path := os.Getenv("BODY_FILE")
	if path == "" {
		return fmt.Errorf("BODY_FILE is required")
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", cfg.Webhook.SignatureHeader, security.NewSignatureVerifier(cfg).Sign(body))
	return nil
}
