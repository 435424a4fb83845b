package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/existflow/secureplan/internal/db"
	"github.com/existflow/secureplan/internal/logger"
	"github.com/existflow/secureplan/internal/model"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts in the configured database",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an account (prompts for the password)",
	RunE:  runUserAdd,
}

func init() {
	userCmd.AddCommand(userAddCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Display name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)

	fmt.Print("Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)

	fmt.Print("Password: ")
	passwordBytes, _ := term.ReadPassword(int(syscall.Stdin))
	password := string(passwordBytes)
	fmt.Println()

	fmt.Print("Confirm Password: ")
	confirmBytes, _ := term.ReadPassword(int(syscall.Stdin))
	confirm := string(confirmBytes)
	fmt.Println()

	if name == "" || email == "" {
		return fmt.Errorf("display name and email are required")
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	dbConn, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = dbConn.Close()
	}()

	user := model.User{
		ID:           uuid.NewString(),
		DisplayName:  name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := dbConn.CreateUser(context.Background(), user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info("User created from CLI", logger.F("user", user.ID))
	fmt.Printf("✅ Created %s (%s)\n", name, user.ID)
	return nil
}
