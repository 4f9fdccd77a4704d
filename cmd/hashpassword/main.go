// cmd/hashpassword/main.go
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/your-org/storefront-backend/internal/pkg/auth"
)

// Prints the bcrypt hash of a password, for seeding users by hand
func main() {
	cost := flag.Int("cost", 12, "bcrypt cost")
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal("Usage: hashpassword [-cost 12] <password>")
	}

	password := flag.Arg(0)
	passwords := auth.NewPasswordManager(*cost)

	if err := passwords.ValidatePassword(password); err != nil {
		log.Fatalf("Password rejected: %v", err)
	}

	hash, err := passwords.HashPassword(password)
	if err != nil {
		log.Fatal("Error generating hash:", err)
	}

	if err := passwords.VerifyPassword(password, hash); err != nil {
		log.Fatal("Hash verification failed:", err)
	}

	fmt.Printf("Hash: %s\n", hash)
}
