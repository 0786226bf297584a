package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/utils"
	"github.com/salonspace/booking-backend/pkg/jwt"
)

func main() {
	var userFlag, emailFlag, secretFlag string
	var expiry time.Duration
	flag.StringVar(&userFlag, "user", "", "issue a development access token for this user ID")
	flag.StringVar(&emailFlag, "email", "dev@salonspace.local", "email claim for the development token")
	flag.StringVar(&secretFlag, "secret", "", "sign the development token with this secret instead of a new one")
	flag.DurationVar(&expiry, "expiry", 24*time.Hour, "development token lifetime")
	flag.Parse()

	fmt.Println("===========================================")
	fmt.Println("Secret Generator for SalonSpace")
	fmt.Println("===========================================")
	fmt.Println()

	jwtSecret := secretFlag
	if jwtSecret == "" {
		generated, err := utils.GenerateSecret(32)
		if err != nil {
			log.Fatalf("Failed to generate secrets: %v", err)
		}
		jwtSecret = generated

		fmt.Println("✅ Secrets generated successfully!")
		fmt.Println()
		fmt.Println("Add these to your .env file:")
		fmt.Println()
		fmt.Printf("JWT_SECRET=%s\n", jwtSecret)
		fmt.Println()
	}

	if userFlag != "" {
		userID, err := uuid.Parse(userFlag)
		if err != nil {
			log.Fatalf("Invalid -user value: %v", err)
		}

		token, err := jwt.NewService(jwtSecret, "", expiry).GenerateAccessToken(userID, emailFlag)
		if err != nil {
			log.Fatalf("Failed to sign development token: %v", err)
		}

		fmt.Printf("Development access token for %s (expires in %s):\n", userID, expiry)
		fmt.Println()
		fmt.Printf("Authorization: Bearer %s\n", token)
		fmt.Println()
	}

	fmt.Println("⚠️  IMPORTANT: Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
