// Command devtoken prints credentials for local testing: a customer access
// token and, optionally, the bcrypt hash of an admin API key.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/loyaltyhub/loyalty-api/internal/config"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/apikey"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/jwt"
)

func main() {
	customerID := flag.Int64("customer", 0, "customer id")
	restaurantID := flag.Int64("restaurant", 0, "restaurant id")
	admin := flag.Bool("admin", false, "issue an admin token")
	hashKey := flag.String("hash-key", "", "print the ADMIN_API_KEY_HASH for this key")
	flag.Parse()

	cfg := config.Load()

	if *hashKey != "" {
		hash, err := apikey.Hash(*hashKey)
		if err != nil {
			log.Fatalf("Failed to hash key: %v", err)
		}
		fmt.Printf("ADMIN_API_KEY_HASH=%s\n", hash)
	}

	role := jwt.RoleUser
	if *admin {
		role = jwt.RoleAdmin
	} else if *customerID <= 0 || *restaurantID <= 0 {
		if *hashKey != "" {
			return
		}
		log.Fatal("-customer and -restaurant are required for user tokens")
	}

	token, err := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL).GenerateAccessToken(*customerID, *restaurantID, role)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Printf("Authorization: Bearer %s\n", token)
}
