// Command dirabus-token signs an access token for local testing and
// operator use. It reads the same JWT_* settings as the server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kirinyoku/dirabus/internal/auth"
	"github.com/kirinyoku/dirabus/internal/config"
	"github.com/kirinyoku/dirabus/internal/domain"
	"github.com/sirupsen/logrus"
)

func main() {
	userID := flag.Int64("user", 0, "user id")
	role := flag.String("role", string(domain.RolePassenger), "admin, conductor or passenger")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	cfg, err := config.New()
	if err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}

	r, ok := domain.ParseRole(*role)
	if !ok {
		logger.WithField("role", *role).Fatal("unknown role")
	}

	token, err := auth.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL).GenerateAccessToken(*userID, r)
	if err != nil {
		logger.WithError(err).Fatal("failed to sign token")
	}

	fmt.Println(token)
}
