package handler

import (
	"context"
	"net/http"

	"github.com/boxwatch/boxwatch-api/internal/app"
	"github.com/boxwatch/boxwatch-api/pkg/config"
	"github.com/boxwatch/boxwatch-api/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var r *gin.Engine

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		logrus.WithError(err).Fatal("could not create logger")
	}

	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.WithError(err).Fatal("could not initialize backends")
	}

	gin.SetMode(gin.ReleaseMode)
	r = a.Router()
}

// Handler is the entry point for Vercel Go Runtime. Scheduled work runs
// through the /triggers routes on this deployment.
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
