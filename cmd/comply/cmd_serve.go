// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianComply/services/comply"
)

var (
	servePort int

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the compliance API server",
		Long: `Starts the HTTP API under /v1/comply with framework catalogs,
crosswalk mappings, durable project state, gap analysis, and Prometheus
metrics on /metrics. Framework catalogs are hot-reloaded on file change.`,
		Run: runServe,
	}
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
}

func runServe(cmd *cobra.Command, args []string) {
	logger := newLogger(false)
	defer logger.Close()

	svc, err := comply.NewService(serviceConfig(logger))
	if err != nil {
		logger.Error("Failed to start compliance service", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	if logDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if logDebug {
		router.Use(gin.Logger())
	}

	handlers := comply.NewHandlers(svc)
	v1 := router.Group("/v1")
	comply.RegisterRoutes(v1, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	printBanner(servePort, svc.Ready())

	// Graceful shutdown: flush the audit trail and close badger.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("Shutting down compliance server")
		svc.Close()
		logger.Close()
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%d", servePort)
	logger.Info("Starting compliance server", "address", addr)
	if err := router.Run(addr); err != nil {
		logger.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}

func printBanner(port int, ready comply.ReadyResponse) {
	fmt.Printf(`
╔═══════════════════════════════════════════════════════════════════╗
║                     ALEUTIAN COMPLY SERVER                        ║
╠═══════════════════════════════════════════════════════════════════╣
║  Frameworks loaded: %-4d    Mapping pairs: %-4d                   ║
║                                                                   ║
║  Quick Start:                                                     ║
║    curl http://localhost:%d/v1/comply/health                    ║
║    curl http://localhost:%d/v1/comply/frameworks                ║
║    curl "http://localhost:%d/v1/comply/projects/acme/gap?\      ║
║      current_framework=nist_csf&target_framework=soc2"            ║
╚═══════════════════════════════════════════════════════════════════╝

`, ready.Frameworks, ready.MappingPairs, port, port, port)
}
