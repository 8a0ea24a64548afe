// Copyright 2024 The Moviecore Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moviecore"
	"moviecore/pkg/player"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(fmt.Errorf("moviecli: %w", err))
	}
}

func run() error {
	configFlag := flag.String("config", "./project.yaml", "path to project.yaml")
	addrFlag := flag.String("addr", ":8088", "live preview listen address")
	flag.Parse()

	ctx, err := moviecore.Open(*configFlag, nil)
	if err != nil {
		return fmt.Errorf("could not open project: %w", err)
	}
	defer ctx.Close()

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx.Run(runCtx)

	mux := http.NewServeMux()
	mux.Handle("/preview", player.PreviewHandler(ctx.Player))
	server := &http.Server{Addr: *addrFlag, Handler: mux}

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case sig := <-stop:
		log.Printf("received %v, stopping", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
