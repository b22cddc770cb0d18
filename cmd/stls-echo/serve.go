//go:build linux

package main

import (
	"crypto/tls"
	"github.com/brickingsoft/stls"
	"github.com/brickingsoft/stls/pkg/security"
	stlstls "github.com/brickingsoft/stls/tls"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"io"
	"net/http"
	"time"
)

var (
	serveNetwork string
	serveAddress string
	serveHosts   []string
	serveMetrics string
	serveTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a TLS echo server with a self-signed certificate",
	Long: `Run a TLS echo server with a self-signed certificate.

Every accepted connection is served on its own goroutine; reads and writes
only park that goroutine while the socket is not ready.

Examples:
  stls-echo serve --address 127.0.0.1:8443
  stls-echo serve --network unix --address /tmp/echo.sock --metrics :9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveNetwork, "network", "tcp", "tcp, tcp4, tcp6, unix or unixpacket")
	serveCmd.Flags().StringVar(&serveAddress, "address", "127.0.0.1:8443", "address to listen on")
	serveCmd.Flags().StringSliceVar(&serveHosts, "host", []string{"localhost", "127.0.0.1"}, "names and addresses in the certificate")
	serveCmd.Flags().StringVar(&serveMetrics, "metrics", "", "serve prometheus metrics on this address")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", time.Minute, "idle timeout per connection, 0 disables it")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cert, _, err := security.SelfSigned(serveHosts...)
	if err != nil {
		return err
	}

	options := []stls.Option{stls.WithLogger(logger)}
	if serveMetrics != "" {
		registry := prometheus.NewRegistry()
		metrics, metricsErr := stls.NewMetrics(registry)
		if metricsErr != nil {
			return metricsErr
		}
		options = append(options, stls.WithMetrics(metrics))
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if srvErr := http.ListenAndServe(serveMetrics, mux); srvErr != nil {
				logger.Error().Err(srvErr).Msg("metrics server stopped")
			}
		}()
	}

	ln, err := stlstls.Listen(serveNetwork, serveAddress, &tls.Config{Certificates: []tls.Certificate{cert}}, options...)
	if err != nil {
		return err
	}
	defer ln.Close()
	logger.Info().Str("network", serveNetwork).Str("addr", ln.Addr().String()).Msg("listening")

	for {
		conn, acceptErr := ln.Accept()
		if acceptErr != nil {
			return acceptErr
		}
		conn.SetTimeout(serveTimeout)
		go serveConn(conn)
	}
}

func serveConn(conn *stlstls.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	if err := conn.Handshake(); err != nil {
		logger.Warn().Err(err).Str("remote", remote).Msg("handshake failed")
		return
	}
	logger.Info().Str("remote", remote).Str("proto", tls.VersionName(conn.ConnectionState().Version)).Msg("accepted")
	n, err := io.Copy(conn, conn)
	if err != nil {
		logger.Warn().Err(err).Str("remote", remote).Int64("bytes", n).Msg("echo failed")
		return
	}
	_ = conn.Shutdown()
	logger.Info().Str("remote", remote).Int64("bytes", n).Msg("closed")
}
