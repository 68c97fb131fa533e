package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ow1lab/noctiforge-runner/api/proto"
	"github.com/ow1lab/noctiforge-runner/pkg/log"
	"github.com/ow1lab/noctiforge-runner/pkg/metrics"
	"github.com/ow1lab/noctiforge-runner/pkg/runtime"
	"github.com/ow1lab/noctiforge-runner/pkg/worker"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "noctiforge-worker",
	Short:   "noctiforge function execution worker",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"noctiforge-worker version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("metrics-addr", "127.0.0.1:9102", "Prometheus /metrics bind address")
	rootCmd.PersistentFlags().String("runc", "", "runc binary name or path (default: \"runc\" from PATH)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(startCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the worker's RPC server and background reaper",
	Long: `Start resolves execute requests by action name, materializes
handler containers on demand, and proxies invocations to them over a
UNIX socket. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := worker.CheckUnprivilegedUserNamespaces(); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
		if err := worker.SealExecutable(); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}

		root, err := worker.ResolveWorkerRoot()
		if err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
		log.Logger.Info().Str("root", root).Msg("worker root resolved")

		metrics.SetVersion(Version)
		metrics.RegisterComponent("controlplane", false, "initializing")
		metrics.RegisterComponent("registry", false, "initializing")
		metrics.RegisterComponent("runtime", false, "initializing")

		cfg := worker.LoadConfig()
		paths := worker.NewPaths(root)

		cpConn, err := dialEndpoint(cfg.ControlPlaneClient)
		if err != nil {
			metrics.UpdateComponent("controlplane", false, err.Error())
			return fmt.Errorf("bootstrap: dial control plane: %w", err)
		}
		defer cpConn.Close()
		metrics.UpdateComponent("controlplane", true, "connected")

		regConn, err := dialEndpoint(cfg.RegistryClient)
		if err != nil {
			metrics.UpdateComponent("registry", false, err.Error())
			return fmt.Errorf("bootstrap: dial registry: %w", err)
		}
		defer regConn.Close()
		metrics.UpdateComponent("registry", true, "connected")

		runcPath, _ := cmd.Flags().GetString("runc")
		rt := runtime.NewRuncRuntime(runcPath)
		metrics.UpdateComponent("runtime", true, "ready")

		cp := worker.NewControlPlane(proto.NewControlPlaneClient(cpConn))
		reg := worker.NewRegistry(paths, proto.NewRegistryClient(regConn))
		inv := worker.NewInvocations(paths, rt)
		sysUser := worker.SysUser{UID: uint32(os.Getuid()), GID: uint32(os.Getgid())}
		orch := worker.NewOrchestrator(paths, rt, reg, inv, sysUser)
		reaper := worker.NewReaper(inv, cfg.BackgroundTime, cfg.ResourceTTL)
		server := worker.NewServer(cp, orch)

		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/health", metrics.HealthHandler())
		mux.Handle("/ready", metrics.ReadyHandler())
		mux.Handle("/live", metrics.LivenessHandler())
		metricsSrv := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Logger.Warn().Err(err).Msg("metrics server stopped")
			}
		}()
		log.Logger.Info().Str("addr", metricsAddr).Msg("metrics server listening")

		reaperCtx, cancelReaper := context.WithCancel(context.Background())
		go reaper.Run(reaperCtx)

		serveErr := make(chan error, 1)
		go func() {
			serveErr <- server.Serve(cfg.ServerAddr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			log.Logger.Info().Msg("shutdown signal received")
		case err := <-serveErr:
			if err != nil {
				log.Logger.Error().Err(err).Msg("worker RPC server exited")
			}
		}

		// Ordered shutdown (§4.11): stop accepting RPCs, stop the
		// reaper, delete_all, then exit.
		server.Stop()
		cancelReaper()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelShutdown()
		if err := inv.DeleteAll(shutdownCtx); err != nil {
			log.Logger.Error().Err(err).Msg("delete_all failed during shutdown")
		}

		_ = metricsSrv.Close()
		log.Logger.Info().Msg("shutdown complete")
		return nil
	},
}

// dialEndpoint strips an http(s) scheme (the env vars in §6 are
// written as URLs, but grpc.DialContext wants a bare host:port target)
// and connects without transport security: the control plane and
// registry are trusted local-network collaborators, not public
// endpoints.
func dialEndpoint(endpoint string) (*grpc.ClientConn, error) {
	target := endpoint
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		target = u.Host
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return grpc.DialContext(ctx, target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
}
