package cli

import (
	"fmt"
	"log"
	"os"
	"os/exec"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

var (
	installCmd = &cobra.Command{
		Use:   "install",
		Short: "Install the pipeline server as a background OS service",
		Run:   runInstall,
	}

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the installed pipeline server service",
		Run:   runStart,
	}

	stopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop the pipeline server service",
		Run:   runStop,
	}

	uninstallCmd = &cobra.Command{
		Use:   "uninstall",
		Short: "Uninstall the pipeline server service",
		Run:   runUninstall,
	}

	logsCmd = &cobra.Command{
		Use:   "logs",
		Short: "Tail the service log file",
		Run:   runLogs,
	}
)

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(logsCmd)
}

// program adapts runServe to kardianos/service's lifecycle so the server
// can run detached from a terminal, installed as a systemd unit / Windows
// service / launchd agent.
type program struct{}

func (p *program) Start(s service.Service) error {
	go p.run()
	return nil
}

func (p *program) run() {
	if err := setupServiceLogging(); err != nil {
		log.Printf("failed to set up file logging: %v", err)
	}
	log.Println("pipeline service starting...")
	runServe(serviceRunCmd, nil)
}

func (p *program) Stop(s service.Service) error {
	log.Println("pipeline service stopping...")
	return nil
}

func serviceConfig() *service.Config {
	ex, err := os.Executable()
	if err != nil {
		log.Fatal(err)
	}
	return &service.Config{
		Name:        "pipeline-server",
		DisplayName: "Medical Consultation Pipeline Server",
		Description: "Long-running audio pipeline server dispatching jobs over stdio.",
		Executable:  ex,
		Arguments:   []string{"service-run"},
	}
}

// serviceRunCmd is the hidden entry point the installed service actually
// invokes; it is never meant to be typed by a human.
var serviceRunCmd = &cobra.Command{
	Use:    "service-run",
	Hidden: true,
	Run: func(cmd *cobra.Command, args []string) {
		if err := setupServiceLogging(); err != nil {
			log.Printf("failed to set up file logging: %v", err)
		}
		log.Println("starting service-run...")

		prg := &program{}
		s, err := service.New(prg, serviceConfig())
		if err != nil {
			log.Fatalf("failed to create service: %v", err)
		}

		svcLogger, err := s.Logger(nil)
		if err != nil {
			log.Printf("failed to get system logger: %v", err)
		} else {
			_ = svcLogger.Info("pipeline service starting...")
		}

		if err := s.Run(); err != nil {
			if svcLogger != nil {
				_ = svcLogger.Error(err)
			}
			log.Fatalf("service failed to run: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serviceRunCmd)
}

func runInstall(cmd *cobra.Command, args []string) {
	s, err := service.New(&program{}, serviceConfig())
	if err != nil {
		log.Fatal(err)
	}
	if err := s.Install(); err != nil {
		log.Fatalf("failed to install service: %v", err)
	}
	fmt.Println("service installed.")
}

func runStart(cmd *cobra.Command, args []string) {
	s, err := service.New(&program{}, serviceConfig())
	if err != nil {
		log.Fatal(err)
	}
	if err := s.Start(); err != nil {
		log.Fatalf("failed to start service: %v", err)
	}
	fmt.Println("service started.")
}

func runStop(cmd *cobra.Command, args []string) {
	s, err := service.New(&program{}, serviceConfig())
	if err != nil {
		log.Fatal(err)
	}
	if err := s.Stop(); err != nil {
		log.Fatalf("failed to stop service: %v", err)
	}
	fmt.Println("service stopped.")
}

func runUninstall(cmd *cobra.Command, args []string) {
	s, err := service.New(&program{}, serviceConfig())
	if err != nil {
		log.Fatal(err)
	}
	if err := s.Uninstall(); err != nil {
		log.Fatalf("failed to uninstall service: %v", err)
	}
	fmt.Println("service uninstalled.")
}

func serviceLogPath() string {
	return "/tmp/pipeline-server.log"
}

func setupServiceLogging() error {
	f, err := os.OpenFile(serviceLogPath(), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("error opening file: %v", err)
	}
	log.SetOutput(f)
	return nil
}

func runLogs(cmd *cobra.Command, args []string) {
	fmt.Printf("tailing logs from %s...\n", serviceLogPath())
	c := exec.Command("tail", "-f", serviceLogPath())
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		fmt.Printf("error tailing logs: %v\n", err)
	}
}
