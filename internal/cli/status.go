// Package cli: status.go implements the "lotscan status" command.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/lotscan/internal/session"
)

// NewStatusCommand creates the "status" cobra command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server reachability, the signed-in user and station addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context())
		},
	}
}

// statusResult is the JSON output of status.
type statusResult struct {
	Server     string `json:"server"`
	Online     bool   `json:"online"`
	OfflineErr string `json:"offlineError,omitempty"`
	SignedIn   bool   `json:"signedIn"`
	Username   string `json:"username,omitempty"`
	Verified   bool   `json:"verified"`
	MACAddress string `json:"macAddress"`
	IPAddress  string `json:"ipAddress"`
	OutputDir  string `json:"outputDir"`
}

func runStatus(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	res := statusResult{Server: cfg.Server, OutputDir: cfg.OutputDir}

	client, err := newClient(cfg, nil)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		res.OfflineErr = err.Error()
	} else {
		res.Online = true
	}

	if _, sess, err := loadSession(); err == nil {
		res.SignedIn = true
		res.Username = sess.Username
		res.Verified = sess.Verified
	} else {
		VerboseLog("No session: %v", err)
	}

	netinfo, err := session.DetectNetwork()
	if err != nil {
		VerboseLog("Warning: cannot detect network addresses: %v", err)
	}
	res.MACAddress = netinfo.MACAddress
	res.IPAddress = netinfo.IPAddress

	if IsJSONOutput() {
		return printJSON(res)
	}
	printStatusText(res)
	return nil
}

func printStatusText(res statusResult) {
	online := "online"
	if !res.Online {
		online = "offline"
	}
	fmt.Printf("Server:     %s (%s)\n", res.Server, online)

	user := "not signed in"
	if res.SignedIn {
		user = res.Username
		if !res.Verified {
			user += " (not verified)"
		}
	}
	fmt.Printf("User:       %s\n", user)
	fmt.Printf("MAC:        %s\n", orDash(res.MACAddress))
	fmt.Printf("IP:         %s\n", orDash(res.IPAddress))
	fmt.Printf("Output dir: %s\n", res.OutputDir)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
