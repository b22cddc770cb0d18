//go:build linux

package main

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"github.com/brickingsoft/stls"
	stlstls "github.com/brickingsoft/stls/tls"
	"github.com/spf13/cobra"
	"strings"
	"time"
)

var (
	dialNetwork    string
	dialAddress    string
	dialServerName string
	dialInsecure   bool
	dialTimeout    time.Duration
)

var dialCmd = &cobra.Command{
	Use:   "dial [message]",
	Short: "Send one line to a TLS echo server and print the reply",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDial,
}

func init() {
	dialCmd.Flags().StringVar(&dialNetwork, "network", "tcp", "tcp, tcp4, tcp6, unix or unixpacket")
	dialCmd.Flags().StringVar(&dialAddress, "address", "127.0.0.1:8443", "server address")
	dialCmd.Flags().StringVar(&dialServerName, "server-name", "", "name to verify, defaults to the address host")
	dialCmd.Flags().BoolVar(&dialInsecure, "insecure", false, "skip certificate verification")
	dialCmd.Flags().DurationVar(&dialTimeout, "timeout", 10*time.Second, "bound on every wait")
}

func runDial(cmd *cobra.Command, args []string) error {
	message := "hello"
	if len(args) > 0 {
		message = args[0]
	}
	d := &stlstls.Dialer{
		Config: &tls.Config{
			ServerName:         dialServerName,
			InsecureSkipVerify: dialInsecure,
		},
		Timeout: dialTimeout,
		Options: []stls.Option{stls.WithLogger(logger)},
	}
	conn, err := d.Dial(dialNetwork, dialAddress)
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetTimeout(dialTimeout)

	if _, err = conn.Write([]byte(message + "\n")); err != nil {
		return err
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSuffix(reply, "\n"))
	return conn.Shutdown()
}
