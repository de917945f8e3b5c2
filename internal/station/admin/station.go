// Package admin implements the administration console: connected device
// listing, device reset broadcast and chatbot control.
package admin

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"tableside/internal/api"
	"tableside/internal/logger"
	"tableside/internal/push"
)

// Station holds the admin console state.
type Station struct {
	client *api.Client
	logger *logger.Logger
	out    io.Writer
	in     io.Reader
}

// New builds an admin station.
func New(client *api.Client, log *logger.Logger, out io.Writer, in io.Reader) *Station {
	return &Station{client: client, logger: log, out: out, in: in}
}

// Run serves the console until the context ends.
func (s *Station) Run(ctx context.Context, sub push.Subscriber) error {
	if err := sub.RegisterDevice("admin", 0); err != nil {
		s.logger.Error("device_register_failed", "Device registration failed", "", err, nil)
	}

	fmt.Fprintln(s.out, "Admin console ready. Type 'help' for commands.")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			s.handleCommand(ctx, line)
		}
	}
}

func (s *Station) handleCommand(ctx context.Context, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "help":
		fmt.Fprint(s.out, `Commands:
  devices               list connected devices
  reset <device-id>     broadcast a reset to one device
  chatbot               show chatbot status
  chatbot on|off        enable or disable the chatbot
`)
	case "devices":
		s.listDevices(ctx)
	case "reset":
		s.resetDevice(ctx, fields[1:])
	case "chatbot":
		s.chatbot(ctx, fields[1:])
	default:
		fmt.Fprintf(s.out, "Unknown command %q. Type 'help'.\n", fields[0])
	}
}

func (s *Station) listDevices(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	devices, err := s.client.GetDevices(callCtx)
	if err != nil {
		fmt.Fprintf(s.out, "Error loading devices: %v ('devices' to retry)\n", err)
		return
	}
	if len(devices) == 0 {
		fmt.Fprintln(s.out, "No devices connected.")
		return
	}
	fmt.Fprintf(s.out, "%-24s %-10s %-6s %-16s %s\n", "Device", "Role", "Table", "IP", "Last active")
	for _, d := range devices {
		table := "-"
		if d.TableNum > 0 {
			table = fmt.Sprintf("%d", d.TableNum)
		}
		fmt.Fprintf(s.out, "%-24s %-10s %-6s %-16s %s\n", d.ID, d.Role, table, d.IPAddress, d.LastActive)
	}
}

func (s *Station) resetDevice(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Device id required.")
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.client.ResetDevice(callCtx, args[0]); err != nil {
		fmt.Fprintf(s.out, "Error resetting device %s: %v\n", args[0], err)
		return
	}
	fmt.Fprintf(s.out, "Reset broadcast sent to %s.\n", args[0])
}

func (s *Station) chatbot(ctx context.Context, args []string) {
	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if len(args) == 0 {
		settings, err := s.client.GetChatbotSettings(callCtx)
		if err != nil {
			fmt.Fprintf(s.out, "Error loading chatbot settings: %v\n", err)
			return
		}
		if settings.Enabled {
			fmt.Fprintln(s.out, "Chatbot is enabled.")
		} else {
			fmt.Fprintln(s.out, "Chatbot is disabled.")
		}
		return
	}

	var enabled bool
	switch args[0] {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		fmt.Fprintln(s.out, "Usage: chatbot [on|off]")
		return
	}

	if err := s.client.ToggleChatbot(callCtx, enabled); err != nil {
		fmt.Fprintf(s.out, "Error toggling chatbot: %v\n", err)
		return
	}
	if enabled {
		fmt.Fprintln(s.out, "Chatbot enabled.")
	} else {
		fmt.Fprintln(s.out, "Chatbot disabled.")
	}
}
