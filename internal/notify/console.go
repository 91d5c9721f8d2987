package notify

import (
	"fmt"

	"github.com/fatih/color"
)

// Console prints notifications to stdout. Used in paper and backtest
// modes where no external channel is configured.
type Console struct{}

// NewConsole creates a console channel.
func NewConsole() *Console { return &Console{} }

// Name returns the channel name.
func (c *Console) Name() string { return "console" }

// Send prints the message.
func (c *Console) Send(message string) error {
	fmt.Printf("%s %s\n", color.CyanString("[trade]"), message)
	return nil
}
