package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Kraken Trader Configuration

[app]
# Log level: debug, info, warn, error
log_level = "info"

[trading]
# Trading mode: "live", "paper" or "recorder"
mode = "paper"
# Kraken Futures symbols to subscribe to
symbols = ["PI_XBTUSD", "PI_ETHUSD", "PI_SOLUSD", "PI_XRPUSD", "PI_LTCUSD"]
# Candle aggregation interval
candle_interval = "1m"
# Starting paper balance in USD
initial_balance = 10000.0

[risk]
# Orders carrying an AI confidence below this are rejected
min_confidence = 0.5
# Maximum absolute position size per symbol
max_position_size = 1000.0

[strategy]
# Moving average period for the directional filter
ma_period = 50
# Require close above MA for short entries
filter_bearish = true
# Require close below MA for long entries
filter_bullish = true
# Fraction of equity risked per entry
risk_fraction = 0.03
# Stop placed this fraction beyond the signal candle extreme
stop_buffer = 0.001

[inference]
# Enable the AI confidence gate (requires an OpenAI key in credentials.toml)
enabled = false
model = "gpt-4o-mini"
min_confidence = 0.5
timeout = "5s"

[recorder]
# Record incoming ticks to daily CSV files
enabled = true

[notifications]
enabled = false

[notifications.telegram]
enabled = false
bot_token = ""
chat_ids = []
`

const credentialsTemplate = `# Kraken Trader Credentials
# Keep this file secure. Environment variables override these values.

[kraken]
api_key = ""
private_key = ""

[openai]
api_key = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	return os.WriteFile(path, []byte(configTemplate), 0644)
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	// Credentials are sensitive, restrict permissions.
	return os.WriteFile(path, []byte(credentialsTemplate), 0600)
}
