package telegram

import (
	"encoding/json"
	"fmt"

	"github.com/rustyclaw/rustyclaw/internal/bus"
	"github.com/rustyclaw/rustyclaw/internal/channels"
	"github.com/rustyclaw/rustyclaw/internal/config"
	"github.com/rustyclaw/rustyclaw/internal/store"
)

// telegramCredentials is the decrypted creds JSON stored per channel instance.
type telegramCredentials struct {
	Token string `json:"token"`
}

// FactoryWithStores builds a channels.ChannelFactory for "telegram" channel
// instances loaded from the database. agentStore is threaded through so the
// resulting Channel can resolve group file writer context; nil disables that.
func FactoryWithStores(agentStore store.AgentStore) channels.ChannelFactory {
	return func(name string, creds json.RawMessage, cfg json.RawMessage,
		msgBus *bus.MessageBus, pairingSvc store.PairingStore) (channels.Channel, error) {

		var c telegramCredentials
		if len(creds) > 0 {
			if err := json.Unmarshal(creds, &c); err != nil {
				return nil, fmt.Errorf("decode telegram credentials for %s: %w", name, err)
			}
		}
		if c.Token == "" {
			return nil, nil
		}

		tcfg := config.TelegramConfig{Enabled: true, Token: c.Token}
		if len(cfg) > 0 {
			if err := json.Unmarshal(cfg, &tcfg); err != nil {
				return nil, fmt.Errorf("decode telegram config for %s: %w", name, err)
			}
			tcfg.Token = c.Token
		}

		return New(tcfg, msgBus, pairingSvc, agentStore)
	}
}
