package bot

import (
	"github.com/Snaptraks/FateBot/catalog"
	"github.com/Snaptraks/FateBot/coordinator"
	"github.com/Snaptraks/FateBot/interfaces"
	"github.com/Snaptraks/FateBot/telemetry"
)

// CommandDependencies bundles the services the command handler uses.
type CommandDependencies struct {
	Coordinator   *coordinator.Coordinator
	Catalog       *catalog.Catalog
	Gateway       interfaces.ChatGateway
	MetricsClient *telemetry.MetricsClient
	Prefix        string
}
