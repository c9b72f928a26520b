package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/config"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath   string
	assetRoot    string
	metadataRoot string
	logLevel     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "assetctl",
		Short: "Inspect and exercise an asset tree",
		Long: `assetctl drives the asset registry outside of a running game: it lists the
assets a registry would recognise, loads them through the registered loaders
and watches the tree for hot reloads.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "TOML config file (defaults are used when empty)")
	cmd.PersistentFlags().StringVar(&opts.assetRoot, "root", "", "Asset root, overrides the config")
	cmd.PersistentFlags().StringVar(&opts.metadataRoot, "meta", "", "Metadata root, overrides the config")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newScanCmd(opts),
		newLoadCmd(opts),
		newWatchCmd(opts),
		newTypesCmd(opts),
	)
	return cmd
}

// config resolves the configuration file and applies the flag overrides.
func (o *rootOptions) config() (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if o.assetRoot != "" {
		cfg.Assets.Root = o.assetRoot
	}
	if o.metadataRoot != "" {
		cfg.Assets.MetadataRoot = o.metadataRoot
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openRegistry builds a registry with every default loader registered. The
// caller owns it and must call Shutdown.
func (o *rootOptions) openRegistry(events *core.EventSystem) (*assets.Registry, *config.Config, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, err
	}
	if err := core.SetLogLevel(cfg.Logging.Level); err != nil {
		return nil, nil, err
	}

	r, err := assets.NewRegistry(assets.Config{
		AssetRoot:    cfg.Assets.Root,
		MetadataRoot: cfg.Assets.MetadataRoot,
		MaxEntries:   cfg.Assets.MaxEntries,
		Workers:      cfg.Jobs.Workers,
		QueueSize:    cfg.Jobs.QueueSize,
	}, assets.WithEvents(events))
	if err != nil {
		return nil, nil, err
	}
	if err := assets.RegisterDefaults(r); err != nil {
		r.Shutdown()
		return nil, nil, err
	}
	return r, cfg, nil
}

func parseType(name string) (resources.ResourceType, error) {
	if name == "" {
		return resources.ResourceTypeNone, nil
	}
	t, ok := resources.ParseResourceType(name)
	if !ok || t == resources.ResourceTypeNone {
		return resources.ResourceTypeNone, fmt.Errorf("unknown resource type %q", name)
	}
	return t, nil
}
