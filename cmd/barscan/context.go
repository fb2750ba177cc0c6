package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"barscan/internal/api"
	"barscan/internal/catalog"
	"barscan/internal/config"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) apiBind() string {
	if c.apiFlag != nil {
		if bind := strings.TrimSpace(*c.apiFlag); bind != "" {
			return bind
		}
	}
	if cfg := c.configValue(); cfg != nil {
		return cfg.Paths.APIBind
	}
	return ""
}

func (c *commandContext) apiClient() (*api.Client, error) {
	token := ""
	if cfg := c.configValue(); cfg != nil {
		token = cfg.Paths.APIToken
	}
	client, err := api.NewClient(c.apiBind(), token)
	if err != nil {
		return nil, fmt.Errorf("daemon API: %w", err)
	}
	return client, nil
}

// openCatalog opens the configured product catalog for direct access.
func (c *commandContext) openCatalog() (*catalog.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Paths.CatalogDB) == "" {
		return nil, fmt.Errorf("product catalog disabled (paths.catalog_db is empty)")
	}
	store, err := catalog.Open(cfg.Paths.CatalogDB)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", cfg.Paths.CatalogDB, err)
	}
	return store, nil
}

// wrapAPIError turns transport failures into an operator hint.
func wrapAPIError(err error, client *api.Client) error {
	if err == nil {
		return nil
	}
	if api.IsAPIUnavailable(err) {
		return fmt.Errorf("connect to daemon at %s: not reachable; start it with `barscan start`", client.BaseURL())
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
