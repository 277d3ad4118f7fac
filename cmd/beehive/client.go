package main

import (
	"beehive/internal/api"
	"beehive/internal/config"
)

func withClient(cfg *config.Config, fn func(*api.Client) error) error {
	return fn(api.NewClient(cfg.APIURL, cfg.APIKey))
}
