// Command orderbot runs the slide and AI-media order bot.
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/xojiakbarxolboyev/telegrambot/core/cmd"
	"github.com/xojiakbarxolboyev/telegrambot/internal/bot"
	"github.com/xojiakbarxolboyev/telegrambot/internal/config"
)

func main() {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: func(ctx context.Context, cfg cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			return bot.Bootstrap(ctx, cfg.(*config.Config))
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
