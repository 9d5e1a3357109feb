package handler

import (
	"kchat/internal/app/chat"
	"kchat/internal/configs"
)

// AppDeps bundles what the HTTP handlers need.
type AppDeps struct {
	Room   *chat.Room
	Config *configs.AppConfig
}
