//go:build tools
// +build tools

package tools

import (
	_ "github.com/cespare/xxhash/v2"
	_ "github.com/charmbracelet/lipgloss"
	_ "github.com/cloudwego/eino"
	_ "github.com/cloudwego/eino-ext/components/model/claude"
	_ "github.com/cloudwego/eino-ext/components/model/openai"
	_ "github.com/go-playground/validator/v10"
	_ "github.com/go-viper/mapstructure/v2"
	_ "github.com/google/uuid"
	_ "github.com/spf13/cobra"
	_ "github.com/spf13/viper"
)
