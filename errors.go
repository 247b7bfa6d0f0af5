/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/Seednode/ghostly/ghosts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	zc.Development = false
	zc.DisableCaller = true
	zc.DisableStacktrace = true
	zc.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(logDate)
	zc.EncoderConfig.ConsoleSeparator = " | "
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	zc.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return zc.Build()
}

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	cfg.logger().Infof(format, args...)
}

func errorf(cfg *Config, format string, args ...any) {
	cfg.logger().Errorf(format, args...)
}

// statusFor maps pool errors onto the status shown to the user.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ghosts.ErrNameNotFound):
		return http.StatusNotFound
	case errors.Is(err, ghosts.ErrInsufficientPool), errors.Is(err, ghosts.ErrNameTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	switch {
	case errors.Is(err, ghosts.ErrNameNotFound):
		return "That ghost name does not exist. Please pick another one."
	case errors.Is(err, ghosts.ErrInsufficientPool):
		return "There are not enough free ghost names left."
	case errors.Is(err, ghosts.ErrNameTaken):
		return "Someone else already holds that ghost name. Please pick another one."
	default:
		return "An error has occurred. Please try again."
	}
}

func newPage(cfg *Config, title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon(cfg))
	htmlBody.WriteString(fmt.Sprintf(`<link rel="stylesheet" href="%s/assets/app.css">`, cfg.prefix))
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", html.EscapeString(title)))
	htmlBody.WriteString(fmt.Sprintf(`<body><main class="error"><p>%s</p><a href="%s/">Back to the list</a></main></body></html>`,
		html.EscapeString(body), cfg.prefix))

	return htmlBody.String()
}

func serveError(cfg *Config, w http.ResponseWriter, status int, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	_, _ = w.Write([]byte(newPage(cfg, title, body)))
}
