/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

// siteURL is the address people should open to pick a name.
func siteURL(cfg *Config, r *http.Request) string {
	if cfg.baseURL != "" {
		return strings.TrimSuffix(cfg.baseURL, "/") + cfg.prefix + "/"
	}

	return requestScheme(r) + "://" + r.Host + cfg.prefix + "/"
}

func serveQR(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		png, err := qrcode.Encode(siteURL(cfg, r), qrcode.Medium, qrSize)
		if err != nil {
			serveError(cfg, w, http.StatusInternalServerError, "Server Error", "QR code generation failed.")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		securityHeaders(cfg, w)

		if _, err := w.Write(png); err != nil {
			errs <- err
		}
	}
}
